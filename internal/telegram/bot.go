// Package telegram is the Telegram front-end: one engine Reply call per
// incoming message, with the Telegram user ID as the session username.
package telegram

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/hanspeak/kivescript"
	"github.com/hanspeak/kivescript/internal/format"
)

// Bot wraps the Telegram long-polling client around an engine.
type Bot struct {
	bot            *bot.Bot
	engine         *kivescript.Engine
	allowedUserIDs map[int64]bool
}

// New creates a Telegram bot serving replies from engine. allowedIDs is
// an optional whitelist; empty means every user may talk to the bot.
func New(token string, allowedIDs []int64, engine *kivescript.Engine) (*Bot, error) {
	allowed := make(map[int64]bool)
	for _, id := range allowedIDs {
		allowed[id] = true
	}

	b := &Bot{
		engine:         engine,
		allowedUserIDs: allowed,
	}

	tgBot, err := bot.New(token, bot.WithDefaultHandler(b.handleUpdate))
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	b.bot = tgBot

	return b, nil
}

// Start begins long polling and blocks until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	log.Println("Starting Telegram bot...")
	b.bot.Start(ctx)
}

func (b *Bot) handleUpdate(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	msg := update.Message

	if msg.From == nil {
		return
	}
	if len(b.allowedUserIDs) > 0 && !b.allowedUserIDs[msg.From.ID] {
		log.Printf("Ignoring message from unauthorized user %d", msg.From.ID)
		return
	}

	username := "tg:" + strconv.FormatInt(msg.From.ID, 10)
	reply, err := b.engine.Reply(ctx, username, msg.Text)
	if err != nil {
		log.Printf("Reply error for %s: %v", username, err)
		return
	}

	if err := b.sendReply(ctx, tgBot, msg.Chat.ID, reply); err != nil {
		log.Printf("Failed to send reply to chat %d: %v", msg.Chat.ID, err)
	}
}

func (b *Bot) sendReply(ctx context.Context, tgBot *bot.Bot, chatID int64, text string) error {
	_, err := tgBot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      format.ToTelegramHTML(text),
		ParseMode: models.ParseModeHTML,
	})
	return err
}
