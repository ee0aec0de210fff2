// Package discord is the Discord front-end: one engine Reply call per
// incoming message, with the Discord user ID as the session username.
package discord

import (
	"context"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"

	"github.com/hanspeak/kivescript"
	"github.com/hanspeak/kivescript/internal/format"
)

// Bot wraps a discordgo session around an engine.
type Bot struct {
	session *discordgo.Session
	guildID string // optional: restrict to one guild
	engine  *kivescript.Engine
}

// New creates a Discord bot serving replies from engine. guildID may be
// empty to answer in every guild the bot has joined.
func New(token, guildID string, engine *kivescript.Engine) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	b := &Bot{
		session: session,
		guildID: guildID,
		engine:  engine,
	}

	session.AddHandler(b.handleReady)
	session.AddHandler(b.handleMessage)
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent

	return b, nil
}

// Start opens the gateway connection.
func (b *Bot) Start() error {
	log.Println("Starting Discord bot...")
	return b.session.Open()
}

// Stop closes the gateway connection.
func (b *Bot) Stop() error {
	log.Println("Stopping Discord bot...")
	return b.session.Close()
}

func (b *Bot) handleReady(_ *discordgo.Session, r *discordgo.Ready) {
	log.Printf("Discord bot connected as %s#%s", r.User.Username, r.User.Discriminator)
}

func (b *Bot) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}
	if b.guildID != "" && m.GuildID != b.guildID {
		return
	}
	if m.Content == "" {
		return
	}

	username := "discord:" + m.Author.ID
	reply, err := b.engine.Reply(context.Background(), username, m.Content)
	if err != nil {
		log.Printf("Reply error for %s: %v", username, err)
		return
	}

	if _, err := s.ChannelMessageSend(m.ChannelID, format.ToDiscordMarkdown(reply)); err != nil {
		log.Printf("Failed to send reply to channel %s: %v", m.ChannelID, err)
	}
}
