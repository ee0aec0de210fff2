// Package format adapts the engine's plain-text replies to what each chat
// platform expects: HTML-escaped text for Telegram's HTML parse mode,
// markdown-safe text for Discord.
package format

import (
	"regexp"
	"strings"
)

var discordSpecial = regexp.MustCompile("([*_`~|>])")

// ToTelegramHTML escapes a reply for Telegram's HTML parse mode. Replies
// produced by `\n` tags keep their line breaks; everything else is plain
// text, so escaping the three HTML metacharacters is the whole job.
func ToTelegramHTML(text string) string {
	return EscapeHTML(text)
}

// ToDiscordMarkdown escapes the characters Discord would otherwise treat
// as markdown, so a reply containing `*` or `_` renders literally.
func ToDiscordMarkdown(text string) string {
	return discordSpecial.ReplaceAllString(text, `\$1`)
}

// EscapeHTML escapes HTML special characters.
func EscapeHTML(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	return text
}
