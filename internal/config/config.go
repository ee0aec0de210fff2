// Package config loads the front-end configuration: which scripts to
// load, which engine knobs to set, and which chat integrations to start.
// Engine knobs come from a YAML file; secrets (bot tokens, the bridge
// shared secret) come from the environment so they never land in a
// checked-in config file.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Engine mirrors the engine's config knobs in their YAML spelling. Zero
// values mean "use the engine default".
type Engine struct {
	Strict             bool              `yaml:"strict"`
	UTF8               bool              `yaml:"utf8"`
	ForceCase          bool              `yaml:"force_case"`
	Concat             string            `yaml:"concat"`   // none | newline | space
	Morpheme           string            `yaml:"morpheme"` // none | separation
	Depth              int               `yaml:"depth"`
	ThrowExceptions    bool              `yaml:"throw_exceptions"`
	UnicodePunctuation string            `yaml:"unicode_punctuation"`
	ErrorMessages      map[string]string `yaml:"error_messages"`
}

// Telegram holds the Telegram front-end settings. The bot token is read
// from TELEGRAM_BOT_TOKEN, not from the file.
type Telegram struct {
	Token          string  `yaml:"-"`
	AllowedUserIDs []int64 `yaml:"allowed_user_ids"`
}

// Discord holds the Discord front-end settings. The bot token is read
// from DISCORD_BOT_TOKEN, not from the file.
type Discord struct {
	Token   string `yaml:"-"`
	GuildID string `yaml:"guild_id"`
}

// Bridge holds the remote object-macro bridge settings. The shared
// secret is read from KIVESCRIPT_BRIDGE_SECRET.
type Bridge struct {
	ListenAddr string `yaml:"listen_addr"`
	URL        string `yaml:"url"`
	Secret     string `yaml:"-"`
}

// Config is the full application configuration.
type Config struct {
	Engine       Engine   `yaml:"engine"`
	ScriptDirs   []string `yaml:"script_dirs"`
	SnapshotPath string   `yaml:"snapshot_path"`
	Telegram     Telegram `yaml:"telegram"`
	Discord      Discord  `yaml:"discord"`
	Bridge       Bridge   `yaml:"bridge"`
}

// Load reads path (optional; empty means "defaults only") and overlays
// the environment-sourced secrets.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.Telegram.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.Discord.Token = os.Getenv("DISCORD_BOT_TOKEN")
	if cfg.Discord.GuildID == "" {
		cfg.Discord.GuildID = os.Getenv("DISCORD_GUILD_ID")
	}
	cfg.Bridge.Secret = os.Getenv("KIVESCRIPT_BRIDGE_SECRET")

	return cfg, nil
}

// ConcatMode translates the YAML spelling into the parser's enum-backed
// values; unknown spellings fall back to "none".
func (e Engine) ConcatMode() string {
	switch strings.ToLower(e.Concat) {
	case "newline", "space":
		return strings.ToLower(e.Concat)
	default:
		return "none"
	}
}

// MorphemeSeparation reports whether morpheme separation mode is on.
func (e Engine) MorphemeSeparation() bool {
	return strings.EqualFold(e.Morpheme, "separation")
}
