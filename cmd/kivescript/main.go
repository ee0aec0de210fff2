package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/hanspeak/kivescript"
	"github.com/hanspeak/kivescript/internal/bridge"
	"github.com/hanspeak/kivescript/internal/config"
	"github.com/hanspeak/kivescript/internal/discord"
	"github.com/hanspeak/kivescript/internal/handler"
	"github.com/hanspeak/kivescript/internal/mcp"
	"github.com/hanspeak/kivescript/internal/telegram"
	"github.com/hanspeak/kivescript/internal/tui"
)

var scriptExtensions = map[string]bool{".rive": true, ".rs": true}

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "kivescript",
		Short: "RiveScript-style chatbot engine with Korean-morpheme preprocessing",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")

	rootCmd.AddCommand(
		newRunCmd(&configPath),
		newReplCmd(&configPath),
		newServeMCPCmd(&configPath),
		newServeTelegramCmd(&configPath),
		newServeDiscordCmd(&configPath),
		newServeBridgeCmd(&configPath),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newEngine loads config, scripts, and the optional bridge handler, and
// returns a sorted, reply-ready engine.
func newEngine(configPath string, scriptArgs []string) (*kivescript.Engine, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	ecfg := kivescript.DefaultConfig()
	ecfg.Strict = cfg.Engine.Strict
	ecfg.UTF8 = cfg.Engine.UTF8
	ecfg.ForceCase = cfg.Engine.ForceCase
	ecfg.ThrowExceptions = cfg.Engine.ThrowExceptions
	if cfg.Engine.Depth > 0 {
		ecfg.Depth = cfg.Engine.Depth
	}
	if cfg.Engine.UnicodePunctuation != "" {
		if _, err := regexp.Compile(cfg.Engine.UnicodePunctuation); err != nil {
			return nil, nil, fmt.Errorf("config: unicode_punctuation: %w", err)
		}
		ecfg.UnicodePunctuation = cfg.Engine.UnicodePunctuation
	}
	switch cfg.Engine.ConcatMode() {
	case "newline":
		ecfg.Concat = kivescript.ConcatNewline
	case "space":
		ecfg.Concat = kivescript.ConcatSpace
	}
	if cfg.Engine.MorphemeSeparation() {
		ecfg.Morpheme = kivescript.ModeSeparation
	}
	for key, msg := range cfg.Engine.ErrorMessages {
		ecfg.ErrorMessages[kivescript.ErrorKind(key)] = msg
	}

	engine := kivescript.New(ecfg)

	// The shell handler is always available so scripts can declare
	// `> object NAME sh` macros without extra setup.
	engine.SetHandler("sh", handler.NewShellHandler("sh"))

	if cfg.Bridge.URL != "" {
		client := bridge.NewClient(cfg.Bridge.URL, cfg.Bridge.Secret)
		if err := client.Start(context.Background()); err != nil {
			return nil, nil, fmt.Errorf("bridge connect: %w", err)
		}
		engine.SetHandler("remote", client)
	}

	dirs := append(append([]string(nil), cfg.ScriptDirs...), scriptArgs...)
	if err := loadScripts(engine, dirs); err != nil {
		return nil, nil, err
	}
	engine.SortReplies()

	for _, w := range engine.Warnings() {
		log.Printf("parse warning: %s", w)
	}

	if cfg.SnapshotPath != "" {
		if err := engine.LoadSnapshot(cfg.SnapshotPath); err != nil {
			log.Printf("Warning: failed to load session snapshot: %v", err)
		}
	}

	return engine, cfg, nil
}

// loadScripts feeds every .rive/.rs file under each path (file or
// directory) to the engine.
func loadScripts(engine *kivescript.Engine, paths []string) error {
	loaded := 0
	for _, root := range paths {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || !scriptExtensions[filepath.Ext(path)] {
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
			if err := engine.LoadLines(path, lines); err != nil {
				return err
			}
			loaded++
			return nil
		})
		if err != nil {
			return err
		}
	}
	if loaded == 0 {
		return fmt.Errorf("no .rive or .rs files found in %v", paths)
	}
	return nil
}

func newRunCmd(configPath *string) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "run [script dirs or files...]",
		Short: "Answer messages from stdin, one reply per line",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cfg, err := newEngine(*configPath, args)
			if err != nil {
				return err
			}

			// A terminal on stdin means the user probably wanted the REPL.
			if isatty.IsTerminal(os.Stdin.Fd()) {
				return runRepl(engine, cfg, user)
			}

			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				reply, err := engine.Reply(cmd.Context(), user, line)
				if err != nil {
					return err
				}
				fmt.Println(reply)
			}
			saveSnapshot(engine, cfg)
			return scanner.Err()
		},
	}
	cmd.Flags().StringVar(&user, "user", "local", "session username")
	return cmd
}

func newReplCmd(configPath *string) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "repl [script dirs or files...]",
		Short: "Chat with the bot interactively",
		RunE: func(_ *cobra.Command, args []string) error {
			engine, cfg, err := newEngine(*configPath, args)
			if err != nil {
				return err
			}
			return runRepl(engine, cfg, user)
		},
	}
	cmd.Flags().StringVar(&user, "user", "local", "session username")
	return cmd
}

func runRepl(engine *kivescript.Engine, cfg *config.Config, user string) error {
	botName := engine.GetVariable("name")
	if botName == "undefined" {
		botName = "bot"
	}
	program := tea.NewProgram(tui.NewModel(engine, user, botName), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("repl: %w", err)
	}
	saveSnapshot(engine, cfg)
	return nil
}

func newServeMCPCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve-mcp [script dirs or files...]",
		Short: "Serve the engine as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := newEngine(*configPath, args)
			if err != nil {
				return err
			}
			return mcp.NewServer(engine).Run(cmd.Context())
		},
	}
}

func newServeTelegramCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve-telegram [script dirs or files...]",
		Short: "Serve replies to a Telegram bot",
		RunE: func(_ *cobra.Command, args []string) error {
			engine, cfg, err := newEngine(*configPath, args)
			if err != nil {
				return err
			}
			if cfg.Telegram.Token == "" {
				return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
			}

			bot, err := telegram.New(cfg.Telegram.Token, cfg.Telegram.AllowedUserIDs, engine)
			if err != nil {
				return err
			}

			ctx := shutdownContext()
			bot.Start(ctx)
			saveSnapshot(engine, cfg)
			return nil
		},
	}
}

func newServeDiscordCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve-discord [script dirs or files...]",
		Short: "Serve replies to a Discord bot",
		RunE: func(_ *cobra.Command, args []string) error {
			engine, cfg, err := newEngine(*configPath, args)
			if err != nil {
				return err
			}
			if cfg.Discord.Token == "" {
				return fmt.Errorf("DISCORD_BOT_TOKEN is required")
			}

			bot, err := discord.New(cfg.Discord.Token, cfg.Discord.GuildID, engine)
			if err != nil {
				return err
			}
			if err := bot.Start(); err != nil {
				return err
			}
			defer bot.Stop()

			<-shutdownContext().Done()
			saveSnapshot(engine, cfg)
			return nil
		},
	}
}

func newServeBridgeCmd(configPath *string) *cobra.Command {
	var interpreter string
	cmd := &cobra.Command{
		Use:   "serve-bridge",
		Short: "Host a shell object-macro runtime for remote engines",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			addr := cfg.Bridge.ListenAddr
			if addr == "" {
				addr = ":7077"
			}
			server := bridge.NewServer(addr, cfg.Bridge.Secret, handler.NewShellHandler(interpreter))
			return server.Start(shutdownContext())
		},
	}
	cmd.Flags().StringVar(&interpreter, "interpreter", "sh", "interpreter for macro bodies")
	return cmd
}

func saveSnapshot(engine *kivescript.Engine, cfg *config.Config) {
	if cfg == nil || cfg.SnapshotPath == "" {
		return
	}
	if err := engine.SaveSnapshot(cfg.SnapshotPath); err != nil {
		log.Printf("Warning: failed to save session snapshot: %v", err)
	}
}

func shutdownContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		cancel()
	}()
	return ctx
}
