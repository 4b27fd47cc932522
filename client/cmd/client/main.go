package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/chatrelay/chatrelay/client/internal/chat"
	"github.com/chatrelay/chatrelay/client/internal/config"
	"github.com/chatrelay/chatrelay/client/internal/stats"
	"github.com/chatrelay/chatrelay/client/internal/tui"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "chatrelay",
		Short:         "Client for the chatrelay broadcast relay",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to client config file (defaults apply when empty)")

	rootCmd.AddCommand(
		newChatCmd(&configPath),
		newStatsCmd(&configPath),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "chatrelay %s (%s)\n", version, commit)
			},
		},
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// loadConfig reads configPath, or returns defaults when it is empty.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func newChatCmd(configPath *string) *cobra.Command {
	var (
		url      string
		username string
		logFile  string
		lineMode bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Join the chat",
		Long: `chat connects to the relay and keeps reconnecting until interrupted.
An interactive terminal gets a full-screen interface; otherwise each line on
stdin is sent as a message and relayed events are printed to stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("url") {
				cfg.Chat.URL = url
			}
			if cmd.Flags().Changed("username") {
				cfg.Chat.Username = username
			}
			if err := config.Validate(cfg); err != nil {
				return fmt.Errorf("client config: %w", err)
			}

			interactive := !lineMode && term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))

			closeLog, err := setupLogging(interactive, logFile)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			sess := chat.NewSession(cfg.Chat)
			go sess.Run(ctx)

			if !interactive {
				return tui.RunLines(ctx, sess, os.Stdin, cmd.OutOrStdout())
			}

			p := tea.NewProgram(tui.New(sess, cfg.Chat.Username), tea.WithAltScreen(), tea.WithContext(ctx))
			if _, err := p.Run(); err != nil && ctx.Err() == nil {
				return fmt.Errorf("run tui: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", config.DefaultURL, "relay WebSocket URL")
	cmd.Flags().StringVar(&username, "username", config.DefaultUsername, "display name (empty lets the server choose)")
	cmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file (interactive mode discards logs otherwise)")
	cmd.Flags().BoolVar(&lineMode, "lines", false, "force line mode even on a terminal")
	return cmd
}

// setupLogging routes slog away from the terminal while the full-screen UI
// owns it.
func setupLogging(interactive bool, logFile string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		slog.SetDefault(slog.New(slog.NewJSONHandler(f, opts)))
		return func() { f.Close() }, nil
	}

	var w io.Writer = os.Stderr
	if interactive {
		w = io.Discard
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, opts)))
	return func() {}, nil
}

func newStatsCmd(configPath *string) *cobra.Command {
	var adminURL string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print relay metrics from the admin listener",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("admin") {
				cfg.Chat.AdminURL = adminURL
			}
			if cfg.Chat.AdminURL == "" {
				return fmt.Errorf("no admin URL configured")
			}

			s, err := stats.Fetch(cmd.Context(), stats.NewClient(cfg.Chat.AdminKeyHeader, cfg.Chat.AdminKey()), cfg.Chat.AdminURL)
			if err != nil {
				return err
			}
			return s.Write(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&adminURL, "admin", config.DefaultAdminURL, "relay admin base URL")
	return cmd
}
