package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/chatrelay/chatrelay/server/internal/api"
	"github.com/chatrelay/chatrelay/server/internal/config"
	"github.com/chatrelay/chatrelay/server/internal/health"
	"github.com/chatrelay/chatrelay/server/internal/metrics"
	"github.com/chatrelay/chatrelay/server/internal/registry"
	"github.com/chatrelay/chatrelay/server/internal/store"
	"github.com/chatrelay/chatrelay/server/internal/ws"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "chatrelay-server",
		Short: "Real-time WebSocket broadcast relay",
		Long: `chatrelay-server accepts WebSocket connections on a single path,
registers each client under the name given in ?username=, and relays every
text message to all connected clients. The set of connected names is pushed
to everyone whenever it changes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (defaults apply when empty)")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the relay (default command)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve(cmd.Context(), configPath)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "chatrelay-server %s (%s)\n", version, commit)
			},
		},
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, configPath string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	level := new(slog.LevelVar)
	level.Set(cfg.Log.SlogLevel())
	slog.SetDefault(newLogger(cfg.Log.Format, level))

	slog.Info("chatrelay-server starting",
		"version", version,
		"config", configPath,
		"addr", cfg.Relay.Addr(),
		"path", cfg.Relay.Path,
		"admin_http_port", cfg.Admin.HTTPPort,
		"admin_grpc_port", cfg.Admin.GRPCPort,
	)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Only the log level is applied live; listeners need a restart.
	if configPath != "" {
		go func() {
			err := config.Watch(ctx, configPath, func(updated *config.Config) {
				level.Set(updated.Log.SlogLevel())
				if updated.Relay != cfg.Relay || updated.Admin != cfg.Admin || updated.Log.Format != cfg.Log.Format {
					slog.Warn("relay config: listener or format changes take effect after restart")
				}
			})
			if err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	sessions := store.New(cfg.Admin.SessionHistory)
	go sessions.Run(ctx)

	reg := registry.New()
	hub := ws.New(reg,
		ws.WithDefaultUsername(cfg.Relay.DefaultUsername),
		ws.WithMetrics(metrics.New(promReg)),
		ws.WithStore(sessions),
	)

	// The relay listener serves exactly one route: the upgrade path.
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get(cfg.Relay.Path, hub.ServeHTTP)

	lis, err := net.Listen("tcp", cfg.Relay.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Relay.Addr(), err)
	}
	relaySrv := &http.Server{Handler: router}
	go func() {
		slog.Info("relay listening", "addr", lis.Addr().String(), "path", cfg.Relay.Path)
		if err := relaySrv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("relay server stopped", "err", err)
			cancel()
		}
	}()

	var adminSrv *http.Server
	if cfg.Admin.HTTPPort != 0 {
		key := cfg.Admin.APIKey()
		if cfg.Admin.APIKeyEnv != "" && key == "" {
			slog.Warn("admin API key env var is empty, admin endpoints are unauthenticated",
				"env", cfg.Admin.APIKeyEnv)
		}
		adminSrv = &http.Server{
			Addr:    net.JoinHostPort(cfg.Relay.Host, strconv.Itoa(cfg.Admin.HTTPPort)),
			Handler: api.New(reg, promReg,
				api.WithAPIKey(cfg.Admin.APIKeyHeader, key),
				api.WithSessions(sessions),
			),
		}
		go func() {
			slog.Info("admin HTTP listening", "addr", adminSrv.Addr)
			if err := adminSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("admin HTTP server stopped", "err", err)
			}
		}()
	}

	var healthSrv *health.Server
	if cfg.Admin.GRPCPort != 0 {
		addr := net.JoinHostPort(cfg.Relay.Host, strconv.Itoa(cfg.Admin.GRPCPort))
		hlis, err := net.Listen("tcp", addr)
		if err != nil {
			relaySrv.Close() //nolint:errcheck
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		healthSrv = health.New()
		go func() {
			slog.Info("gRPC health listening", "addr", addr)
			if err := healthSrv.Serve(hlis); err != nil {
				slog.Error("gRPC health server stopped", "err", err)
			}
		}()
		healthSrv.SetServing(true)
	}

	<-ctx.Done()
	slog.Info("chatrelay-server shutting down", "connections", reg.Len())

	if healthSrv != nil {
		healthSrv.Stop()
	}
	if adminSrv != nil {
		adminSrv.Shutdown(context.Background()) //nolint:errcheck
	}
	// Hijacked WebSocket connections are not tracked by Shutdown; they end
	// when the process exits.
	relaySrv.Shutdown(context.Background()) //nolint:errcheck
	return nil
}

func newLogger(format string, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
