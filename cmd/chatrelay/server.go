package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/chatrelay/internal/api"
	"github.com/kalambet/chatrelay/internal/config"
	"github.com/kalambet/chatrelay/internal/metrics"
	"github.com/kalambet/chatrelay/internal/ollama"
	"github.com/kalambet/chatrelay/internal/relay"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the relay server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show relay and Ollama status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the chat and health tools over MCP (stdio)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP(cmd.Context())
	},
}

func newLogger(level string, w io.Writer) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}

// buildRelay wires the Ollama client, optional metrics and the relay from cfg.
func buildRelay(cfg config.Config, logger *slog.Logger) (*relay.Relay, *ollama.Client, *metrics.Collector) {
	client := ollama.New(cfg.Ollama.BaseURL)

	var m *metrics.Collector
	if cfg.Metrics.Enabled {
		m = metrics.NewCollector(nil)
	}

	rl := relay.New(client, relay.Options{
		Defaults: relay.Defaults{
			Model:   cfg.Chat.DefaultModel,
			Message: cfg.Chat.DefaultMessage,
		},
		HealthTimeout: cfg.Health.Timeout,
		Metrics:       m,
		Logger:        logger,
	})
	return rl, client, m
}

func runServer(ctx context.Context) error {
	fmt.Fprintf(os.Stderr, "chatrelay version %s\n", version)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log.Level, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rl, client, m := buildRelay(cfg, logger)
	ollama.Probe(ctx, client, cfg.Chat.DefaultModel, logger)

	handler := api.NewHandler(api.Deps{
		Relay:     rl,
		Metrics:   m,
		StaticDir: cfg.Static.Dir,
		Logger:    logger,
	})

	addr := cfg.Server.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "Server running on http://%s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMCP(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// stdout carries the MCP protocol; logs go to stderr.
	logger := newLogger(cfg.Log.Level, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rl, _, _ := buildRelay(cfg, logger)
	stdioSrv := server.NewStdioServer(api.NewMCPServer(rl, version))
	logger.Info("MCP server started (stdio transport)", "ollama", cfg.Ollama.BaseURL)

	if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP stdio server: %w", err)
	}
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	client := relayClient(cfg, 2*time.Second)
	upstream := ollama.New(cfg.Ollama.BaseURL)

	var (
		health     relay.HealthResult
		healthCode int
		relayErr   error
		models     []string
		ollamaErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp, err := client.get(gctx, "/health")
		if err != nil {
			relayErr = err
			return nil
		}
		defer resp.Body.Close()
		healthCode = resp.StatusCode
		relayErr = json.NewDecoder(resp.Body).Decode(&health)
		return nil
	})
	g.Go(func() error {
		models, ollamaErr = upstream.ListModels(gctx)
		return nil
	})
	_ = g.Wait()

	switch {
	case relayErr != nil && healthCode == 0:
		printStatus("Relay", "stopped")
	case health.Healthy():
		printStatus("Relay", "running at %s", client.baseURL)
	default:
		printStatus("Relay", "running at %s, unhealthy (HTTP %d): %s", client.baseURL, healthCode, health.Error)
	}

	if ollamaErr != nil {
		printStatus("Ollama", "not running at %s", cfg.Ollama.BaseURL)
	} else {
		printStatus("Ollama", "running at %s (%d models)", cfg.Ollama.BaseURL, len(models))
	}

	model := cfg.Chat.DefaultModel
	if ollamaErr == nil && !containsModel(models, model) {
		model += " " + colorize(colorYellow, "(not pulled)")
	}
	printStatus("Default model", "%s", model)
	printStatus("Static dir", "%s", cfg.Static.Dir)
	return nil
}

func containsModel(models []string, name string) bool {
	for _, m := range models {
		if m == name || strings.HasPrefix(m, name+":") {
			return true
		}
	}
	return false
}
