// Package main is the command-line harness for the lyricgate streaming client.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"lyricgate/internal/api"
	"lyricgate/internal/auth"
	"lyricgate/internal/config"
	"lyricgate/internal/crypto"
	"lyricgate/internal/domain"
	"lyricgate/internal/responses"
	"lyricgate/internal/stream"
	"lyricgate/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "config.toml", "Path to configuration file")
	login := flag.String("login", "", "Log in with this email (password from LYRICGATE_PASSWORD) and exit")
	logout := flag.Bool("logout", false, "Clear the stored session and exit")
	prompt := flag.String("prompt", "", "Rewrite instruction to stream")
	lyricsFile := flag.String("lyrics", "", "File with the lyrics to rewrite")
	out := flag.String("out", "", "Write the structured content channel to this file (default stdout)")
	showReasoning := flag.Bool("show-reasoning", false, "Print provisional reasoning text to stderr")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	setupLogging(cfg.Telemetry)

	client, err := buildClient(cfg)
	if err != nil {
		slog.Error("Failed to initialize client", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case *login != "":
		password := os.Getenv("LYRICGATE_PASSWORD")
		if password == "" {
			slog.Error("LYRICGATE_PASSWORD is not set")
			os.Exit(1)
		}
		if err := client.Login(ctx, *login, password); err != nil {
			slog.Error("Login failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Logged in", "email", *login)

	case *logout:
		if err := client.Logout(ctx); err != nil {
			slog.Error("Logout failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Logged out")

	case *prompt != "":
		if err := runRewrite(ctx, client, *prompt, *lyricsFile, *out, *showReasoning); err != nil {
			os.Exit(1)
		}

	default:
		flag.Usage()
		os.Exit(2)
	}
}

func setupLogging(cfg config.TelemetryConfig) {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func buildClient(cfg *config.Config) (*api.Client, error) {
	var cipher *crypto.Cipher
	if cfg.Auth.EncryptionKeyEnv != "" {
		key := os.Getenv(cfg.Auth.EncryptionKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("encryption key env %s is empty", cfg.Auth.EncryptionKeyEnv)
		}
		var err error
		cipher, err = crypto.NewCipherFromString(key)
		if err != nil {
			return nil, err
		}
	}

	var validator *responses.Validator
	if cfg.Stream.ResultSchema != "" {
		var err error
		validator, err = responses.NewValidatorFromFile(cfg.Stream.ResultSchema)
		if err != nil {
			return nil, err
		}
	}

	var metrics *telemetry.Metrics
	if cfg.Telemetry.MetricsEnabled {
		metrics = telemetry.NewMetrics(prometheus.DefaultRegisterer)
	}

	return api.New(cfg.Server.BaseURL, api.Options{
		Connection: cfg.Server.Connection,
		OpenTag:    cfg.Stream.OpenTag,
		CloseTag:   cfg.Stream.CloseTag,
		Validator:  validator,
		Metrics:    metrics,
		Store:      auth.NewFileStore(cfg.Auth.CredentialFile, cipher),
		OnSessionExpired: func() {
			slog.Warn("Session expired; log in again with -login")
		},
	})
}

func runRewrite(ctx context.Context, client *api.Client, prompt, lyricsFile, out string, showReasoning bool) error {
	var lyrics string
	if lyricsFile != "" {
		data, err := os.ReadFile(lyricsFile)
		if err != nil {
			slog.Error("Failed to read lyrics file", "error", err)
			return err
		}
		lyrics = string(data)
	}

	result, err := client.Rewrite(ctx, api.RewriteRequest{Lyrics: lyrics, Prompt: prompt}, stream.Callbacks{
		OnChat: func(delta, _ string) {
			fmt.Fprint(os.Stdout, delta)
		},
		OnReasoning: func(delta, _ string) {
			if showReasoning {
				fmt.Fprint(os.Stderr, delta)
			}
		},
	})
	fmt.Fprintln(os.Stdout)
	if err != nil {
		if domain.IsCancellation(err) {
			slog.Info("Rewrite cancelled")
			return nil
		}
		slog.Error("Rewrite failed", "error", err)
		return err
	}

	content, _ := result.Payload["lyrics"].(string)
	if out == "" {
		fmt.Fprint(os.Stdout, content)
		return nil
	}
	if err := os.WriteFile(out, []byte(content), 0o644); err != nil {
		slog.Error("Failed to write output file", "error", err)
		return err
	}
	slog.Info("Wrote rewritten lyrics", "path", out)
	return nil
}
