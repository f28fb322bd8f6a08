package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/tradeyard/chatwire/internal/config"
	"github.com/tradeyard/chatwire/internal/connection"
	"github.com/tradeyard/chatwire/internal/protocol"
	"github.com/tradeyard/chatwire/internal/token"
	"github.com/tradeyard/chatwire/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/chatwire.yaml", "path to config file")
	conversationID := flag.String("conversation", "", "conversation to join")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if *conversationID == "" {
		fmt.Fprintln(os.Stderr, "a -conversation id is required")
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)

	logger.Info("starting chat client",
		"version", version.Version,
		"commit", version.Commit,
		"server", cfg.Server.BaseURL,
		"conversation", *conversationID,
	)

	tokens, err := tokenSource(cfg.Token)
	if err != nil {
		logger.Error("failed to set up token source", "error", err)
		os.Exit(1)
	}

	mgrCfg := connection.ManagerConfig{
		BaseURL:        cfg.Server.BaseURL,
		ConversationID: *conversationID,
		DialTimeout:    cfg.Server.DialTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
	}
	mgrCfg.Policy.Base = cfg.Reconnect.BaseDelay
	mgrCfg.Policy.Cap = cfg.Reconnect.MaxDelay
	mgrCfg.Policy.MaxAttempts = cfg.Reconnect.MaxAttempts

	mgr, err := connection.NewManager(mgrCfg, tokens, logger)
	if err != nil {
		logger.Error("failed to create connection manager", "error", err)
		os.Exit(1)
	}

	mgr.SetObservers(connection.Observers{
		OnMessage: func(msg protocol.Message) {
			fmt.Printf("[%s] %s: %s\n", msg.CreatedAt.Local().Format("15:04:05"), msg.SenderID, msg.Content)
		},
		OnError: func(err error) {
			fmt.Printf("! %v\n", err)
		},
		OnConnect: func() {
			fmt.Println("* connected")
		},
		OnDisconnect: func() {
			fmt.Println("* disconnected")
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr.Connect(ctx)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		mgr.Disconnect()
		cancel()
		os.Exit(0)
	}()

	// Each stdin line becomes one outbound frame.
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := mgr.Send(line); err != nil {
			if errors.Is(err, connection.ErrNotConnected) {
				fmt.Println("! not connected, message discarded")
				continue
			}
			logger.Warn("send failed", "error", err)
		}
	}

	mgr.Disconnect()
}

// tokenSource builds the configured bearer token source.
func tokenSource(cfg config.TokenConfig) (token.Source, error) {
	switch cfg.Source {
	case "static":
		return token.Static(cfg.Value), nil
	case "file":
		return token.FileSource{Path: cfg.Path}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return token.NewRedisSource(client, cfg.Redis.Key), nil
	default:
		return nil, fmt.Errorf("unknown token source %q", cfg.Source)
	}
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
