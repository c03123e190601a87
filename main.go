package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/4NDR3S-01/ExposIA/api"
	"github.com/4NDR3S-01/ExposIA/config"
	"github.com/4NDR3S-01/ExposIA/hub"
	"github.com/4NDR3S-01/ExposIA/queue"
	"github.com/4NDR3S-01/ExposIA/routing"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := setupLogger(cfg.Log)

	router := routing.NewStandard(cfg.RouterOptions())
	notifications := hub.New(router,
		hub.WithLogger(logger),
		hub.WithHistorySize(cfg.Hub.HistorySize),
		hub.WithRecentSize(cfg.Hub.RecentSize),
	)

	gin.SetMode(gin.ReleaseMode)
	server := api.NewServer(notifications, api.Options{
		Addr:            cfg.Server.Addr,
		Token:           cfg.Auth.Token,
		AllowedOrigins:  cfg.WebSocket.AllowedOrigins,
		Socket:          cfg.SocketConfig(),
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(ctx)
	})
	if cfg.AMQP.Enabled {
		consumer := queue.NewConsumer(cfg.AMQP.URL, cfg.AMQP.Queue, notifications, logger)
		g.Go(func() error {
			return consumer.Run(ctx)
		})
	}

	logger.Info("notification hub started",
		"addr", cfg.Server.Addr,
		"amqp", cfg.AMQP.Enabled,
		"routing", router.Rules(),
	)

	err = g.Wait()
	notifications.Shutdown()
	if err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
