package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Kerhoff/WishSync/internal/api"
	"github.com/Kerhoff/WishSync/internal/config"
	"github.com/Kerhoff/WishSync/internal/notify"
	"github.com/Kerhoff/WishSync/internal/presence"
	"github.com/Kerhoff/WishSync/internal/realtime"
	"github.com/Kerhoff/WishSync/internal/repository/postgres"
	"github.com/Kerhoff/WishSync/internal/service"
	"github.com/Kerhoff/WishSync/pkg/logger"
)

func main() {
	// A missing .env is fine in production; variables come from the host.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel)
	l.Info("Starting WishSync...")

	// Database
	db, err := config.NewDatabase(cfg.DatabaseURL, l)
	if err != nil {
		l.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate("migrations"); err != nil {
		l.Fatalf("Failed to run migrations: %v", err)
	}

	// Repositories and service layer
	svc := service.New(l,
		postgres.NewWishlistRepository(db.DB),
		postgres.NewUserRepository(db.DB),
		postgres.NewWishRepository(db.DB),
	)

	// Optional Telegram announcements
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		notifier, err := notify.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID, l)
		if err != nil {
			l.Fatalf("Failed to create Telegram notifier: %v", err)
		}
		svc.SetNotifier(notifier)
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info("Received shutdown signal...")
		cancel()
	}()

	// Presence registry: Redis when configured, in-process otherwise
	var registry presence.Registry
	if cfg.RedisURL != "" {
		redisRegistry, err := presence.NewRedisRegistry(cfg.RedisURL, presence.DefaultTTL)
		if err != nil {
			l.Fatalf("Failed to create Redis presence registry: %v", err)
		}
		if err := redisRegistry.Ping(ctx); err != nil {
			l.Fatalf("Failed to reach Redis: %v", err)
		}
		defer redisRegistry.Close()
		registry = redisRegistry
		l.Info("Using Redis presence registry")
	} else {
		memRegistry := presence.NewMemoryRegistry(presence.DefaultTTL)
		go memRegistry.StartJanitor(ctx, 0, l)
		registry = memRegistry
		l.Info("Using in-process presence registry")
	}

	// Realtime hub and gateway
	hub := realtime.NewHub(l)
	go hub.Run(ctx)
	gateway := realtime.NewGateway(svc, hub, registry, l)

	// HTTP server: REST API, websocket endpoint, metrics
	apiServer := api.NewServer(svc, hub, gateway, l)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: apiServer.Handler(),
	}

	go func() {
		l.Infof("HTTP server listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("HTTP server error: %v", err)
		}
	}()

	l.Info("WishSync started successfully")

	<-ctx.Done()

	l.Info("Shutting down HTTP server...")
	httpServer.Close()

	l.Info("WishSync stopped")
}
