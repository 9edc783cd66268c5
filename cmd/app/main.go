package main

import (
	"context"
	"log"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/ntarasov/messenger/internal/config"
	"github.com/ntarasov/messenger/internal/repository"
	"github.com/ntarasov/messenger/internal/repository/cache"
	"github.com/ntarasov/messenger/internal/repository/database"
	"github.com/ntarasov/messenger/internal/server"
	"github.com/ntarasov/messenger/internal/service"
	"github.com/pressly/goose/v3"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Fatal("no .env file: ", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisClient, err := cache.Connect(ctx, cfg.Redis.Addr())
	if err != nil {
		log.Fatal(err)
	}
	slog.Info("Redis inited")

	db, err := database.Connect(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal(err)
	}
	slog.Info("Database inited")

	if err := goose.SetDialect("postgres"); err != nil {
		slog.Error("Failed to set dialect (migrations)", "error", err)
		return
	}

	migrationsPath := filepath.Join("internal", "repository", "database", "migrations")
	if err := goose.Up(db.DB, migrationsPath); err != nil {
		slog.Error("Failed to migrate up", "error", err)
		return
	}
	slog.Info("Migrations completed")

	msgRepo := repository.NewMessageRepo(db)
	groupRepo := repository.NewGroupRepo(db)
	presenceRepo := repository.NewPresenceRepo(redisClient)

	registry := service.NewRegistry()
	presence := service.NewPresenceTracker(presenceRepo, registry)
	typing := service.NewTypingCoordinator(registry)
	messages := service.NewMessageService(msgRepo)
	groups := service.NewGroupService(groupRepo)

	hub := service.NewHub(registry, presence, typing, messages, msgRepo)
	go hub.Run(ctx)
	go presence.RunOfflineScanner(ctx, 15*time.Second, 90*time.Second)

	handler := server.NewHandler(hub, messages, groups, cfg.JWT.Secret)
	srv := server.NewServer(handler, cfg.JWT.Secret,
		server.WithMigrateDown(func() error {
			return goose.DownTo(db.DB, migrationsPath, 0)
		}),
	)

	if err := srv.Run(":" + cfg.App.Port); err != nil {
		slog.Error("Server stopped", "error", err)
	}
}
