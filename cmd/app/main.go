package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ludocat/gamesync/internal/config"
	"github.com/ludocat/gamesync/internal/database"
	"github.com/ludocat/gamesync/internal/database/postgres"
	"github.com/ludocat/gamesync/internal/game"
	"github.com/ludocat/gamesync/internal/ingest"
	"github.com/ludocat/gamesync/internal/match"
	"github.com/ludocat/gamesync/internal/merge"
	"github.com/ludocat/gamesync/internal/server"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Configuration failed", "error", err)
		os.Exit(1)
	}

	initLogger(cfg)

	dbPool, err := database.NewPool(cfg.GetDBConnString(), 10, 5*time.Minute, 30*time.Minute)
	if err != nil {
		slog.Error("Database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	gameRepo := postgres.NewGameRepository(dbPool)
	runRepo := postgres.NewRunRepository(dbPool)
	matchRepo := postgres.NewMatchRepository(dbPool)

	engine := match.NewEngine(gameRepo, matchRepo, match.DefaultConfig())
	gameService := game.NewService(gameRepo, engine)
	orchestrator := ingest.NewOrchestrator(gameService, gameRepo, runRepo, ingest.ConfigFromApp(cfg))
	mergeService := merge.NewService(gameRepo)

	srv := server.NewServer(cfg.Port, cfg.APIKey, cfg.TrustedProxies, dbPool, orchestrator, runRepo, matchRepo, mergeService)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	case sig := <-stop:
		slog.Info("Shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
}
