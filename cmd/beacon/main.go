package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/monocle-dev/beacon/db"
	"github.com/monocle-dev/beacon/internal/auth"
	"github.com/monocle-dev/beacon/internal/clock"
	"github.com/monocle-dev/beacon/internal/config"
	"github.com/monocle-dev/beacon/internal/handlers"
	"github.com/monocle-dev/beacon/internal/projects"
	"github.com/monocle-dev/beacon/internal/router"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to an optional YAML config file")
	createProject := flag.String("create-project", "", "create a project with this name, print its API key and exit")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Error("failed to load .env file", "err", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"port", cfg.Port,
		"database_driver", cfg.Database.Driver,
		"token_ttl", cfg.Auth.TokenTTL,
	)

	conn, err := db.Connect(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		slog.Error("failed to connect to database", "err", err)
		os.Exit(1)
	}

	if err := db.Migrate(conn); err != nil {
		slog.Error("failed to migrate database", "err", err)
		os.Exit(1)
	}

	clk := clock.System{}
	registry := projects.NewRegistry(conn, clk, auth.Hasher{Cost: cfg.Auth.APIKeyCost})

	if *createProject != "" {
		project, key, err := registry.Create(context.Background(), *createProject)
		if err != nil {
			slog.Error("failed to create project", "err", err)
			os.Exit(1)
		}
		fmt.Printf("project %d %q created\napi key: %s\n", project.ID, project.Name, key)
		return
	}

	tokens, err := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		slog.Error("failed to set up tokens", "err", err)
		os.Exit(1)
	}

	gin.SetMode(gin.ReleaseMode)
	h := handlers.New(conn, clk, tokens)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.NewRouter(h, registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		slog.Info("HTTP server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("beacon shutting down")

	h.Hub.Close()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "err", err)
	}
}
