package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/freezer/internal/auth"
	"github.com/dukerupert/freezer/internal/config"
	"github.com/dukerupert/freezer/internal/database"
	"github.com/dukerupert/freezer/internal/hub"
	"github.com/dukerupert/freezer/internal/logging"
	"github.com/dukerupert/freezer/internal/remote/sqlite"
)

func main() {
	cfg, err := config.Load(os.Getenv("FREEZER_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, "freezerhub")

	db, err := database.Open(cfg.Hub.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	keys, err := auth.ParseKeys(cfg.Hub.APIKey)
	if err != nil {
		slog.Error("invalid hub.api_key", "error", err)
		os.Exit(1)
	}
	if keys.Empty() {
		slog.Warn("no API keys configured, the hub is open to anyone who can reach it")
	}

	secret := []byte(cfg.Hub.ShareSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			slog.Error("generate share secret", "error", err)
			os.Exit(1)
		}
		slog.Warn("hub.share_secret not set, share links will stop working after a restart")
	}

	baseURL := cfg.Hub.ShareBaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost%s/share/", cfg.Hub.Addr)
	}

	store := sqlite.New(db, baseURL, secret)
	srv := hub.New(store, keys, logger)

	httpServer := &http.Server{
		Addr:              cfg.Hub.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// No WriteTimeout: change feed connections stay open.
		IdleTimeout: 120 * time.Second,
	}

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := srv.WriteLimiter().Cleanup(); n > 0 {
					slog.Debug("write limiter cleaned up", "windows", n)
				}
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("freezer hub starting", "addr", cfg.Hub.Addr, "db", cfg.Hub.DBPath)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	cleanupCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
