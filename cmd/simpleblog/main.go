// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the simpleblog API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"simpleblog/internal/auth"
	"simpleblog/internal/cache"
	"simpleblog/internal/config"
	"simpleblog/internal/database"
	"simpleblog/internal/handlers"
	"simpleblog/internal/middleware"
	"simpleblog/internal/post"
	"simpleblog/internal/router"
	"simpleblog/internal/sanitize"
	"simpleblog/internal/storage"
	"simpleblog/internal/store"
	"simpleblog/internal/token"
)

func main() {
	// Load configuration from environment variables (and .env if present).
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: text in development, JSON everywhere else.
	var handler slog.Handler
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(context.Background(), db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey (response cache + token revocation list).
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	// Connect to S3-compatible storage (optional; uploads answer 503 without it).
	s3Client, err := storage.New(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicURL)
	if err != nil {
		slog.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	var objects handlers.ObjectStore
	if s3Client != nil {
		objects = s3Client
		slog.Info("thumbnail uploads enabled", "bucket", cfg.S3Bucket)
	} else {
		slog.Warn("S3 storage not configured, thumbnail uploads disabled")
	}

	respCache := cache.NewResponseCache(valkeyClient, cfg.CacheTTL)

	postStore := store.NewPostStore(db)
	userStore := store.NewUserStore(db)

	posts := post.NewService(postStore, respCache, sanitize.Sanitizer{})
	tokens := token.NewManager(cfg.JWTSecret, cfg.JWTTTL, valkeyClient)
	authenticator := auth.NewAuthenticator(userStore, tokens, "simpleblog")

	loginLimiter := middleware.NewRateLimiter(valkeyClient, "login", cfg.LoginRateLimit, time.Minute)

	r := router.New(
		tokens,
		loginLimiter,
		cfg.CORSAllowedOrigins,
		cfg.TrustProxy,
		handlers.NewAdmin(posts),
		handlers.NewAuth(authenticator, tokens),
		handlers.NewPublic(posts, respCache),
		handlers.NewUploads(objects),
	)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
