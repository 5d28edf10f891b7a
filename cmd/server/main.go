package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/hafiportrait/gallery-gateway/internal/activity"
	"github.com/hafiportrait/gallery-gateway/internal/auth"
	"github.com/hafiportrait/gallery-gateway/internal/backbone"
	"github.com/hafiportrait/gallery-gateway/internal/config"
	"github.com/hafiportrait/gallery-gateway/internal/ownership"
	"github.com/hafiportrait/gallery-gateway/internal/ratelimit"
	"github.com/hafiportrait/gallery-gateway/internal/room"
	"github.com/hafiportrait/gallery-gateway/internal/server"
	"github.com/hafiportrait/gallery-gateway/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var mirror *backbone.Backbone
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis at %s: %v", cfg.RedisAddr, err)
		}
		log.Printf("Connected to Redis at %s", cfg.RedisAddr)
		mirror = backbone.New(rdb)
		defer mirror.Close()
	}

	var owners ownership.Lookup
	var guests auth.GuestValidator
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer pool.Close()
		store := ownership.NewStore(pool)
		owners = store
		if !cfg.GuestValidationDisabled {
			guests = store
		}
	} else {
		log.Printf("No database configured; event access restricted to admins and guests")
	}

	policy := ratelimit.DefaultPolicy()
	if cfg.RateLimitPolicy != "" {
		policy, err = ratelimit.LoadPolicy(cfg.RateLimitPolicy)
		if err != nil {
			log.Fatalf("Invalid rate limit policy %s: %v", cfg.RateLimitPolicy, err)
		}
	}

	var connOpts []ws.ConnManagerOption
	if cfg.MaxConns > 0 {
		connOpts = append(connOpts, ws.WithMaxConns(cfg.MaxConns))
	}
	if cfg.IdleTimeout > 0 {
		connOpts = append(connOpts, ws.WithIdleTimeout(cfg.IdleTimeout))
	}

	var feed activity.Log
	if cfg.ActivityFeedSize > 0 {
		if rdb != nil {
			feed = activity.NewRedisLog(rdb, cfg.ActivityFeedSize)
		} else {
			feed = activity.NewMemoryLog(cfg.ActivityFeedSize)
		}
	}

	registry := room.NewRegistry()
	hub := ws.NewHub(ws.NewConnManager(connOpts...), registry, mirror)
	hub.StartMirror(ctx)

	var dispatchOpts []ws.DispatcherOption
	var serverOpts []server.Option
	if feed != nil {
		dispatchOpts = append(dispatchOpts, ws.WithActivityLog(feed))
		serverOpts = append(serverOpts, server.WithActivityFeed(feed))
	}

	dispatcher := ws.NewDispatcher(hub, registry, ratelimit.NewLimiter(), policy, owners, dispatchOpts...)
	authenticator := auth.NewAuthenticator(auth.NewJWTVerifier(cfg.JWTSecret), guests, cfg.AdminRole)
	handler := ws.NewHandler(authenticator, hub, dispatcher)

	srv := server.New(cfg.ListenAddr, handler, hub, registry, serverOpts...)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting gallery gateway on %s", cfg.ListenAddr)
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	case <-ctx.Done():
		log.Printf("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown did not complete cleanly: %v", err)
		}
	}
}
