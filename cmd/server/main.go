// Command server runs the growth report HTTP API.
//
// Startup order: load .env (best effort), load and validate configuration,
// configure logging, set up tracing, connect the key-value store when one is
// configured, wire routes, then serve until SIGINT/SIGTERM with graceful
// shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/growthlens/go-growth-backend/internal/config"
	httpapi "github.com/growthlens/go-growth-backend/internal/http"
	"github.com/growthlens/go-growth-backend/internal/kv"
	"github.com/growthlens/go-growth-backend/internal/observability"
	"github.com/growthlens/go-growth-backend/internal/sysutil"
)

// version is stamped into traces; override with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Local development convenience; deployed environments set real env vars.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()
	shutdownTracing, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	var store kv.Store
	if cfg.KVConfigured() {
		rdb, err := kv.NewRedis(cfg.KV.URL, cfg.KV.Token)
		if err != nil {
			log.Fatal().Err(err).Msg("kv store config invalid")
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := rdb.Ping(pingCtx); err != nil {
			// Keep serving; cache misses and the quota fails open.
			log.Warn().Err(err).Msg("kv store unreachable at startup")
		}
		cancel()
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Warn().Err(err).Msg("kv store close failed")
			}
		}()
		store = rdb
	} else {
		log.Warn().Msg("kv store not configured; reports are not cached and the daily limit is open")
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, store, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	if err := shutdownTracing(shCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown failed")
	}
	log.Info().Msg("server stopped")
}
