package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/internal/applog"
	"github.com/meikuraledutech/flow/internal/config"
	"github.com/meikuraledutech/flow/postgres"
	"github.com/meikuraledutech/flow/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		applog.Fatal("load config", "err", err)
	}
	logger, err := applog.Build(applog.Options{Service: "flow-server", Level: cfg.LogLevel, JSON: cfg.LogFormat == "json"})
	if err != nil {
		applog.Fatal("logger", "err", err)
	}
	logger.Install()
	defer logger.Sync()
	log := logger.Logger

	if err := cfg.RequireDatabase(); err != nil {
		applog.Fatal("config", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.Connect(ctx, cfg.Database.URL, int32(cfg.Database.MaxConns))
	if err != nil {
		applog.Fatal("connect database", "err", err)
	}
	defer pool.Close()

	var store flow.Store = postgres.New(pool)

	var drafts DraftCache
	if cfg.Redis.URL != "" {
		d, err := redis.New(cfg.Redis.URL, redis.WithTTL(cfg.DraftTTL()))
		if err != nil {
			applog.Fatal("redis", "err", err)
		}
		if err := d.Ping(ctx); err != nil {
			applog.Fatal("ping redis", "err", err)
		}
		defer d.Close()
		drafts = d
	} else {
		log.Warn("REDIS_URL not set, drafts disabled")
	}

	app := newApp(store, drafts, log)
	app.All("/log/level", adaptor.HTTPHandler(logger.LevelHandler()))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error("shutdown", "err", err)
		}
	}()

	log.Info("listening", "addr", cfg.Addr())
	if err := app.Listen(cfg.Addr(), fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
		applog.Fatal("listen", "err", err)
	}
}
