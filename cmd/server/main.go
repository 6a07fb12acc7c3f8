package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sheikh-saqib/banking-ledger-core/internal/config"
	"github.com/sheikh-saqib/banking-ledger-core/internal/events/kafka"
	"github.com/sheikh-saqib/banking-ledger-core/internal/ledger"
	"github.com/sheikh-saqib/banking-ledger-core/internal/server"
	"github.com/sheikh-saqib/banking-ledger-core/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx := context.Background()

	store, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		logger.Error("store initialisation failed", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}

	opts := []ledger.Option{
		ledger.WithPolicy(cfg.Policy),
		ledger.WithLogger(logger),
	}
	var publisher *kafka.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher = kafka.NewPublisher(cfg.KafkaBrokers)
		opts = append(opts, ledger.WithPublisher(publisher, cfg.KafkaTopic))
		logger.Info("publishing ledger events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	l := ledger.NewLedger(store, opts...)

	srvOpts := []server.Option{
		server.WithLogger(logger),
		server.WithAccountNumberStart(cfg.AccountNumberStart),
	}
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("redis connection failed", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		srvOpts = append(srvOpts, server.WithIdempotency(rdb))
		logger.Info("idempotency keys enabled", "addr", cfg.RedisAddr)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.NewServer(l, store, srvOpts...).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", "env", cfg.Env, "port", cfg.Port, "backend", cfg.StoreBackend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop <- syscall.SIGTERM
		}
	}()

	<-stop
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka writer close failed", "error", err)
		}
	}
	if rdb != nil {
		rdb.Close()
	}
	if err := closeStore(); err != nil {
		logger.Error("store close failed", "error", err)
	}
	logger.Info("server exited")
}
