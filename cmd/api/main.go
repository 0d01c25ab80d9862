package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohammadpnp/catalog-import/internal/bootstrap"
	"github.com/mohammadpnp/catalog-import/internal/config"
	"github.com/mohammadpnp/catalog-import/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := bootstrap.NewContainer(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to build application", zap.Error(err))
	}
	defer container.Close()

	recovered, err := container.Jobs.RecoverInterrupted(ctx, "interrupted by restart")
	if err != nil {
		zlog.Fatal("failed to recover interrupted imports", zap.Error(err))
	}
	if recovered > 0 {
		zlog.Warn("marked interrupted imports as failed", zap.Int64("jobs", recovered))
	}

	server := bootstrap.NewHTTPServer(container, zlog)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zlog.Info("http server listening", zap.String("port", cfg.Port))
		if err := server.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zlog.Error("server stopped with error", zap.Error(err))
	}
	stop()
	zlog.Info("waiting for running import to stop")
}
