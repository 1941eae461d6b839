package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/park285/cheese-engine-bridge/internal/chessbuilder"
	appcfg "github.com/park285/cheese-engine-bridge/internal/config"
	"github.com/park285/cheese-engine-bridge/internal/hostapi"
	"github.com/park285/cheese-engine-bridge/internal/obslog"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the host API (HTTP, websocket and /metrics)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := appcfg.Load()
	if err != nil {
		return err
	}
	logger := obslog.L()

	deps, err := chessbuilder.New(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := deps.Close(ctx); err != nil {
			logger.Warn("shutdown_close_failed", zap.Error(err))
		}
	}()

	srv := hostapi.NewServer(deps.Engine, deps.Reviews, hostapi.Config{
		Addr:      cfg.ListenAddr,
		RateLimit: cfg.RateLimitPerSec,
		RateBurst: cfg.RateLimitBurst,
		Logger:    logger.Named("hostapi"),
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}
