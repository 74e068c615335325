package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"marketsync/internal/cache"
	cronrunner "marketsync/internal/cron"
	"marketsync/internal/db"
	"marketsync/internal/handler"
	"marketsync/internal/selection"
	"marketsync/internal/service"
	"marketsync/internal/sheet"
)

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the consolidated snapshot over HTTP and run scheduled selections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(a.context(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	log := a.logger

	handle, err := a.opener().OpenForRead(ctx)
	if err != nil {
		return &service.StageError{Stage: service.StageConnect, Err: err}
	}
	defer handle.Close()
	shared := &sheet.Shared{Handle: handle}
	log.Info("worksheet store open", zap.String("driver", cfg.Store.Driver), zap.Bool("read_only", handle.ReadOnly))

	snapshots, err := cache.New(cfg.Cache)
	if err != nil {
		return err
	}
	consolidation := &service.ConsolidationService{
		Opener:   shared,
		Sheets:   cfg.Sheets,
		Cache:    snapshots,
		CacheTTL: cfg.Cache.TTL,
		Logger:   log,
	}
	selector := &service.SelectionService{
		Opener:   shared,
		Sheets:   cfg.Sheets,
		Criteria: selection.FromConfig(cfg.Selection),
		Logger:   log,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	checks := map[string]handler.Pinger{}
	if handle.DB != nil {
		checks["store"] = handler.PingFunc(func(ctx context.Context) error { return db.Ping(handle.DB) })
	}
	if rs, ok := snapshots.(*cache.RedisStore); ok {
		defer rs.Close()
		checks["cache"] = rs
	}
	(&handler.HealthHandler{Checks: checks}).Register(engine)
	(&handler.SnapshotHandler{Service: consolidation, Logger: log}).Register(engine)
	(&handler.SelectionHandler{Service: selector, Logger: log}).Register(engine)

	runner := cronrunner.New(log, ctx)
	if cfg.Cron.Enabled {
		if _, err := runner.Add("snapshot", cfg.Cron.Snapshot, func(ctx context.Context) error {
			_, err := consolidation.Refresh(ctx)
			return err
		}); err != nil {
			return fmt.Errorf("register snapshot job: %w", err)
		}
		if _, err := runner.Add("selection", cfg.Cron.Selection, func(ctx context.Context) error {
			_, err := selector.Run(ctx, service.RunOptions{DryRun: handle.ReadOnly})
			return err
		}); err != nil {
			return fmt.Errorf("register selection job: %w", err)
		}
	}
	runner.Start()
	defer runner.Stop()

	if _, err := consolidation.Refresh(ctx); err != nil {
		log.Warn("initial snapshot failed (continuing)", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
	case serveErr = <-errCh:
		log.Error("server error", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	return serveErr
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
