// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	internal_history "github.com/rapidaai/voice-capture/api/capture-api/internal/history"
	internal_lease "github.com/rapidaai/voice-capture/api/capture-api/internal/lease"
	internal_registry "github.com/rapidaai/voice-capture/api/capture-api/internal/registry"
	internal_session "github.com/rapidaai/voice-capture/api/capture-api/internal/session"
	internal_upload "github.com/rapidaai/voice-capture/api/capture-api/internal/upload"
	capture_routers "github.com/rapidaai/voice-capture/api/capture-api/router"
	"github.com/rapidaai/voice-capture/pkg/connectors"
)

const shutdownTimeout = 10 * time.Second

func NewServeCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the capture HTTP API",
		Long:  "Exposes recording control, downloads, results and the event stream of every configured device over HTTP.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, deps)
		},
	}
	return cmd
}

func serve(ctx context.Context, deps *Dependencies) error {
	cfg, logger := deps.Config, deps.Logger

	database := connectors.NewDatabaseConnector(cfg.DatabaseConfig, logger)
	if err := database.Connect(ctx); err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	defer database.Disconnect(context.Background())

	store := internal_history.NewStore(database, logger)
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating session history: %w", err)
	}

	opts := []internal_registry.Option{
		internal_registry.WithStore(store),
		internal_registry.WithSessionOptions(internal_session.WithUploadTimeout(cfg.UploadConfig.Timeout)),
	}

	var redis connectors.RedisConnector
	if cfg.RedisConfig.Enabled() {
		redis = connectors.NewRedisConnector(cfg.RedisConfig, logger)
		if err := redis.Connect(ctx); err != nil {
			return fmt.Errorf("connecting redis: %w", err)
		}
		defer redis.Disconnect(context.Background())
		client := redis.GetConnection()
		opts = append(opts,
			internal_registry.WithLease(internal_lease.NewRedisLease(client, logger, cfg.CaptureConfig.LeaseTTL)),
			internal_registry.WithResultCache(internal_history.NewResultCache(client, logger, cfg.CaptureConfig.ResultTTL)),
		)
	} else {
		logger.Infof("redis not configured, device leases are process local")
		opts = append(opts, internal_registry.WithLease(internal_lease.NewLocalLease()))
	}

	uploader := internal_upload.NewMultipartUploader(logger, cfg.UploadConfig)
	registry := internal_registry.New(logger, cfg.CaptureConfig, uploader, opts...)
	defer registry.Close()

	engine := capture_routers.NewEngine(logger, cfg.LogLevel == "debug")
	capture_routers.HealthCheckRoutes(cfg, engine, logger, database, redis)
	capture_routers.CaptureApiRoute(cfg, engine, logger, registry)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("%s listening on %s", cfg.Name, server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Infof("shutting down %s", cfg.Name)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
