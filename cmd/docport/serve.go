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

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/ncobase/docport/config"
	"github.com/ncobase/docport/data"
	"github.com/ncobase/docport/export"
	"github.com/ncobase/docport/export/dispatch"
	"github.com/ncobase/docport/export/handler"
	"github.com/ncobase/docport/export/pdf"
	"github.com/ncobase/docport/export/pipeline"
	"github.com/ncobase/docport/export/render"
	"github.com/ncobase/docport/export/repository"
	"github.com/ncobase/docport/export/storage"
	"github.com/ncobase/docport/logging/logger"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the export HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func serve() error {
	cfg, err := config.Init(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logCleanup, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logCleanup()

	ctx := context.Background()

	dataLayer, err := data.New(ctx, cfg.Data)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	defer func() {
		if err := dataLayer.Close(); err != nil {
			logger.Errorf(ctx, "failed to close database: %v", err)
		}
	}()

	if err := data.Migrate(ctx, dataLayer.DB(), repository.Migrations); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	fs, err := storage.NewFileSystem(cfg.Storage.Dir)
	if err != nil {
		return fmt.Errorf("failed to prepare storage: %w", err)
	}
	placement := storage.NewPlacement(fs)

	repo := repository.New(dataLayer.DB())
	pl := pipeline.New(repo, render.NewSet(), pdf.New(cfg.PDF), placement, cfg.Storage.TTLHours)

	dispatcher, err := dispatch.New(cfg.Queue, pl.Run)
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	if err := dispatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}

	svc := export.NewService(repo, dispatcher, cfg.Export)

	if cfg.RunMode != "" {
		gin.SetMode(cfg.RunMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	handler.Register(r, handler.NewExportHandler(svc), cfg.Auth)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logger.Infof(ctx, "starting server on %s", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf(ctx, "server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf(ctx, "server shutdown failed: %v", err)
	}
	dispatcher.Stop(shutdownCtx)

	logger.Info(ctx, "server exited")
	return nil
}
