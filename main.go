package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/vncgregorio/videoteka-media-center/internal/database"
	"github.com/vncgregorio/videoteka-media-center/internal/handlers"
	"github.com/vncgregorio/videoteka-media-center/internal/logging"
	"github.com/vncgregorio/videoteka-media-center/internal/middleware"
	"github.com/vncgregorio/videoteka-media-center/internal/previews"
	"github.com/vncgregorio/videoteka-media-center/internal/startup"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal("%v", err)
	}
}

func run() error {
	cfg, err := startup.LoadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, err := database.New(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	var previewCache *previews.Cache
	if cfg.PreviewsEnabled {
		previewCache, err = previews.NewCache(cfg.PreviewDir)
		if err != nil {
			return err
		}
		if cfg.UseVips {
			previews.InitVips()
			defer previews.ShutdownVips()
		}
	}

	r := mux.NewRouter()
	r.Use(middleware.Logging(middleware.DefaultLoggingConfig()))
	if cfg.MetricsEnabled {
		r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	}
	handlers.New(db, previewCache).RegisterRoutes(r, cfg.MetricsEnabled)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("Listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logging.Info("Received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logging.Info("Shutdown complete")
	return nil
}
