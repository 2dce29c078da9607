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

	"github.com/andresuchdata/restock-engine/internal/api"
	"github.com/andresuchdata/restock-engine/internal/app"
	"github.com/andresuchdata/restock-engine/internal/config"
	"github.com/andresuchdata/restock-engine/pkg/logger"
)

const gracePeriod = 30 * time.Second

func main() {
	cfg := config.Load()

	logger.Configure(os.Stdout, cfg.App.LogFormat)
	logger.SetLevel(cfg.App.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Log.Fatal().Err(err).Msg("Refusing to start")
	}

	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, err := app.Build(ctx, cfg, app.Options{})
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to build replenishment engine")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := engine.Close(closeCtx); err != nil {
			logger.Log.Error().Err(err).Msg("Failed to close collaborators")
		}
	}()

	// The scheduler gets its own context so a signal stops it between items
	// instead of cancelling the cycle outright.
	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	schedulerDone := make(chan error, 1)
	go func() {
		schedulerDone <- engine.Scheduler.Run(runCtx)
	}()

	var srv *http.Server
	if cfg.Server.Enabled {
		router := api.NewRouter(&api.Services{Replenishment: engine.Service}, cfg.Server.AllowedOrigins)
		srv = &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      router,
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		}

		go func() {
			logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Log.Error().Err(err).Msg("HTTP server stopped")
				stop()
			}
		}()
	}

	<-ctx.Done()
	logger.Log.Info().Msg("Shutting down...")

	engine.Scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error().Err(err).Msg("Server forced to shutdown")
		}
	}

	select {
	case err := <-schedulerDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Log.Error().Err(err).Msg("Scheduler exited with error")
		}
	case <-time.After(gracePeriod):
		logger.Log.Warn().Dur("grace", gracePeriod).Msg("Cycle still running, cancelling")
		cancelRun()
		<-schedulerDone
	}

	logger.Log.Info().Msg("Server exiting")
}
