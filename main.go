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

	"github.com/epeers/mftracker/config"
	"github.com/epeers/mftracker/docs"
	"github.com/epeers/mftracker/internal/backend"
	"github.com/epeers/mftracker/internal/database"
	"github.com/epeers/mftracker/internal/handlers"
	"github.com/epeers/mftracker/internal/repository"
	"github.com/epeers/mftracker/internal/services"
	"github.com/epeers/mftracker/internal/workflow"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"
)

// @title mftracker API
// @version 1.0
// @description Holdings upload workflow for the mutual fund tracker dashboard.
// @BasePath /
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	configureLogging(cfg)

	if err := run(cfg); err != nil {
		log.Errorf("Server exited with error: %v", err)
		os.Exit(1)
	}
	log.Info("Server exited")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional attempt journal
	var recorder workflow.Recorder
	if cfg.PGURL != "" {
		db, err := database.New(ctx, cfg.PGURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}
		recorder = repository.NewAttemptRepository(db.Pool)
		log.Info("Upload attempt journal enabled")
	}

	// Initialize backend client
	client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, cfg.BackendRPS)

	// Initialize services
	fundSvc := services.NewFundService(client, cfg.FundsTTL)
	holdingsSvc := services.NewHoldingsService(client, fundSvc)
	sessionSvc := services.NewSessionService(client, fundSvc, recorder, services.SessionConfig{
		TTL:             cfg.SessionTTL,
		SearchDebounce:  cfg.SearchDebounce,
		SearchMinLength: cfg.SearchMinLength,
	})

	// Setup Gin router
	router := gin.Default()
	handlers.RegisterRoutes(router, handlers.NewSessionHandler(sessionSvc), handlers.NewFundHandler(fundSvc, holdingsSvc))
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sessionSvc.Run(gctx, time.Minute)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		// Give outstanding requests 5 seconds to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func configureLogging(cfg *config.Config) {
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("Unknown LOG_LEVEL %q, using info", cfg.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if level < log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
}
