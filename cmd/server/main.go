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
	"github.com/sirupsen/logrus"

	"tefi/server/config"
	"tefi/server/internal/api"
	"tefi/server/internal/database"
	"tefi/server/internal/geocoding"
	"tefi/server/internal/models"
	"tefi/server/internal/queue"
	"tefi/server/internal/telegram"
	"tefi/server/internal/web"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
	}
	gin.SetMode(cfg.Server.GinMode)

	if err := web.EnsureDirs(cfg.Storage.StaticDir, cfg.Storage.UploadsDir); err != nil {
		logger.WithError(err).Fatal("Failed to create storage directories")
	}

	logger.WithFields(logrus.Fields{
		"driver": cfg.Database.Driver,
		"path":   cfg.Database.Path,
	}).Info("Opening database")

	db, err := database.NewDatabase(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}

	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		db.Close()
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	propertyQueue := queue.NewPropertyQueue(cfg.Queue.Size, logger)

	if cfg.Geocoding.Enabled {
		geocoder := geocoding.NewGeocoder(logger, cfg.Geocoding.URL, cfg.Geocoding.Country, cfg.Geocoding.CacheDir)
		propertyQueue.Subscribe(func(p *models.Property) error {
			return geocoder.LocateProperty(ctx, db, p)
		})

		go func() {
			logger.Info("Starting geocoding of properties without coordinates...")
			if err := db.UpdateMissingCoordinates(ctx, geocoder); err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).Error("Failed to update coordinates")
			}
		}()
	}

	if cfg.TelegramEnabled() {
		notifier := telegram.NewService(logger, telegram.Config{
			BotToken:      cfg.Telegram.BotToken,
			ChatID:        cfg.Telegram.ChatID,
			APIURL:        cfg.Telegram.APIURL,
			PublicBaseURL: cfg.Server.PublicBaseURL,
		})
		propertyQueue.Subscribe(notifier.NotifyNewProperty)
	}

	propertyQueue.Start()

	handler := api.NewHandler(db, propertyQueue, logger, cfg.Server.PublicBaseURL)
	router, err := api.NewRouter(cfg, handler, logger)
	if err != nil {
		propertyQueue.Close()
		db.Close()
		logger.WithError(err).Fatal("Failed to build router")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}
	if err := propertyQueue.Close(); err != nil {
		logger.WithError(err).Error("Failed to close property queue")
	}
	if err := db.Close(); err != nil {
		logger.WithError(err).Error("Failed to close database")
	}

	logger.Info("Server stopped")
}
