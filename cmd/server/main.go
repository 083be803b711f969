package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalog-importer/internal/catalog"
	"catalog-importer/internal/config"
	"catalog-importer/internal/db"
	"catalog-importer/internal/importer"
	"catalog-importer/internal/middleware"
	"catalog-importer/internal/repository"
	"catalog-importer/internal/telemetry"
	"catalog-importer/internal/webhook"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(".")
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to database")
	}
	defer conn.Close()

	if err := db.RunMigrations(cfg.Database, cfg.MigrationsPath); err != nil {
		logrus.WithError(err).Fatal("failed to run migrations")
	}

	// Repositories
	productRepo := repository.NewProductRepository(conn.Pool)
	sessionRepo := repository.NewImportSessionRepository(conn.Pool)
	webhookRepo := repository.NewWebhookRepository(conn.Pool)

	// Services
	dispatcher := webhook.NewDispatcher(webhookRepo, cfg.Webhook)
	importService := importer.NewService(sessionRepo, productRepo, dispatcher, cfg.Import)
	catalogService := catalog.NewService(productRepo, dispatcher)

	r := chi.NewRouter()
	r.Use(middleware.LoggingMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Mount("/metrics", telemetry.Handler())
	r.Mount("/", importer.NewHandler(importService).Routes())
	r.Mount("/api/products", catalog.NewHandler(catalogService).Routes())
	r.Mount("/api/webhooks", webhook.NewHandler(webhookRepo, dispatcher).Routes())

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      corsHandler.Handler(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.WithField("addr", cfg.ServerAddr).Info("starting catalog importer server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Fatal("server forced to shutdown")
	}

	logrus.Info("server exited")
}
