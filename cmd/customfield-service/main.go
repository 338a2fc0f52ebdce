package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/peoplebase/peoplebase-backend/internal/customfield/consumers"
	"github.com/peoplebase/peoplebase-backend/internal/customfield/events"
	"github.com/peoplebase/peoplebase-backend/internal/customfield/handler"
	"github.com/peoplebase/peoplebase-backend/internal/customfield/repository"
	"github.com/peoplebase/peoplebase-backend/internal/customfield/service"
	"github.com/peoplebase/peoplebase-backend/internal/customfield/validation"
	"github.com/peoplebase/peoplebase-backend/migrations"
	"github.com/peoplebase/peoplebase-backend/pkg/config"
	"github.com/peoplebase/peoplebase-backend/pkg/database"
	"github.com/peoplebase/peoplebase-backend/pkg/httputil"
	"github.com/peoplebase/peoplebase-backend/pkg/i18n"
	"github.com/peoplebase/peoplebase-backend/pkg/jwt"
	"github.com/peoplebase/peoplebase-backend/pkg/logger"
	"github.com/peoplebase/peoplebase-backend/pkg/messaging"
)

func main() {
	// Load configuration
	cfg, err := config.LoadWithValidation()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(config.ServiceName, cfg.Server.Environment)
	log.Info().Msg("starting Custom Field Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := migrations.Apply(ctx, db.DB); err != nil {
			log.Fatal().Err(err).Msg("failed to apply migrations")
		}
		log.Info().Msg("migrations applied")
	}

	// Initialize repositories
	schemaRepo := repository.NewSchemaRepository(db)
	valueRepo := repository.NewValueRepository(db)
	orgRepo := repository.NewOrgRepository(db)

	// Connect to RabbitMQ; outside production the service runs without it
	var publisher *events.CustomFieldEventPublisher
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	switch {
	case err == nil:
		defer rmq.Close()

		publisher, err = events.NewCustomFieldEventPublisher(rmq, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}

		orgConsumer, err := consumers.NewOrgEventConsumer(rmq, orgRepo, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create org event consumer")
		}
		if err := orgConsumer.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to start org event consumer")
		}
	case config.IsProductionLike(cfg.Server.Environment):
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	default:
		log.Warn().Err(err).Msg("RabbitMQ unavailable, events disabled and org replica frozen")
		publisher = events.NewWithPublisher(messaging.NopPublisher{}, log)
	}

	// Initialize services
	paging := service.Paging{
		DefaultSize: cfg.CustomField.DefaultPageSize,
		MaxSize:     cfg.CustomField.MaxPageSize,
	}
	engine := validation.NewEngine()

	registry := service.NewSchemaRegistry(db, schemaRepo, valueRepo, engine, paging, log)
	store := service.NewValueStore(db, schemaRepo, valueRepo, engine, log)
	search := service.NewSearchEngine(valueRepo, orgRepo, paging, log)
	migration := service.NewMigrationEngine(db, schemaRepo, valueRepo, engine, cfg.CustomField.MigrationRemark, log)
	facade := service.NewFacade(orgRepo, registry, store, search, migration, publisher, log)

	// Initialize handlers
	customFieldHandler := handler.New(facade, log)
	tokens := jwt.NewManager(&cfg.JWT)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "Accept-Language"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(i18n.Middleware)

	// Health check (no actor required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := map[string]interface{}{
			"status":   "healthy",
			"service":  config.ServiceName,
			"database": db.Health(r.Context()),
		}
		if rmq != nil {
			health["rabbitmq"] = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, health)
	})

	// API routes (actor required)
	r.Route("/api/v1/customfield", func(r chi.Router) {
		r.Use(httputil.ActorMiddleware(tokens, cfg.Server.TrustGateway))
		customFieldHandler.Routes(r)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Cancel context to stop consumers
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
