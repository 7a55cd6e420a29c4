package main

import (
	"context"
	"database/sql"

	"github.com/WailSalutem-Health-Care/recall-service/internal/cache"
	"github.com/WailSalutem-Health-Care/recall-service/internal/config"
	"github.com/WailSalutem-Health-Care/recall-service/internal/contact"
	"github.com/WailSalutem-Health-Care/recall-service/internal/db"
	apihttp "github.com/WailSalutem-Health-Care/recall-service/internal/http"
	"github.com/WailSalutem-Health-Care/recall-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/recall-service/internal/notify"
	"github.com/WailSalutem-Health-Care/recall-service/internal/opportunity"
	"github.com/WailSalutem-Health-Care/recall-service/internal/patient"
	"github.com/WailSalutem-Health-Care/recall-service/internal/schedlink"
	"github.com/WailSalutem-Health-Care/recall-service/internal/telemetry"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// application holds the wired components and the connections to close.
type application struct {
	db        *sql.DB
	publisher *messaging.Publisher
	redis     *redis.Client
	handlers  apihttp.Handlers
}

func (a *application) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing Redis client")
		}
	}
	if err := a.publisher.Close(); err != nil {
		log.Warn().Err(err).Msg("error closing RabbitMQ connection")
	}
	if err := a.db.Close(); err != nil {
		log.Warn().Err(err).Msg("error closing database")
	}
}

func connectDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	return db.Connect(ctx, db.Options{
		DSN:      cfg.DSN(),
		Name:     cfg.DBName,
		MaxConns: cfg.DBMaxConns,
	})
}

// connectPublisher returns nil when RabbitMQ is not configured or not
// reachable; a nil publisher drops events.
func connectPublisher(cfg *config.Config) *messaging.Publisher {
	if cfg.RabbitMQURL == "" {
		log.Info().Msg("RABBITMQ_URL not set, domain events disabled")
		return nil
	}
	p, err := messaging.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
	if err != nil {
		log.Warn().Err(err).Msg("domain events disabled")
		return nil
	}
	return p
}

func newReconciler(conn *sql.DB, publisher *messaging.Publisher) *opportunity.Reconciler {
	return opportunity.NewReconciler(conn, patient.NewRepository(conn), opportunity.NewRepository(conn), publisher)
}

func wire(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics) (*application, error) {
	conn, err := connectDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &application{db: conn, publisher: connectPublisher(cfg)}

	signer := schedlink.NewSigner(cfg.SchedulingBaseURL, cfg.SchedulingSecret)
	sender := notify.NewClient(cfg.MessagingURL, cfg.MessagingAPIKey, cfg.MessagingTimeout)
	if cfg.MessagingURL == "" {
		log.Warn().Msg("MESSAGING_URL not set, every dispatch will be logged as failed")
	}

	templates, err := contact.LoadTemplates(cfg.TemplatesFile)
	if err != nil {
		app.Close()
		return nil, err
	}

	// Patient directory
	patientRepo := patient.NewRepository(conn)
	patientService := patient.NewService(patientRepo, app.publisher)

	// Opportunity store, reconciliation and ranking
	reconciler := newReconciler(conn, app.publisher).WithMetrics(metrics)
	oppService := opportunity.NewService(opportunity.NewRepository(conn), reconciler, signer)

	// Contact workflow
	contactService := contact.NewService(conn, contact.NewRepository(conn), oppService, signer, sender, app.publisher).
		WithTemplates(templates).
		WithMetrics(metrics)

	if cfg.RedisURL != "" && cfg.DispatchGuardWindow > 0 {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("dispatch guard disabled")
		} else {
			app.redis = client
			contactService.WithGuard(cache.NewDispatchGuard(client, cfg.DispatchGuardWindow))
			log.Info().Dur("window", cfg.DispatchGuardWindow).Msg("dispatch guard enabled")
		}
	}

	app.handlers = apihttp.Handlers{
		Opportunities: opportunity.NewHandler(oppService),
		Contacts:      contact.NewHandler(contactService),
		Patients:      patient.NewHandler(patientService),
	}
	return app, nil
}
