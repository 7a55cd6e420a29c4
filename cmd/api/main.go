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

	"github.com/WailSalutem-Health-Care/recall-service/internal/config"
	"github.com/WailSalutem-Health-Care/recall-service/internal/db"
	apihttp "github.com/WailSalutem-Health-Care/recall-service/internal/http"
	"github.com/WailSalutem-Health-Care/recall-service/internal/logging"
	"github.com/WailSalutem-Health-Care/recall-service/internal/opportunity"
	"github.com/WailSalutem-Health-Care/recall-service/internal/telemetry"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "recall-service",
		Short:         "Unscheduled-treatment recall service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(ingestCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func loadConfig(validate func(*config.Config) error) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Setup("recall-service", cfg.LogLevel, cfg.LogFormat)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig((*config.Config).Validate)
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply the schema before serving")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig((*config.Config).ValidateDatabase)
			if err != nil {
				return err
			}

			conn, err := connectDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			return db.Migrate(cmd.Context(), conn)
		},
	}
}

func ingestCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Reconcile a snapshot export file into the opportunity store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig((*config.Config).ValidateDatabase)
			if err != nil {
				return err
			}

			body, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}
			batch, err := opportunity.DecodeBatch(body)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			conn, err := connectDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			publisher := connectPublisher(cfg)
			defer publisher.Close()

			processed, err := newReconciler(conn, publisher).Ingest(ctx, batch)
			if err != nil {
				return fmt.Errorf("ingest %s: %w", file, err)
			}

			log.Info().Str("file", file).Int("processed", processed).Msg("snapshot file ingested")
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "path to a JSON snapshot export")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runServer(ctx context.Context, cfg *config.Config, migrate bool) error {
	var provider *telemetry.Provider
	if cfg.TelemetryEnabled {
		p, err := telemetry.InitProvider(ctx, telemetry.LoadConfig(cfg.Env))
		if err != nil {
			log.Warn().Err(err).Msg("telemetry disabled")
		}
		provider = p
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Warn().Err(err).Msg("business metrics disabled")
		metrics = nil
	}

	app, err := wire(ctx, cfg, metrics)
	if err != nil {
		return err
	}
	defer app.Close()

	if migrate {
		if err := db.Migrate(ctx, app.db); err != nil {
			return err
		}
	}

	if cfg.GateOpen() {
		log.Warn().Msg("SHARED_SECRET is empty: /ingest and /webhooks/outcome accept unauthenticated requests")
	}

	router := apihttp.SetupRouter(app.db, app.handlers, apihttp.Options{
		SharedSecret: cfg.SharedSecret,
		AuthMetrics:  metrics,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           apihttp.CORSMiddleware(cfg.AllowedOrigins)(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("recall-service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}
