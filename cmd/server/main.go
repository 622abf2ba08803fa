package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kamikazebr/license-gateway/internal/server/api"
	"github.com/kamikazebr/license-gateway/internal/server/config"
	"github.com/kamikazebr/license-gateway/internal/server/licensing"
	"github.com/kamikazebr/license-gateway/internal/server/metrics"
	"github.com/kamikazebr/license-gateway/internal/server/services"
	"github.com/kamikazebr/license-gateway/internal/server/storage"
	"github.com/kamikazebr/license-gateway/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   "license-server",
	Short: "License Gateway - license issuance and validation service",
	Long:  "Server component for License Gateway providing the client validation API and the admin console API",
	// Default to serve command if no subcommand provided
	Run: func(cmd *cobra.Command, args []string) {
		runServe(cmd, args)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the license server",
	Long:  "Start the License Gateway HTTP server, applying pending migrations first",
	Run:   runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration commands",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Run: func(cmd *cobra.Command, args []string) {
		db := openDatabase()
		defer db.Close()
		if err := db.MigrateUp(); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert all migrations (drops every table)",
	Run: func(cmd *cobra.Command, args []string) {
		if confirm, _ := cmd.Flags().GetBool("yes"); !confirm {
			log.Fatal().Msg("Refusing to drop the schema without --yes")
		}
		db := openDatabase()
		defer db.Close()
		if err := db.MigrateDown(); err != nil {
			log.Fatal().Err(err).Msg("Failed to revert migrations")
		}
		log.Info().Msg("Migrations reverted")
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetVersion("license-server"))
	},
}

func init() {
	migrateDownCmd.Flags().Bool("yes", false, "Confirm dropping all tables")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	rootCmd.AddCommand(serveCmd, migrateCmd, adminCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// loadConfig reads configuration and sets up logging. Any failure is fatal.
func loadConfig() config.ServerConfig {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		config.SetupLogging("info", "console")
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	config.SetupLogging(cfg.LogLevel, cfg.LogFormat)
	return cfg
}

func openDatabase() *storage.DB {
	cfg := loadConfig()
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL environment variable not set")
	}
	return connect(cfg)
}

func connect(cfg config.ServerConfig) *storage.DB {
	log.Info().Msg("Connecting to database...")
	db, err := storage.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	log.Info().Msg("Database connected")
	return db
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().Str("version", version.GetVersion("license-server")).Msg("=== License Gateway ===")

	db := connect(cfg)
	defer db.Close()

	log.Info().Msg("Running database migrations...")
	if err := db.MigrateUp(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Initialize repositories
	userRepo := storage.NewUserRepository(db)
	productRepo := storage.NewProductRepository(db)
	licenseRepo := storage.NewLicenseRepository(db)
	activationRepo := storage.NewActivationRepository(db)
	analyticsRepo := storage.NewAnalyticsRepository(db)

	// Initialize services
	clock := quartz.NewReal()
	analytics := services.NewAnalyticsRecorder(analyticsRepo)

	authService := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiration)
	productService := services.NewProductService(productRepo)
	userService := services.NewUserService(userRepo)
	reportService := services.NewReportService(licenseRepo, productRepo, userRepo, analytics, clock)

	licenseService := services.NewLicenseService(licenseRepo, productRepo, userRepo, analytics, services.LicenseServiceConfig{
		KeyGenerationAttempts: cfg.KeyGenerationAttempts,
		DefaultMaxActivations: cfg.DefaultMaxActivations,
	})
	licenseService.SetMetrics(m)
	if cfg.ResendAPIKey != "" {
		emailService, err := services.NewEmailService(cfg.ResendAPIKey, cfg.FromEmail, cfg.SkipEmailSend)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize email service")
		}
		licenseService.SetEmailService(emailService)
		log.Info().Bool("skip_send", cfg.SkipEmailSend).Msg("License key emails enabled")
	} else {
		log.Warn().Msg("RESEND_API_KEY not set, issued keys will not be emailed")
	}

	validator := licensing.NewValidator(licenseRepo, clock, analytics, m)
	activator := licensing.NewActivator(activationRepo, clock, analytics, m)

	// Background jobs
	housekeeper := services.NewHousekeeper(analytics, licenseRepo, m, cfg.AnalyticsRetention, cfg.HousekeepingInterval)
	if err := housekeeper.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start housekeeping")
	}
	defer func() {
		if err := housekeeper.Stop(); err != nil {
			log.Warn().Err(err).Msg("Housekeeping did not stop cleanly")
		}
	}()

	router := api.NewRouter(api.Handlers{
		Client:   api.NewClientHandler(validator, clock, m),
		Auth:     api.NewAuthHandler(authService),
		Products: api.NewProductHandler(productService),
		Users:    api.NewUserHandler(userService),
		Licenses: api.NewLicenseHandler(licenseService, activator),
		Reports:  api.NewReportHandler(reportService),
	}, api.RouterConfig{
		JWTSecret:            cfg.JWTSecret,
		ValidationRateLimit:  cfg.ValidationRateLimit,
		ValidationRateWindow: cfg.ValidationRateWindow,
		Metrics:              m,
		Gatherer:             registry,
		DB:                   db,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return
	}

	log.Info().Msg("Server stopped")
}
