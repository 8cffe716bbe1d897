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
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/parkwise/service-parking/internal/application"
	"github.com/parkwise/service-parking/internal/common/auth"
	"github.com/parkwise/service-parking/internal/common/database"
	"github.com/parkwise/service-parking/internal/common/health"
	"github.com/parkwise/service-parking/internal/common/kafka"
	"github.com/parkwise/service-parking/internal/common/logger"
	"github.com/parkwise/service-parking/internal/common/middleware"
	"github.com/parkwise/service-parking/internal/common/tracing"
	"github.com/parkwise/service-parking/internal/config"
	parkingEvents "github.com/parkwise/service-parking/internal/events"
	"github.com/parkwise/service-parking/internal/feed"
	"github.com/parkwise/service-parking/internal/handler"
	"github.com/parkwise/service-parking/internal/realtime"
	"github.com/parkwise/service-parking/internal/repository"
	"github.com/parkwise/service-parking/internal/session"
)

const serviceName = "service-parking"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-parking",
		zap.String("port", cfg.Port),
		zap.String("timezone", cfg.Booking.Location.String()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing is opt-in
	if cfg.TracingConfig.Enabled {
		shutdownTracing, err := tracing.Init(ctx, serviceName, cfg.AppEnv, cfg.TracingConfig.Endpoint)
		if err != nil {
			log.Fatal("failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer flushCancel()
			_ = shutdownTracing(flushCtx)
		}()
	}

	// Connect to database
	dbConfig := database.PostgresConfig{
		DSN:      cfg.DBConfig.DSN,
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.DBName,
		SSLMode:  cfg.DBConfig.SSLMode,
	}
	db, err := database.Connect(dbConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.IsDevelopment() || dbConfig.IsSQLite() {
		if err := db.AutoMigrate(repository.Models()...); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(dbConfig.DatabaseURL(), cfg.MigrationsDir, log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, cfg.JWTConfig.TokenTTL)

	// Initialize Kafka producer
	var publisher kafka.Publisher = kafka.NopPublisher{Logger: log}
	if cfg.KafkaConfig.Enabled {
		kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
		defer func() { _ = kafkaProducer.Close() }()
		publisher = kafkaProducer
	}

	// Initialize repositories
	bookingRepo := repository.NewGormBookingRepository(db)
	facilityRepo := repository.NewGormFacilityRepository(db)
	availabilityRepo := repository.NewGormAvailabilityRepository(db)
	userRepo := repository.NewGormUserRepository(db)

	// Initialize application services
	hub := realtime.NewHub(log.Named("realtime"))
	availabilityService := application.NewAvailabilityService(availabilityRepo, hub, log)
	facilityService := application.NewFacilityService(facilityRepo, availabilityService, log)
	bookingService := application.NewBookingService(
		bookingRepo,
		availabilityService,
		publisher,
		log,
		application.WithLocation(cfg.Booking.Location),
	)

	// Every login session sweeps its own working set until it ends
	sweeper := application.NewExpirySweeper(bookingService, log.Named("sweeper"))
	sessions := session.NewStore(cfg.Session.WorkingSetSize, func(s *session.Session) func() {
		return sweeper.Start(ctx, cfg.Booking.SweepInterval, s).Stop
	}, log.Named("session"))
	go sessions.Run(ctx, cfg.Session.ReapInterval)

	userService := application.NewUserService(userRepo, jwtManager, sessions, publisher, cfg.AdminEmails, log)

	// Live availability feed
	if cfg.Feed.Enabled {
		poller := feed.NewPoller(
			feed.NewClient(cfg.Feed.URL, nil),
			availabilityService,
			cfg.Feed.PollInterval,
			log.Named("feed"),
		)
		go poller.Run(ctx)
	}

	// Initialize and start availability event consumer in a goroutine
	if cfg.KafkaConfig.Enabled {
		groupID := cfg.KafkaConfig.GroupPrefix + "parking-service"
		availabilityConsumer := parkingEvents.NewAvailabilityEventConsumer(
			cfg.KafkaConfig.Brokers,
			groupID,
			availabilityService,
			log,
		)
		defer func() { _ = availabilityConsumer.Close() }()

		go func() {
			log.Info("starting availability event consumer")
			if err := availabilityConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("availability event consumer error", zap.Error(err))
			}
		}()
	}

	// Setup Gin router
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(db, serviceName)
	healthHandler.RegisterRoutes(router)

	// Register routes
	handler.NewLegacyHandler(bookingService, userService, log).RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewBookingHandler(bookingService, sessions).RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewFacilityHandler(facilityService, availabilityService).RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewProfileHandler(userService, sessions).RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewWSHandler(hub, log).RegisterRoutes(&router.RouterGroup)

	// Register admin handler routes
	adminBookingHandler := handler.NewAdminBookingHandler(bookingService, facilityService, sessions, hub)
	adminBookingHandler.RegisterRoutes(&router.RouterGroup, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      otelhttp.NewHandler(router, serviceName),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-parking...")

	// Stops the poller, the consumer and every session sweep
	cancel()
	sessions.Close()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("service-parking stopped")
}
