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
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sykkeldel/locker-server/internal/config"
	"github.com/sykkeldel/locker-server/internal/database"
	"github.com/sykkeldel/locker-server/internal/handler"
	"github.com/sykkeldel/locker-server/internal/jobs"
	"github.com/sykkeldel/locker-server/internal/middleware"
	"github.com/sykkeldel/locker-server/internal/redis"
	"github.com/sykkeldel/locker-server/internal/repository"
	"github.com/sykkeldel/locker-server/internal/repository/memory"
	"github.com/sykkeldel/locker-server/internal/service"
	"github.com/sykkeldel/locker-server/internal/sse"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load timezone")
	}

	st, err := openStores(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer st.close()

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	broker := sse.NewBroker(redisClient)
	defer broker.Close()

	var notifier service.Notifier = service.NewLogNotifier()
	if cfg.Notifier == config.NotifierRedis {
		notifier = service.NewRedisOutboxNotifier(redisClient)
	}

	doorQueue := service.NewDoorQueue(st.doors, broker, cfg.DoorCommandTTL())
	issuer := service.NewAccessIssuer(
		st.codes, st.appts,
		service.NewBookingResolver(st.appts, cfg.ShiftHorizon()),
		service.NewCodeGenerator(nil),
		notifier,
		service.IssuerConfig{DefaultWindow: cfg.DefaultOpeningWindow(), QRBaseURL: cfg.QRBaseURL},
	)
	orderActionService := service.NewOrderActionService(st.actions)
	availabilityService := service.NewAvailabilityService(st.appts, loc)
	adminService := service.NewAdminService(
		st.sessions, cfg.AdminPasswordHash, cfg.AdminSessionSecret, config.AdminSessionTTL,
	)

	apiKeyMiddleware := middleware.NewAPIKeyMiddleware(cfg.ControllerAPIKey)
	adminSessionMiddleware := middleware.NewAdminSessionMiddleware(
		st.sessions, cfg.AdminPasswordHash, cfg.AdminSessionSecret,
	)
	loginRateLimit := middleware.NewIPRateLimitMiddleware(
		service.NewRateLimiter(redisClient.Client),
		config.LoginRateLimit, config.LoginRateLimitWindow, "login",
	)
	controllerRateLimit := middleware.NewIPRateLimitMiddleware(
		service.NewFailOpenRateLimiter(redisClient.Client),
		config.ControllerRateLimitPerMin, time.Minute, "controller",
	)
	csrfMiddleware := middleware.NewCSRFMiddleware(isProduction)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)

	adminHandler := handler.NewAdminHandler(
		adminService, doorQueue, handler.NewEventsHandler(broker),
		adminSessionMiddleware.Handler, loginRateLimit.Handler, isProduction,
	)
	controllerHandler := handler.NewControllerHandler(doorQueue, orderActionService, issuer, loc)
	accessHandler := handler.NewAccessHandler(issuer)
	availabilityHandler := handler.NewAvailabilityHandler(availabilityService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(bodyLimitMiddleware.Handler)
	r.Use(securityHeadersMiddleware.Handler)

	r.Get("/health", handler.NewHealthHandler(st.health).ServeHTTP)

	// The event stream lives under /admin, so only the other groups get a
	// request timeout.
	r.Route("/admin", func(r chi.Router) {
		r.Use(csrfMiddleware.Handler)
		r.Mount("/", adminHandler.Routes())
	})

	r.Route("/controller", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
		r.Use(controllerRateLimit.Handler)
		r.Use(apiKeyMiddleware.Handler)
		r.Mount("/", controllerHandler.Routes())
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))

		r.Route("/availability", func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: cfg.CORSAllowedOrigins,
				AllowedMethods: []string{"GET", "OPTIONS"},
				AllowedHeaders: []string{"Accept", "Content-Type"},
				MaxAge:         300,
			}))
			r.Mount("/", availabilityHandler.Routes())
		})

		r.Group(func(r chi.Router) {
			r.Use(apiKeyMiddleware.Handler)
			r.Mount("/", accessHandler.Routes())
		})
	})

	cleanupJob := jobs.NewCleanupJob(st.sessions, config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().
			Str("addr", cfg.Addr()).
			Str("storage", cfg.StorageDriver).
			Str("notifier", cfg.Notifier).
			Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	// Closing the broker ends open event streams, which would otherwise
	// hold Shutdown until its deadline.
	broker.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

type stores struct {
	codes    repository.AccessCodeRepository
	appts    repository.AppointmentRepository
	doors    repository.DoorCommandRepository
	actions  repository.OrderActionRepository
	sessions repository.AdminSessionRepository
	health   handler.Pinger
	close    func()
}

func openStores(cfg *config.Config) (*stores, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		log.Warn().Msg("using in-memory storage: data is lost on restart")
		return &stores{
			codes:    memory.NewAccessCodeStore(),
			appts:    memory.NewAppointmentStore(),
			doors:    memory.NewDoorCommandStore(),
			actions:  memory.NewOrderActionStore(),
			sessions: memory.NewAdminSessionStore(),
			close:    func() {},
		}, nil
	}

	db, err := database.Connect(context.Background(), "locker", cfg.DatabaseURL, database.LockerPool)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DBMigrateTimeout)
	defer cancel()
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	bookingDB := db
	if cfg.BookingDatabaseURL != "" {
		bookingDB, err = database.Connect(context.Background(), "booking", cfg.BookingDSN(), database.BookingPool)
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	return &stores{
		codes:    repository.NewAccessCodeRepository(db),
		appts:    repository.NewAppointmentRepository(bookingDB.DB),
		doors:    repository.NewDoorCommandRepository(db.DB),
		actions:  repository.NewOrderActionRepository(db.DB),
		sessions: repository.NewAdminSessionRepository(db.DB),
		health:   db,
		close: func() {
			if bookingDB != db {
				bookingDB.Close()
			}
			db.Close()
		},
	}, nil
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
