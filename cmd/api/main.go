package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/slotwise/scheduler-api/pkg/clock"
	"github.com/slotwise/scheduler-api/pkg/logger"
	"github.com/slotwise/scheduler-api/pkg/metrics"
	redisbroker "github.com/slotwise/scheduler-api/pkg/messaging/redis"
	"github.com/slotwise/scheduler-api/pkg/validator"

	"github.com/slotwise/scheduler-api/internal/config"
	"github.com/slotwise/scheduler-api/internal/handler"
	appointmentHandler "github.com/slotwise/scheduler-api/internal/handler/appointment"
	notificationHandler "github.com/slotwise/scheduler-api/internal/handler/notification"
	providerHandler "github.com/slotwise/scheduler-api/internal/handler/provider"
	"github.com/slotwise/scheduler-api/internal/middleware"
	"github.com/slotwise/scheduler-api/internal/queue"
	"github.com/slotwise/scheduler-api/internal/repository/postgres"
	"github.com/slotwise/scheduler-api/internal/router"
	notificationService "github.com/slotwise/scheduler-api/internal/service/notification"
	"github.com/slotwise/scheduler-api/internal/service/scheduling"
	userService "github.com/slotwise/scheduler-api/internal/service/user"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)
	appMetrics := metrics.New("scheduler")
	appClock := clock.New()

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, appLogger.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	queueClient := queue.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.QueueDB, appMetrics)
	defer queueClient.Close()

	// Repositories
	appointmentRepo := postgres.NewAppointmentRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	userRepo := postgres.NewUserRepository(db)

	// Services
	userSvc := userService.NewService(userRepo)
	notificationSvc := notificationService.NewService(notificationRepo, broker, appClock, appLogger)
	schedulingSvc := scheduling.NewService(
		appointmentRepo,
		userSvc,
		notificationSvc,
		queueClient,
		appClock,
		appLogger,
		appMetrics,
		scheduling.WithSlotLayout(cfg.Scheduling.SlotLayout),
	)

	// Handlers
	v := validator.New()
	identity := middleware.NewIdentityMiddleware(cfg.Identity.Secret)
	healthH := handler.NewHealthHandler(db)

	r := router.NewRouter(
		identity,
		healthH,
		router.Config{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
		},
		appointmentHandler.NewHandler(schedulingSvc, v),
		notificationHandler.NewHandler(notificationSvc),
		providerHandler.NewHandler(userSvc),
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
