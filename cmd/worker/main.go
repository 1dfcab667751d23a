package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/slotwise/scheduler-api/pkg/logger"
	"github.com/slotwise/scheduler-api/pkg/metrics"

	"github.com/slotwise/scheduler-api/internal/email"
	"github.com/slotwise/scheduler-api/internal/queue"
)

// The worker runs as its own process and is configured entirely from
// the environment.
type workerConfig struct {
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisQueueDB  int    `envconfig:"REDIS_QUEUE_DB" default:"1"`
	Concurrency   int    `envconfig:"QUEUE_CONCURRENCY" default:"10"`

	SMTPHost     string `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"1025"`
	SMTPUsername string `envconfig:"SMTP_USERNAME" default:""`
	SMTPPassword string `envconfig:"SMTP_PASSWORD" default:""`
	MailFrom     string `envconfig:"MAIL_FROM" default:"noreply@slotwise.dev"`
	SlotLayout   string `envconfig:"SLOT_LAYOUT" default:"Monday, January 2 2006 at 3:04 PM"`

	MetricsPort int `envconfig:"METRICS_PORT" default:"9091"`
}

func main() {
	var cfg workerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker configuration")
	}

	appLogger := logger.NewLogger(nil)
	appMetrics := metrics.New("scheduler_worker")

	mailer := email.NewSMTPService(email.SMTPConfig{
		Host:       cfg.SMTPHost,
		Port:       cfg.SMTPPort,
		Username:   cfg.SMTPUsername,
		Password:   cfg.SMTPPassword,
		From:       cfg.MailFrom,
		SlotLayout: cfg.SlotLayout,
	})

	srv := queue.NewServer(queue.ServerConfig{
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisQueueDB,
		Concurrency:   cfg.Concurrency,
	}, appLogger)

	mux := queue.NewMux(mailer, appLogger, appMetrics)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.MetricsPort)
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(addr, nil); err != nil {
			log.Error().Err(err).Msg("metrics endpoint stopped")
		}
	}()

	if err := srv.Start(mux); err != nil {
		log.Fatal().Err(err).Msg("failed to start queue worker")
	}
	log.Info().Msg("queue worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down queue worker...")
	srv.Shutdown()
	log.Info().Msg("queue worker exited properly")
}
