package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/slotwise/scheduler-api/pkg/logger"
	"github.com/slotwise/scheduler-api/pkg/metrics"

	"github.com/slotwise/scheduler-api/internal/email"
	"github.com/slotwise/scheduler-api/internal/model"
)

// ServerConfig tunes the worker pool.
type ServerConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Concurrency   int
}

// NewServer builds the asynq worker server. Exhausted tasks land in
// asynq's archive, which serves as the operational dead-letter sink.
func NewServer(cfg ServerConfig, log *logger.Logger) *asynq.Server {
	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				QueueCritical: 6,
				QueueMail:     3,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				if retried >= maxRetry {
					log.Error(err, "task exhausted retries, archiving",
						"task_type", task.Type())
					return
				}
				log.Warn("task failed, will retry",
					"task_type", task.Type(),
					"retried", retried,
					"error", err.Error())
			}),
		},
	)
}

// NewMux routes task types to their handlers.
func NewMux(mailer email.Service, log *logger.Logger, m *metrics.Metrics) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeCancellationMail, handleCancellationMail(mailer, log, m))
	return mux
}

// handleCancellationMail sends the cancellation confirmation from the
// snapshot payload. Delivery is at-least-once; the mail is
// informational so duplicates are tolerated.
func handleCancellationMail(mailer email.Service, log *logger.Logger, m *metrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var mail model.CancellationMail
		if err := json.Unmarshal(task.Payload(), &mail); err != nil {
			// Malformed payloads will never succeed; skip straight
			// to the archive.
			return fmt.Errorf("invalid cancellation mail payload: %v: %w", err, asynq.SkipRetry)
		}

		timer := prometheus.NewTimer(m.MailSendLatency)
		err := mailer.SendCancellation(ctx, mail)
		timer.ObserveDuration()

		if err != nil {
			m.MailJobsFailed.Inc()
			return fmt.Errorf("failed to send cancellation mail for appointment %s: %w", mail.AppointmentID, err)
		}

		m.MailJobsSent.Inc()
		log.Info("cancellation mail sent",
			"appointment_id", mail.AppointmentID.String(),
			"recipient", mail.ProviderEmail)
		return nil
	}
}
