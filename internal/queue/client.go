package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/slotwise/scheduler-api/pkg/metrics"

	"github.com/slotwise/scheduler-api/internal/model"
)

const (
	mailMaxRetry    = 5
	mailTaskTimeout = 30 * time.Second
)

// Client enqueues jobs onto the redis-backed queue. Enqueue returns as
// soon as the task is stored; delivery is the worker's problem.
type Client struct {
	asynq   *asynq.Client
	metrics *metrics.Metrics
}

func NewClient(redisAddr, redisPassword string, db int, m *metrics.Metrics) *Client {
	return &Client{
		asynq: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     redisAddr,
			Password: redisPassword,
			DB:       db,
		}),
		metrics: m,
	}
}

func (c *Client) EnqueueCancellationMail(ctx context.Context, mail model.CancellationMail) error {
	task, err := NewCancellationMailTask(mail)
	if err != nil {
		return err
	}

	_, err = c.asynq.EnqueueContext(ctx, task,
		asynq.Queue(QueueMail),
		asynq.MaxRetry(mailMaxRetry),
		asynq.Timeout(mailTaskTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", TypeCancellationMail, err)
	}

	c.metrics.MailJobsEnqueued.Inc()
	return nil
}

func (c *Client) Close() error {
	return c.asynq.Close()
}
