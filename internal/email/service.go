package email

import (
	"context"

	"github.com/slotwise/scheduler-api/internal/model"
)

// Service is the mail dispatch contract consumed by the queue worker.
type Service interface {
	SendCancellation(ctx context.Context, mail model.CancellationMail) error
}
