package queue

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/slotwise/scheduler-api/internal/model"
)

// Task types routed through the queue.
const TypeCancellationMail = "mail:cancellation"

// Queue names. Mail is informational, so it runs at lower priority
// than anything added to critical later.
const (
	QueueCritical = "critical"
	QueueMail     = "mail"
)

// NewCancellationMailTask wraps the snapshot payload in a task.
func NewCancellationMailTask(mail model.CancellationMail) (*asynq.Task, error) {
	payload, err := json.Marshal(mail)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cancellation mail payload: %w", err)
	}
	return asynq.NewTask(TypeCancellationMail, payload), nil
}
