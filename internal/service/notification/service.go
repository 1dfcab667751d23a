package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/slotwise/scheduler-api/pkg/clock"
	"github.com/slotwise/scheduler-api/pkg/logger"
	"github.com/slotwise/scheduler-api/pkg/messaging"

	"github.com/slotwise/scheduler-api/internal/model"
	"github.com/slotwise/scheduler-api/internal/repository"
)

const broadcastChannel = "notifications"

type Service interface {
	Notify(ctx context.Context, recipientID uuid.UUID, content string) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo   repository.NotificationRepository
	broker messaging.Broker
	clock  clock.Clock
	logger *logger.Logger
}

func NewService(repo repository.NotificationRepository, broker messaging.Broker, clk clock.Clock, log *logger.Logger) Service {
	return &service{
		repo:   repo,
		broker: broker,
		clock:  clk,
		logger: log,
	}
}

// Notify appends a notice for the recipient and broadcasts it for
// connected clients. The append is authoritative; a broadcast failure
// is logged and swallowed.
func (s *service) Notify(ctx context.Context, recipientID uuid.UUID, content string) error {
	if content == "" {
		return fmt.Errorf("notification content is required")
	}

	notification := &model.Notification{
		ID:              uuid.New(),
		RecipientUserID: recipientID,
		Content:         content,
		Read:            false,
		CreatedAt:       s.clock.Now(),
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	event := &model.NotificationEvent{
		ID:              notification.ID,
		RecipientUserID: notification.RecipientUserID,
		Content:         notification.Content,
		CreatedAt:       notification.CreatedAt,
	}
	if err := s.broker.Publish(ctx, broadcastChannel, event); err != nil {
		s.logger.Error(err, "failed to broadcast notification",
			"notification_id", notification.ID.String())
	}

	return nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Notification, error) {
	return s.repo.ListForUser(ctx, userID)
}

func (s *service) MarkRead(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, id)
}
