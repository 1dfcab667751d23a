package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	apperrors "github.com/slotwise/scheduler-api/pkg/errors"

	"github.com/slotwise/scheduler-api/internal/model"
	"github.com/slotwise/scheduler-api/internal/repository"
)

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *model.Notification) error {
	query := `
		INSERT INTO notifications (id, recipient_user_id, content, read, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		notification.ID,
		notification.RecipientUserID,
		notification.Content,
		notification.Read,
		notification.CreatedAt,
	)
	if err != nil {
		return apperrors.Persistence(fmt.Errorf("failed to create notification: %w", err))
	}
	return nil
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Notification, error) {
	query := `
		SELECT id, recipient_user_id, content, read, created_at
		FROM notifications
		WHERE recipient_user_id = $1
		ORDER BY created_at DESC
	`
	var notifications []*model.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, userID); err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("failed to list notifications: %w", err))
	}
	return notifications, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE notifications SET read = TRUE WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return apperrors.Persistence(fmt.Errorf("failed to mark notification read: %w", err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Persistence(fmt.Errorf("failed to get rows affected: %w", err))
	}
	if rows == 0 {
		return apperrors.NotFound("notification", nil)
	}
	return nil
}
