package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/scheduler-api/internal/model"
)

type AppointmentRepository interface {
	Create(ctx context.Context, appointment *model.Appointment) error
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	// GetDetail returns the appointment joined with client/provider
	// names and the provider email.
	GetDetail(ctx context.Context, id uuid.UUID) (*model.AppointmentDetail, error)
	// Cancel sets canceled_at guarded by `canceled_at IS NULL`;
	// reports whether a row was updated.
	Cancel(ctx context.Context, id uuid.UUID, canceledAt time.Time) (bool, error)
	ExistsActiveForProviderAt(ctx context.Context, providerID uuid.UUID, slot time.Time) (bool, error)
	ExistsActiveForClientOnDay(ctx context.Context, clientID uuid.UUID, dayStart, dayEnd time.Time) (bool, error)
	ListForClient(ctx context.Context, clientID uuid.UUID) ([]*model.Appointment, error)
	ListForProvider(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]*model.Appointment, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *model.Notification) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}

type UserRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	ListProviders(ctx context.Context) ([]*model.User, error)
}
