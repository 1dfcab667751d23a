package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	apperrors "github.com/slotwise/scheduler-api/pkg/errors"

	"github.com/slotwise/scheduler-api/internal/model"
	"github.com/slotwise/scheduler-api/internal/repository"
)

// Partial unique index names from migrations/schema.sql. A 23505 on
// one of these is a lost check-then-insert race, reported as the
// matching conflict rather than a persistence failure.
const (
	constraintProviderSlot = "uniq_appointments_provider_slot"
	constraintClientDay    = "uniq_appointments_client_day"
)

type appointmentRepository struct {
	db *sqlx.DB
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, client_id, provider_id, scheduled_at,
			canceled_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.ClientID,
		appointment.ProviderID,
		appointment.ScheduledAt,
		appointment.CanceledAt,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			switch pqErr.Constraint {
			case constraintProviderSlot:
				return apperrors.Conflict(apperrors.ReasonSlotTaken, "slot is already booked")
			case constraintClientDay:
				return apperrors.Conflict(apperrors.ReasonDuplicateSameDayBooking, "client already has a booking that day")
			}
		}
		return apperrors.Persistence(fmt.Errorf("failed to create appointment: %w", err))
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT id, client_id, provider_id, scheduled_at,
		       canceled_at, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`
	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("appointment", err)
	}
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("failed to get appointment: %w", err))
	}
	return &appointment, nil
}

func (r *appointmentRepository) GetDetail(ctx context.Context, id uuid.UUID) (*model.AppointmentDetail, error) {
	query := `
		SELECT a.id, a.client_id, a.provider_id, a.scheduled_at,
		       a.canceled_at, a.created_at, a.updated_at,
		       c.name AS client_name,
		       p.name AS provider_name,
		       p.email AS provider_email
		FROM appointments a
		JOIN users c ON c.id = a.client_id
		JOIN users p ON p.id = a.provider_id
		WHERE a.id = $1
	`
	var detail model.AppointmentDetail
	err := r.db.GetContext(ctx, &detail, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("appointment", err)
	}
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("failed to get appointment detail: %w", err))
	}
	return &detail, nil
}

func (r *appointmentRepository) Cancel(ctx context.Context, id uuid.UUID, canceledAt time.Time) (bool, error) {
	query := `
		UPDATE appointments
		SET canceled_at = $1, updated_at = $1
		WHERE id = $2 AND canceled_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, canceledAt, id)
	if err != nil {
		return false, apperrors.Persistence(fmt.Errorf("failed to cancel appointment: %w", err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Persistence(fmt.Errorf("failed to get rows affected: %w", err))
	}
	return rows > 0, nil
}

func (r *appointmentRepository) ExistsActiveForProviderAt(ctx context.Context, providerID uuid.UUID, slot time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE provider_id = $1
			AND scheduled_at = $2
			AND canceled_at IS NULL
		)
	`
	var taken bool
	if err := r.db.GetContext(ctx, &taken, query, providerID, slot); err != nil {
		return false, apperrors.Persistence(fmt.Errorf("failed to probe provider slot: %w", err))
	}
	return taken, nil
}

func (r *appointmentRepository) ExistsActiveForClientOnDay(ctx context.Context, clientID uuid.UUID, dayStart, dayEnd time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE client_id = $1
			AND scheduled_at BETWEEN $2 AND $3
			AND canceled_at IS NULL
		)
	`
	var booked bool
	if err := r.db.GetContext(ctx, &booked, query, clientID, dayStart, dayEnd); err != nil {
		return false, apperrors.Persistence(fmt.Errorf("failed to probe client day: %w", err))
	}
	return booked, nil
}

func (r *appointmentRepository) ListForClient(ctx context.Context, clientID uuid.UUID) ([]*model.Appointment, error) {
	query := `
		SELECT id, client_id, provider_id, scheduled_at,
		       canceled_at, created_at, updated_at
		FROM appointments
		WHERE client_id = $1 AND canceled_at IS NULL
		ORDER BY scheduled_at ASC
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, clientID); err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("failed to list client appointments: %w", err))
	}
	return appointments, nil
}

func (r *appointmentRepository) ListForProvider(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT id, client_id, provider_id, scheduled_at,
		       canceled_at, created_at, updated_at
		FROM appointments
		WHERE provider_id = $1
		AND scheduled_at >= $2
		AND scheduled_at < $3
		AND canceled_at IS NULL
		ORDER BY scheduled_at ASC
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, providerID, from, to); err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("failed to list provider appointments: %w", err))
	}
	return appointments, nil
}
