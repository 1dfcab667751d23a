package model

import (
	"time"

	"github.com/google/uuid"
)

// CancelGraceWindow is the minimum lead time before the slot for a
// cancellation to be permitted. The boundary is exclusive: strictly
// more than two hours must remain.
const CancelGraceWindow = 2 * time.Hour

type Appointment struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	ClientID    uuid.UUID  `db:"client_id" json:"client_id"`
	ProviderID  uuid.UUID  `db:"provider_id" json:"provider_id"`
	ScheduledAt time.Time  `db:"scheduled_at" json:"scheduled_at"`
	CanceledAt  *time.Time `db:"canceled_at" json:"canceled_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`

	// View fields, computed on read relative to the engine clock.
	IsPast       bool `db:"-" json:"is_past"`
	IsCancelable bool `db:"-" json:"is_cancelable"`
}

// Active reports whether the appointment has not been canceled.
func (a *Appointment) Active() bool {
	return a.CanceledAt == nil
}

// ComputeViewFields fills IsPast and IsCancelable relative to now.
func (a *Appointment) ComputeViewFields(now time.Time) {
	a.IsPast = a.ScheduledAt.Before(now)
	a.IsCancelable = a.CanceledAt == nil && a.ScheduledAt.Sub(now) > CancelGraceWindow
}

// AppointmentDetail is an appointment joined with the names and the
// provider email needed to build the cancellation mail payload.
type AppointmentDetail struct {
	Appointment
	ClientName    string `db:"client_name" json:"client_name"`
	ProviderName  string `db:"provider_name" json:"provider_name"`
	ProviderEmail string `db:"provider_email" json:"-"`
}

type CreateAppointmentRequest struct {
	ProviderID string `json:"provider_id" validate:"required,uuid"`
	Date       string `json:"date" validate:"required"`
}

// CancellationMail is the immutable snapshot carried by the mail job.
// Later mutations to the appointment record do not affect an in-flight
// job.
type CancellationMail struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	ClientName    string    `json:"client_name"`
	ProviderName  string    `json:"provider_name"`
	ProviderEmail string    `json:"provider_email"`
	ScheduledAt   time.Time `json:"scheduled_at"`
}
