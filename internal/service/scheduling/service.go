package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/slotwise/scheduler-api/pkg/clock"
	apperrors "github.com/slotwise/scheduler-api/pkg/errors"
	"github.com/slotwise/scheduler-api/pkg/logger"
	"github.com/slotwise/scheduler-api/pkg/metrics"

	"github.com/slotwise/scheduler-api/internal/model"
	"github.com/slotwise/scheduler-api/internal/repository"
)

// DefaultSlotLayout renders a slot for notification text and mail
// payloads. The exact phrasing is configuration, not an invariant.
const DefaultSlotLayout = "Monday, January 2 2006 at 3:04 PM"

// UserDirectory is the narrow slice of the user service the engine
// needs: lookups by id with the provider flag populated.
type UserDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// Notifier appends a provider-facing notice.
type Notifier interface {
	Notify(ctx context.Context, recipientID uuid.UUID, content string) error
}

// MailEnqueuer hands a cancellation snapshot to the job queue.
type MailEnqueuer interface {
	EnqueueCancellationMail(ctx context.Context, mail model.CancellationMail) error
}

type Service struct {
	repo       repository.AppointmentRepository
	users      UserDirectory
	notifier   Notifier
	enqueuer   MailEnqueuer
	clock      clock.Clock
	logger     *logger.Logger
	metrics    *metrics.Metrics
	slotLayout string
}

type Option func(*Service)

// WithSlotLayout overrides the layout used to render slot times in
// notification content.
func WithSlotLayout(layout string) Option {
	return func(s *Service) {
		s.slotLayout = layout
	}
}

func NewService(
	repo repository.AppointmentRepository,
	users UserDirectory,
	notifier Notifier,
	enqueuer MailEnqueuer,
	clk clock.Clock,
	log *logger.Logger,
	m *metrics.Metrics,
	opts ...Option,
) *Service {
	s := &Service{
		repo:       repo,
		users:      users,
		notifier:   notifier,
		enqueuer:   enqueuer,
		clock:      clk,
		logger:     log,
		metrics:    m,
		slotLayout: DefaultSlotLayout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Book validates and persists a new appointment for clientID against
// the requested provider and slot, then notifies the provider.
func (s *Service) Book(ctx context.Context, clientID uuid.UUID, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	timer := prometheus.NewTimer(s.metrics.SchedulingLatency.WithLabelValues("book"))
	defer timer.ObserveDuration()

	providerID, err := uuid.Parse(req.ProviderID)
	if err != nil {
		return nil, s.bookingRejected(apperrors.Validation("invalid provider id", err))
	}

	requestedTime, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		return nil, s.bookingRejected(apperrors.Validation("invalid date, expected RFC3339", err))
	}

	now := s.clock.Now()
	slot := HourStart(requestedTime)

	provider, err := s.users.Get(ctx, providerID)
	if err != nil && apperrors.CodeOf(err) != apperrors.ErrNotFound {
		return nil, fmt.Errorf("failed to look up provider: %w", err)
	}

	probes, err := s.fetchProbes(ctx, clientID, providerID, slot, requestedTime)
	if err != nil {
		return nil, err
	}

	booking := BookingRequest{
		ClientID:      clientID,
		ProviderID:    providerID,
		RequestedTime: requestedTime,
		Now:           now,
	}
	if err := Evaluate(booking, provider, probes); err != nil {
		return nil, s.bookingRejected(err)
	}

	appointment := &model.Appointment{
		ID:          uuid.New(),
		ClientID:    clientID,
		ProviderID:  providerID,
		ScheduledAt: slot,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, appointment); err != nil {
		// Lost check-then-insert races surface here as conflicts.
		if apperrors.CodeOf(err) == apperrors.ErrConflict {
			return nil, s.bookingRejected(err)
		}
		return nil, err
	}

	s.notifyProvider(ctx, appointment, slot)

	s.metrics.BookingsTotal.WithLabelValues("admitted").Inc()
	appointment.ComputeViewFields(now)
	return appointment, nil
}

func (s *Service) fetchProbes(ctx context.Context, clientID, providerID uuid.UUID, slot, requestedTime time.Time) (Probes, error) {
	slotTaken, err := s.repo.ExistsActiveForProviderAt(ctx, providerID, slot)
	if err != nil {
		return Probes{}, fmt.Errorf("failed to probe provider slot: %w", err)
	}

	dayStart, dayEnd := DayBounds(requestedTime)
	sameDay, err := s.repo.ExistsActiveForClientOnDay(ctx, clientID, dayStart, dayEnd)
	if err != nil {
		return Probes{}, fmt.Errorf("failed to probe client day: %w", err)
	}

	return Probes{SlotTaken: slotTaken, ClientBookedSameDay: sameDay}, nil
}

func (s *Service) notifyProvider(ctx context.Context, appointment *model.Appointment, slot time.Time) {
	client, err := s.users.Get(ctx, appointment.ClientID)
	if err != nil {
		s.logger.Error(err, "failed to resolve client name for notification",
			"appointment_id", appointment.ID.String())
		return
	}

	content := fmt.Sprintf("New appointment from %s for %s", client.Name, slot.Format(s.slotLayout))
	if err := s.notifier.Notify(ctx, appointment.ProviderID, content); err != nil {
		s.logger.Error(err, "failed to notify provider",
			"appointment_id", appointment.ID.String(),
			"provider_id", appointment.ProviderID.String())
	}
}

// Cancel transitions an appointment to canceled under ownership and
// grace-window checks and enqueues the confirmation mail job. The
// state transition commits independent of mail delivery.
func (s *Service) Cancel(ctx context.Context, requestingUserID, appointmentID uuid.UUID) (*model.Appointment, error) {
	timer := prometheus.NewTimer(s.metrics.SchedulingLatency.WithLabelValues("cancel"))
	defer timer.ObserveDuration()

	detail, err := s.repo.GetDetail(ctx, appointmentID)
	if err != nil {
		return nil, s.cancellationRejected(err)
	}

	if detail.ClientID != requestingUserID {
		return nil, s.cancellationRejected(apperrors.Forbidden("only the booking client may cancel this appointment"))
	}

	// Checked ahead of the grace window so a canceled appointment
	// always reports AlreadyCanceled, however close the slot is.
	if detail.CanceledAt != nil {
		return nil, s.cancellationRejected(apperrors.State(apperrors.ReasonAlreadyCanceled, "appointment is already canceled"))
	}

	now := s.clock.Now()
	if detail.ScheduledAt.Sub(now) <= model.CancelGraceWindow {
		return nil, s.cancellationRejected(apperrors.State(apperrors.ReasonTooLateToCancel, "appointments can only be canceled more than 2 hours in advance"))
	}

	updated, err := s.repo.Cancel(ctx, appointmentID, now)
	if err != nil {
		return nil, err
	}
	if !updated {
		// Lost a race with a concurrent cancellation.
		return nil, s.cancellationRejected(apperrors.State(apperrors.ReasonAlreadyCanceled, "appointment is already canceled"))
	}

	detail.CanceledAt = &now
	detail.UpdatedAt = now

	s.enqueueCancellationMail(ctx, detail)

	s.metrics.CancellationsTotal.WithLabelValues("canceled").Inc()
	detail.ComputeViewFields(now)
	return &detail.Appointment, nil
}

// enqueueCancellationMail hands the queue an immutable snapshot. An
// enqueue failure never rolls back the cancellation; it is logged and
// counted for the operational channel instead.
func (s *Service) enqueueCancellationMail(ctx context.Context, detail *model.AppointmentDetail) {
	mail := model.CancellationMail{
		AppointmentID: detail.ID,
		ClientName:    detail.ClientName,
		ProviderName:  detail.ProviderName,
		ProviderEmail: detail.ProviderEmail,
		ScheduledAt:   detail.ScheduledAt,
	}
	if err := s.enqueuer.EnqueueCancellationMail(ctx, mail); err != nil {
		queueErr := apperrors.Queue("failed to enqueue cancellation mail", err)
		s.logger.Error(queueErr, "cancellation mail not enqueued",
			"appointment_id", detail.ID.String())
		s.metrics.MailJobsFailed.Inc()
	}
}

// Get returns a single appointment with view fields computed.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appointment, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	appointment.ComputeViewFields(s.clock.Now())
	return appointment, nil
}

// ListForClient returns the client's active appointments.
func (s *Service) ListForClient(ctx context.Context, clientID uuid.UUID) ([]*model.Appointment, error) {
	appointments, err := s.repo.ListForClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	for _, appointment := range appointments {
		appointment.ComputeViewFields(now)
	}
	return appointments, nil
}

// ListForProvider returns the provider's active appointments on the
// given calendar day.
func (s *Service) ListForProvider(ctx context.Context, providerID uuid.UUID, day time.Time) ([]*model.Appointment, error) {
	dayStart, dayEnd := DayBounds(day)
	appointments, err := s.repo.ListForProvider(ctx, providerID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	for _, appointment := range appointments {
		appointment.ComputeViewFields(now)
	}
	return appointments, nil
}

func (s *Service) bookingRejected(err error) error {
	s.metrics.BookingsTotal.WithLabelValues(outcomeLabel(err)).Inc()
	return err
}

func (s *Service) cancellationRejected(err error) error {
	s.metrics.CancellationsTotal.WithLabelValues(outcomeLabel(err)).Inc()
	return err
}

func outcomeLabel(err error) string {
	if reason := apperrors.ReasonOf(err); reason != "" {
		return string(reason)
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperrors.ErrValidation:
			return "validation"
		case apperrors.ErrNotFound:
			return "not_found"
		case apperrors.ErrForbidden:
			return "forbidden"
		}
	}
	return "error"
}
