package scheduling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotwise/scheduler-api/pkg/clock"
	apperrors "github.com/slotwise/scheduler-api/pkg/errors"
	"github.com/slotwise/scheduler-api/pkg/logger"
	"github.com/slotwise/scheduler-api/pkg/metrics"

	"github.com/slotwise/scheduler-api/internal/model"
)

// fakeStore is an in-memory AppointmentRepository consistent with the
// postgres implementation's semantics.
type fakeStore struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*model.Appointment
	users        map[uuid.UUID]*model.User
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		appointments: make(map[uuid.UUID]*model.Appointment),
		users:        make(map[uuid.UUID]*model.User),
	}
}

func (f *fakeStore) Create(_ context.Context, appointment *model.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *appointment
	f.appointments[appointment.ID] = &cp
	return nil
}

func (f *fakeStore) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	appointment, ok := f.appointments[id]
	if !ok {
		return nil, apperrors.NotFound("appointment", nil)
	}
	cp := *appointment
	return &cp, nil
}

func (f *fakeStore) GetDetail(_ context.Context, id uuid.UUID) (*model.AppointmentDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	appointment, ok := f.appointments[id]
	if !ok {
		return nil, apperrors.NotFound("appointment", nil)
	}
	detail := &model.AppointmentDetail{Appointment: *appointment}
	if client, ok := f.users[appointment.ClientID]; ok {
		detail.ClientName = client.Name
	}
	if provider, ok := f.users[appointment.ProviderID]; ok {
		detail.ProviderName = provider.Name
		detail.ProviderEmail = provider.Email
	}
	return detail, nil
}

func (f *fakeStore) Cancel(_ context.Context, id uuid.UUID, canceledAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	appointment, ok := f.appointments[id]
	if !ok || appointment.CanceledAt != nil {
		return false, nil
	}
	appointment.CanceledAt = &canceledAt
	appointment.UpdatedAt = canceledAt
	return true, nil
}

func (f *fakeStore) ExistsActiveForProviderAt(_ context.Context, providerID uuid.UUID, slot time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, appointment := range f.appointments {
		if appointment.ProviderID == providerID && appointment.ScheduledAt.Equal(slot) && appointment.CanceledAt == nil {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ExistsActiveForClientOnDay(_ context.Context, clientID uuid.UUID, dayStart, dayEnd time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, appointment := range f.appointments {
		if appointment.ClientID != clientID || appointment.CanceledAt != nil {
			continue
		}
		if !appointment.ScheduledAt.Before(dayStart) && !appointment.ScheduledAt.After(dayEnd) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ListForClient(_ context.Context, clientID uuid.UUID) ([]*model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Appointment
	for _, appointment := range f.appointments {
		if appointment.ClientID == clientID && appointment.CanceledAt == nil {
			cp := *appointment
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) ListForProvider(_ context.Context, providerID uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Appointment
	for _, appointment := range f.appointments {
		if appointment.ProviderID != providerID || appointment.CanceledAt != nil {
			continue
		}
		if !appointment.ScheduledAt.Before(from) && appointment.ScheduledAt.Before(to) {
			cp := *appointment
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeDirectory struct {
	store *fakeStore
}

func (d *fakeDirectory) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	d.store.mu.Lock()
	defer d.store.mu.Unlock()
	user, ok := d.store.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", nil)
	}
	return user, nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []struct {
		recipient uuid.UUID
		content   string
	}
	err error
}

func (n *fakeNotifier) Notify(_ context.Context, recipientID uuid.UUID, content string) error {
	if n.err != nil {
		return n.err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, struct {
		recipient uuid.UUID
		content   string
	}{recipientID, content})
	return nil
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	mails []model.CancellationMail
	err   error
}

func (e *fakeEnqueuer) EnqueueCancellationMail(_ context.Context, mail model.CancellationMail) error {
	if e.err != nil {
		return e.err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mails = append(e.mails, mail)
	return nil
}

type fixture struct {
	svc      *Service
	store    *fakeStore
	notifier *fakeNotifier
	enqueuer *fakeEnqueuer
	now      time.Time
	client   *model.User
	provider *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	now := time.Date(2025, 1, 9, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	notifier := &fakeNotifier{}
	enqueuer := &fakeEnqueuer{}

	client := &model.User{ID: uuid.New(), Name: "Alice Moreau", Email: "alice@example.com"}
	provider := &model.User{ID: uuid.New(), Name: "Dr. Reed", Email: "reed@example.com", IsProvider: true}
	store.users[client.ID] = client
	store.users[provider.ID] = provider

	svc := NewService(
		store,
		&fakeDirectory{store: store},
		notifier,
		enqueuer,
		clock.Fixed(now),
		logger.NewLogger(nil),
		metrics.NewWith(prometheus.NewRegistry(), "test"),
	)

	return &fixture{
		svc:      svc,
		store:    store,
		notifier: notifier,
		enqueuer: enqueuer,
		now:      now,
		client:   client,
		provider: provider,
	}
}

func (f *fixture) book(t *testing.T, clientID uuid.UUID, providerID uuid.UUID, date string) (*model.Appointment, error) {
	t.Helper()
	return f.svc.Book(context.Background(), clientID, &model.CreateAppointmentRequest{
		ProviderID: providerID.String(),
		Date:       date,
	})
}

func TestBookAdmitsValidRequest(t *testing.T) {
	f := newFixture(t)

	appointment, err := f.book(t, f.client.ID, f.provider.ID, "2025-01-10T14:23:00Z")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 1, 10, 14, 0, 0, 0, time.UTC), appointment.ScheduledAt, "slot truncates to the hour")
	assert.Nil(t, appointment.CanceledAt)
	assert.False(t, appointment.IsPast)
	assert.True(t, appointment.IsCancelable)

	require.Len(t, f.notifier.notices, 1)
	assert.Equal(t, f.provider.ID, f.notifier.notices[0].recipient)
	assert.Equal(t, "New appointment from Alice Moreau for Friday, January 10 2025 at 2:00 PM", f.notifier.notices[0].content)

	assert.Empty(t, f.enqueuer.mails, "booking never touches the queue")
}

func TestBookRejectsUnparsableInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Book(context.Background(), f.client.ID, &model.CreateAppointmentRequest{
		ProviderID: "not-a-uuid",
		Date:       "2025-01-10T14:00:00Z",
	})
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))

	_, err = f.book(t, f.client.ID, f.provider.ID, "tomorrow at noon")
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))

	assert.Empty(t, f.notifier.notices)
	assert.Empty(t, f.store.appointments)
}

func TestBookRejectsSelfBooking(t *testing.T) {
	f := newFixture(t)

	for _, date := range []string{"2025-01-10T14:00:00Z", "2020-01-01T00:00:00Z", "2030-06-01T08:00:00Z"} {
		_, err := f.book(t, f.provider.ID, f.provider.ID, date)
		assert.Equal(t, apperrors.ReasonSelfBooking, apperrors.ReasonOf(err))
	}
}

func TestBookRejectsNonProvider(t *testing.T) {
	f := newFixture(t)

	_, err := f.book(t, f.provider.ID, f.client.ID, "2025-01-10T14:00:00Z")
	assert.Equal(t, apperrors.ReasonNotAProvider, apperrors.ReasonOf(err))

	_, err = f.book(t, f.client.ID, uuid.New(), "2025-01-10T14:00:00Z")
	assert.Equal(t, apperrors.ReasonNotAProvider, apperrors.ReasonOf(err))
}

func TestBookFutureBoundary(t *testing.T) {
	f := newFixture(t)

	// Hour start equal to now is not strictly future.
	_, err := f.book(t, f.client.ID, f.provider.ID, "2025-01-09T09:30:00Z")
	assert.Equal(t, apperrors.ReasonPastDate, apperrors.ReasonOf(err))

	_, err = f.book(t, f.client.ID, f.provider.ID, "2025-01-09T08:00:00Z")
	assert.Equal(t, apperrors.ReasonPastDate, apperrors.ReasonOf(err))

	// The next hour admits.
	_, err = f.book(t, f.client.ID, f.provider.ID, "2025-01-09T10:00:00Z")
	assert.NoError(t, err)
}

func TestBookSlotAndDayExclusivity(t *testing.T) {
	f := newFixture(t)

	clientB := &model.User{ID: uuid.New(), Name: "Bruno Silva", Email: "bruno@example.com"}
	providerQ := &model.User{ID: uuid.New(), Name: "Dr. Quinn", Email: "quinn@example.com", IsProvider: true}
	f.store.users[clientB.ID] = clientB
	f.store.users[providerQ.ID] = providerQ

	_, err := f.book(t, f.client.ID, f.provider.ID, "2025-01-10T14:00:00Z")
	require.NoError(t, err)

	// Same provider, same slot, different client.
	_, err = f.book(t, clientB.ID, f.provider.ID, "2025-01-10T14:00:00Z")
	assert.Equal(t, apperrors.ReasonSlotTaken, apperrors.ReasonOf(err))

	// Same client, same day, different provider.
	_, err = f.book(t, f.client.ID, providerQ.ID, "2025-01-10T09:00:00Z")
	assert.Equal(t, apperrors.ReasonDuplicateSameDayBooking, apperrors.ReasonOf(err))

	// Same client, next day, is fine.
	_, err = f.book(t, f.client.ID, providerQ.ID, "2025-01-11T09:00:00Z")
	assert.NoError(t, err)
}

func TestBookSlotFreesAfterCancellation(t *testing.T) {
	f := newFixture(t)

	appointment, err := f.book(t, f.client.ID, f.provider.ID, "2025-01-10T14:00:00Z")
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), f.client.ID, appointment.ID)
	require.NoError(t, err)

	clientB := &model.User{ID: uuid.New(), Name: "Bruno Silva", Email: "bruno@example.com"}
	f.store.users[clientB.ID] = clientB

	_, err = f.book(t, clientB.ID, f.provider.ID, "2025-01-10T14:00:00Z")
	assert.NoError(t, err, "canceled appointments do not occupy the slot")
}

func TestCancelHappyPath(t *testing.T) {
	f := newFixture(t)

	appointment, err := f.book(t, f.client.ID, f.provider.ID, "2025-01-10T14:00:00Z")
	require.NoError(t, err)

	canceled, err := f.svc.Cancel(context.Background(), f.client.ID, appointment.ID)
	require.NoError(t, err)

	require.NotNil(t, canceled.CanceledAt)
	assert.Equal(t, f.now, *canceled.CanceledAt)
	assert.False(t, canceled.IsCancelable)

	require.Len(t, f.enqueuer.mails, 1)
	mail := f.enqueuer.mails[0]
	assert.Equal(t, appointment.ID, mail.AppointmentID)
	assert.Equal(t, "Alice Moreau", mail.ClientName)
	assert.Equal(t, "Dr. Reed", mail.ProviderName)
	assert.Equal(t, "reed@example.com", mail.ProviderEmail)
	assert.Equal(t, appointment.ScheduledAt, mail.ScheduledAt)
}

func TestCancelUnknownAppointment(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Cancel(context.Background(), f.client.ID, uuid.New())
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}

func TestCancelRequiresOwnership(t *testing.T) {
	f := newFixture(t)

	appointment, err := f.book(t, f.client.ID, f.provider.ID, "2025-01-10T14:00:00Z")
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), f.provider.ID, appointment.ID)
	assert.Equal(t, apperrors.ErrForbidden, apperrors.CodeOf(err))

	_, err = f.svc.Cancel(context.Background(), uuid.New(), appointment.ID)
	assert.Equal(t, apperrors.ErrForbidden, apperrors.CodeOf(err))

	assert.Empty(t, f.enqueuer.mails)
}

func TestCancelGraceWindowBoundary(t *testing.T) {
	f := newFixture(t)

	// now = 09:00; a slot at 11:00 leaves exactly two hours, which is
	// not strictly more than the grace window.
	appointment, err := f.book(t, f.client.ID, f.provider.ID, "2025-01-09T11:00:00Z")
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), f.client.ID, appointment.ID)
	assert.Equal(t, apperrors.ReasonTooLateToCancel, apperrors.ReasonOf(err))
	assert.Empty(t, f.enqueuer.mails)

	// One second past the boundary succeeds.
	late := newFixture(t)
	late.svc.clock = clock.Fixed(late.now.Add(-time.Second))
	appointment, err = late.book(t, late.client.ID, late.provider.ID, "2025-01-09T11:00:00Z")
	require.NoError(t, err)

	_, err = late.svc.Cancel(context.Background(), late.client.ID, appointment.ID)
	assert.NoError(t, err)
	assert.Len(t, late.enqueuer.mails, 1)
}

func TestCancelIsTerminal(t *testing.T) {
	f := newFixture(t)

	appointment, err := f.book(t, f.client.ID, f.provider.ID, "2025-01-10T14:00:00Z")
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), f.client.ID, appointment.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), f.client.ID, appointment.ID)
	assert.Equal(t, apperrors.ReasonAlreadyCanceled, apperrors.ReasonOf(err))

	assert.Len(t, f.enqueuer.mails, 1, "repeat cancellations never re-enqueue the mail job")
}

func TestCancelSurvivesEnqueueFailure(t *testing.T) {
	f := newFixture(t)
	f.enqueuer.err = errors.New("redis unavailable")

	appointment, err := f.book(t, f.client.ID, f.provider.ID, "2025-01-10T14:00:00Z")
	require.NoError(t, err)

	canceled, err := f.svc.Cancel(context.Background(), f.client.ID, appointment.ID)
	require.NoError(t, err, "enqueue failure must not roll back the cancellation")
	assert.NotNil(t, canceled.CanceledAt)

	stored, err := f.store.Get(context.Background(), appointment.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.CanceledAt)
}

func TestBookSurvivesNotifierFailure(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("sink down")

	appointment, err := f.book(t, f.client.ID, f.provider.ID, "2025-01-10T14:00:00Z")
	require.NoError(t, err)
	assert.NotNil(t, appointment)
}

func TestListForClientComputesViewFields(t *testing.T) {
	f := newFixture(t)

	_, err := f.book(t, f.client.ID, f.provider.ID, "2025-01-10T14:00:00Z")
	require.NoError(t, err)

	appointments, err := f.svc.ListForClient(context.Background(), f.client.ID)
	require.NoError(t, err)
	require.Len(t, appointments, 1)
	assert.True(t, appointments[0].IsCancelable)
	assert.False(t, appointments[0].IsPast)
}
