package scheduling

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/slotwise/scheduler-api/pkg/errors"

	"github.com/slotwise/scheduler-api/internal/model"
)

// BookingRequest is the input to the conflict checker. Now is passed
// in rather than read from a clock so the decision stays pure.
type BookingRequest struct {
	ClientID      uuid.UUID
	ProviderID    uuid.UUID
	RequestedTime time.Time
	Now           time.Time
}

// Probes carries the two store existence queries the caller must have
// fetched before evaluation.
type Probes struct {
	// SlotTaken: an active appointment occupies
	// (ProviderID, HourStart(RequestedTime)).
	SlotTaken bool
	// ClientBookedSameDay: the client already has an active
	// appointment on the calendar day of RequestedTime.
	ClientBookedSameDay bool
}

// HourStart truncates t to the start of its hour; slot granularity is
// one hour.
func HourStart(t time.Time) time.Time {
	return t.Truncate(time.Hour)
}

// DayBounds returns the inclusive start and end of t's calendar day.
func DayBounds(t time.Time) (time.Time, time.Time) {
	year, month, day := t.Date()
	start := time.Date(year, month, day, 0, 0, 0, 0, t.Location())
	end := start.Add(24*time.Hour - time.Nanosecond)
	return start, end
}

// Evaluate decides whether a booking request is admissible. It returns
// nil to admit, or a conflict error with a typed reason. Checks run in
// a fixed order and the first failure wins.
func Evaluate(req BookingRequest, provider *model.User, probes Probes) error {
	if req.ClientID == req.ProviderID {
		return apperrors.Conflict(apperrors.ReasonSelfBooking, "cannot book an appointment with yourself")
	}
	if provider == nil || !provider.IsProvider {
		return apperrors.Conflict(apperrors.ReasonNotAProvider, "selected user is not a provider")
	}
	if !HourStart(req.RequestedTime).After(req.Now) {
		return apperrors.Conflict(apperrors.ReasonPastDate, "cannot book a slot in the past")
	}
	if probes.SlotTaken {
		return apperrors.Conflict(apperrors.ReasonSlotTaken, "slot is already booked")
	}
	if probes.ClientBookedSameDay {
		return apperrors.Conflict(apperrors.ReasonDuplicateSameDayBooking, "client already has a booking that day")
	}
	return nil
}
