package scheduling

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/slotwise/scheduler-api/pkg/errors"

	"github.com/slotwise/scheduler-api/internal/model"
)

func TestHourStart(t *testing.T) {
	in := time.Date(2025, 1, 10, 14, 37, 52, 123, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 10, 14, 0, 0, 0, time.UTC), HourStart(in))

	aligned := time.Date(2025, 1, 10, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, aligned, HourStart(aligned))
}

func TestDayBounds(t *testing.T) {
	in := time.Date(2025, 1, 10, 14, 30, 0, 0, time.UTC)
	start, end := DayBounds(in)

	assert.Equal(t, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), start)
	assert.True(t, end.Before(time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC)))
	assert.True(t, end.After(time.Date(2025, 1, 10, 23, 59, 59, 0, time.UTC)))
}

func TestEvaluate(t *testing.T) {
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	clientID := uuid.New()
	providerID := uuid.New()
	provider := &model.User{ID: providerID, Name: "Dr. Reed", IsProvider: true}

	request := func(at time.Time) BookingRequest {
		return BookingRequest{
			ClientID:      clientID,
			ProviderID:    providerID,
			RequestedTime: at,
			Now:           now,
		}
	}
	future := now.Add(5 * time.Hour)

	tests := []struct {
		name     string
		req      BookingRequest
		provider *model.User
		probes   Probes
		reason   apperrors.Reason
	}{
		{
			name:     "admits a clean request",
			req:      request(future),
			provider: provider,
		},
		{
			name: "rejects booking with yourself",
			req: BookingRequest{
				ClientID:      clientID,
				ProviderID:    clientID,
				RequestedTime: future,
				Now:           now,
			},
			provider: provider,
			reason:   apperrors.ReasonSelfBooking,
		},
		{
			name:   "rejects unknown provider",
			req:    request(future),
			reason: apperrors.ReasonNotAProvider,
		},
		{
			name:     "rejects non-provider user",
			req:      request(future),
			provider: &model.User{ID: providerID, IsProvider: false},
			reason:   apperrors.ReasonNotAProvider,
		},
		{
			name:     "rejects slot in the past",
			req:      request(now.Add(-time.Hour)),
			provider: provider,
			reason:   apperrors.ReasonPastDate,
		},
		{
			name:     "rejects slot whose hour start equals now",
			req:      request(now.Add(30 * time.Minute)),
			provider: provider,
			reason:   apperrors.ReasonPastDate,
		},
		{
			name:     "admits the next hour",
			req:      request(now.Add(time.Hour)),
			provider: provider,
		},
		{
			name:     "rejects occupied slot",
			req:      request(future),
			provider: provider,
			probes:   Probes{SlotTaken: true},
			reason:   apperrors.ReasonSlotTaken,
		},
		{
			name:     "rejects second booking on the same day",
			req:      request(future),
			provider: provider,
			probes:   Probes{ClientBookedSameDay: true},
			reason:   apperrors.ReasonDuplicateSameDayBooking,
		},
		{
			name: "self booking wins over every other failure",
			req: BookingRequest{
				ClientID:      clientID,
				ProviderID:    clientID,
				RequestedTime: now.Add(-time.Hour),
				Now:           now,
			},
			probes: Probes{SlotTaken: true, ClientBookedSameDay: true},
			reason: apperrors.ReasonSelfBooking,
		},
		{
			name:     "past date wins over occupied slot",
			req:      request(now.Add(-time.Hour)),
			provider: provider,
			probes:   Probes{SlotTaken: true},
			reason:   apperrors.ReasonPastDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Evaluate(tt.req, tt.provider, tt.probes)
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Equal(t, apperrors.ErrConflict, apperrors.CodeOf(err))
			assert.Equal(t, tt.reason, apperrors.ReasonOf(err))
		})
	}
}
