package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/fleet-dispatch/internal/domain"
)

// legal is the complete table of allowed transitions. Every pair absent from
// it must be rejected.
var legal = map[domain.TripStatus]map[domain.TripAction]domain.TripStatus{
	domain.TripDraft: {
		domain.ActionDispatch: domain.TripDispatched,
		domain.ActionCancel:   domain.TripCancelled,
	},
	domain.TripDispatched: {
		domain.ActionStart:  domain.TripInProgress,
		domain.ActionCancel: domain.TripCancelled,
	},
	domain.TripInProgress: {
		domain.ActionComplete: domain.TripCompleted,
	},
}

func TestTransition_AllPairs(t *testing.T) {
	for _, status := range domain.TripStatuses {
		for _, action := range domain.TripActions {
			t.Run(string(status)+"/"+string(action), func(t *testing.T) {
				got, err := domain.Transition(status, action)

				want, ok := legal[status][action]
				if ok {
					require.NoError(t, err)
					assert.Equal(t, want, got)
					return
				}

				require.Error(t, err)
				assert.Empty(t, got)

				var te *domain.TransitionError
				require.ErrorAs(t, err, &te)
				assert.Equal(t, status, te.Current)
				assert.Equal(t, action, te.Action)
				assert.NotEmpty(t, te.Expected)
				assert.ErrorIs(t, err, domain.ErrInvalidState)
			})
		}
	}
}

func TestTransition_Deterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		got, err := domain.Transition(domain.TripDraft, domain.ActionDispatch)
		require.NoError(t, err)
		assert.Equal(t, domain.TripDispatched, got)
	}
}

func TestTransition_CancelInProgress(t *testing.T) {
	_, err := domain.Transition(domain.TripInProgress, domain.ActionCancel)

	var te *domain.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, []domain.TripStatus{domain.TripDraft, domain.TripDispatched}, te.Expected)
	assert.EqualError(t, err, "cannot cancel trip in status IN_PROGRESS: expected DRAFT or DISPATCHED")
}

func TestTransition_CompleteDraft(t *testing.T) {
	_, err := domain.Transition(domain.TripDraft, domain.ActionComplete)

	assert.EqualError(t, err, "cannot complete trip in status DRAFT: expected IN_PROGRESS")
}

func TestTransition_UnknownAction(t *testing.T) {
	_, err := domain.Transition(domain.TripDraft, domain.TripAction("TELEPORT"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
	assert.Contains(t, err.Error(), "TELEPORT")
}

func TestTripStatus_IsActive(t *testing.T) {
	for _, s := range domain.TripStatuses {
		want := s == domain.TripDispatched || s == domain.TripInProgress
		assert.Equal(t, want, s.IsActive(), string(s))
	}
}

func TestParseTripStatus(t *testing.T) {
	got, err := domain.ParseTripStatus("IN_PROGRESS")
	require.NoError(t, err)
	assert.Equal(t, domain.TripInProgress, got)

	_, err = domain.ParseTripStatus("in_progress")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
