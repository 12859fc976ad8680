package domain

import (
	"fmt"
	"strings"
)

// TripAction is a lifecycle command applied to a trip.
type TripAction string

const (
	ActionDispatch TripAction = "DISPATCH"
	ActionStart    TripAction = "START"
	ActionComplete TripAction = "COMPLETE"
	ActionCancel   TripAction = "CANCEL"
)

// TripActions lists every known action.
var TripActions = []TripAction{ActionDispatch, ActionStart, ActionComplete, ActionCancel}

// TransitionError reports an illegal (status, action) pair.
// It matches ErrInvalidState under errors.Is.
type TransitionError struct {
	Current  TripStatus
	Action   TripAction
	Expected []TripStatus
}

func (e *TransitionError) Error() string {
	if len(e.Expected) == 0 {
		return fmt.Sprintf("unknown trip action %q", e.Action)
	}
	names := make([]string, len(e.Expected))
	for i, s := range e.Expected {
		names[i] = string(s)
	}
	return fmt.Sprintf("cannot %s trip in status %s: expected %s",
		strings.ToLower(string(e.Action)), e.Current, strings.Join(names, " or "))
}

func (e *TransitionError) Unwrap() error { return ErrInvalidState }

// Transition returns the status a trip moves to when action is applied in
// status current. It is pure: the result depends only on its arguments.
//
//	DRAFT -> DISPATCHED -> IN_PROGRESS -> COMPLETED
//	DRAFT | DISPATCHED -> CANCELLED
func Transition(current TripStatus, action TripAction) (TripStatus, error) {
	var (
		from []TripStatus
		to   TripStatus
	)
	switch action {
	case ActionDispatch:
		from, to = []TripStatus{TripDraft}, TripDispatched
	case ActionStart:
		from, to = []TripStatus{TripDispatched}, TripInProgress
	case ActionComplete:
		from, to = []TripStatus{TripInProgress}, TripCompleted
	case ActionCancel:
		from, to = []TripStatus{TripDraft, TripDispatched}, TripCancelled
	default:
		return "", &TransitionError{Current: current, Action: action}
	}

	for _, s := range from {
		if current == s {
			return to, nil
		}
	}
	return "", &TransitionError{Current: current, Action: action, Expected: from}
}
