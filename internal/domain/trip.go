// Package domain contains the core data types for the fleet dispatch API.
// This package has zero external dependencies beyond uuid and is imported by
// every other internal package (repo, service, handler).
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TripStatus is the lifecycle state of a trip. The set is closed: every value
// read from storage goes through ParseTripStatus.
type TripStatus string

const (
	TripDraft      TripStatus = "DRAFT"
	TripDispatched TripStatus = "DISPATCHED"
	TripInProgress TripStatus = "IN_PROGRESS"
	TripCompleted  TripStatus = "COMPLETED"
	TripCancelled  TripStatus = "CANCELLED"
)

// TripStatuses lists every valid status in lifecycle order.
var TripStatuses = []TripStatus{TripDraft, TripDispatched, TripInProgress, TripCompleted, TripCancelled}

// ActiveTripStatuses are the statuses that hold a vehicle and driver on the road.
var ActiveTripStatuses = []TripStatus{TripDispatched, TripInProgress}

// Valid reports whether s is one of the known trip statuses.
func (s TripStatus) Valid() bool {
	switch s {
	case TripDraft, TripDispatched, TripInProgress, TripCompleted, TripCancelled:
		return true
	}
	return false
}

// IsActive reports whether s counts towards the one-active-trip invariant.
func (s TripStatus) IsActive() bool {
	return s == TripDispatched || s == TripInProgress
}

// IsTerminal reports whether no further transition is possible from s.
func (s TripStatus) IsTerminal() bool {
	return s == TripCompleted || s == TripCancelled
}

func (s TripStatus) String() string { return string(s) }

// ParseTripStatus converts a raw string into a TripStatus.
func ParseTripStatus(raw string) (TripStatus, error) {
	s := TripStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown trip status %q", ErrValidation, raw)
	}
	return s, nil
}

// Trip is a single haul of cargo by one vehicle and one driver.
// StartTime is nil until the trip starts; EndTime is nil until it completes.
// CancelReason is only set once the trip is cancelled.
type Trip struct {
	ID           uuid.UUID
	VehicleID    uuid.UUID
	DriverID     uuid.UUID
	CreatedBy    string
	Origin       string
	Destination  string
	CargoWeight  float64
	Status       TripStatus
	StartTime    *time.Time
	EndTime      *time.Time
	CancelReason *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// NewTrip carries the caller-supplied fields needed to allocate a new trip.
type NewTrip struct {
	VehicleID   uuid.UUID
	DriverID    uuid.UUID
	Origin      string
	Destination string
	CargoWeight float64
}

// TripStatusUpdate is the set of columns a lifecycle transition may write.
// Nil pointers leave the stored value untouched.
type TripStatusUpdate struct {
	Status       TripStatus
	StartTime    *time.Time
	EndTime      *time.Time
	CancelReason *string
}

// TripDetail is a trip joined with its vehicle, driver and fuel logs.
type TripDetail struct {
	Trip
	Vehicle  Vehicle
	Driver   Driver
	FuelLogs []FuelLog
}

// TripFilter narrows a trip listing. Zero values mean "no constraint".
// From and To bound created_at inclusively.
type TripFilter struct {
	Status    *TripStatus
	VehicleID *uuid.UUID
	DriverID  *uuid.UUID
	From      *time.Time
	To        *time.Time
}
