package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DriverStatus is the duty status of a driver.
type DriverStatus string

const (
	DriverOffDuty   DriverStatus = "OFF_DUTY"
	DriverOnDuty    DriverStatus = "ON_DUTY"
	DriverOnTrip    DriverStatus = "ON_TRIP"
	DriverSuspended DriverStatus = "SUSPENDED"
)

// Valid reports whether s is one of the known driver statuses.
func (s DriverStatus) Valid() bool {
	switch s {
	case DriverOffDuty, DriverOnDuty, DriverOnTrip, DriverSuspended:
		return true
	}
	return false
}

func (s DriverStatus) String() string { return string(s) }

// ParseDriverStatus converts a raw string into a DriverStatus.
func ParseDriverStatus(raw string) (DriverStatus, error) {
	s := DriverStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown driver status %q", ErrValidation, raw)
	}
	return s, nil
}

// Driver is the subset of a driver record that trip allocation depends on.
// LicenseExpiryDate is a calendar date stored at midnight UTC.
type Driver struct {
	ID                uuid.UUID
	Name              string
	Status            DriverStatus
	LicenseCategory   string
	LicenseExpiryDate time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         *time.Time
}

// LicenseValidOn reports whether the license is still valid on the given day.
// The license must expire strictly after the start of that day.
func (d Driver) LicenseValidOn(day time.Time) bool {
	return d.LicenseExpiryDate.After(StartOfDay(day))
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, dd := t.Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, t.Location())
}
