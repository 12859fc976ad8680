package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// VehicleStatus is the availability of a vehicle.
type VehicleStatus string

const (
	VehicleAvailable VehicleStatus = "AVAILABLE"
	VehicleOnTrip    VehicleStatus = "ON_TRIP"
	VehicleInShop    VehicleStatus = "IN_SHOP"
	VehicleRetired   VehicleStatus = "RETIRED"
)

// Valid reports whether s is one of the known vehicle statuses.
func (s VehicleStatus) Valid() bool {
	switch s {
	case VehicleAvailable, VehicleOnTrip, VehicleInShop, VehicleRetired:
		return true
	}
	return false
}

func (s VehicleStatus) String() string { return string(s) }

// ParseVehicleStatus converts a raw string into a VehicleStatus.
func ParseVehicleStatus(raw string) (VehicleStatus, error) {
	s := VehicleStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown vehicle status %q", ErrValidation, raw)
	}
	return s, nil
}

// Vehicle is the subset of a fleet vehicle that trip allocation depends on.
type Vehicle struct {
	ID                      uuid.UUID
	LicensePlate            string
	Name                    string
	Status                  VehicleStatus
	MaxLoadCapacity         float64
	RequiredLicenseCategory string
	CreatedAt               time.Time
	UpdatedAt               time.Time
	DeletedAt               *time.Time
}

// VehicleStatusChange is one append-only entry of a vehicle's status audit trail.
// FromStatus is nil for the entry written when the vehicle was first registered.
type VehicleStatusChange struct {
	ID         int64
	VehicleID  uuid.UUID
	FromStatus *VehicleStatus
	ToStatus   VehicleStatus
	ChangedBy  string
	Reason     string
	ChangedAt  time.Time
}
