package domain

import (
	"time"

	"github.com/google/uuid"
)

// FuelLog is a refuelling recorded against a vehicle, optionally during a trip.
// Fuel logs are managed elsewhere; the dispatch API only reads them.
type FuelLog struct {
	ID        uuid.UUID
	VehicleID uuid.UUID
	TripID    *uuid.UUID
	Liters    float64
	Cost      float64
	LoggedAt  time.Time
}
