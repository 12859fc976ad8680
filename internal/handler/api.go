package handler

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/fleet-dispatch/internal/domain"
)

// Wire types for the JSON API. Field names and shapes follow spec/openapi.yaml.

// ErrorDetail is the body of every non-2xx response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps ErrorDetail under an "error" key.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// CreateTripRequest is the body of POST /trips.
// CargoWeight is a pointer so a missing field can be told apart from zero.
type CreateTripRequest struct {
	VehicleID   openapi_types.UUID `json:"vehicle_id"`
	DriverID    openapi_types.UUID `json:"driver_id"`
	Origin      string             `json:"origin"`
	Destination string             `json:"destination"`
	CargoWeight *float64           `json:"cargo_weight"`
}

// CancelTripRequest is the body of PATCH /trips/{id}/cancel.
type CancelTripRequest struct {
	Reason string `json:"reason"`
}

// Trip is the JSON form of domain.Trip.
type Trip struct {
	ID           openapi_types.UUID `json:"id"`
	VehicleID    openapi_types.UUID `json:"vehicle_id"`
	DriverID     openapi_types.UUID `json:"driver_id"`
	CreatedBy    string             `json:"created_by,omitempty"`
	Origin       string             `json:"origin"`
	Destination  string             `json:"destination"`
	CargoWeight  float64            `json:"cargo_weight"`
	Status       string             `json:"status"`
	StartTime    *time.Time         `json:"start_time"`
	EndTime      *time.Time         `json:"end_time"`
	CancelReason *string            `json:"cancel_reason"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Vehicle is the vehicle summary embedded in trip responses.
type Vehicle struct {
	ID                      openapi_types.UUID `json:"id"`
	LicensePlate            string             `json:"license_plate"`
	Name                    string             `json:"name"`
	Status                  string             `json:"status"`
	MaxLoadCapacity         float64            `json:"max_load_capacity"`
	RequiredLicenseCategory string             `json:"required_license_category"`
}

// Driver is the driver summary embedded in trip responses.
type Driver struct {
	ID                openapi_types.UUID `json:"id"`
	Name              string             `json:"name"`
	Status            string             `json:"status"`
	LicenseCategory   string             `json:"license_category"`
	LicenseExpiryDate openapi_types.Date `json:"license_expiry_date"`
}

// FuelLog is one refuelling entry attached to a trip.
type FuelLog struct {
	ID       openapi_types.UUID `json:"id"`
	Liters   float64            `json:"liters"`
	Cost     float64            `json:"cost"`
	LoggedAt time.Time          `json:"logged_at"`
}

// TripDetail is a trip with its vehicle, driver and fuel logs.
type TripDetail struct {
	Trip
	Vehicle  Vehicle   `json:"vehicle"`
	Driver   Driver    `json:"driver"`
	FuelLogs []FuelLog `json:"fuel_logs"`
}

// Pagination describes the page returned by a list endpoint.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// TripList is returned by GET /trips.
type TripList struct {
	Data       []TripDetail `json:"data"`
	Pagination Pagination   `json:"pagination"`
}

// ActiveTrips is returned by GET /trips/active.
type ActiveTrips struct {
	Data []TripDetail `json:"data"`
}

// StatusChange is one vehicle status history entry.
type StatusChange struct {
	ID         int64     `json:"id"`
	FromStatus *string   `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ChangedBy  string    `json:"changed_by"`
	Reason     string    `json:"reason"`
	ChangedAt  time.Time `json:"changed_at"`
}

// StatusHistory is returned by GET /vehicles/{id}/status-history.
type StatusHistory struct {
	Data []StatusChange `json:"data"`
}

// --- mapping helpers --------------------------------------------------------

func tripToResponse(t domain.Trip) Trip {
	return Trip{
		ID:           t.ID,
		VehicleID:    t.VehicleID,
		DriverID:     t.DriverID,
		CreatedBy:    t.CreatedBy,
		Origin:       t.Origin,
		Destination:  t.Destination,
		CargoWeight:  t.CargoWeight,
		Status:       string(t.Status),
		StartTime:    t.StartTime,
		EndTime:      t.EndTime,
		CancelReason: t.CancelReason,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func detailToResponse(d domain.TripDetail) TripDetail {
	logs := make([]FuelLog, len(d.FuelLogs))
	for i, f := range d.FuelLogs {
		logs[i] = FuelLog{ID: f.ID, Liters: f.Liters, Cost: f.Cost, LoggedAt: f.LoggedAt}
	}
	return TripDetail{
		Trip: tripToResponse(d.Trip),
		Vehicle: Vehicle{
			ID:                      d.Vehicle.ID,
			LicensePlate:            d.Vehicle.LicensePlate,
			Name:                    d.Vehicle.Name,
			Status:                  string(d.Vehicle.Status),
			MaxLoadCapacity:         d.Vehicle.MaxLoadCapacity,
			RequiredLicenseCategory: d.Vehicle.RequiredLicenseCategory,
		},
		Driver: Driver{
			ID:                d.Driver.ID,
			Name:              d.Driver.Name,
			Status:            string(d.Driver.Status),
			LicenseCategory:   d.Driver.LicenseCategory,
			LicenseExpiryDate: openapi_types.Date{Time: d.Driver.LicenseExpiryDate},
		},
		FuelLogs: logs,
	}
}

func detailsToResponse(ds []domain.TripDetail) []TripDetail {
	out := make([]TripDetail, len(ds))
	for i, d := range ds {
		out[i] = detailToResponse(d)
	}
	return out
}

func statusChangeToResponse(c domain.VehicleStatusChange) StatusChange {
	resp := StatusChange{
		ID:        c.ID,
		ToStatus:  string(c.ToStatus),
		ChangedBy: c.ChangedBy,
		Reason:    c.Reason,
		ChangedAt: c.ChangedAt,
	}
	if c.FromStatus != nil {
		from := string(*c.FromStatus)
		resp.FromStatus = &from
	}
	return resp
}
