package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pkordes/fleet-dispatch/internal/domain"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// InsertVehicle writes v with raw SQL and returns it with its generated id.
// Zero fields get usable defaults: AVAILABLE, capacity 1000, category C and
// a unique license plate.
func InsertVehicle(t *testing.T, q Querier, v domain.Vehicle) domain.Vehicle {
	t.Helper()
	if v.LicensePlate == "" {
		v.LicensePlate = "T-" + uuid.NewString()[:8]
	}
	if v.Status == "" {
		v.Status = domain.VehicleAvailable
	}
	if v.MaxLoadCapacity == 0 {
		v.MaxLoadCapacity = 1000
	}
	if v.RequiredLicenseCategory == "" {
		v.RequiredLicenseCategory = "C"
	}

	const q1 = `
		INSERT INTO vehicles (license_plate, name, status, max_load_capacity, required_license_category)
		VALUES (@plate, @name, @status, @capacity, @category)
		RETURNING id, created_at, updated_at`
	err := q.QueryRow(context.Background(), q1, pgx.NamedArgs{
		"plate":    v.LicensePlate,
		"name":     v.Name,
		"status":   string(v.Status),
		"capacity": v.MaxLoadCapacity,
		"category": v.RequiredLicenseCategory,
	}).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		t.Fatalf("testutil.InsertVehicle: %v", err)
	}
	return v
}

// InsertDriver writes d with raw SQL and returns it with its generated id.
// Zero fields get usable defaults: ON_DUTY, category C and a license valid
// for another year.
func InsertDriver(t *testing.T, q Querier, d domain.Driver) domain.Driver {
	t.Helper()
	if d.Name == "" {
		d.Name = "Driver " + uuid.NewString()[:8]
	}
	if d.Status == "" {
		d.Status = domain.DriverOnDuty
	}
	if d.LicenseCategory == "" {
		d.LicenseCategory = "C"
	}
	if d.LicenseExpiryDate.IsZero() {
		d.LicenseExpiryDate = domain.StartOfDay(time.Now().UTC().AddDate(1, 0, 0))
	}

	const q1 = `
		INSERT INTO drivers (name, status, license_category, license_expiry_date)
		VALUES (@name, @status, @category, @expiry)
		RETURNING id, created_at, updated_at`
	err := q.QueryRow(context.Background(), q1, pgx.NamedArgs{
		"name":     d.Name,
		"status":   string(d.Status),
		"category": d.LicenseCategory,
		"expiry":   d.LicenseExpiryDate,
	}).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		t.Fatalf("testutil.InsertDriver: %v", err)
	}
	return d
}

// InsertFuelLog attaches a fuel log to tripID.
func InsertFuelLog(t *testing.T, q Querier, vehicleID, tripID uuid.UUID, liters, cost float64) uuid.UUID {
	t.Helper()
	const q1 = `
		INSERT INTO fuel_logs (vehicle_id, trip_id, liters, cost)
		VALUES (@vehicle_id, @trip_id, @liters, @cost)
		RETURNING id`
	var id uuid.UUID
	err := q.QueryRow(context.Background(), q1, pgx.NamedArgs{
		"vehicle_id": vehicleID,
		"trip_id":    tripID,
		"liters":     liters,
		"cost":       cost,
	}).Scan(&id)
	if err != nil {
		t.Fatalf("testutil.InsertFuelLog: %v", err)
	}
	return id
}
