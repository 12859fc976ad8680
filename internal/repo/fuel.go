package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/fleet-dispatch/internal/domain"
)

// FuelLogRepo reads fuel logs for trip detail views.
type FuelLogRepo interface {
	// ListByTrip returns the trip's fuel logs, oldest first. Never nil.
	ListByTrip(ctx context.Context, tripID uuid.UUID) ([]domain.FuelLog, error)
}

type pgFuelLogRepo struct {
	db db
}

// NewFuelLogRepo constructs a FuelLogRepo backed by the provided db connection.
func NewFuelLogRepo(db db) FuelLogRepo {
	return &pgFuelLogRepo{db: db}
}

func (r *pgFuelLogRepo) ListByTrip(ctx context.Context, tripID uuid.UUID) ([]domain.FuelLog, error) {
	const q = `
		SELECT id, vehicle_id, trip_id, liters, cost, logged_at
		FROM fuel_logs
		WHERE trip_id = @trip_id
		ORDER BY logged_at`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, fmt.Errorf("repo.FuelLogRepo.ListByTrip: %w", err)
	}
	defer rows.Close()

	logs := []domain.FuelLog{}
	for rows.Next() {
		var (
			l             domain.FuelLog
			id, vehicleID pgtype.UUID
			trip          pgtype.UUID
		)
		if err := rows.Scan(&id, &vehicleID, &trip, &l.Liters, &l.Cost, &l.LoggedAt); err != nil {
			return nil, fmt.Errorf("repo.FuelLogRepo.ListByTrip: scan: %w", err)
		}
		l.ID = uuidFrom(id)
		l.VehicleID = uuidFrom(vehicleID)
		l.TripID = uuidPtr(trip)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.FuelLogRepo.ListByTrip: rows: %w", err)
	}
	return logs, nil
}
