package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/fleet-dispatch/internal/domain"
)

// StatusHistoryRepo is the append-only vehicle status log.
// There is deliberately no update or delete.
type StatusHistoryRepo interface {
	// Append records one status change and returns it with id and changed_at set.
	Append(ctx context.Context, change domain.VehicleStatusChange) (domain.VehicleStatusChange, error)

	// ListByVehicle returns every change for a vehicle, newest first.
	ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]domain.VehicleStatusChange, error)
}

type pgStatusHistoryRepo struct {
	db db
}

// NewStatusHistoryRepo constructs a StatusHistoryRepo backed by the provided db connection.
func NewStatusHistoryRepo(db db) StatusHistoryRepo {
	return &pgStatusHistoryRepo{db: db}
}

func (r *pgStatusHistoryRepo) Append(ctx context.Context, c domain.VehicleStatusChange) (domain.VehicleStatusChange, error) {
	const q = `
		INSERT INTO vehicle_status_history (vehicle_id, from_status, to_status, changed_by, reason)
		VALUES (@vehicle_id, @from_status, @to_status, @changed_by, @reason)
		RETURNING id, vehicle_id, from_status, to_status, changed_by, reason, changed_at`

	var from *string
	if c.FromStatus != nil {
		s := string(*c.FromStatus)
		from = &s
	}
	args := pgx.NamedArgs{
		"vehicle_id":  c.VehicleID,
		"from_status": from,
		"to_status":   string(c.ToStatus),
		"changed_by":  c.ChangedBy,
		"reason":      c.Reason,
	}

	result, err := scanStatusChange(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.VehicleStatusChange{}, fmt.Errorf("repo.StatusHistoryRepo.Append: %w", mapError(err))
	}
	return result, nil
}

func (r *pgStatusHistoryRepo) ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]domain.VehicleStatusChange, error) {
	const q = `
		SELECT id, vehicle_id, from_status, to_status, changed_by, reason, changed_at
		FROM vehicle_status_history
		WHERE vehicle_id = @vehicle_id
		ORDER BY changed_at DESC, id DESC`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"vehicle_id": vehicleID})
	if err != nil {
		return nil, fmt.Errorf("repo.StatusHistoryRepo.ListByVehicle: %w", err)
	}
	defer rows.Close()

	changes := []domain.VehicleStatusChange{}
	for rows.Next() {
		c, err := scanStatusChange(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.StatusHistoryRepo.ListByVehicle: scan: %w", err)
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.StatusHistoryRepo.ListByVehicle: rows: %w", err)
	}
	return changes, nil
}

func scanStatusChange(s scanner) (domain.VehicleStatusChange, error) {
	var (
		c         domain.VehicleStatusChange
		vehicleID pgtype.UUID
		from      pgtype.Text
		to        string
	)
	if err := s.Scan(&c.ID, &vehicleID, &from, &to, &c.ChangedBy, &c.Reason, &c.ChangedAt); err != nil {
		return domain.VehicleStatusChange{}, err
	}

	c.VehicleID = uuidFrom(vehicleID)
	toStatus, err := domain.ParseVehicleStatus(to)
	if err != nil {
		return domain.VehicleStatusChange{}, err
	}
	c.ToStatus = toStatus
	if from.Valid {
		fromStatus, err := domain.ParseVehicleStatus(from.String)
		if err != nil {
			return domain.VehicleStatusChange{}, err
		}
		c.FromStatus = &fromStatus
	}
	return c, nil
}
