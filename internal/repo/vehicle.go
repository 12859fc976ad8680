package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/fleet-dispatch/internal/domain"
)

// VehicleRepo is the vehicle half of the availability store: lookups and
// status changes only. Registering and editing vehicles happens elsewhere.
type VehicleRepo interface {
	// GetByID retrieves a live vehicle. Returns domain.ErrNotFound if the
	// vehicle does not exist or has been soft-deleted.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Vehicle, error)

	// GetForUpdate is GetByID plus a row lock held until the enclosing
	// transaction ends, so a concurrent allocation of the same vehicle waits.
	GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Vehicle, error)

	// GetForUpdateAny locks the vehicle by id even when it has been
	// soft-deleted. Releasing a trip uses it: a vehicle removed mid-trip must
	// still come off the trip.
	GetForUpdateAny(ctx context.Context, id uuid.UUID) (domain.Vehicle, error)

	// UpdateStatus sets the vehicle status and returns the updated record.
	// It matches by id alone; callers establish liveness through GetForUpdate.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.VehicleStatus) (domain.Vehicle, error)
}

const vehicleColumns = `v.id, v.license_plate, v.name, v.status, v.max_load_capacity,
	v.required_license_category, v.created_at, v.updated_at, v.deleted_at`

type pgVehicleRepo struct {
	db db
}

// NewVehicleRepo constructs a VehicleRepo backed by the provided db connection.
func NewVehicleRepo(db db) VehicleRepo {
	return &pgVehicleRepo{db: db}
}

func (r *pgVehicleRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Vehicle, error) {
	const q = `SELECT ` + vehicleColumns + ` FROM vehicles v WHERE v.id = @id AND v.deleted_at IS NULL`

	result, err := scanVehicle(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.GetByID: %w", mapError(err))
	}
	return result, nil
}

func (r *pgVehicleRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Vehicle, error) {
	const q = `SELECT ` + vehicleColumns + ` FROM vehicles v WHERE v.id = @id AND v.deleted_at IS NULL FOR UPDATE`

	result, err := scanVehicle(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.GetForUpdate: %w", mapError(err))
	}
	return result, nil
}

func (r *pgVehicleRepo) GetForUpdateAny(ctx context.Context, id uuid.UUID) (domain.Vehicle, error) {
	const q = `SELECT ` + vehicleColumns + ` FROM vehicles v WHERE v.id = @id FOR UPDATE`

	result, err := scanVehicle(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.GetForUpdateAny: %w", mapError(err))
	}
	return result, nil
}

func (r *pgVehicleRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.VehicleStatus) (domain.Vehicle, error) {
	if !status.Valid() {
		return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.UpdateStatus: %w: unknown vehicle status %q", domain.ErrValidation, status)
	}

	const q = `
		UPDATE vehicles AS v
		SET status = @status, updated_at = now()
		WHERE v.id = @id
		RETURNING ` + vehicleColumns

	result, err := scanVehicle(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "status": string(status)}))
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.UpdateStatus: %w", mapError(err))
	}
	return result, nil
}

type vehicleRow struct {
	id                   pgtype.UUID
	plate, name          string
	status               string
	maxLoad              float64
	category             string
	createdAt, updatedAt time.Time
	deleted              pgtype.Timestamptz
}

func (r *vehicleRow) dest() []any {
	return []any{&r.id, &r.plate, &r.name, &r.status, &r.maxLoad, &r.category, &r.createdAt, &r.updatedAt, &r.deleted}
}

func (r *vehicleRow) vehicle() (domain.Vehicle, error) {
	status, err := domain.ParseVehicleStatus(r.status)
	if err != nil {
		return domain.Vehicle{}, err
	}
	return domain.Vehicle{
		ID:                      uuidFrom(r.id),
		LicensePlate:            r.plate,
		Name:                    r.name,
		Status:                  status,
		MaxLoadCapacity:         r.maxLoad,
		RequiredLicenseCategory: r.category,
		CreatedAt:               r.createdAt,
		UpdatedAt:               r.updatedAt,
		DeletedAt:               timePtr(r.deleted),
	}, nil
}

func scanVehicle(s scanner) (domain.Vehicle, error) {
	var row vehicleRow
	if err := s.Scan(row.dest()...); err != nil {
		return domain.Vehicle{}, err
	}
	return row.vehicle()
}
