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

// DriverRepo is the driver half of the availability store.
type DriverRepo interface {
	// GetByID retrieves a live driver. Returns domain.ErrNotFound if the
	// driver does not exist or has been soft-deleted.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Driver, error)

	// GetForUpdate is GetByID plus a row lock held until the enclosing
	// transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Driver, error)

	// UpdateStatus sets the driver status and returns the updated record.
	// It matches by id alone, so a driver soft-deleted mid-trip can still be
	// released; callers establish liveness through GetForUpdate.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.DriverStatus) (domain.Driver, error)
}

const driverColumns = `d.id, d.name, d.status, d.license_category, d.license_expiry_date,
	d.created_at, d.updated_at, d.deleted_at`

type pgDriverRepo struct {
	db db
}

// NewDriverRepo constructs a DriverRepo backed by the provided db connection.
func NewDriverRepo(db db) DriverRepo {
	return &pgDriverRepo{db: db}
}

func (r *pgDriverRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Driver, error) {
	const q = `SELECT ` + driverColumns + ` FROM drivers d WHERE d.id = @id AND d.deleted_at IS NULL`

	result, err := scanDriver(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Driver{}, fmt.Errorf("repo.DriverRepo.GetByID: %w", mapError(err))
	}
	return result, nil
}

func (r *pgDriverRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Driver, error) {
	const q = `SELECT ` + driverColumns + ` FROM drivers d WHERE d.id = @id AND d.deleted_at IS NULL FOR UPDATE`

	result, err := scanDriver(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Driver{}, fmt.Errorf("repo.DriverRepo.GetForUpdate: %w", mapError(err))
	}
	return result, nil
}

func (r *pgDriverRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.DriverStatus) (domain.Driver, error) {
	if !status.Valid() {
		return domain.Driver{}, fmt.Errorf("repo.DriverRepo.UpdateStatus: %w: unknown driver status %q", domain.ErrValidation, status)
	}

	const q = `
		UPDATE drivers AS d
		SET status = @status, updated_at = now()
		WHERE d.id = @id
		RETURNING ` + driverColumns

	result, err := scanDriver(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "status": string(status)}))
	if err != nil {
		return domain.Driver{}, fmt.Errorf("repo.DriverRepo.UpdateStatus: %w", mapError(err))
	}
	return result, nil
}

type driverRow struct {
	id                   pgtype.UUID
	name, status         string
	category             string
	expiry               pgtype.Date
	createdAt, updatedAt time.Time
	deleted              pgtype.Timestamptz
}

func (r *driverRow) dest() []any {
	return []any{&r.id, &r.name, &r.status, &r.category, &r.expiry, &r.createdAt, &r.updatedAt, &r.deleted}
}

func (r *driverRow) driver() (domain.Driver, error) {
	status, err := domain.ParseDriverStatus(r.status)
	if err != nil {
		return domain.Driver{}, err
	}
	return domain.Driver{
		ID:                uuidFrom(r.id),
		Name:              r.name,
		Status:            status,
		LicenseCategory:   r.category,
		LicenseExpiryDate: r.expiry.Time,
		CreatedAt:         r.createdAt,
		UpdatedAt:         r.updatedAt,
		DeletedAt:         timePtr(r.deleted),
	}, nil
}

func scanDriver(s scanner) (domain.Driver, error) {
	var row driverRow
	if err := s.Scan(row.dest()...); err != nil {
		return domain.Driver{}, err
	}
	return row.driver()
}
