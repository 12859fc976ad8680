package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/fleet-dispatch/internal/domain"
)

// TripRepo defines the persistence operations for Trips.
// The service layer depends on this interface, not the concrete Postgres implementation,
// which allows the service to be unit-tested against an in-memory store.
// Every lookup ignores soft-deleted trips.
type TripRepo interface {
	// Create inserts a new DRAFT trip and returns the persisted record.
	Create(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// GetByID retrieves a single trip by its UUID primary key.
	// Returns domain.ErrNotFound if no live trip with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error)

	// GetForUpdate is GetByID plus a row lock held until the enclosing
	// transaction ends. Only meaningful inside a UnitOfWork built on a pgx.Tx.
	GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Trip, error)

	// GetDetail returns the trip joined with its vehicle, driver and fuel logs.
	GetDetail(ctx context.Context, id uuid.UUID) (domain.TripDetail, error)

	// ListPaged returns one page of trips matching filter, newest first,
	// joined with vehicle and driver, plus the total number of matches.
	ListPaged(ctx context.Context, filter domain.TripFilter, page domain.PaginationParams) ([]domain.TripDetail, int64, error)

	// ListActive returns every DISPATCHED or IN_PROGRESS trip, newest first.
	ListActive(ctx context.Context) ([]domain.TripDetail, error)

	// FindActiveByVehicle returns the active trip referencing vehicleID.
	// Returns domain.ErrNotFound when the vehicle is free.
	FindActiveByVehicle(ctx context.Context, vehicleID uuid.UUID) (domain.Trip, error)

	// FindActiveByDriver returns the active trip referencing driverID.
	// Returns domain.ErrNotFound when the driver is free.
	FindActiveByDriver(ctx context.Context, driverID uuid.UUID) (domain.Trip, error)

	// UpdateStatus writes a lifecycle transition and returns the updated record.
	// Returns domain.ErrNotFound if no live trip with that ID exists.
	UpdateStatus(ctx context.Context, id uuid.UUID, update domain.TripStatusUpdate) (domain.Trip, error)
}

const tripColumns = `t.id, t.vehicle_id, t.driver_id, t.created_by, t.origin, t.destination,
	t.cargo_weight, t.status, t.start_time, t.end_time, t.cancel_reason,
	t.created_at, t.updated_at, t.deleted_at`

const tripDetailSelect = `
	SELECT ` + tripColumns + `, ` + vehicleColumns + `, ` + driverColumns + `
	FROM trips t
	JOIN vehicles v ON v.id = t.vehicle_id
	JOIN drivers d ON d.id = t.driver_id`

// pgTripRepo is the Postgres implementation of TripRepo.
type pgTripRepo struct {
	db db
}

// NewTripRepo constructs a TripRepo backed by the provided db connection.
// In production pass *pgxpool.Pool or a pgx.Tx from TxRunner; in tests pass a
// pgx.Tx for rollback isolation.
func NewTripRepo(db db) TripRepo {
	return &pgTripRepo{db: db}
}

// Create inserts a new trip row and returns the full persisted record.
func (r *pgTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	const q = `
		INSERT INTO trips AS t (vehicle_id, driver_id, created_by, origin, destination, cargo_weight, status)
		VALUES (@vehicle_id, @driver_id, @created_by, @origin, @destination, @cargo_weight, @status)
		RETURNING ` + tripColumns

	args := pgx.NamedArgs{
		"vehicle_id":   trip.VehicleID,
		"driver_id":    trip.DriverID,
		"created_by":   trip.CreatedBy,
		"origin":       trip.Origin,
		"destination":  trip.Destination,
		"cargo_weight": trip.CargoWeight,
		"status":       string(domain.TripDraft),
	}

	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w", mapError(err))
	}
	return result, nil
}

// GetByID retrieves a live trip by primary key.
func (r *pgTripRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	const q = `SELECT ` + tripColumns + ` FROM trips t WHERE t.id = @id AND t.deleted_at IS NULL`

	result, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", mapError(err))
	}
	return result, nil
}

// GetForUpdate retrieves a live trip and locks its row.
func (r *pgTripRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	const q = `SELECT ` + tripColumns + ` FROM trips t WHERE t.id = @id AND t.deleted_at IS NULL FOR UPDATE`

	result, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetForUpdate: %w", mapError(err))
	}
	return result, nil
}

// GetDetail retrieves a trip with its vehicle, driver, and fuel logs.
// The vehicle and driver are returned even if they were soft-deleted after
// the trip ended, since the trip still references them.
func (r *pgTripRepo) GetDetail(ctx context.Context, id uuid.UUID) (domain.TripDetail, error) {
	const q = tripDetailSelect + ` WHERE t.id = @id AND t.deleted_at IS NULL`

	detail, err := scanTripDetail(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.TripDetail{}, fmt.Errorf("repo.TripRepo.GetDetail: %w", mapError(err))
	}

	logs, err := NewFuelLogRepo(r.db).ListByTrip(ctx, id)
	if err != nil {
		return domain.TripDetail{}, fmt.Errorf("repo.TripRepo.GetDetail: %w", err)
	}
	detail.FuelLogs = logs
	return detail, nil
}

// ListPaged returns one page of matching trips and the total match count.
func (r *pgTripRepo) ListPaged(ctx context.Context, filter domain.TripFilter, page domain.PaginationParams) ([]domain.TripDetail, int64, error) {
	where, args := tripFilterClause(filter)

	var total int64
	countQ := `SELECT count(*) FROM trips t WHERE ` + where
	if err := r.db.QueryRow(ctx, countQ, args).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.ListPaged: count: %w", err)
	}

	args["limit"] = page.Limit
	args["offset"] = page.Offset()
	q := tripDetailSelect + ` WHERE ` + where + `
		ORDER BY t.created_at DESC, t.id
		LIMIT @limit OFFSET @offset`

	trips, err := r.queryDetails(ctx, q, args)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.ListPaged: %w", err)
	}
	return trips, total, nil
}

// ListActive returns all active trips, newest first.
func (r *pgTripRepo) ListActive(ctx context.Context) ([]domain.TripDetail, error) {
	const q = tripDetailSelect + `
		WHERE t.status = ANY(@statuses) AND t.deleted_at IS NULL
		ORDER BY t.created_at DESC`

	trips, err := r.queryDetails(ctx, q, pgx.NamedArgs{"statuses": statusStrings(domain.ActiveTripStatuses)})
	if err != nil {
		return nil, fmt.Errorf("repo.TripRepo.ListActive: %w", err)
	}
	return trips, nil
}

// FindActiveByVehicle returns the vehicle's active trip, if any.
func (r *pgTripRepo) FindActiveByVehicle(ctx context.Context, vehicleID uuid.UUID) (domain.Trip, error) {
	const q = `
		SELECT ` + tripColumns + ` FROM trips t
		WHERE t.vehicle_id = @vehicle_id AND t.status = ANY(@statuses) AND t.deleted_at IS NULL
		LIMIT 1`

	args := pgx.NamedArgs{"vehicle_id": vehicleID, "statuses": statusStrings(domain.ActiveTripStatuses)}
	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.FindActiveByVehicle: %w", mapError(err))
	}
	return result, nil
}

// FindActiveByDriver returns the driver's active trip, if any.
func (r *pgTripRepo) FindActiveByDriver(ctx context.Context, driverID uuid.UUID) (domain.Trip, error) {
	const q = `
		SELECT ` + tripColumns + ` FROM trips t
		WHERE t.driver_id = @driver_id AND t.status = ANY(@statuses) AND t.deleted_at IS NULL
		LIMIT 1`

	args := pgx.NamedArgs{"driver_id": driverID, "statuses": statusStrings(domain.ActiveTripStatuses)}
	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.FindActiveByDriver: %w", mapError(err))
	}
	return result, nil
}

// UpdateStatus writes the new status and any timestamps or reason carried
// by update. Nil fields keep their stored values.
func (r *pgTripRepo) UpdateStatus(ctx context.Context, id uuid.UUID, update domain.TripStatusUpdate) (domain.Trip, error) {
	if !update.Status.Valid() {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.UpdateStatus: %w: unknown trip status %q", domain.ErrValidation, update.Status)
	}

	const q = `
		UPDATE trips AS t
		SET status        = @status,
		    start_time    = COALESCE(@start_time, t.start_time),
		    end_time      = COALESCE(@end_time, t.end_time),
		    cancel_reason = COALESCE(@cancel_reason, t.cancel_reason),
		    updated_at    = now()
		WHERE t.id = @id AND t.deleted_at IS NULL
		RETURNING ` + tripColumns

	args := pgx.NamedArgs{
		"id":            id,
		"status":        string(update.Status),
		"start_time":    update.StartTime,
		"end_time":      update.EndTime,
		"cancel_reason": update.CancelReason,
	}

	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.UpdateStatus: %w", mapError(err))
	}
	return result, nil
}

func (r *pgTripRepo) queryDetails(ctx context.Context, q string, args pgx.NamedArgs) ([]domain.TripDetail, error) {
	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []domain.TripDetail
	for rows.Next() {
		d, err := scanTripDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		trips = append(trips, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return trips, nil
}

// tripFilterClause renders filter as a WHERE clause over alias t.
func tripFilterClause(f domain.TripFilter) (string, pgx.NamedArgs) {
	conds := []string{"t.deleted_at IS NULL"}
	args := pgx.NamedArgs{}
	if f.Status != nil {
		conds = append(conds, "t.status = @status")
		args["status"] = string(*f.Status)
	}
	if f.VehicleID != nil {
		conds = append(conds, "t.vehicle_id = @vehicle_id")
		args["vehicle_id"] = *f.VehicleID
	}
	if f.DriverID != nil {
		conds = append(conds, "t.driver_id = @driver_id")
		args["driver_id"] = *f.DriverID
	}
	if f.From != nil {
		conds = append(conds, "t.created_at >= @from")
		args["from"] = *f.From
	}
	if f.To != nil {
		conds = append(conds, "t.created_at <= @to")
		args["to"] = *f.To
	}
	return strings.Join(conds, " AND "), args
}

// tripRow holds the raw column values of a trip before conversion.
type tripRow struct {
	id, vehicleID, driverID     pgtype.UUID
	createdBy, origin           string
	destination                 string
	cargoWeight                 float64
	status                      string
	startTime, endTime, deleted pgtype.Timestamptz
	cancelReason                pgtype.Text
	createdAt, updatedAt        time.Time
}

func (r *tripRow) dest() []any {
	return []any{
		&r.id, &r.vehicleID, &r.driverID, &r.createdBy, &r.origin, &r.destination,
		&r.cargoWeight, &r.status, &r.startTime, &r.endTime, &r.cancelReason,
		&r.createdAt, &r.updatedAt, &r.deleted,
	}
}

func (r *tripRow) trip() (domain.Trip, error) {
	status, err := domain.ParseTripStatus(r.status)
	if err != nil {
		return domain.Trip{}, err
	}
	return domain.Trip{
		ID:           uuidFrom(r.id),
		VehicleID:    uuidFrom(r.vehicleID),
		DriverID:     uuidFrom(r.driverID),
		CreatedBy:    r.createdBy,
		Origin:       r.origin,
		Destination:  r.destination,
		CargoWeight:  r.cargoWeight,
		Status:       status,
		StartTime:    timePtr(r.startTime),
		EndTime:      timePtr(r.endTime),
		CancelReason: textPtr(r.cancelReason),
		CreatedAt:    r.createdAt,
		UpdatedAt:    r.updatedAt,
		DeletedAt:    timePtr(r.deleted),
	}, nil
}

// scanTrip maps a single database row into a domain.Trip.
func scanTrip(s scanner) (domain.Trip, error) {
	var row tripRow
	if err := s.Scan(row.dest()...); err != nil {
		return domain.Trip{}, err
	}
	return row.trip()
}

// scanTripDetail maps a trip row joined with vehicle and driver columns.
func scanTripDetail(s scanner) (domain.TripDetail, error) {
	var (
		tr tripRow
		vr vehicleRow
		dr driverRow
	)
	dest := append(append(tr.dest(), vr.dest()...), dr.dest()...)
	if err := s.Scan(dest...); err != nil {
		return domain.TripDetail{}, err
	}

	trip, err := tr.trip()
	if err != nil {
		return domain.TripDetail{}, err
	}
	vehicle, err := vr.vehicle()
	if err != nil {
		return domain.TripDetail{}, err
	}
	driver, err := dr.driver()
	if err != nil {
		return domain.TripDetail{}, err
	}
	return domain.TripDetail{Trip: trip, Vehicle: vehicle, Driver: driver, FuelLogs: []domain.FuelLog{}}, nil
}
