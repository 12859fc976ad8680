// Package repo contains all database access logic for the fleet dispatch API.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here, only SQL, row locking and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/fleet-dispatch/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Postgres error codes mapped onto domain errors.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// constraintMessages gives a readable reason for unique indexes that guard
// allocation invariants.
var constraintMessages = map[string]string{
	"trips_active_vehicle_key": "vehicle already has an active trip",
	"trips_active_driver_key":  "driver already has an active trip",
}

// mapError converts driver errors into domain errors: no rows becomes
// ErrNotFound, lock and uniqueness failures become ErrConflict.
// Anything else is returned unchanged.
func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		if msg, ok := constraintMessages[pgErr.ConstraintName]; ok {
			return fmt.Errorf("%w: %s", domain.ErrConflict, msg)
		}
		return fmt.Errorf("%w: duplicate %s", domain.ErrConflict, pgErr.ConstraintName)
	case codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%w: concurrent update, retry the request", domain.ErrConflict)
	}
	return err
}

func uuidFrom(u pgtype.UUID) uuid.UUID {
	return uuid.UUID(u.Bytes)
}

func uuidPtr(u pgtype.UUID) *uuid.UUID {
	if !u.Valid {
		return nil
	}
	id := uuid.UUID(u.Bytes)
	return &id
}

func timePtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func statusStrings(statuses []domain.TripStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
