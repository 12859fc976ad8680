package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// UnitOfWork bundles the repositories bound to a single database handle.
// Built from a pgx.Tx, every call made through it belongs to that transaction.
type UnitOfWork struct {
	Trips    TripRepo
	Vehicles VehicleRepo
	Drivers  DriverRepo
	History  StatusHistoryRepo
	FuelLogs FuelLogRepo
}

// NewUnitOfWork wires every repository onto db.
// Pass *pgxpool.Pool for plain reads, or a pgx.Tx for transactional work.
func NewUnitOfWork(db db) UnitOfWork {
	return UnitOfWork{
		Trips:    NewTripRepo(db),
		Vehicles: NewVehicleRepo(db),
		Drivers:  NewDriverRepo(db),
		History:  NewStatusHistoryRepo(db),
		FuelLogs: NewFuelLogRepo(db),
	}
}

// TxRunner opens a transaction, hands fn a UnitOfWork scoped to it, and
// commits when fn returns nil. Any error, or a panic, rolls the transaction
// back before WithinTx returns.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error
}

// beginner is satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Beginning on a pgx.Tx creates a savepoint, which lets integration tests
// run a TxRunner inside their own rolled-back transaction.
type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// pgTxRunner is the Postgres implementation of TxRunner.
type pgTxRunner struct {
	db beginner
}

// NewTxRunner constructs a TxRunner on db. Transactions use the server
// default isolation (READ COMMITTED); row locks taken with SELECT ... FOR
// UPDATE serialize competing writers.
func NewTxRunner(db beginner) TxRunner {
	return &pgTxRunner{db: db}
}

func (r *pgTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repo.TxRunner.WithinTx: begin: %w", err)
	}
	// Rollback after a successful commit is a no-op.
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(ctx, NewUnitOfWork(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repo.TxRunner.WithinTx: commit: %w", mapError(err))
	}
	return nil
}
