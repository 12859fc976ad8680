// Package service contains the business logic for the fleet dispatch API.
// Services validate inputs, enforce business rules, and orchestrate repo calls
// inside transactions. No SQL lives here; services depend on repo interfaces,
// not implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/fleet-dispatch/internal/audit"
	"github.com/pkordes/fleet-dispatch/internal/domain"
	"github.com/pkordes/fleet-dispatch/internal/repo"
)

// AuditRecorder receives best-effort audit events after a transaction commits.
// It has no error result: delivery problems are the recorder's own concern.
type AuditRecorder interface {
	Record(ctx context.Context, action string, actor domain.Actor, metadata map[string]any)
}

// TripService implements the trip dispatch lifecycle: allocation on create,
// then dispatch, start, complete and cancel.
type TripService struct {
	tx    repo.TxRunner
	reads repo.UnitOfWork
	audit AuditRecorder
	log   *slog.Logger
	now   func() time.Time
}

// NewTripService constructs a TripService. Mutations run through tx; plain
// reads go through reads, which should be bound to the connection pool.
func NewTripService(tx repo.TxRunner, reads repo.UnitOfWork, rec AuditRecorder, log *slog.Logger) *TripService {
	return &TripService{tx: tx, reads: reads, audit: rec, log: log, now: time.Now}
}

// WithClock replaces the time source used for start/end stamps and the
// license expiry cutoff. Intended for tests.
func (s *TripService) WithClock(now func() time.Time) *TripService {
	s.now = now
	return s
}

// Create allocates the vehicle and driver in draft to a new DRAFT trip.
//
// The vehicle and driver rows are locked for the duration of the
// transaction, so concurrent allocations of either one run one after the
// other and the later one sees ON_TRIP. Rules are checked in a fixed order
// and the first violation aborts before anything is written.
func (s *TripService) Create(ctx context.Context, actor domain.Actor, draft domain.NewTrip) (domain.TripDetail, error) {
	if err := validateDraft(draft); err != nil {
		return domain.TripDetail{}, fmt.Errorf("service.TripService.Create: %w", err)
	}
	today := domain.StartOfDay(s.now().UTC())

	var detail domain.TripDetail
	err := s.tx.WithinTx(ctx, func(ctx context.Context, uow repo.UnitOfWork) error {
		vehicle, err := uow.Vehicles.GetForUpdate(ctx, draft.VehicleID)
		if err != nil {
			return notFound(err, "vehicle")
		}
		switch {
		case vehicle.Status == domain.VehicleRetired:
			return fmt.Errorf("%w: retired vehicles cannot be assigned to trips", domain.ErrInvalidState)
		case vehicle.Status != domain.VehicleAvailable:
			return fmt.Errorf("%w: vehicle is not available for dispatch (status %s)", domain.ErrInvalidState, vehicle.Status)
		}

		driver, err := uow.Drivers.GetForUpdate(ctx, draft.DriverID)
		if err != nil {
			return notFound(err, "driver")
		}
		if driver.Status != domain.DriverOnDuty {
			return fmt.Errorf("%w: driver must be %s to be assigned (status %s)", domain.ErrInvalidState, domain.DriverOnDuty, driver.Status)
		}
		if !driver.LicenseValidOn(today) {
			return fmt.Errorf("%w: driver license expired on %s", domain.ErrInvalidState, driver.LicenseExpiryDate.Format(time.DateOnly))
		}
		if driver.LicenseCategory != vehicle.RequiredLicenseCategory {
			return fmt.Errorf("%w: driver license category %s does not match vehicle required category %s",
				domain.ErrInvalidState, driver.LicenseCategory, vehicle.RequiredLicenseCategory)
		}
		if draft.CargoWeight > vehicle.MaxLoadCapacity {
			return fmt.Errorf("%w: cargo weight %s exceeds vehicle max capacity %s",
				domain.ErrInvalidState, formatWeight(draft.CargoWeight), formatWeight(vehicle.MaxLoadCapacity))
		}

		if err := noActiveTrip(uow.Trips.FindActiveByVehicle(ctx, vehicle.ID)); err != nil {
			return fmt.Errorf("vehicle: %w", err)
		}
		if err := noActiveTrip(uow.Trips.FindActiveByDriver(ctx, driver.ID)); err != nil {
			return fmt.Errorf("driver: %w", err)
		}

		trip, err := uow.Trips.Create(ctx, domain.Trip{
			VehicleID:   vehicle.ID,
			DriverID:    driver.ID,
			CreatedBy:   actor.UserID,
			Origin:      strings.TrimSpace(draft.Origin),
			Destination: strings.TrimSpace(draft.Destination),
			CargoWeight: draft.CargoWeight,
			Status:      domain.TripDraft,
		})
		if err != nil {
			return err
		}

		onTrip, err := s.moveVehicle(ctx, uow, vehicle, domain.VehicleOnTrip, actor.Name(), "Trip created: "+trip.ID.String())
		if err != nil {
			return err
		}
		busy, err := uow.Drivers.UpdateStatus(ctx, driver.ID, domain.DriverOnTrip)
		if err != nil {
			return err
		}

		detail = domain.TripDetail{Trip: trip, Vehicle: onTrip, Driver: busy, FuelLogs: []domain.FuelLog{}}
		return nil
	})
	if err != nil {
		return domain.TripDetail{}, fmt.Errorf("service.TripService.Create: %w", err)
	}

	s.record(ctx, audit.ActionTripCreated, actor, detail.Trip)
	return detail, nil
}

// Dispatch moves a DRAFT trip to DISPATCHED. The vehicle and driver were
// already allocated at create time and are not touched.
func (s *TripService) Dispatch(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Trip, error) {
	trip, err := s.advance(ctx, id, domain.ActionDispatch, domain.TripStatusUpdate{})
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Dispatch: %w", err)
	}
	s.record(ctx, audit.ActionTripDispatched, actor, trip)
	return trip, nil
}

// Start moves a DISPATCHED trip to IN_PROGRESS and stamps its start time.
func (s *TripService) Start(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Trip, error) {
	started := s.now().UTC()
	trip, err := s.advance(ctx, id, domain.ActionStart, domain.TripStatusUpdate{StartTime: &started})
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Start: %w", err)
	}
	s.record(ctx, audit.ActionTripStarted, actor, trip)
	return trip, nil
}

// Complete finishes an IN_PROGRESS trip: the trip gets its end time, the
// vehicle returns to AVAILABLE and the driver to ON_DUTY, all in one
// transaction. Any other starting status fails before a row is written.
func (s *TripService) Complete(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.TripDetail, error) {
	var detail domain.TripDetail
	err := s.tx.WithinTx(ctx, func(ctx context.Context, uow repo.UnitOfWork) error {
		trip, err := uow.Trips.GetForUpdate(ctx, id)
		if err != nil {
			return notFound(err, "trip")
		}
		next, err := domain.Transition(trip.Status, domain.ActionComplete)
		if err != nil {
			return err
		}

		ended := s.now().UTC()
		if _, err := uow.Trips.UpdateStatus(ctx, id, domain.TripStatusUpdate{Status: next, EndTime: &ended}); err != nil {
			return err
		}
		if err := s.release(ctx, uow, trip, domain.SystemActor, "Trip completed: "+id.String()); err != nil {
			return err
		}

		detail, err = uow.Trips.GetDetail(ctx, id)
		return err
	})
	if err != nil {
		return domain.TripDetail{}, fmt.Errorf("service.TripService.Complete: %w", err)
	}

	s.record(ctx, audit.ActionTripCompleted, actor, detail.Trip)
	return detail, nil
}

// Cancel cancels a DRAFT or DISPATCHED trip with a mandatory reason and
// returns its vehicle and driver to the available pool.
func (s *TripService) Cancel(ctx context.Context, actor domain.Actor, id uuid.UUID, reason string) (domain.TripDetail, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.TripDetail{}, fmt.Errorf("service.TripService.Cancel: %w: reason is required", domain.ErrValidation)
	}

	var detail domain.TripDetail
	err := s.tx.WithinTx(ctx, func(ctx context.Context, uow repo.UnitOfWork) error {
		trip, err := uow.Trips.GetForUpdate(ctx, id)
		if err != nil {
			return notFound(err, "trip")
		}
		next, err := domain.Transition(trip.Status, domain.ActionCancel)
		if err != nil {
			return err
		}

		if _, err := uow.Trips.UpdateStatus(ctx, id, domain.TripStatusUpdate{Status: next, CancelReason: &reason}); err != nil {
			return err
		}
		if holdsAllocation(trip.Status) {
			if err := s.release(ctx, uow, trip, actor.Name(), "Trip cancelled: "+id.String()); err != nil {
				return err
			}
		}

		detail, err = uow.Trips.GetDetail(ctx, id)
		return err
	})
	if err != nil {
		return domain.TripDetail{}, fmt.Errorf("service.TripService.Cancel: %w", err)
	}

	s.record(ctx, audit.ActionTripCancelled, actor, detail.Trip, "reason", reason)
	return detail, nil
}

// GetByID returns a trip with its vehicle, driver and fuel logs.
func (s *TripService) GetByID(ctx context.Context, id uuid.UUID) (domain.TripDetail, error) {
	detail, err := s.reads.Trips.GetDetail(ctx, id)
	if err != nil {
		return domain.TripDetail{}, fmt.Errorf("service.TripService.GetByID: %w", notFound(err, "trip"))
	}
	return detail, nil
}

// List returns one page of trips matching filter and the total match count.
// Always returns a non-nil slice so callers can safely range over it.
func (s *TripService) List(ctx context.Context, filter domain.TripFilter, page domain.PaginationParams) ([]domain.TripDetail, int64, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, 0, fmt.Errorf("service.TripService.List: %w: unknown trip status %q", domain.ErrValidation, *filter.Status)
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, 0, fmt.Errorf("service.TripService.List: %w: from must not be after to", domain.ErrValidation)
	}
	if err := page.Validate(); err != nil {
		return nil, 0, fmt.Errorf("service.TripService.List: %w", err)
	}

	trips, total, err := s.reads.Trips.ListPaged(ctx, filter, page)
	if err != nil {
		return nil, 0, fmt.Errorf("service.TripService.List: %w", err)
	}
	if trips == nil {
		trips = []domain.TripDetail{}
	}
	return trips, total, nil
}

// ListActive returns every DISPATCHED or IN_PROGRESS trip.
func (s *TripService) ListActive(ctx context.Context) ([]domain.TripDetail, error) {
	trips, err := s.reads.Trips.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.TripService.ListActive: %w", err)
	}
	if trips == nil {
		trips = []domain.TripDetail{}
	}
	return trips, nil
}

// VehicleStatusHistory returns a vehicle's status changes, newest first.
func (s *TripService) VehicleStatusHistory(ctx context.Context, vehicleID uuid.UUID) ([]domain.VehicleStatusChange, error) {
	if _, err := s.reads.Vehicles.GetByID(ctx, vehicleID); err != nil {
		return nil, fmt.Errorf("service.TripService.VehicleStatusHistory: %w", notFound(err, "vehicle"))
	}
	changes, err := s.reads.History.ListByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("service.TripService.VehicleStatusHistory: %w", err)
	}
	if changes == nil {
		changes = []domain.VehicleStatusChange{}
	}
	return changes, nil
}

// advance applies a single-row transition that does not touch the vehicle
// or driver. The trip row is locked so two concurrent calls cannot both
// pass the state machine.
func (s *TripService) advance(ctx context.Context, id uuid.UUID, action domain.TripAction, update domain.TripStatusUpdate) (domain.Trip, error) {
	var trip domain.Trip
	err := s.tx.WithinTx(ctx, func(ctx context.Context, uow repo.UnitOfWork) error {
		current, err := uow.Trips.GetForUpdate(ctx, id)
		if err != nil {
			return notFound(err, "trip")
		}
		update.Status, err = domain.Transition(current.Status, action)
		if err != nil {
			return err
		}
		trip, err = uow.Trips.UpdateStatus(ctx, id, update)
		return err
	})
	return trip, err
}

// release returns the trip's vehicle to AVAILABLE and its driver to ON_DUTY.
// Soft-deleted vehicles and drivers are released too, otherwise the trip
// could never finish.
func (s *TripService) release(ctx context.Context, uow repo.UnitOfWork, trip domain.Trip, changedBy, reason string) error {
	vehicle, err := uow.Vehicles.GetForUpdateAny(ctx, trip.VehicleID)
	if err != nil {
		return notFound(err, "vehicle")
	}
	if _, err := s.moveVehicle(ctx, uow, vehicle, domain.VehicleAvailable, changedBy, reason); err != nil {
		return err
	}
	if _, err := uow.Drivers.UpdateStatus(ctx, trip.DriverID, domain.DriverOnDuty); err != nil {
		return notFound(err, "driver")
	}
	return nil
}

// moveVehicle sets the vehicle status and appends the matching history entry.
func (s *TripService) moveVehicle(ctx context.Context, uow repo.UnitOfWork, v domain.Vehicle, to domain.VehicleStatus, changedBy, reason string) (domain.Vehicle, error) {
	updated, err := uow.Vehicles.UpdateStatus(ctx, v.ID, to)
	if err != nil {
		return domain.Vehicle{}, err
	}
	from := v.Status
	if _, err := uow.History.Append(ctx, domain.VehicleStatusChange{
		VehicleID:  v.ID,
		FromStatus: &from,
		ToStatus:   to,
		ChangedBy:  changedBy,
		Reason:     reason,
	}); err != nil {
		return domain.Vehicle{}, err
	}
	return updated, nil
}

// record hands an event to the audit recorder. A panicking recorder is
// logged and otherwise ignored.
func (s *TripService) record(ctx context.Context, action string, actor domain.Actor, trip domain.Trip, extra ...any) {
	defer func() {
		if r := recover(); r != nil {
			s.log.ErrorContext(ctx, "audit recorder panicked", "action", action, "trip_id", trip.ID, "panic", fmt.Sprint(r))
		}
	}()

	meta := map[string]any{
		"trip_id":    trip.ID.String(),
		"vehicle_id": trip.VehicleID.String(),
		"driver_id":  trip.DriverID.String(),
		"status":     string(trip.Status),
	}
	for i := 0; i+1 < len(extra); i += 2 {
		if k, ok := extra[i].(string); ok {
			meta[k] = extra[i+1]
		}
	}
	s.audit.Record(ctx, action, actor, meta)
}

// holdsAllocation reports whether a trip in status still reserves its
// vehicle and driver. IN_PROGRESS is listed although the state machine never
// lets an IN_PROGRESS trip be cancelled.
func holdsAllocation(status domain.TripStatus) bool {
	switch status {
	case domain.TripDraft, domain.TripDispatched, domain.TripInProgress:
		return true
	case domain.TripCompleted, domain.TripCancelled:
		return false
	}
	return false
}

// noActiveTrip turns the result of a FindActiveBy* lookup into nil when no
// active trip exists and ErrConflict when one does.
func noActiveTrip(existing domain.Trip, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: already has an active trip %s", domain.ErrConflict, existing.ID)
}

// notFound rewrites a bare repo ErrNotFound into one naming the entity.
// Other errors pass through unchanged.
func notFound(err error, entity string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: %s not found", domain.ErrNotFound, entity)
	}
	return err
}

// validateDraft rejects malformed create input before any row is read.
func validateDraft(d domain.NewTrip) error {
	switch {
	case d.VehicleID == uuid.Nil:
		return fmt.Errorf("%w: vehicle_id is required", domain.ErrValidation)
	case d.DriverID == uuid.Nil:
		return fmt.Errorf("%w: driver_id is required", domain.ErrValidation)
	case strings.TrimSpace(d.Origin) == "":
		return fmt.Errorf("%w: origin is required", domain.ErrValidation)
	case strings.TrimSpace(d.Destination) == "":
		return fmt.Errorf("%w: destination is required", domain.ErrValidation)
	case math.IsNaN(d.CargoWeight) || math.IsInf(d.CargoWeight, 0):
		return fmt.Errorf("%w: cargo_weight must be a finite number", domain.ErrValidation)
	case d.CargoWeight < 0:
		return fmt.Errorf("%w: cargo_weight must not be negative", domain.ErrValidation)
	}
	return nil
}

// formatWeight prints w in plain decimal form, never with an exponent.
func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}
