package service_test

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/fleet-dispatch/internal/domain"
	"github.com/pkordes/fleet-dispatch/internal/repo"
)

// memStore is an in-memory stand-in for Postgres that honours transactions.
// WithinTx holds mu for the whole unit of work, which gives the same
// serialization the row locks give in production, and restores a snapshot
// when fn fails or panics.
type memStore struct {
	mu       sync.Mutex
	vehicles map[uuid.UUID]domain.Vehicle
	drivers  map[uuid.UUID]domain.Driver
	trips    map[uuid.UUID]domain.Trip
	history  []domain.VehicleStatusChange
	fuel     []domain.FuelLog
	seq      int64
	clock    time.Time

	// failures injects an error when the named method is called inside a
	// transaction, e.g. "Drivers.UpdateStatus".
	failures map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		vehicles: map[uuid.UUID]domain.Vehicle{},
		drivers:  map[uuid.UUID]domain.Driver{},
		trips:    map[uuid.UUID]domain.Trip{},
		failures: map[string]error{},
		clock:    time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
	}
}

type memSnapshot struct {
	vehicles map[uuid.UUID]domain.Vehicle
	drivers  map[uuid.UUID]domain.Driver
	trips    map[uuid.UUID]domain.Trip
	history  []domain.VehicleStatusChange
	seq      int64
}

func (s *memStore) snapshot() memSnapshot {
	return memSnapshot{
		vehicles: maps.Clone(s.vehicles),
		drivers:  maps.Clone(s.drivers),
		trips:    maps.Clone(s.trips),
		history:  slices.Clone(s.history),
		seq:      s.seq,
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.vehicles = snap.vehicles
	s.drivers = snap.drivers
	s.trips = snap.trips
	s.history = snap.history
	s.seq = snap.seq
}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, uow repo.UnitOfWork) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	defer func() {
		if r := recover(); r != nil {
			s.restore(snap)
			panic(r)
		}
		if err != nil {
			s.restore(snap)
		}
	}()
	return fn(ctx, s.unitOfWork(false))
}

// reads returns a UnitOfWork whose calls each take the lock, like plain
// queries against the pool.
func (s *memStore) reads() repo.UnitOfWork { return s.unitOfWork(true) }

func (s *memStore) unitOfWork(lock bool) repo.UnitOfWork {
	v := &memView{s: s, lock: lock}
	return repo.UnitOfWork{
		Trips:    memTrips{v},
		Vehicles: memVehicles{v},
		Drivers:  memDrivers{v},
		History:  memHistory{v},
		FuelLogs: memFuel{v},
	}
}

// ---- seeding and inspection ------------------------------------------------

func (s *memStore) addVehicle(v domain.Vehicle) domain.Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	s.vehicles[v.ID] = v
	return v
}

func (s *memStore) addDriver(d domain.Driver) domain.Driver {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	s.drivers[d.ID] = d
	return d
}

func (s *memStore) vehicle(id uuid.UUID) domain.Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vehicles[id]
}

func (s *memStore) driver(id uuid.UUID) domain.Driver {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drivers[id]
}

func (s *memStore) trip(id uuid.UUID) (domain.Trip, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[id]
	return t, ok
}

func (s *memStore) tripCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trips)
}

func (s *memStore) historyFor(vehicleID uuid.UUID) []domain.VehicleStatusChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.VehicleStatusChange
	for _, c := range s.history {
		if c.VehicleID == vehicleID {
			out = append(out, c)
		}
	}
	return out
}

func (s *memStore) failOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = err
}

// ---- repo views ------------------------------------------------------------

type memView struct {
	s    *memStore
	lock bool
}

// enter takes the store lock for pool-style reads and checks for an
// injected failure on transactional calls. The returned func releases.
func (v *memView) enter(method string) (func(), error) {
	if v.lock {
		v.s.mu.Lock()
		return v.s.mu.Unlock, nil
	}
	if err, ok := v.s.failures[method]; ok {
		return func() {}, err
	}
	return func() {}, nil
}

func (v *memView) tick() time.Time {
	v.s.clock = v.s.clock.Add(time.Second)
	return v.s.clock
}

func (v *memView) detail(t domain.Trip) domain.TripDetail {
	logs := []domain.FuelLog{}
	for _, f := range v.s.fuel {
		if f.TripID != nil && *f.TripID == t.ID {
			logs = append(logs, f)
		}
	}
	return domain.TripDetail{Trip: t, Vehicle: v.s.vehicles[t.VehicleID], Driver: v.s.drivers[t.DriverID], FuelLogs: logs}
}

type memTrips struct{ v *memView }

func (m memTrips) Create(_ context.Context, trip domain.Trip) (domain.Trip, error) {
	done, err := m.v.enter("Trips.Create")
	defer done()
	if err != nil {
		return domain.Trip{}, err
	}
	trip.ID = uuid.New()
	trip.CreatedAt = m.v.tick()
	trip.UpdatedAt = trip.CreatedAt
	m.v.s.trips[trip.ID] = trip
	return trip, nil
}

func (m memTrips) get(id uuid.UUID) (domain.Trip, error) {
	t, ok := m.v.s.trips[id]
	if !ok || t.DeletedAt != nil {
		return domain.Trip{}, fmt.Errorf("memTrips: %w", domain.ErrNotFound)
	}
	return t, nil
}

func (m memTrips) GetByID(_ context.Context, id uuid.UUID) (domain.Trip, error) {
	done, err := m.v.enter("Trips.GetByID")
	defer done()
	if err != nil {
		return domain.Trip{}, err
	}
	return m.get(id)
}

func (m memTrips) GetForUpdate(_ context.Context, id uuid.UUID) (domain.Trip, error) {
	done, err := m.v.enter("Trips.GetForUpdate")
	defer done()
	if err != nil {
		return domain.Trip{}, err
	}
	return m.get(id)
}

func (m memTrips) GetDetail(_ context.Context, id uuid.UUID) (domain.TripDetail, error) {
	done, err := m.v.enter("Trips.GetDetail")
	defer done()
	if err != nil {
		return domain.TripDetail{}, err
	}
	t, err := m.get(id)
	if err != nil {
		return domain.TripDetail{}, err
	}
	return m.v.detail(t), nil
}

func (m memTrips) ListPaged(_ context.Context, f domain.TripFilter, page domain.PaginationParams) ([]domain.TripDetail, int64, error) {
	done, err := m.v.enter("Trips.ListPaged")
	defer done()
	if err != nil {
		return nil, 0, err
	}
	var matched []domain.Trip
	for _, t := range m.v.s.trips {
		switch {
		case t.DeletedAt != nil:
		case f.Status != nil && t.Status != *f.Status:
		case f.VehicleID != nil && t.VehicleID != *f.VehicleID:
		case f.DriverID != nil && t.DriverID != *f.DriverID:
		case f.From != nil && t.CreatedAt.Before(*f.From):
		case f.To != nil && t.CreatedAt.After(*f.To):
		default:
			matched = append(matched, t)
		}
	}
	slices.SortFunc(matched, func(a, b domain.Trip) int { return b.CreatedAt.Compare(a.CreatedAt) })

	total := int64(len(matched))
	lo := min(page.Offset(), len(matched))
	hi := min(lo+page.Limit, len(matched))
	out := make([]domain.TripDetail, 0, hi-lo)
	for _, t := range matched[lo:hi] {
		out = append(out, m.v.detail(t))
	}
	return out, total, nil
}

func (m memTrips) ListActive(_ context.Context) ([]domain.TripDetail, error) {
	done, err := m.v.enter("Trips.ListActive")
	defer done()
	if err != nil {
		return nil, err
	}
	out := []domain.TripDetail{}
	for _, t := range m.v.s.trips {
		if t.DeletedAt == nil && t.Status.IsActive() {
			out = append(out, m.v.detail(t))
		}
	}
	return out, nil
}

func (m memTrips) findActive(match func(domain.Trip) bool) (domain.Trip, error) {
	for _, t := range m.v.s.trips {
		if t.DeletedAt == nil && t.Status.IsActive() && match(t) {
			return t, nil
		}
	}
	return domain.Trip{}, fmt.Errorf("memTrips: %w", domain.ErrNotFound)
}

func (m memTrips) FindActiveByVehicle(_ context.Context, vehicleID uuid.UUID) (domain.Trip, error) {
	done, err := m.v.enter("Trips.FindActiveByVehicle")
	defer done()
	if err != nil {
		return domain.Trip{}, err
	}
	return m.findActive(func(t domain.Trip) bool { return t.VehicleID == vehicleID })
}

func (m memTrips) FindActiveByDriver(_ context.Context, driverID uuid.UUID) (domain.Trip, error) {
	done, err := m.v.enter("Trips.FindActiveByDriver")
	defer done()
	if err != nil {
		return domain.Trip{}, err
	}
	return m.findActive(func(t domain.Trip) bool { return t.DriverID == driverID })
}

func (m memTrips) UpdateStatus(_ context.Context, id uuid.UUID, u domain.TripStatusUpdate) (domain.Trip, error) {
	done, err := m.v.enter("Trips.UpdateStatus")
	defer done()
	if err != nil {
		return domain.Trip{}, err
	}
	t, err := m.get(id)
	if err != nil {
		return domain.Trip{}, err
	}
	t.Status = u.Status
	if u.StartTime != nil {
		t.StartTime = u.StartTime
	}
	if u.EndTime != nil {
		t.EndTime = u.EndTime
	}
	if u.CancelReason != nil {
		t.CancelReason = u.CancelReason
	}
	t.UpdatedAt = m.v.tick()
	m.v.s.trips[id] = t
	return t, nil
}

type memVehicles struct{ v *memView }

func (m memVehicles) get(id uuid.UUID) (domain.Vehicle, error) {
	veh, err := m.getAny(id)
	if err != nil || veh.DeletedAt != nil {
		return domain.Vehicle{}, fmt.Errorf("memVehicles: %w", domain.ErrNotFound)
	}
	return veh, nil
}

func (m memVehicles) getAny(id uuid.UUID) (domain.Vehicle, error) {
	veh, ok := m.v.s.vehicles[id]
	if !ok {
		return domain.Vehicle{}, fmt.Errorf("memVehicles: %w", domain.ErrNotFound)
	}
	return veh, nil
}

func (m memVehicles) GetByID(_ context.Context, id uuid.UUID) (domain.Vehicle, error) {
	done, err := m.v.enter("Vehicles.GetByID")
	defer done()
	if err != nil {
		return domain.Vehicle{}, err
	}
	return m.get(id)
}

func (m memVehicles) GetForUpdate(_ context.Context, id uuid.UUID) (domain.Vehicle, error) {
	done, err := m.v.enter("Vehicles.GetForUpdate")
	defer done()
	if err != nil {
		return domain.Vehicle{}, err
	}
	return m.get(id)
}

func (m memVehicles) GetForUpdateAny(_ context.Context, id uuid.UUID) (domain.Vehicle, error) {
	done, err := m.v.enter("Vehicles.GetForUpdateAny")
	defer done()
	if err != nil {
		return domain.Vehicle{}, err
	}
	return m.getAny(id)
}

func (m memVehicles) UpdateStatus(_ context.Context, id uuid.UUID, status domain.VehicleStatus) (domain.Vehicle, error) {
	done, err := m.v.enter("Vehicles.UpdateStatus")
	defer done()
	if err != nil {
		return domain.Vehicle{}, err
	}
	veh, err := m.getAny(id)
	if err != nil {
		return domain.Vehicle{}, err
	}
	veh.Status = status
	veh.UpdatedAt = m.v.tick()
	m.v.s.vehicles[id] = veh
	return veh, nil
}

type memDrivers struct{ v *memView }

func (m memDrivers) get(id uuid.UUID) (domain.Driver, error) {
	d, err := m.getAny(id)
	if err != nil || d.DeletedAt != nil {
		return domain.Driver{}, fmt.Errorf("memDrivers: %w", domain.ErrNotFound)
	}
	return d, nil
}

func (m memDrivers) getAny(id uuid.UUID) (domain.Driver, error) {
	d, ok := m.v.s.drivers[id]
	if !ok {
		return domain.Driver{}, fmt.Errorf("memDrivers: %w", domain.ErrNotFound)
	}
	return d, nil
}

func (m memDrivers) GetByID(_ context.Context, id uuid.UUID) (domain.Driver, error) {
	done, err := m.v.enter("Drivers.GetByID")
	defer done()
	if err != nil {
		return domain.Driver{}, err
	}
	return m.get(id)
}

func (m memDrivers) GetForUpdate(_ context.Context, id uuid.UUID) (domain.Driver, error) {
	done, err := m.v.enter("Drivers.GetForUpdate")
	defer done()
	if err != nil {
		return domain.Driver{}, err
	}
	return m.get(id)
}

func (m memDrivers) UpdateStatus(_ context.Context, id uuid.UUID, status domain.DriverStatus) (domain.Driver, error) {
	done, err := m.v.enter("Drivers.UpdateStatus")
	defer done()
	if err != nil {
		return domain.Driver{}, err
	}
	d, err := m.getAny(id)
	if err != nil {
		return domain.Driver{}, err
	}
	d.Status = status
	d.UpdatedAt = m.v.tick()
	m.v.s.drivers[id] = d
	return d, nil
}

type memHistory struct{ v *memView }

func (m memHistory) Append(_ context.Context, c domain.VehicleStatusChange) (domain.VehicleStatusChange, error) {
	done, err := m.v.enter("History.Append")
	defer done()
	if err != nil {
		return domain.VehicleStatusChange{}, err
	}
	m.v.s.seq++
	c.ID = m.v.s.seq
	c.ChangedAt = m.v.tick()
	m.v.s.history = append(m.v.s.history, c)
	return c, nil
}

func (m memHistory) ListByVehicle(_ context.Context, vehicleID uuid.UUID) ([]domain.VehicleStatusChange, error) {
	done, err := m.v.enter("History.ListByVehicle")
	defer done()
	if err != nil {
		return nil, err
	}
	out := []domain.VehicleStatusChange{}
	for i := len(m.v.s.history) - 1; i >= 0; i-- {
		if c := m.v.s.history[i]; c.VehicleID == vehicleID {
			out = append(out, c)
		}
	}
	return out, nil
}

type memFuel struct{ v *memView }

func (m memFuel) ListByTrip(_ context.Context, tripID uuid.UUID) ([]domain.FuelLog, error) {
	done, err := m.v.enter("FuelLogs.ListByTrip")
	defer done()
	if err != nil {
		return nil, err
	}
	out := []domain.FuelLog{}
	for _, f := range m.v.s.fuel {
		if f.TripID != nil && *f.TripID == tripID {
			out = append(out, f)
		}
	}
	return out, nil
}

// compile-time checks: the memory views must satisfy the repo interfaces.
var (
	_ repo.TxRunner          = (*memStore)(nil)
	_ repo.TripRepo          = memTrips{}
	_ repo.VehicleRepo       = memVehicles{}
	_ repo.DriverRepo        = memDrivers{}
	_ repo.StatusHistoryRepo = memHistory{}
	_ repo.FuelLogRepo       = memFuel{}
)
