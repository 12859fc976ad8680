// Package handler implements the HTTP handlers for the fleet dispatch API.
// All handlers are methods on Server. Methods are split into resource files
// (health.go, trip.go, vehicle.go) but share the same Server struct so they
// can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/fleet-dispatch/internal/domain"
	"github.com/pkordes/fleet-dispatch/internal/middleware"
)

// TripServicer defines the business operations the trip handlers depend on.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching the database or service layer.
type TripServicer interface {
	Create(ctx context.Context, actor domain.Actor, draft domain.NewTrip) (domain.TripDetail, error)
	Dispatch(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Trip, error)
	Start(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Trip, error)
	Complete(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.TripDetail, error)
	Cancel(ctx context.Context, actor domain.Actor, id uuid.UUID, reason string) (domain.TripDetail, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.TripDetail, error)
	List(ctx context.Context, filter domain.TripFilter, page domain.PaginationParams) ([]domain.TripDetail, int64, error)
	ListActive(ctx context.Context) ([]domain.TripDetail, error)
	VehicleStatusHistory(ctx context.Context, vehicleID uuid.UUID) ([]domain.VehicleStatusChange, error)
}

// Server serves every API endpoint.
type Server struct {
	trips   TripServicer
	log     *slog.Logger
	openAPI []byte
}

// NewServer constructs the Server with all its dependencies.
// openAPI is the document served at /openapi.yaml; nil disables the route.
func NewServer(trips TripServicer, log *slog.Logger, openAPI []byte) *Server {
	return &Server{trips: trips, log: log, openAPI: openAPI}
}

// Register mounts the API on r. Public routes are registered directly;
// everything else goes through auth, which must put a domain.Actor in the
// request context. Creating and dispatching trips additionally need the
// DISPATCHER or MANAGER role (ADMIN passes every role check).
func (s *Server) Register(r chi.Router, auth func(http.Handler) http.Handler) {
	r.Get("/healthz", s.GetHealth)
	if s.openAPI != nil {
		r.Get("/openapi.yaml", s.GetOpenAPI)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth)

		r.Route("/trips", func(r chi.Router) {
			r.With(middleware.RequireRole(domain.RoleDispatcher, domain.RoleManager)).Post("/", s.CreateTrip)
			r.Get("/", s.ListTrips)
			r.Get("/active", s.ListActiveTrips)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.GetTrip)
				r.With(middleware.RequireRole(domain.RoleDispatcher, domain.RoleManager)).Patch("/dispatch", s.DispatchTrip)
				r.Patch("/start", s.StartTrip)
				r.Patch("/complete", s.CompleteTrip)
				r.Patch("/cancel", s.CancelTrip)
			})
		})

		r.Get("/vehicles/{id}/status-history", s.GetVehicleStatusHistory)
	})
}
