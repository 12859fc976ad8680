package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/fleet-dispatch/internal/domain"
	"github.com/pkordes/fleet-dispatch/internal/middleware"
)

// CreateTrip handles POST /trips.
func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var body CreateTripRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if body.CargoWeight == nil {
		requestError(w, "cargo_weight is required")
		return
	}

	created, err := s.trips.Create(r.Context(), actorOf(r), domain.NewTrip{
		VehicleID:   body.VehicleID,
		DriverID:    body.DriverID,
		Origin:      body.Origin,
		Destination: body.Destination,
		CargoWeight: *body.CargoWeight,
	})
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, detailToResponse(created))
}

// ListTrips handles GET /trips.
// Supports ?status=, ?vehicle_id=, ?driver_id=, ?from= and ?to= (dates,
// inclusive) plus ?page= and ?limit= (defaults: page=1, limit=10, max=100).
func (s *Server) ListTrips(w http.ResponseWriter, r *http.Request) {
	var params struct {
		Status    *string
		VehicleID *openapi_types.UUID
		DriverID  *openapi_types.UUID
		From      *openapi_types.Date
		To        *openapi_types.Date
		Page      *int
		Limit     *int
	}
	q := r.URL.Query()
	for name, dest := range map[string]any{
		"status":     &params.Status,
		"vehicle_id": &params.VehicleID,
		"driver_id":  &params.DriverID,
		"from":       &params.From,
		"to":         &params.To,
		"page":       &params.Page,
		"limit":      &params.Limit,
	} {
		if err := runtime.BindQueryParameter("form", true, false, name, q, dest); err != nil {
			requestError(w, "invalid query parameter "+name)
			return
		}
	}

	var filter domain.TripFilter
	if params.Status != nil {
		status, err := domain.ParseTripStatus(*params.Status)
		if err != nil {
			requestError(w, err.Error())
			return
		}
		filter.Status = &status
	}
	filter.VehicleID = params.VehicleID
	filter.DriverID = params.DriverID
	if params.From != nil {
		from := domain.StartOfDay(params.From.Time)
		filter.From = &from
	}
	if params.To != nil {
		// The whole "to" day is included.
		to := domain.StartOfDay(params.To.Time).Add(24*time.Hour - time.Nanosecond)
		filter.To = &to
	}

	page := domain.NewPaginationParams(params.Page, params.Limit)
	if err := page.Validate(); err != nil {
		requestError(w, unwrapMessage(err, domain.ErrValidation))
		return
	}
	trips, total, err := s.trips.List(r.Context(), filter, page)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, TripList{
		Data: detailsToResponse(trips),
		Pagination: Pagination{
			Page:       page.Page,
			Limit:      page.Limit,
			Total:      int(total),
			TotalPages: page.TotalPages(total),
		},
	})
}

// ListActiveTrips handles GET /trips/active.
func (s *Server) ListActiveTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := s.trips.ListActive(r.Context())
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ActiveTrips{Data: detailsToResponse(trips)})
}

// GetTrip handles GET /trips/{id}.
func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	trip, err := s.trips.GetByID(r.Context(), id)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detailToResponse(trip))
}

// DispatchTrip handles PATCH /trips/{id}/dispatch.
func (s *Server) DispatchTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	trip, err := s.trips.Dispatch(r.Context(), actorOf(r), id)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(trip))
}

// StartTrip handles PATCH /trips/{id}/start.
func (s *Server) StartTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	trip, err := s.trips.Start(r.Context(), actorOf(r), id)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(trip))
}

// CompleteTrip handles PATCH /trips/{id}/complete.
func (s *Server) CompleteTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	trip, err := s.trips.Complete(r.Context(), actorOf(r), id)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detailToResponse(trip))
}

// CancelTrip handles PATCH /trips/{id}/cancel.
func (s *Server) CancelTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body CancelTripRequest
	if !decodeBody(w, r, &body) {
		return
	}
	trip, err := s.trips.Cancel(r.Context(), actorOf(r), id, body.Reason)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detailToResponse(trip))
}

// pathID binds the {id} URL parameter as a UUID.
// It writes a 422 and returns false when the value is malformed.
func pathID(w http.ResponseWriter, r *http.Request) (openapi_types.UUID, bool) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		requestError(w, "id must be a UUID")
		return openapi_types.UUID{}, false
	}
	return id, true
}

// actorOf returns the authenticated actor. Requests that somehow skipped
// the auth middleware are attributed to the system actor.
func actorOf(r *http.Request) domain.Actor {
	actor, _ := middleware.ActorFromContext(r.Context())
	return actor
}
