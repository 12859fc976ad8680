package handler

import "net/http"

// GetVehicleStatusHistory handles GET /vehicles/{id}/status-history.
// Entries are returned newest first.
func (s *Server) GetVehicleStatusHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	changes, err := s.trips.VehicleStatusHistory(r.Context(), id)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	data := make([]StatusChange, len(changes))
	for i, c := range changes {
		data[i] = statusChangeToResponse(c)
	}
	writeJSON(w, http.StatusOK, StatusHistory{Data: data})
}
