package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/zekeapp/placetrack/internal/domain"
	"github.com/zekeapp/placetrack/internal/service"
)

// discoverRequest is the POST /places/discover body. Zero values fall back
// to the pipeline defaults (3 visits, 30 days).
type discoverRequest struct {
	OwnerID   string `json:"owner_id"`
	MinVisits int    `json:"min_visits"`
	DaysBack  int    `json:"days_back"`
}

// confirmRequest is the POST /places/discover/confirm body: a suggestion the
// user accepted, plus the name they gave it.
type confirmRequest struct {
	OwnerID   string  `json:"owner_id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Category  string  `json:"category"`
}

// discoverPlaces handles POST /places/discover.
func (s *Server) discoverPlaces(w http.ResponseWriter, r *http.Request) {
	var req discoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondBadRequest(w, "invalid request body")
		return
	}
	if req.OwnerID == "" {
		s.respondBadRequest(w, "owner_id is required")
		return
	}

	suggestions, err := s.discovery.Discover(r.Context(), req.OwnerID, service.DiscoveryParams{
		MinVisits: req.MinVisits,
		DaysBack:  req.DaysBack,
	})
	if err != nil {
		s.respondInternal(w, err)
		return
	}
	if suggestions == nil {
		suggestions = []domain.PlaceSuggestion{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

// confirmSuggestion handles POST /places/discover/confirm.
func (s *Server) confirmSuggestion(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondBadRequest(w, "invalid request body")
		return
	}

	place, err := s.discovery.Confirm(r.Context(), req.OwnerID, req.Name, req.Latitude, req.Longitude, req.Category)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			s.respondValidation(w, err)
			return
		}
		s.respondInternal(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, place)
}
