package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/zekeapp/placetrack/internal/domain"
)

// createPlaceRequest is the POST /places body.
type createPlaceRequest struct {
	OwnerID      string  `json:"owner_id"`
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
	Category     string  `json:"category"`
	Address      string  `json:"address"`
}

// updatePlaceRequest is the PATCH /places/{id} body. Absent fields are left
// unchanged.
type updatePlaceRequest struct {
	Name         *string  `json:"name"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	RadiusMeters *float64 `json:"radius_meters"`
	Category     *string  `json:"category"`
	Address      *string  `json:"address"`
	Confirmed    *bool    `json:"is_confirmed"`
}

// createPlace handles POST /places.
func (s *Server) createPlace(w http.ResponseWriter, r *http.Request) {
	var req createPlaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondBadRequest(w, "invalid request body")
		return
	}

	created, err := s.places.Create(r.Context(), domain.Place{
		OwnerID:      req.OwnerID,
		Name:         req.Name,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		RadiusMeters: req.RadiusMeters,
		Category:     domain.ParseCategory(req.Category),
		Address:      req.Address,
	})
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			s.respondValidation(w, err)
			return
		}
		s.respondInternal(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, created)
}

// listPlaces handles GET /places?owner_id=&category=.
func (s *Server) listPlaces(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	var category *domain.PlaceCategory
	if raw := r.URL.Query().Get("category"); raw != "" {
		c := domain.ParseCategory(raw)
		category = &c
	}

	places, err := s.places.List(r.Context(), ownerID, category)
	if err != nil {
		s.respondInternal(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, places)
}

// getPlace handles GET /places/{id}.
func (s *Server) getPlace(w http.ResponseWriter, r *http.Request) {
	id, err := placeID(r)
	if err != nil {
		s.respondBadRequest(w, "invalid place id")
		return
	}

	place, err := s.places.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respondNotFound(w, "place not found")
			return
		}
		s.respondInternal(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, place)
}

// updatePlace handles PATCH /places/{id}.
func (s *Server) updatePlace(w http.ResponseWriter, r *http.Request) {
	id, err := placeID(r)
	if err != nil {
		s.respondBadRequest(w, "invalid place id")
		return
	}

	var req updatePlaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondBadRequest(w, "invalid request body")
		return
	}

	patch := domain.PlacePatch{
		Name:         req.Name,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		RadiusMeters: req.RadiusMeters,
		Address:      req.Address,
		Confirmed:    req.Confirmed,
	}
	if req.Category != nil {
		c := domain.ParseCategory(*req.Category)
		patch.Category = &c
	}

	updated, err := s.places.Update(r.Context(), id, patch)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			s.respondNotFound(w, "place not found")
		case errors.Is(err, domain.ErrValidation):
			s.respondValidation(w, err)
		default:
			s.respondInternal(w, err)
		}
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

// deletePlace handles DELETE /places/{id}.
func (s *Server) deletePlace(w http.ResponseWriter, r *http.Request) {
	id, err := placeID(r)
	if err != nil {
		s.respondBadRequest(w, "invalid place id")
		return
	}

	if err := s.places.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respondNotFound(w, "place not found")
			return
		}
		s.respondInternal(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getCurrentPlace handles GET /places/current?owner_id=.
// "Not at any known place" is a normal 200 with a null place.
func (s *Server) getCurrentPlace(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	place, err := s.places.Current(r.Context(), ownerID)
	if err != nil {
		s.respondInternal(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"place": place})
}

// getNearbyPlaces handles GET /places/nearby?owner_id=&latitude=&longitude=&max_meters=.
func (s *Server) getNearbyPlaces(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.requireOwner(w, r)
	if !ok {
		return
	}
	lat, lon, ok := s.requireCoordinates(w, r)
	if !ok {
		return
	}
	maxMeters, _ := strconv.ParseFloat(r.URL.Query().Get("max_meters"), 64)

	places, err := s.places.Nearby(r.Context(), ownerID, lat, lon, maxMeters)
	if err != nil {
		s.respondInternal(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, places)
}

// getMostVisited handles GET /places/most-visited?owner_id=&limit=.
func (s *Server) getMostVisited(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.requireOwner(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 10
	}

	places, err := s.places.MostVisited(r.Context(), ownerID, limit)
	if err != nil {
		s.respondInternal(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, places)
}

// getPlaceContext handles GET /places/context?owner_id=&latitude=&longitude=.
// Coordinates are optional; without them the owner's most recent fix is used.
func (s *Server) getPlaceContext(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	var lat, lon *float64
	q := r.URL.Query()
	if q.Get("latitude") != "" && q.Get("longitude") != "" {
		la, err1 := strconv.ParseFloat(q.Get("latitude"), 64)
		lo, err2 := strconv.ParseFloat(q.Get("longitude"), 64)
		if err1 != nil || err2 != nil {
			s.respondBadRequest(w, "invalid coordinates")
			return
		}
		lat, lon = &la, &lo
	}

	pc, err := s.places.Context(r.Context(), ownerID, lat, lon)
	if err != nil {
		s.respondInternal(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, pc)
}

// getPlaceStats handles GET /places/{id}/stats.
func (s *Server) getPlaceStats(w http.ResponseWriter, r *http.Request) {
	id, err := placeID(r)
	if err != nil {
		s.respondBadRequest(w, "invalid place id")
		return
	}

	stats, err := s.places.Stats(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respondNotFound(w, "place not found")
			return
		}
		s.respondInternal(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

// getPlaceVisits handles GET /places/{id}/visits?limit=.
func (s *Server) getPlaceVisits(w http.ResponseWriter, r *http.Request) {
	id, err := placeID(r)
	if err != nil {
		s.respondBadRequest(w, "invalid place id")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	visits, err := s.places.VisitsForPlace(r.Context(), id, limit)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respondNotFound(w, "place not found")
			return
		}
		s.respondInternal(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, visits)
}

// requireOwner extracts the owner_id query parameter, writing a 422 and
// returning ok=false when it is missing.
func (s *Server) requireOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		s.respondBadRequest(w, "owner_id is required")
		return "", false
	}
	return ownerID, true
}

// requireCoordinates extracts and parses latitude/longitude query parameters.
func (s *Server) requireCoordinates(w http.ResponseWriter, r *http.Request) (lat, lon float64, ok bool) {
	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(q.Get("latitude"), 64)
	lon, err2 := strconv.ParseFloat(q.Get("longitude"), 64)
	if err1 != nil || err2 != nil {
		s.respondBadRequest(w, "latitude and longitude are required")
		return 0, 0, false
	}
	return lat, lon, true
}
