package handler

import (
	"net/http"
	"strconv"

	"github.com/zekeapp/placetrack/internal/domain"
)

// getRoutines handles GET /places/routines?owner_id=&days_back=.
func (s *Server) getRoutines(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.requireOwner(w, r)
	if !ok {
		return
	}
	daysBack, _ := strconv.Atoi(r.URL.Query().Get("days_back"))

	patterns, err := s.routines.Routines(r.Context(), ownerID, daysBack)
	if err != nil {
		s.respondInternal(w, err)
		return
	}
	if patterns == nil {
		patterns = []domain.RoutinePattern{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"routines": patterns})
}

// getRoutineDeviation handles GET /places/routines/deviation?owner_id=.
func (s *Server) getRoutineDeviation(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	deviation, err := s.routines.CheckDeviation(r.Context(), ownerID)
	if err != nil {
		s.respondInternal(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, deviation)
}
