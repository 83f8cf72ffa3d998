package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/zekeapp/placetrack/internal/domain"
)

// ingestRequest is the POST /ingest body: a batch of raw fixes for one owner.
type ingestRequest struct {
	OwnerID string      `json:"owner_id"`
	Fixes   []ingestFix `json:"fixes"`
}

type ingestFix struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	RecordedAt time.Time `json:"recorded_at"`
	// SpeedMPS is optional; absent means the device did not report speed.
	SpeedMPS *float64 `json:"speed_mps"`
}

// postIngest handles POST /ingest. Storage failures are the only hard error;
// detection runs inside ProcessBatch on a best-effort basis and never turns a
// stored batch into a failure response.
func (s *Server) postIngest(w http.ResponseWriter, r *http.Request) {
	if !s.authorizeIngest(r) {
		s.respondJSON(w, http.StatusUnauthorized, errorResponse{
			Error: errorDetail{Code: "unauthorized", Message: "invalid or missing token"},
		})
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondBadRequest(w, "invalid request body")
		return
	}
	if req.OwnerID == "" {
		s.respondBadRequest(w, "owner_id is required")
		return
	}

	fixes := make([]domain.Fix, len(req.Fixes))
	for i, f := range req.Fixes {
		speed := -1.0
		if f.SpeedMPS != nil {
			speed = *f.SpeedMPS
		}
		recordedAt := f.RecordedAt
		if recordedAt.IsZero() {
			recordedAt = time.Now().UTC()
		}
		fixes[i] = domain.Fix{
			OwnerID:    req.OwnerID,
			Latitude:   f.Latitude,
			Longitude:  f.Longitude,
			RecordedAt: recordedAt,
			SpeedMPS:   speed,
		}
	}

	stored, err := s.ingest.ProcessBatch(r.Context(), req.OwnerID, fixes)
	if err != nil {
		s.respondInternal(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"result": "ok", "stored": stored})
}

// cleanupRequest is the POST /ingest/cleanup body.
type cleanupRequest struct {
	OwnerID    string `json:"owner_id"`
	DaysToKeep int    `json:"days_to_keep"`
}

// postIngestCleanup handles POST /ingest/cleanup: deletes the owner's raw
// fixes older than days_to_keep days (default 90).
func (s *Server) postIngestCleanup(w http.ResponseWriter, r *http.Request) {
	if !s.authorizeIngest(r) {
		s.respondJSON(w, http.StatusUnauthorized, errorResponse{
			Error: errorDetail{Code: "unauthorized", Message: "invalid or missing token"},
		})
		return
	}

	var req cleanupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondBadRequest(w, "invalid request body")
		return
	}
	if req.OwnerID == "" {
		s.respondBadRequest(w, "owner_id is required")
		return
	}
	if req.DaysToKeep <= 0 {
		req.DaysToKeep = 90
	}

	deleted, err := s.ingest.CleanupFixes(r.Context(), req.OwnerID, req.DaysToKeep)
	if err != nil {
		s.respondInternal(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

// authorizeIngest checks the Authorization header against the configured
// ingest token. An empty configured token disables the check.
func (s *Server) authorizeIngest(r *http.Request) bool {
	if s.ingestToken == "" {
		return true
	}
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	return ok && token == s.ingestToken
}
