package handler

import (
	"encoding/json"
	"net/http"
	"strings"
)

// errorResponse is the JSON envelope for every error the API returns.
type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondJSON writes v as the JSON response body with the given status.
func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("write response", "error", err)
	}
}

// respondNotFound writes a 404 with a caller-supplied message (e.g. "place
// not found") because the handler is the layer that knows what was being
// looked up.
func (s *Server) respondNotFound(w http.ResponseWriter, message string) {
	s.respondJSON(w, http.StatusNotFound, errorResponse{
		Error: errorDetail{Code: "not_found", Message: message},
	})
}

// respondValidation writes a 422 with the human-readable part of a wrapped
// domain.ErrValidation.
func (s *Server) respondValidation(w http.ResponseWriter, err error) {
	s.respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
		Error: errorDetail{Code: "validation_error", Message: unwrapMessage(err)},
	})
}

// respondBadRequest writes a 422 for a request rejected before reaching the
// service layer (missing or malformed body, bad query parameter).
func (s *Server) respondBadRequest(w http.ResponseWriter, message string) {
	s.respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
		Error: errorDetail{Code: "validation_error", Message: message},
	})
}

// respondInternal logs the error and writes an opaque 500. Internal details
// never leak into response bodies.
func (s *Server) respondInternal(w http.ResponseWriter, err error) {
	s.logger.Error("request failed", "error", err)
	s.respondJSON(w, http.StatusInternalServerError, errorResponse{
		Error: errorDetail{Code: "internal_error", Message: "internal server error"},
	})
}

// unwrapMessage extracts the human-readable part from a wrapped sentinel
// error, e.g. "service.PlaceService.Create: validation error: name is
// required" → "name is required".
func unwrapMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	const marker = "validation error: "
	if i := strings.LastIndex(msg, marker); i >= 0 {
		return msg[i+len(marker):]
	}
	return msg
}
