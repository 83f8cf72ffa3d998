package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zekeapp/placetrack/internal/domain"
	"github.com/zekeapp/placetrack/internal/service"
)

func TestDiscoverPlaces_200(t *testing.T) {
	seen := time.Date(2025, 6, 25, 9, 0, 0, 0, time.UTC)
	svc := &mockDiscoveryServicer{
		discover: func(_ context.Context, ownerID string, params service.DiscoveryParams) ([]domain.PlaceSuggestion, error) {
			assert.Equal(t, "owner-1", ownerID)
			assert.Equal(t, 2, params.MinVisits)
			assert.Equal(t, 14, params.DaysBack)
			return []domain.PlaceSuggestion{{
				Latitude:          40.0,
				Longitude:         -73.0,
				VisitCount:        5,
				SuggestedCategory: domain.CategoryWork,
				FirstSeen:         seen,
				LastSeen:          seen,
			}}, nil
		},
	}

	body := jsonBody(t, map[string]any{"owner_id": "owner-1", "min_visits": 2, "days_back": 14})
	req := httptest.NewRequest(http.MethodPost, "/places/discover", body)
	rec := httptest.NewRecorder()

	newHTTPHandler(serverConfig{discovery: svc}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Suggestions []domain.PlaceSuggestion `json:"suggestions"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Suggestions, 1)
	assert.Equal(t, 5, resp.Suggestions[0].VisitCount)
	assert.Equal(t, domain.CategoryWork, resp.Suggestions[0].SuggestedCategory)
}

func TestDiscoverPlaces_200_EmptyIsNotAnError(t *testing.T) {
	svc := &mockDiscoveryServicer{
		discover: func(_ context.Context, _ string, _ service.DiscoveryParams) ([]domain.PlaceSuggestion, error) {
			return nil, nil
		},
	}

	body := jsonBody(t, map[string]any{"owner_id": "owner-1"})
	req := httptest.NewRequest(http.MethodPost, "/places/discover", body)
	rec := httptest.NewRecorder()

	newHTTPHandler(serverConfig{discovery: svc}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"suggestions":[]`)
}

func TestDiscoverPlaces_422_MissingOwner(t *testing.T) {
	body := jsonBody(t, map[string]any{"min_visits": 3})
	req := httptest.NewRequest(http.MethodPost, "/places/discover", body)
	rec := httptest.NewRecorder()

	newHTTPHandler(serverConfig{discovery: &mockDiscoveryServicer{}}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestConfirmSuggestion_201(t *testing.T) {
	fixture := placeFixture()
	svc := &mockDiscoveryServicer{
		confirm: func(_ context.Context, ownerID, name string, lat, lon float64, category string) (domain.Place, error) {
			assert.Equal(t, "owner-1", ownerID)
			assert.Equal(t, "Corner Cafe", name)
			assert.Equal(t, "restaurant", category)
			return fixture, nil
		},
	}

	body := jsonBody(t, map[string]any{
		"owner_id":  "owner-1",
		"name":      "Corner Cafe",
		"latitude":  40.0,
		"longitude": -73.0,
		"category":  "restaurant",
	})
	req := httptest.NewRequest(http.MethodPost, "/places/discover/confirm", body)
	rec := httptest.NewRecorder()

	newHTTPHandler(serverConfig{discovery: svc}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestConfirmSuggestion_422_ValidationError(t *testing.T) {
	svc := &mockDiscoveryServicer{
		confirm: func(_ context.Context, _, _ string, _, _ float64, _ string) (domain.Place, error) {
			return domain.Place{}, fmt.Errorf("%w: name is required", domain.ErrValidation)
		},
	}

	body := jsonBody(t, map[string]any{"owner_id": "owner-1", "latitude": 40.0, "longitude": -73.0})
	req := httptest.NewRequest(http.MethodPost, "/places/discover/confirm", body)
	rec := httptest.NewRecorder()

	newHTTPHandler(serverConfig{discovery: svc}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "name is required")
}
