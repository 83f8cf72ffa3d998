// Package domain contains the core data types for the Placetrack backend.
// This package has zero external dependencies beyond uuid and is imported by
// every other internal package (geo, repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// PlaceCategory classifies a place by its real-world role.
type PlaceCategory string

// All recognized place categories. ParseCategory maps anything else to
// CategoryOther.
const (
	CategoryHome       PlaceCategory = "home"
	CategoryWork       PlaceCategory = "work"
	CategorySchool     PlaceCategory = "school"
	CategoryGym        PlaceCategory = "gym"
	CategoryRestaurant PlaceCategory = "restaurant"
	CategoryShopping   PlaceCategory = "shopping"
	CategoryMedical    PlaceCategory = "medical"
	CategoryFamily     PlaceCategory = "family"
	CategoryFriend     PlaceCategory = "friend"
	CategoryOther      PlaceCategory = "other"
)

// ParseCategory maps a raw category string to a PlaceCategory.
// Unknown or malformed strings fall back to CategoryOther rather than
// failing — manual place confirmation must never reject on category.
func ParseCategory(s string) PlaceCategory {
	switch PlaceCategory(s) {
	case CategoryHome, CategoryWork, CategorySchool, CategoryGym,
		CategoryRestaurant, CategoryShopping, CategoryMedical,
		CategoryFamily, CategoryFriend, CategoryOther:
		return PlaceCategory(s)
	}
	return CategoryOther
}

// Place is a saved circular geofence (centroid + radius) with cumulative
// visit statistics. VisitCount and TotalDwellMinutes only grow, except when
// the place itself is deleted.
type Place struct {
	ID           uuid.UUID     `json:"id"`
	OwnerID      string        `json:"owner_id"`
	Name         string        `json:"name"`
	Latitude     float64       `json:"latitude"`
	Longitude    float64       `json:"longitude"`
	RadiusMeters float64       `json:"radius_meters"` // always > 0; defaults to 100
	Category     PlaceCategory `json:"category"`
	Address      string        `json:"address,omitempty"`

	AutoDetected bool `json:"is_auto_detected"`
	Confirmed    bool `json:"is_confirmed"`

	VisitCount        int `json:"visit_count"`
	TotalDwellMinutes int `json:"total_dwell_time_minutes"`

	FirstVisited *time.Time `json:"first_visited,omitempty"`
	LastVisited  *time.Time `json:"last_visited,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlacePatch carries the optional fields of a place update.
// Nil pointers mean "leave unchanged". Repos apply the patch atomically and
// return the updated snapshot; callers never mutate a loaded Place in-place.
type PlacePatch struct {
	Name         *string
	Latitude     *float64
	Longitude    *float64
	RadiusMeters *float64
	Category     *PlaceCategory
	Address      *string
	Confirmed    *bool
}

// PlaceStats is an aggregate view over a place's visit history.
type PlaceStats struct {
	PlaceID           uuid.UUID     `json:"place_id"`
	Name              string        `json:"name"`
	Category          PlaceCategory `json:"category"`
	VisitCount        int           `json:"visit_count"`
	TotalDwellMinutes int           `json:"total_dwell_time_minutes"`
	AverageDwell      float64       `json:"average_dwell_minutes"`
	FirstVisited      *time.Time    `json:"first_visited,omitempty"`
	LastVisited       *time.Time    `json:"last_visited,omitempty"`
	CommonDays        []DayCount    `json:"common_days"`
	CommonHours       []HourCount   `json:"common_hours"`
	RoutinePercent    float64       `json:"routine_visit_percentage"`
}

// DayCount pairs a day name with how many visits began on that day.
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// HourCount pairs an "HH:00" label with how many visits began in that hour.
type HourCount struct {
	Hour  string `json:"hour"`
	Count int    `json:"count"`
}

// PlaceContext is the aggregate "where is the user right now" view.
type PlaceContext struct {
	CurrentPlace        *Place  `json:"current_place,omitempty"`
	IsAtKnownPlace      bool    `json:"is_at_known_place"`
	MinutesAtPlace      *int    `json:"time_at_current_place_minutes,omitempty"`
	NearbyPlaces        []Place `json:"nearby_places"`
	TypicalPlaceForTime string  `json:"typical_place_for_time,omitempty"`
}
