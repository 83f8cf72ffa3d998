package domain

import "github.com/google/uuid"

// RoutinePattern is one (place, day-of-week, hour) cell of the visit
// frequency table. Derived on demand, never persisted.
type RoutinePattern struct {
	PlaceID   uuid.UUID `json:"place_id"`
	PlaceName string    `json:"place_name"`
	DayOfWeek int       `json:"day_of_week"`
	Day       string    `json:"day"`
	Hour      int       `json:"hour"`
	// Count is how many visits fell in this cell within the analysis window.
	Count int `json:"occurrence_count"`
	// Confidence is count divided by the number of weeks in the window,
	// clamped to [0, 1].
	Confidence float64 `json:"confidence"`
}

// RoutineDeviation reports that the user is somewhere other than where their
// history says they usually are right now.
type RoutineDeviation struct {
	IsDeviation  bool   `json:"is_deviation"`
	TypicalPlace string `json:"typical_place,omitempty"`
	CurrentPlace string `json:"current_place,omitempty"`
	ExpectedHour int    `json:"expected_hour,omitempty"`
	Day          string `json:"day,omitempty"`
}
