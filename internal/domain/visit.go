package domain

import (
	"time"

	"github.com/google/uuid"
)

// Visit records one stay at a place. ExitedAt is nil while the visit is open;
// for a given owner at most one visit is open at any time.
//
// DayOfWeek and IsRoutine are computed once when the visit is created and
// never revised afterwards, even if later history would change the answer.
type Visit struct {
	ID      uuid.UUID `json:"id"`
	OwnerID string    `json:"owner_id"`
	PlaceID uuid.UUID `json:"place_id"`

	EnteredAt time.Time  `json:"entered_at"`
	ExitedAt  *time.Time `json:"exited_at,omitempty"`

	// DwellMinutes is nil until the visit closes, then
	// floor((exited_at - entered_at) in minutes).
	DwellMinutes *int `json:"dwell_minutes,omitempty"`

	// DayOfWeek uses the Monday=0 .. Sunday=6 convention.
	DayOfWeek int  `json:"day_of_week"`
	IsRoutine bool `json:"is_routine"`

	CreatedAt time.Time `json:"created_at"`
}

// Weekday converts a time.Time to the Monday=0 .. Sunday=6 day index used by
// Visit.DayOfWeek and the routine tables.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// DayName returns the English name for a Monday=0 .. Sunday=6 day index.
func DayName(dayOfWeek int) string {
	names := [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return ""
	}
	return names[dayOfWeek]
}
