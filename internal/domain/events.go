package domain

// PlaceEvent is emitted when an owner crosses a geofence edge. Downstream
// consumers (e.g. a reminder scheduler) subscribe to these; the core itself
// does nothing with them beyond emitting.
type PlaceEvent struct {
	Type    PlaceEventType
	OwnerID string
	Place   Place
}

// PlaceEventType distinguishes arrivals from departures.
type PlaceEventType string

const (
	PlaceEntered PlaceEventType = "place_entered"
	PlaceExited  PlaceEventType = "place_exited"
)
