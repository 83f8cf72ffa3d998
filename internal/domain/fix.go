package domain

import "time"

// Fix is a single raw GPS reading. Fixes are append-only: they are
// written once by the ingestion endpoint and never mutated.
type Fix struct {
	OwnerID    string    `json:"owner_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	RecordedAt time.Time `json:"recorded_at"`
	// SpeedMPS is the reported ground speed in meters per second.
	// Negative values mean "unknown" and are stored as reported.
	SpeedMPS float64 `json:"speed_mps"`
}
