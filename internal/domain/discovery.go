package domain

import "time"

// DwellSession is a batch-derived grouping of consecutive fixes inferred to
// represent one physical stay away from any saved place. Sessions are never
// persisted; they exist only while discovery runs.
type DwellSession struct {
	Points    []Point
	StartTime time.Time
	EndTime   time.Time
}

// Point is a bare coordinate pair.
type Point struct {
	Latitude  float64
	Longitude float64
}

// Centroid returns the arithmetic mean of the session's points.
// A session always has at least one point.
func (s DwellSession) Centroid() Point {
	var lat, lon float64
	for _, p := range s.Points {
		lat += p.Latitude
		lon += p.Longitude
	}
	n := float64(len(s.Points))
	return Point{Latitude: lat / n, Longitude: lon / n}
}

// Cluster is a spatial grouping of dwell sessions proposed as a candidate
// unsaved place. Like DwellSession it is transient.
type Cluster struct {
	Sessions  []DwellSession
	FirstSeen time.Time
	LastSeen  time.Time
}

// VisitCount is the number of member sessions, not the raw fix count.
func (c Cluster) VisitCount() int {
	return len(c.Sessions)
}

// Centroid returns the mean of the member session centroids.
func (c Cluster) Centroid() Point {
	var lat, lon float64
	for _, s := range c.Sessions {
		sc := s.Centroid()
		lat += sc.Latitude
		lon += sc.Longitude
	}
	n := float64(len(c.Sessions))
	return Point{Latitude: lat / n, Longitude: lon / n}
}

// PlaceSuggestion is the output of discovery: a ranked candidate place the
// user may want to save.
type PlaceSuggestion struct {
	Latitude          float64       `json:"latitude"`
	Longitude         float64       `json:"longitude"`
	VisitCount        int           `json:"visit_count"`
	SuggestedCategory PlaceCategory `json:"suggested_category"`
	FirstSeen         time.Time     `json:"first_seen"`
	LastSeen          time.Time     `json:"last_seen"`
}
