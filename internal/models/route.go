package models

import (
	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
)

// RouteStop is one leg of a collector route
type RouteStop struct {
	Sequence         int            `json:"sequence"`
	Report           ReportResponse `json:"report"`
	DistanceKm       float64        `json:"distance_km"`       // From the previous point
	EstimatedMinutes float64        `json:"estimated_minutes"` // Travel time from the previous point
}

// ExcludedReport is a report left out of a route, with the reason
type ExcludedReport struct {
	ReportID string `json:"report_id"`
	Reason   string `json:"reason"`
}

// Route is derived on every request and never persisted
type Route struct {
	CollectorID           string            `json:"collector_id"`
	Start                 *orb.Point        `json:"start,omitempty"` // [lng, lat]
	Stops                 []RouteStop       `json:"stops"`
	TotalDistanceKm       float64           `json:"total_distance_km"`
	TotalEstimatedMinutes float64           `json:"total_estimated_minutes"`
	Excluded              []ExcludedReport  `json:"excluded,omitempty"`
	Geometry              *geojson.Geometry `json:"geometry,omitempty"`
	GeneratedAt           int64             `json:"generated_at"`
}

// ReportIDs returns the stop report ids in visiting order
func (r *Route) ReportIDs() []string {
	ids := make([]string, len(r.Stops))
	for i, stop := range r.Stops {
		ids[i] = stop.Report.ID
	}
	return ids
}

// RouteStatistics summarises a collector's open workload
type RouteStatistics struct {
	CollectorID               string  `json:"collector_id"`
	TotalAssigned             int     `json:"total_assigned"` // assigned + in_progress
	Pending                   int     `json:"pending"`        // assigned, pickup not started
	InProgress                int     `json:"in_progress"`
	CompletedToday            int     `json:"completed_today"`
	EstimatedMinutesRemaining float64 `json:"estimated_minutes_remaining"`
}
