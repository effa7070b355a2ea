package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"

	"wasteroute-backend/internal/models"
)

const (
	DefaultAverageSpeedKmh = 30.0
	DefaultHandlingMinutes = 15.0
)

// DistanceFunc measures the distance between two (lng, lat) points. Route
// totals and leg times are expressed in whatever unit it returns.
type DistanceFunc func(a, b orb.Point) float64

// HaversineKm is the great-circle distance in kilometers
func HaversineKm(a, b orb.Point) float64 {
	return geo.DistanceHaversine(a, b) / 1000
}

// PlanarDistance is the straight-line distance in coordinate units
func PlanarDistance(a, b orb.Point) float64 {
	return planar.Distance(a, b)
}

// RouteSource is the read side the optimizer needs
type RouteSource interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	FindReportsByCollectorAndStatus(ctx context.Context, collectorID string, statuses []models.ReportStatus) ([]models.Report, error)
	CollectorCounts(ctx context.Context, collectorID string, since int64) (models.CollectorCounts, error)
}

// RouteOptimizer builds greedy nearest-neighbor routes over a collector's open reports
type RouteOptimizer struct {
	source          RouteSource
	distance        DistanceFunc
	speedKmh        float64
	handlingMinutes float64
	location        *time.Location
	now             func() time.Time
}

type RouteOption func(*RouteOptimizer)

func WithDistanceFunc(fn DistanceFunc) RouteOption {
	return func(ro *RouteOptimizer) { ro.distance = fn }
}

func WithAverageSpeed(kmh float64) RouteOption {
	return func(ro *RouteOptimizer) {
		if kmh > 0 {
			ro.speedKmh = kmh
		}
	}
}

func WithHandlingMinutes(minutes float64) RouteOption {
	return func(ro *RouteOptimizer) {
		if minutes >= 0 {
			ro.handlingMinutes = minutes
		}
	}
}

// WithLocation sets the timezone whose midnight starts "today" in statistics
func WithLocation(loc *time.Location) RouteOption {
	return func(ro *RouteOptimizer) {
		if loc != nil {
			ro.location = loc
		}
	}
}

func WithClock(now func() time.Time) RouteOption {
	return func(ro *RouteOptimizer) { ro.now = now }
}

// NewRouteOptimizer creates a new route optimizer
func NewRouteOptimizer(source RouteSource, opts ...RouteOption) *RouteOptimizer {
	ro := &RouteOptimizer{
		source:          source,
		distance:        HaversineKm,
		speedKmh:        DefaultAverageSpeedKmh,
		handlingMinutes: DefaultHandlingMinutes,
		location:        time.Local,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(ro)
	}
	return ro
}

// ValidCoordinate reports whether p is a finite (lng, lat) pair inside the WGS84 ranges
func ValidCoordinate(p orb.Point) bool {
	lng, lat := p.Lon(), p.Lat()
	if math.IsNaN(lng) || math.IsInf(lng, 0) || math.IsNaN(lat) || math.IsInf(lat, 0) {
		return false
	}
	return lng >= -180 && lng <= 180 && lat >= -90 && lat <= 90
}

// EstimateMinutes converts a leg distance into travel minutes at the average speed
func (ro *RouteOptimizer) EstimateMinutes(distance float64) float64 {
	return distance / ro.speedKmh * 60
}

// BuildRoute orders the collector's assigned and in-progress reports by
// repeatedly visiting the nearest remaining one. Reports with unusable
// coordinates are reported in Excluded instead of failing the route.
func (ro *RouteOptimizer) BuildRoute(ctx context.Context, collectorID string, start *orb.Point) (*models.Route, error) {
	if _, err := requireActiveCollector(ctx, ro.source, collectorID); err != nil {
		return nil, err
	}
	if start != nil && !ValidCoordinate(*start) {
		return nil, &models.ValidationError{
			Field:   "start",
			Message: fmt.Sprintf("invalid coordinate (%v, %v)", start.Lon(), start.Lat()),
		}
	}

	reports, err := ro.source.FindReportsByCollectorAndStatus(ctx, collectorID, models.OpenStatuses)
	if err != nil {
		return nil, err
	}

	stops, excluded := ro.OptimizeRoute(reports, start)

	route := &models.Route{
		CollectorID: collectorID,
		Start:       start,
		Stops:       stops,
		Excluded:    excluded,
		GeneratedAt: ro.now().Unix(),
	}
	for _, stop := range stops {
		route.TotalDistanceKm += stop.DistanceKm
		route.TotalEstimatedMinutes += stop.EstimatedMinutes
	}
	route.Geometry = routeGeometry(start, stops)

	log.Printf("🎯 Route for collector %s: %d stops, %.2f km, %.0f min (%d excluded)",
		collectorID, len(stops), route.TotalDistanceKm, route.TotalEstimatedMinutes, len(excluded))
	return route, nil
}

// OptimizeRoute runs the nearest-neighbor heuristic. Candidates are visited
// in creation order when distances tie, so identical input always yields the
// same sequence. Without a start point the oldest report is the first stop.
func (ro *RouteOptimizer) OptimizeRoute(reports []models.Report, start *orb.Point) ([]models.RouteStop, []models.ExcludedReport) {
	stops := []models.RouteStop{}
	var excluded []models.ExcludedReport

	seen := make(map[string]bool, len(reports))
	remaining := make([]models.Report, 0, len(reports))
	for _, r := range reports {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true

		if !ValidCoordinate(r.Location()) {
			geomErr := &models.InvalidGeometryError{ReportID: r.ID, Longitude: r.Longitude, Latitude: r.Latitude}
			log.Printf("⚠️  Skipping report in route: %v", geomErr)
			excluded = append(excluded, models.ExcludedReport{ReportID: r.ID, Reason: geomErr.Error()})
			continue
		}
		remaining = append(remaining, r)
	}

	if len(remaining) == 0 {
		return stops, excluded
	}

	sort.SliceStable(remaining, func(i, j int) bool {
		if remaining[i].CreatedAt != remaining[j].CreatedAt {
			return remaining[i].CreatedAt < remaining[j].CreatedAt
		}
		return remaining[i].ID < remaining[j].ID
	})

	var current orb.Point
	if start != nil {
		current = *start
	} else {
		first := remaining[0]
		remaining = remaining[1:]
		stops = append(stops, models.RouteStop{Sequence: 1, Report: first.ToReportResponse()})
		current = first.Location()
	}

	for len(remaining) > 0 {
		bestIdx := 0
		bestDistance := math.MaxFloat64

		for i := range remaining {
			d := ro.distance(current, remaining[i].Location())
			// Strict comparison keeps the earliest-created report on ties
			if d < bestDistance {
				bestDistance = d
				bestIdx = i
			}
		}

		best := remaining[bestIdx]
		stops = append(stops, models.RouteStop{
			Sequence:         len(stops) + 1,
			Report:           best.ToReportResponse(),
			DistanceKm:       bestDistance,
			EstimatedMinutes: ro.EstimateMinutes(bestDistance),
		})
		current = best.Location()
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return stops, excluded
}

// GetRouteStatistics aggregates the collector's open workload without ordering it
func (ro *RouteOptimizer) GetRouteStatistics(ctx context.Context, collectorID string) (*models.RouteStatistics, error) {
	if _, err := requireActiveCollector(ctx, ro.source, collectorID); err != nil {
		return nil, err
	}

	now := ro.now().In(ro.location)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, ro.location)

	counts, err := ro.source.CollectorCounts(ctx, collectorID, midnight.Unix())
	if err != nil {
		return nil, err
	}

	return &models.RouteStatistics{
		CollectorID:               collectorID,
		TotalAssigned:             counts.TotalOpen,
		Pending:                   counts.AwaitingStart,
		InProgress:                counts.InProgress,
		CompletedToday:            counts.CompletedToday,
		EstimatedMinutesRemaining: float64(counts.TotalOpen) * ro.handlingMinutes,
	}, nil
}

// routeGeometry traces the route as a GeoJSON LineString; nil below two points
func routeGeometry(start *orb.Point, stops []models.RouteStop) *geojson.Geometry {
	coords := make([][]float64, 0, len(stops)+1)
	if start != nil {
		coords = append(coords, []float64{start.Lon(), start.Lat()})
	}
	for _, stop := range stops {
		coords = append(coords, []float64{stop.Report.Location.Lon(), stop.Report.Location.Lat()})
	}
	if len(coords) < 2 {
		return nil
	}
	return geojson.NewLineStringGeometry(coords)
}

type userGetter interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// requireActiveCollector resolves id to an active collector account
func requireActiveCollector(ctx context.Context, users userGetter, id string) (*models.User, error) {
	user, err := users.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, &models.NotFoundError{Resource: "collector", ID: id}
	}
	if user.Role != models.RoleCollector {
		return nil, &models.InvalidRoleError{UserID: id, Role: user.Role, Want: models.RoleCollector}
	}
	return user, nil
}
