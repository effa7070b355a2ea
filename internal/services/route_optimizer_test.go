package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wasteroute-backend/internal/models"
)

func assignedReport(id, collectorID string, lng, lat float64, createdAt int64) models.Report {
	return models.Report{
		ID:                  id,
		ReporterID:          "citizen-1",
		AssignedCollectorID: strPtr(collectorID),
		Longitude:           lng,
		Latitude:            lat,
		Status:              models.ReportStatusAssigned,
		Urgency:             models.UrgencyMedium,
		CreatedAt:           createdAt,
	}
}

func newRouteStore() *memStore {
	store := newMemStore()
	store.addUser("collector-1", models.RoleCollector, true)
	store.addUser("citizen-1", models.RoleCitizen, true)
	return store
}

func TestBuildRouteNearestNeighborScenario(t *testing.T) {
	store := newRouteStore()
	store.addReport(assignedReport("A", "collector-1", 0, 0, 1))
	store.addReport(assignedReport("B", "collector-1", 0, 3, 2))
	store.addReport(assignedReport("C", "collector-1", 0, 1, 3))

	ro := NewRouteOptimizer(store, WithDistanceFunc(PlanarDistance))
	start := orb.Point{0, 0}

	route, err := ro.BuildRoute(context.Background(), "collector-1", &start)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "C", "B"}, route.ReportIDs())
	require.Len(t, route.Stops, 3)
	assert.Equal(t, 0.0, route.Stops[0].DistanceKm)
	assert.Equal(t, 1.0, route.Stops[1].DistanceKm)
	assert.Equal(t, 2.0, route.Stops[2].DistanceKm)
	assert.Equal(t, 3.0, route.TotalDistanceKm)
	for i, stop := range route.Stops {
		assert.Equal(t, i+1, stop.Sequence)
	}

	require.NotNil(t, route.Geometry)
	assert.True(t, route.Geometry.IsLineString())
	assert.Len(t, route.Geometry.LineString, 4)
}

func TestBuildRouteWithoutStartUsesOldestReport(t *testing.T) {
	store := newRouteStore()
	store.addReport(assignedReport("late", "collector-1", 0, 0, 50))
	store.addReport(assignedReport("early", "collector-1", 0, 5, 10))
	store.addReport(assignedReport("middle", "collector-1", 0, 4, 20))

	ro := NewRouteOptimizer(store, WithDistanceFunc(PlanarDistance))

	route, err := ro.BuildRoute(context.Background(), "collector-1", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"early", "middle", "late"}, route.ReportIDs())
	assert.Equal(t, 0.0, route.Stops[0].DistanceKm)
	assert.Equal(t, 0.0, route.Stops[0].EstimatedMinutes)
	assert.Nil(t, route.Start)
}

func TestBuildRouteEmpty(t *testing.T) {
	store := newRouteStore()
	// Reports outside the open statuses never reach the route
	collected := assignedReport("done", "collector-1", 1, 1, 1)
	collected.Status = models.ReportStatusCollected
	store.addReport(collected)

	ro := NewRouteOptimizer(store)
	route, err := ro.BuildRoute(context.Background(), "collector-1", nil)
	require.NoError(t, err)

	assert.NotNil(t, route.Stops)
	assert.Empty(t, route.Stops)
	assert.Zero(t, route.TotalDistanceKm)
	assert.Zero(t, route.TotalEstimatedMinutes)
	assert.Nil(t, route.Geometry)
}

func TestBuildRouteExcludesInvalidGeometry(t *testing.T) {
	store := newRouteStore()
	store.addReport(assignedReport("ok-1", "collector-1", 13.40, 52.52, 1))
	store.addReport(assignedReport("bad-lat", "collector-1", 13.41, 95, 2))
	store.addReport(assignedReport("bad-nan", "collector-1", math.NaN(), 52.5, 3))
	store.addReport(assignedReport("ok-2", "collector-1", 13.42, 52.53, 4))

	ro := NewRouteOptimizer(store)
	route, err := ro.BuildRoute(context.Background(), "collector-1", nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"ok-1", "ok-2"}, route.ReportIDs())
	require.Len(t, route.Excluded, 2)
	excluded := []string{route.Excluded[0].ReportID, route.Excluded[1].ReportID}
	assert.ElementsMatch(t, []string{"bad-lat", "bad-nan"}, excluded)
	assert.Contains(t, route.Excluded[0].Reason, "invalid coordinate")
}

func TestBuildRouteCollectorChecks(t *testing.T) {
	store := newRouteStore()
	store.addUser("gone", models.RoleCollector, false)
	ro := NewRouteOptimizer(store)

	testCases := []struct {
		name        string
		collectorID string
		check       func(t *testing.T, err error)
	}{
		{
			name:        "Unknown collector",
			collectorID: "nobody",
			check: func(t *testing.T, err error) {
				var nf *models.NotFoundError
				assert.True(t, errors.As(err, &nf), "got %v", err)
			},
		},
		{
			name:        "Inactive collector",
			collectorID: "gone",
			check: func(t *testing.T, err error) {
				var nf *models.NotFoundError
				assert.True(t, errors.As(err, &nf), "got %v", err)
			},
		},
		{
			name:        "Not a collector",
			collectorID: "citizen-1",
			check: func(t *testing.T, err error) {
				var roleErr *models.InvalidRoleError
				require.True(t, errors.As(err, &roleErr), "got %v", err)
				assert.Equal(t, models.RoleCitizen, roleErr.Role)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ro.BuildRoute(context.Background(), tc.collectorID, nil)
			require.Error(t, err)
			tc.check(t, err)

			_, err = ro.GetRouteStatistics(context.Background(), tc.collectorID)
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestBuildRouteRejectsInvalidStart(t *testing.T) {
	ro := NewRouteOptimizer(newRouteStore())
	start := orb.Point{200, 0}

	_, err := ro.BuildRoute(context.Background(), "collector-1", &start)
	var validation *models.ValidationError
	require.True(t, errors.As(err, &validation), "got %v", err)
	assert.Equal(t, "start", validation.Field)
}

func TestBuildRoutePermutationAndDeterminism(t *testing.T) {
	store := newRouteStore()
	for i := 0; i < 25; i++ {
		// Deterministic scatter around Berlin
		lng := 13.30 + float64((i*37)%100)/1000
		lat := 52.45 + float64((i*61)%100)/1000
		r := assignedReport(fmt.Sprintf("r-%02d", i), "collector-1", lng, lat, int64(i))
		if i%3 == 0 {
			r.Status = models.ReportStatusInProgress
		}
		store.addReport(r)
	}

	ro := NewRouteOptimizer(store)
	start := orb.Point{13.35, 52.50}

	first, err := ro.BuildRoute(context.Background(), "collector-1", &start)
	require.NoError(t, err)
	second, err := ro.BuildRoute(context.Background(), "collector-1", &start)
	require.NoError(t, err)

	assert.Equal(t, first.ReportIDs(), second.ReportIDs())

	seen := map[string]bool{}
	for _, id := range first.ReportIDs() {
		assert.False(t, seen[id], "duplicate stop %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, 25)

	sum, minutes := 0.0, 0.0
	for _, stop := range first.Stops {
		sum += stop.DistanceKm
		minutes += stop.EstimatedMinutes
	}
	assert.InDelta(t, sum, first.TotalDistanceKm, 1e-9)
	assert.InDelta(t, minutes, first.TotalEstimatedMinutes, 1e-9)
}

func TestOptimizeRouteTieBreaksOnCreationOrder(t *testing.T) {
	ro := NewRouteOptimizer(nil, WithDistanceFunc(PlanarDistance))
	reports := []models.Report{
		assignedReport("east", "c", 1, 0, 20),
		assignedReport("west", "c", -1, 0, 10),
	}
	start := orb.Point{0, 0}

	stops, excluded := ro.OptimizeRoute(reports, &start)

	assert.Empty(t, excluded)
	require.Len(t, stops, 2)
	assert.Equal(t, "west", stops[0].Report.ID)
	assert.Equal(t, "east", stops[1].Report.ID)
}

func TestOptimizeRouteDropsDuplicateReports(t *testing.T) {
	ro := NewRouteOptimizer(nil, WithDistanceFunc(PlanarDistance))
	r := assignedReport("same", "c", 1, 1, 1)

	stops, _ := ro.OptimizeRoute([]models.Report{r, r, assignedReport("other", "c", 2, 2, 2)}, nil)

	require.Len(t, stops, 2)
	assert.Equal(t, "same", stops[0].Report.ID)
	assert.Equal(t, "other", stops[1].Report.ID)
}

func TestEstimateMinutesIsMonotonic(t *testing.T) {
	ro := NewRouteOptimizer(nil, WithAverageSpeed(30))

	assert.Equal(t, 0.0, ro.EstimateMinutes(0))
	assert.InDelta(t, 2.0, ro.EstimateMinutes(1), 1e-9)
	assert.InDelta(t, 20.0, ro.EstimateMinutes(10), 1e-9)
	assert.Less(t, ro.EstimateMinutes(1.5), ro.EstimateMinutes(1.6))
}

func TestHaversineKm(t *testing.T) {
	// One degree of latitude is roughly 111 km
	d := HaversineKm(orb.Point{0, 0}, orb.Point{0, 1})
	assert.InDelta(t, 111.2, d, 0.5)
	assert.Zero(t, HaversineKm(orb.Point{13.4, 52.5}, orb.Point{13.4, 52.5}))
}

func TestValidCoordinate(t *testing.T) {
	testCases := []struct {
		point orb.Point
		want  bool
	}{
		{orb.Point{0, 0}, true},
		{orb.Point{-180, -90}, true},
		{orb.Point{180, 90}, true},
		{orb.Point{180.01, 0}, false},
		{orb.Point{0, -90.5}, false},
		{orb.Point{math.Inf(1), 0}, false},
		{orb.Point{0, math.NaN()}, false},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, ValidCoordinate(tc.point), "point %v", tc.point)
	}
}

func TestGetRouteStatistics(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, loc)
	midnight := time.Date(2026, 3, 10, 0, 0, 0, 0, loc).Unix()

	store := newRouteStore()
	store.addReport(assignedReport("a1", "collector-1", 1, 1, 1))
	store.addReport(assignedReport("a2", "collector-1", 1, 2, 2))
	inProgress := assignedReport("p1", "collector-1", 1, 3, 3)
	inProgress.Status = models.ReportStatusInProgress
	store.addReport(inProgress)
	other := assignedReport("o1", "collector-2", 1, 4, 4)
	store.addReport(other)

	yesterday := midnight - 60
	today := midnight + 60
	store.addLog(models.PickupLog{ID: "l1", ReportID: "x1", CollectorID: "collector-1", Status: models.PickupStatusCompleted, StartTime: yesterday - 600, EndTime: &yesterday})
	store.addLog(models.PickupLog{ID: "l2", ReportID: "x2", CollectorID: "collector-1", Status: models.PickupStatusCompleted, StartTime: today - 30, EndTime: &today})
	store.addLog(models.PickupLog{ID: "l3", ReportID: "x3", CollectorID: "collector-1", Status: models.PickupStatusFailed, StartTime: today - 30, EndTime: &today})

	ro := NewRouteOptimizer(store,
		WithLocation(loc),
		WithClock(func() time.Time { return now }),
		WithHandlingMinutes(15),
	)

	stats, err := ro.GetRouteStatistics(context.Background(), "collector-1")
	require.NoError(t, err)

	assert.Equal(t, &models.RouteStatistics{
		CollectorID:               "collector-1",
		TotalAssigned:             3,
		Pending:                   2,
		InProgress:                1,
		CompletedToday:            1,
		EstimatedMinutesRemaining: 45,
	}, stats)

	// Same report set as the full route build
	route, err := ro.BuildRoute(context.Background(), "collector-1", nil)
	require.NoError(t, err)
	assert.Len(t, route.Stops, stats.TotalAssigned)
}
