package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb"

	"wasteroute-backend/internal/models"
	"wasteroute-backend/pkg/utils"
)

type RouteService interface {
	BuildRoute(ctx context.Context, collectorID string, start *orb.Point) (*models.Route, error)
	GetRouteStatistics(ctx context.Context, collectorID string) (*models.RouteStatistics, error)
}

// GetCollectorRoute handles GET /api/collectors/{id}/route?startLat=&startLng=
func GetCollectorRoute(routes RouteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(w, r)
		if !ok {
			return
		}

		collectorID := chi.URLParam(r, "id")
		if !canViewCollector(actor, collectorID) {
			utils.RespondError(w, http.StatusForbidden, "Forbidden")
			return
		}

		start, err := parseStart(r)
		if err != nil {
			respondServiceError(w, err)
			return
		}

		log.Printf("📥 REQUEST: route for collector %s", collectorID)

		route, err := routes.BuildRoute(r.Context(), collectorID, start)
		if err != nil {
			respondServiceError(w, err)
			return
		}

		utils.RespondData(w, http.StatusOK, route)
	}
}

// GetCollectorStatistics handles GET /api/collectors/{id}/statistics
func GetCollectorStatistics(routes RouteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(w, r)
		if !ok {
			return
		}

		collectorID := chi.URLParam(r, "id")
		if !canViewCollector(actor, collectorID) {
			utils.RespondError(w, http.StatusForbidden, "Forbidden")
			return
		}

		stats, err := routes.GetRouteStatistics(r.Context(), collectorID)
		if err != nil {
			respondServiceError(w, err)
			return
		}

		utils.RespondData(w, http.StatusOK, stats)
	}
}

// parseStart reads the optional start point. Both coordinates or neither.
func parseStart(r *http.Request) (*orb.Point, error) {
	rawLat := r.URL.Query().Get("startLat")
	rawLng := r.URL.Query().Get("startLng")
	if rawLat == "" && rawLng == "" {
		return nil, nil
	}
	if rawLat == "" || rawLng == "" {
		return nil, &models.ValidationError{Field: "start", Message: "startLat and startLng must be given together"}
	}

	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return nil, &models.ValidationError{Field: "startLat", Message: "must be a number"}
	}
	lng, err := strconv.ParseFloat(rawLng, 64)
	if err != nil {
		return nil, &models.ValidationError{Field: "startLng", Message: "must be a number"}
	}

	start := orb.Point{lng, lat}
	return &start, nil
}
