package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"wasteroute-backend/internal/models"
	"wasteroute-backend/internal/services"
	"wasteroute-backend/pkg/utils"
)

type PickupService interface {
	StartPickup(ctx context.Context, actor services.Actor, reportID string) (*models.PickupLog, error)
	CompletePickup(ctx context.Context, actor services.Actor, logID string, req models.CompletePickupRequest) (*models.Report, *models.PickupLog, error)
	FailPickup(ctx context.Context, actor services.Actor, logID, reason string) (*models.PickupLog, *models.Report, error)
	GetPickupLog(ctx context.Context, actor services.Actor, logID string) (*models.PickupLog, error)
}

// StartPickup handles POST /api/pickups/start
func StartPickup(pickups PickupService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(w, r)
		if !ok {
			return
		}

		var req models.StartPickupRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.ReportID == "" {
			respondServiceError(w, &models.ValidationError{Field: "report_id", Message: "is required"})
			return
		}

		log.Printf("📥 REQUEST: start pickup of report %s by %s", req.ReportID, actor.UserID)

		pickupLog, err := pickups.StartPickup(r.Context(), actor, req.ReportID)
		if err != nil {
			respondServiceError(w, err)
			return
		}

		log.Printf("📤 RESPONSE: 201 - Pickup log %s", pickupLog.ID)
		utils.RespondData(w, http.StatusCreated, pickupLog.ToPickupLogResponse())
	}
}

// CompletePickup handles POST /api/pickups/{id}/complete
func CompletePickup(pickups PickupService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(w, r)
		if !ok {
			return
		}

		var req models.CompletePickupRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.ActualQuantity != nil && *req.ActualQuantity < 0 {
			respondServiceError(w, &models.ValidationError{Field: "actual_quantity", Message: "must not be negative"})
			return
		}

		logID := chi.URLParam(r, "id")
		report, pickupLog, err := pickups.CompletePickup(r.Context(), actor, logID, req)
		if err != nil {
			respondServiceError(w, err)
			return
		}

		log.Printf("📤 RESPONSE: 200 - Pickup %s completed, report %s collected", pickupLog.ID, report.ID)
		utils.RespondData(w, http.StatusOK, models.CompletePickupResponse{
			Report:    report.ToReportResponse(),
			PickupLog: pickupLog.ToPickupLogResponse(),
		})
	}
}

// FailPickup handles POST /api/pickups/{id}/fail
func FailPickup(pickups PickupService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(w, r)
		if !ok {
			return
		}

		var req models.FailPickupRequest
		if !decodeBody(w, r, &req) {
			return
		}
		reason := strings.TrimSpace(req.Reason)
		if reason == "" {
			respondServiceError(w, &models.ValidationError{Field: "reason", Message: "is required"})
			return
		}

		pickupLog, report, err := pickups.FailPickup(r.Context(), actor, chi.URLParam(r, "id"), reason)
		if err != nil {
			respondServiceError(w, err)
			return
		}

		data := map[string]interface{}{"pickup_log": pickupLog.ToPickupLogResponse()}
		if report != nil {
			data["report"] = report.ToReportResponse()
		}
		utils.RespondData(w, http.StatusOK, data)
	}
}

// GetPickupLog handles GET /api/pickups/{id}
func GetPickupLog(pickups PickupService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(w, r)
		if !ok {
			return
		}

		pickupLog, err := pickups.GetPickupLog(r.Context(), actor, chi.URLParam(r, "id"))
		if err != nil {
			respondServiceError(w, err)
			return
		}

		utils.RespondData(w, http.StatusOK, pickupLog.ToPickupLogResponse())
	}
}
