package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"wasteroute-backend/internal/models"
	"wasteroute-backend/internal/services"
	"wasteroute-backend/pkg/utils"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type ReportIntake interface {
	CreateReport(ctx context.Context, actor services.Actor, req models.CreateReportRequest) (*models.Report, error)
}

type ReportReader interface {
	GetReport(ctx context.Context, id string) (*models.Report, error)
	FindReports(ctx context.Context, query models.ReportQuery) ([]models.Report, error)
}

type ReportAdmin interface {
	AssignCollector(ctx context.Context, actor services.Actor, reportID, collectorID string) (*models.Report, error)
	ResolveReport(ctx context.Context, actor services.Actor, reportID string) (*models.Report, error)
	CancelReport(ctx context.Context, actor services.Actor, reportID string) (*models.Report, error)
	DeactivateCollector(ctx context.Context, actor services.Actor, collectorID string) (int, error)
}

// CreateReport handles POST /api/reports
func CreateReport(intake ReportIntake) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Println("📥 REQUEST: POST /api/reports")

		actor, ok := actorFromRequest(w, r)
		if !ok {
			return
		}

		var req models.CreateReportRequest
		if !decodeBody(w, r, &req) {
			return
		}

		report, err := intake.CreateReport(r.Context(), actor, req)
		if err != nil {
			respondServiceError(w, err)
			return
		}

		log.Printf("📤 RESPONSE: 201 - Report %s", report.ID)
		utils.RespondData(w, http.StatusCreated, report.ToReportResponse())
	}
}

// GetReport handles GET /api/reports/{id}. Citizens see their own reports,
// collectors the ones assigned to them.
func GetReport(reports ReportReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(w, r)
		if !ok {
			return
		}

		id := chi.URLParam(r, "id")
		report, err := reports.GetReport(r.Context(), id)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		if !canViewReport(actor, report) {
			respondServiceError(w, &models.NotFoundError{Resource: "report", ID: id})
			return
		}

		utils.RespondData(w, http.StatusOK, report.ToReportResponse())
	}
}

// ListReports handles GET /api/reports with typed filters from the query string
func ListReports(reports ReportReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: GET /api/reports?%s", r.URL.RawQuery)

		actor, ok := actorFromRequest(w, r)
		if !ok {
			return
		}

		query, err := parseReportQuery(r)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		switch actor.Role {
		case models.RoleCitizen:
			query.ReporterID = actor.UserID
		case models.RoleCollector:
			query.CollectorID = actor.UserID
		}

		found, err := reports.FindReports(r.Context(), query)
		if err != nil {
			respondServiceError(w, err)
			return
		}

		log.Printf("📤 RESPONSE: 200 - Found %d reports", len(found))
		utils.RespondData(w, http.StatusOK, toReportResponses(found))
	}
}

// ListCollectorReports handles GET /api/collectors/{id}/reports: the
// collector's open reports, most urgent first
func ListCollectorReports(reports ReportReader) http.HandlerFunc {
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

		query, err := parseReportQuery(r)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		query.CollectorID = collectorID
		query.ReporterID = ""
		if len(query.Statuses) == 0 {
			query.Statuses = models.OpenStatuses
		}
		if r.URL.Query().Get("sort") == "" {
			query.Sort = models.SortUrgency
		}

		found, err := reports.FindReports(r.Context(), query)
		if err != nil {
			respondServiceError(w, err)
			return
		}

		utils.RespondData(w, http.StatusOK, toReportResponses(found))
	}
}

// AssignCollector handles POST /api/admin/reports/{id}/assign
func AssignCollector(admin ReportAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(w, r)
		if !ok {
			return
		}

		var req models.AssignCollectorRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.CollectorID == "" {
			respondServiceError(w, &models.ValidationError{Field: "collector_id", Message: "is required"})
			return
		}

		reportID := chi.URLParam(r, "id")
		log.Printf("📥 REQUEST: assign report %s to collector %s", reportID, req.CollectorID)

		report, err := admin.AssignCollector(r.Context(), actor, reportID, req.CollectorID)
		if err != nil {
			respondServiceError(w, err)
			return
		}

		utils.RespondData(w, http.StatusOK, report.ToReportResponse())
	}
}

// ResolveReport handles POST /api/admin/reports/{id}/resolve
func ResolveReport(admin ReportAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(w, r)
		if !ok {
			return
		}

		report, err := admin.ResolveReport(r.Context(), actor, chi.URLParam(r, "id"))
		if err != nil {
			respondServiceError(w, err)
			return
		}

		utils.RespondData(w, http.StatusOK, report.ToReportResponse())
	}
}

// CancelReport handles POST /api/reports/{id}/cancel
func CancelReport(admin ReportAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(w, r)
		if !ok {
			return
		}

		report, err := admin.CancelReport(r.Context(), actor, chi.URLParam(r, "id"))
		if err != nil {
			respondServiceError(w, err)
			return
		}

		utils.RespondData(w, http.StatusOK, report.ToReportResponse())
	}
}

// DeactivateCollector handles POST /api/admin/collectors/{id}/deactivate
func DeactivateCollector(admin ReportAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(w, r)
		if !ok {
			return
		}

		collectorID := chi.URLParam(r, "id")
		reverted, err := admin.DeactivateCollector(r.Context(), actor, collectorID)
		if err != nil {
			respondServiceError(w, err)
			return
		}

		log.Printf("📤 RESPONSE: 200 - Collector %s deactivated, %d reports reverted", collectorID, reverted)
		utils.RespondData(w, http.StatusOK, map[string]interface{}{
			"collector_id":     collectorID,
			"reverted_reports": reverted,
		})
	}
}

// parseReportQuery reads status, urgency, sort, limit and offset. Admins may
// also filter by reporter_id and collector_id.
func parseReportQuery(r *http.Request) (models.ReportQuery, error) {
	values := r.URL.Query()
	query := models.ReportQuery{
		ReporterID:  values.Get("reporter_id"),
		CollectorID: values.Get("collector_id"),
		Limit:       defaultPageSize,
	}

	if raw := values.Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status := models.ReportStatus(strings.TrimSpace(part))
			if !status.Valid() {
				return query, &models.ValidationError{Field: "status", Message: "unknown status " + strconv.Quote(string(status))}
			}
			query.Statuses = append(query.Statuses, status)
		}
	}

	if raw := values.Get("urgency"); raw != "" {
		query.Urgency = models.Urgency(raw)
		if !query.Urgency.Valid() {
			return query, &models.ValidationError{Field: "urgency", Message: "unknown urgency " + strconv.Quote(raw)}
		}
	}

	switch values.Get("sort") {
	case "", "created_asc":
		query.Sort = models.SortCreatedAsc
	case "created_desc":
		query.Sort = models.SortCreatedDesc
	case "urgency":
		query.Sort = models.SortUrgency
	default:
		return query, &models.ValidationError{Field: "sort", Message: "must be created_asc, created_desc or urgency"}
	}

	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return query, &models.ValidationError{Field: "limit", Message: "must be a positive integer"}
		}
		if limit > maxPageSize {
			limit = maxPageSize
		}
		query.Limit = limit
	}

	if raw := values.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return query, &models.ValidationError{Field: "offset", Message: "must be a non-negative integer"}
		}
		query.Offset = offset
	}

	return query, nil
}

func canViewReport(actor services.Actor, report *models.Report) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleCitizen:
		return report.ReporterID == actor.UserID
	case models.RoleCollector:
		return report.AssignedCollectorID != nil && *report.AssignedCollectorID == actor.UserID
	}
	return false
}

func toReportResponses(reports []models.Report) []models.ReportResponse {
	out := make([]models.ReportResponse, len(reports))
	for i := range reports {
		out[i] = reports[i].ToReportResponse()
	}
	return out
}
