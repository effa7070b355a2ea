package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"wasteroute-backend/internal/models"
)

const reportColumns = `id, reporter_id, assigned_collector_id, longitude, latitude, address,
	status, urgency, waste_type, classifier_confidence, description, estimated_quantity,
	image_filename, actual_quantity, confirmed_waste_type, collector_notes,
	created_at, assigned_at, collected_at, resolved_at, cancelled_at, updated_at`

// CreateReport inserts a new report
func (s *Store) CreateReport(ctx context.Context, r *models.Report) error {
	query := `
		INSERT INTO reports (` + reportColumns + `)
		VALUES (
			:id, :reporter_id, :assigned_collector_id, :longitude, :latitude, :address,
			:status, :urgency, :waste_type, :classifier_confidence, :description, :estimated_quantity,
			:image_filename, :actual_quantity, :confirmed_waste_type, :collector_notes,
			:created_at, :assigned_at, :collected_at, :resolved_at, :cancelled_at, :updated_at
		)
	`
	if _, err := sqlx.NamedExecContext(ctx, s.ext, query, r); err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

// GetReport retrieves a single report by its ID
func (s *Store) GetReport(ctx context.Context, id string) (*models.Report, error) {
	var report models.Report
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`

	err := sqlx.GetContext(ctx, s.ext, &report, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Resource: "report", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return &report, nil
}

// FindReports lists reports matching the typed query
func (s *Store) FindReports(ctx context.Context, q models.ReportQuery) ([]models.Report, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.ReporterID != "" {
		where = append(where, "reporter_id = "+arg(q.ReporterID))
	}
	if q.CollectorID != "" {
		where = append(where, "assigned_collector_id = "+arg(q.CollectorID))
	}
	if len(q.Statuses) > 0 {
		where = append(where, "status = ANY("+arg(pq.Array(statusStrings(q.Statuses)))+")")
	}
	if q.Urgency != "" {
		where = append(where, "urgency = "+arg(string(q.Urgency)))
	}

	query := `SELECT ` + reportColumns + ` FROM reports`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY " + orderClause(q.Sort)
	if q.Limit > 0 {
		query += " LIMIT " + arg(q.Limit)
	}
	if q.Offset > 0 {
		query += " OFFSET " + arg(q.Offset)
	}

	reports := []models.Report{}
	if err := sqlx.SelectContext(ctx, s.ext, &reports, query, args...); err != nil {
		return nil, fmt.Errorf("failed to find reports: %w", err)
	}
	return reports, nil
}

// FindReportsByCollectorAndStatus returns a collector's reports in creation order
func (s *Store) FindReportsByCollectorAndStatus(ctx context.Context, collectorID string, statuses []models.ReportStatus) ([]models.Report, error) {
	return s.FindReports(ctx, models.ReportQuery{
		CollectorID: collectorID,
		Statuses:    statuses,
		Sort:        models.SortCreatedAsc,
	})
}

// UpdateReportStatus applies a guarded transition. The WHERE clause on the
// expected status makes concurrent transitions on one report serialize: the
// loser matches zero rows and gets a StaleStateError.
func (s *Store) UpdateReportStatus(ctx context.Context, u models.StatusUpdate) (*models.Report, error) {
	sets := []string{"status = $1", "updated_at = $2"}
	args := []interface{}{string(u.To), u.Now}
	set := func(column string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	switch {
	case u.ClearAssignment:
		sets = append(sets, "assigned_collector_id = NULL", "assigned_at = NULL")
	case u.AssignCollectorID != nil:
		set("assigned_collector_id", *u.AssignCollectorID)
		set("assigned_at", u.Now)
	}

	switch u.To {
	case models.ReportStatusCollected:
		set("collected_at", u.Now)
	case models.ReportStatusResolved:
		set("resolved_at", u.Now)
	case models.ReportStatusCancelled:
		set("cancelled_at", u.Now)
	}

	if u.ActualQuantity != nil {
		set("actual_quantity", *u.ActualQuantity)
	}
	if u.ConfirmedWasteType != nil {
		set("confirmed_waste_type", *u.ConfirmedWasteType)
	}
	if u.CollectorNotes != nil {
		set("collector_notes", *u.CollectorNotes)
	}

	args = append(args, u.ReportID, string(u.From))
	query := fmt.Sprintf(
		`UPDATE reports SET %s WHERE id = $%d AND status = $%d RETURNING `+reportColumns,
		strings.Join(sets, ", "), len(args)-1, len(args),
	)

	var report models.Report
	err := sqlx.GetContext(ctx, s.ext, &report, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.staleOrMissing(ctx, u.ReportID, u.From)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update report status: %w", err)
	}

	log.Printf("✅ Report %s: %s → %s", report.ID, u.From, report.Status)
	return &report, nil
}

// staleOrMissing explains why a guarded update matched no row
func (s *Store) staleOrMissing(ctx context.Context, reportID string, expected models.ReportStatus) error {
	var current string
	err := sqlx.GetContext(ctx, s.ext, &current, `SELECT status FROM reports WHERE id = $1`, reportID)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.NotFoundError{Resource: "report", ID: reportID}
	}
	if err != nil {
		return fmt.Errorf("failed to read report status: %w", err)
	}
	return &models.StaleStateError{
		Resource: "report",
		ID:       reportID,
		Expected: string(expected),
		Actual:   current,
	}
}

// DeactivateCollectorCascade marks the collector inactive and puts their
// open reports back in the pending pool. Pickup logs are left as they are.
func (s *Store) DeactivateCollectorCascade(ctx context.Context, collectorID string, now int64) (int, error) {
	if _, err := s.ext.ExecContext(ctx,
		`UPDATE users SET is_active = FALSE, updated_at = $1 WHERE id = $2`,
		now, collectorID,
	); err != nil {
		return 0, fmt.Errorf("failed to deactivate collector: %w", err)
	}

	result, err := s.ext.ExecContext(ctx, `
		UPDATE reports
		SET status = 'pending',
		    assigned_collector_id = NULL,
		    assigned_at = NULL,
		    updated_at = $1
		WHERE assigned_collector_id = $2
		  AND status IN ('assigned', 'in_progress')
	`, now, collectorID)
	if err != nil {
		return 0, fmt.Errorf("failed to revert collector reports: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	log.Printf("🔄 Collector %s deactivated, %d reports back to pending", collectorID, rowsAffected)
	return int(rowsAffected), nil
}

// CollectorCounts reads the open workload and today's completions in one statement
func (s *Store) CollectorCounts(ctx context.Context, collectorID string, since int64) (models.CollectorCounts, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE r.status IN ('assigned', 'in_progress')) AS total_open,
			COUNT(*) FILTER (WHERE r.status = 'assigned') AS awaiting_start,
			COUNT(*) FILTER (WHERE r.status = 'in_progress') AS in_progress,
			(
				SELECT COUNT(*) FROM pickup_logs p
				WHERE p.collector_id = $1
				  AND p.status = 'completed'
				  AND p.end_time >= $2
			) AS completed_today
		FROM reports r
		WHERE r.assigned_collector_id = $1
	`

	var counts models.CollectorCounts
	if err := sqlx.GetContext(ctx, s.ext, &counts, query, collectorID, since); err != nil {
		return models.CollectorCounts{}, fmt.Errorf("failed to count collector reports: %w", err)
	}
	return counts, nil
}

func orderClause(sort models.ReportSort) string {
	switch sort {
	case models.SortCreatedDesc:
		return "created_at DESC, id DESC"
	case models.SortUrgency:
		return `CASE urgency
			WHEN 'critical' THEN 4
			WHEN 'high' THEN 3
			WHEN 'medium' THEN 2
			ELSE 1 END DESC, created_at ASC, id ASC`
	}
	return "created_at ASC, id ASC"
}

func statusStrings(statuses []models.ReportStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
