package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"wasteroute-backend/internal/models"
)

const openPickupIndex = "idx_pickup_logs_open"

const pickupColumns = `id, report_id, collector_id, status, start_time, end_time,
	actual_quantity, confirmed_waste_type, notes, failure_reason, created_at`

// GetPickupLog retrieves a single pickup log by its ID
func (s *Store) GetPickupLog(ctx context.Context, id string) (*models.PickupLog, error) {
	var pl models.PickupLog
	err := sqlx.GetContext(ctx, s.ext, &pl, `SELECT `+pickupColumns+` FROM pickup_logs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Resource: "pickup log", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pickup log: %w", err)
	}
	return &pl, nil
}

// FindOpenPickupLog returns the started log for the pair, or nil when there is none
func (s *Store) FindOpenPickupLog(ctx context.Context, reportID, collectorID string) (*models.PickupLog, error) {
	var pl models.PickupLog
	query := `
		SELECT ` + pickupColumns + ` FROM pickup_logs
		WHERE report_id = $1 AND collector_id = $2 AND status = 'started'
		LIMIT 1
	`
	err := sqlx.GetContext(ctx, s.ext, &pl, query, reportID, collectorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find open pickup log: %w", err)
	}
	return &pl, nil
}

// FindOpenPickupLogsByReport returns every started log on a report
func (s *Store) FindOpenPickupLogsByReport(ctx context.Context, reportID string) ([]models.PickupLog, error) {
	logs := []models.PickupLog{}
	query := `
		SELECT ` + pickupColumns + ` FROM pickup_logs
		WHERE report_id = $1 AND status = 'started'
		ORDER BY start_time ASC
	`
	if err := sqlx.SelectContext(ctx, s.ext, &logs, query, reportID); err != nil {
		return nil, fmt.Errorf("failed to find open pickup logs: %w", err)
	}
	return logs, nil
}

// CreatePickupLog inserts a started log. The partial unique index on
// (report_id, collector_id) WHERE status = 'started' turns a racing
// duplicate into a DuplicateActiveLogError.
func (s *Store) CreatePickupLog(ctx context.Context, pl *models.PickupLog) error {
	query := `
		INSERT INTO pickup_logs (` + pickupColumns + `)
		VALUES (
			:id, :report_id, :collector_id, :status, :start_time, :end_time,
			:actual_quantity, :confirmed_waste_type, :notes, :failure_reason, :created_at
		)
	`
	_, err := sqlx.NamedExecContext(ctx, s.ext, query, pl)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == openPickupIndex {
			return &models.DuplicateActiveLogError{ReportID: pl.ReportID, CollectorID: pl.CollectorID}
		}
		return fmt.Errorf("failed to create pickup log: %w", err)
	}

	log.Printf("✅ Pickup %s started: report %s by collector %s", pl.ID, pl.ReportID, pl.CollectorID)
	return nil
}

// ClosePickupLog records the outcome of an open log
func (s *Store) ClosePickupLog(ctx context.Context, c models.PickupClose) (*models.PickupLog, error) {
	query := `
		UPDATE pickup_logs
		SET status = $1,
		    end_time = $2,
		    actual_quantity = $3,
		    confirmed_waste_type = $4,
		    notes = $5,
		    failure_reason = $6
		WHERE id = $7 AND status = 'started'
		RETURNING ` + pickupColumns

	var pl models.PickupLog
	err := sqlx.GetContext(ctx, s.ext, &pl, query,
		string(c.Outcome), c.EndTime, c.ActualQuantity, c.ConfirmedWasteType, c.Notes, c.FailureReason, c.LogID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		existing, getErr := s.GetPickupLog(ctx, c.LogID)
		if getErr != nil {
			return nil, getErr
		}
		return nil, &models.StaleStateError{
			Resource: "pickup log",
			ID:       c.LogID,
			Expected: string(models.PickupStatusStarted),
			Actual:   string(existing.Status),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to close pickup log: %w", err)
	}

	log.Printf("✅ Pickup %s closed as %s", pl.ID, pl.Status)
	return &pl, nil
}
