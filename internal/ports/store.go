package ports

import (
	"context"

	"wasteroute-backend/internal/models"
)

// Port: reports, the source of truth for lifecycle state.
type ReportRepository interface {
	CreateReport(ctx context.Context, report *models.Report) error
	GetReport(ctx context.Context, id string) (*models.Report, error)
	FindReports(ctx context.Context, query models.ReportQuery) ([]models.Report, error)
	// Reports assigned to a collector in any of statuses, oldest first.
	FindReportsByCollectorAndStatus(ctx context.Context, collectorID string, statuses []models.ReportStatus) ([]models.Report, error)
	// Apply a transition guarded by the expected current status.
	// Returns *models.StaleStateError when the report has moved on.
	UpdateReportStatus(ctx context.Context, update models.StatusUpdate) (*models.Report, error)
	// Deactivate a collector and revert their assigned/in-progress reports to pending.
	DeactivateCollectorCascade(ctx context.Context, collectorID string, now int64) (int, error)
	// Open workload and completions since the given unix time, read in one statement.
	CollectorCounts(ctx context.Context, collectorID string, since int64) (models.CollectorCounts, error)
}

// Port: pickup attempts.
type PickupLogRepository interface {
	GetPickupLog(ctx context.Context, id string) (*models.PickupLog, error)
	// Returns nil, nil when the pair has no open log.
	FindOpenPickupLog(ctx context.Context, reportID, collectorID string) (*models.PickupLog, error)
	FindOpenPickupLogsByReport(ctx context.Context, reportID string) ([]models.PickupLog, error)
	// Returns *models.DuplicateActiveLogError when the pair already has an open log.
	CreatePickupLog(ctx context.Context, log *models.PickupLog) error
	ClosePickupLog(ctx context.Context, close models.PickupClose) (*models.PickupLog, error)
}

// Port: accounts and their device tokens.
type UserRepository interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	FCMTokensForUser(ctx context.Context, userID string) ([]string, error)
}

// Store groups the repositories and runs composite transitions atomically.
type Store interface {
	ReportRepository
	PickupLogRepository
	UserRepository
	// Run fn against a store bound to one transaction; commit when fn returns nil.
	InTx(ctx context.Context, fn func(tx Store) error) error
}
