package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"wasteroute-backend/internal/models"
	"wasteroute-backend/internal/ports"
)

// Actor is the authenticated user performing an operation
type Actor struct {
	UserID string
	Role   models.Role
}

// The status each transition must find the report in, for error messages
var expectedFrom = map[models.Transition]string{
	models.TransitionAssign:         string(models.ReportStatusPending),
	models.TransitionStartPickup:    string(models.ReportStatusAssigned),
	models.TransitionCompletePickup: string(models.ReportStatusInProgress),
	models.TransitionFailPickup:     string(models.ReportStatusInProgress),
	models.TransitionResolve:        string(models.ReportStatusCollected),
	models.TransitionCancel:         "non-terminal",
	models.TransitionRevert:         "assigned or in_progress",
}

const cancelledPickupReason = "report cancelled"

// LifecycleService applies report and pickup transitions. Each operation
// runs in one store transaction; notifications go out only after commit.
type LifecycleService struct {
	store      ports.Store
	dispatcher *Dispatcher
	now        func() time.Time
	newID      func() string
}

type LifecycleOption func(*LifecycleService)

func WithLifecycleClock(now func() time.Time) LifecycleOption {
	return func(s *LifecycleService) { s.now = now }
}

func WithIDGenerator(newID func() string) LifecycleOption {
	return func(s *LifecycleService) { s.newID = newID }
}

func NewLifecycleService(store ports.Store, dispatcher *Dispatcher, opts ...LifecycleOption) *LifecycleService {
	s := &LifecycleService{
		store:      store,
		dispatcher: dispatcher,
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AssignCollector moves a pending report to assigned
func (s *LifecycleService) AssignCollector(ctx context.Context, actor Actor, reportID, collectorID string) (*models.Report, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}

	var updated *models.Report
	err := s.store.InTx(ctx, func(tx ports.Store) error {
		if _, err := requireActiveCollector(ctx, tx, collectorID); err != nil {
			return err
		}
		report, err := tx.GetReport(ctx, reportID)
		if err != nil {
			return err
		}
		updated, err = applyTransition(ctx, tx, report, models.TransitionAssign, models.StatusUpdate{
			Now:               s.now().Unix(),
			AssignCollectorID: &collectorID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	params := reportParams(updated)
	s.dispatcher.Emit(s.event(EventReportAssigned, updated, ""),
		Push{UserID: updated.ReporterID, Template: TemplateReportAssigned, Params: params},
		Push{UserID: collectorID, Template: TemplatePickupAssigned, Params: params},
	)
	return updated, nil
}

// StartPickup opens a pickup log and moves the report to in_progress. A
// second start by the same collector fails with DuplicateActiveLogError.
func (s *LifecycleService) StartPickup(ctx context.Context, actor Actor, reportID string) (*models.PickupLog, error) {
	if err := requireRole(actor, models.RoleCollector); err != nil {
		return nil, err
	}

	var (
		pickup *models.PickupLog
		report *models.Report
	)
	err := s.store.InTx(ctx, func(tx ports.Store) error {
		if _, err := requireActiveCollector(ctx, tx, actor.UserID); err != nil {
			return err
		}

		current, err := tx.GetReport(ctx, reportID)
		if err != nil {
			return err
		}
		if err := rejectOpenPickup(ctx, tx, reportID, actor.UserID); err != nil {
			return err
		}
		if !assignedTo(current, actor.UserID) {
			return &models.NotAssignedError{ReportID: reportID, CollectorID: actor.UserID}
		}

		now := s.now().Unix()
		report, err = applyTransition(ctx, tx, current, models.TransitionStartPickup, models.StatusUpdate{Now: now})
		if err != nil {
			var stale *models.StaleStateError
			if errors.As(err, &stale) {
				// Lost a race with a concurrent start by the same collector
				if dupErr := rejectOpenPickup(ctx, tx, reportID, actor.UserID); dupErr != nil {
					return dupErr
				}
			}
			return err
		}

		pickup = &models.PickupLog{
			ID:          s.newID(),
			ReportID:    reportID,
			CollectorID: actor.UserID,
			Status:      models.PickupStatusStarted,
			StartTime:   now,
			CreatedAt:   now,
		}
		return tx.CreatePickupLog(ctx, pickup)
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Emit(s.event(EventPickupStarted, report, pickup.ID))
	return pickup, nil
}

// CompletePickup closes the open log as completed and marks the report
// collected, copying the confirmed quantity, type and notes onto it.
func (s *LifecycleService) CompletePickup(ctx context.Context, actor Actor, logID string, req models.CompletePickupRequest) (*models.Report, *models.PickupLog, error) {
	if err := requireRole(actor, models.RoleCollector); err != nil {
		return nil, nil, err
	}
	if req.ActualQuantity != nil && *req.ActualQuantity < 0 {
		return nil, nil, &models.ValidationError{Field: "actual_quantity", Message: "must not be negative"}
	}

	var (
		report *models.Report
		pickup *models.PickupLog
	)
	err := s.store.InTx(ctx, func(tx ports.Store) error {
		open, err := ownOpenPickup(ctx, tx, logID, actor.UserID)
		if err != nil {
			return err
		}
		current, err := tx.GetReport(ctx, open.ReportID)
		if err != nil {
			return err
		}
		// An old log must not close a report that was reassigned after a revert
		if current.Status != models.ReportStatusInProgress || !assignedTo(current, actor.UserID) {
			return &models.StaleStateError{
				Resource: "report",
				ID:       current.ID,
				Expected: "in_progress for " + actor.UserID,
				Actual:   string(current.Status),
			}
		}
		if _, err := requireActiveCollector(ctx, tx, actor.UserID); err != nil {
			return err
		}

		now := s.now().Unix()
		report, err = applyTransition(ctx, tx, current, models.TransitionCompletePickup, models.StatusUpdate{
			Now:                now,
			ActualQuantity:     req.ActualQuantity,
			ConfirmedWasteType: req.ConfirmedWasteType,
			CollectorNotes:     req.Notes,
		})
		if err != nil {
			return err
		}

		pickup, err = tx.ClosePickupLog(ctx, models.PickupClose{
			LogID:              logID,
			Outcome:            models.PickupStatusCompleted,
			EndTime:            now,
			ActualQuantity:     req.ActualQuantity,
			ConfirmedWasteType: req.ConfirmedWasteType,
			Notes:              req.Notes,
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.dispatcher.Emit(s.event(EventPickupCompleted, report, pickup.ID),
		Push{UserID: report.ReporterID, Template: TemplateReportCollected, Params: reportParams(report)},
	)
	return report, pickup, nil
}

// FailPickup closes the open log as failed. The report goes back to
// assigned when it is still in progress for this collector; a report that
// has already moved on (reverted or cancelled) is left as it is.
func (s *LifecycleService) FailPickup(ctx context.Context, actor Actor, logID, reason string) (*models.PickupLog, *models.Report, error) {
	if err := requireRole(actor, models.RoleCollector); err != nil {
		return nil, nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, nil, &models.ValidationError{Field: "reason", Message: "is required"}
	}

	var (
		report *models.Report
		pickup *models.PickupLog
	)
	err := s.store.InTx(ctx, func(tx ports.Store) error {
		open, err := ownOpenPickup(ctx, tx, logID, actor.UserID)
		if err != nil {
			return err
		}

		now := s.now().Unix()
		pickup, err = tx.ClosePickupLog(ctx, models.PickupClose{
			LogID:         logID,
			Outcome:       models.PickupStatusFailed,
			EndTime:       now,
			FailureReason: &reason,
		})
		if err != nil {
			return err
		}

		report, err = tx.GetReport(ctx, open.ReportID)
		if err != nil {
			return err
		}
		if report.Status != models.ReportStatusInProgress || !assignedTo(report, actor.UserID) {
			log.Printf("⚠️  Pickup %s failed on report %s which is already %s", logID, report.ID, report.Status)
			return nil
		}
		report, err = applyTransition(ctx, tx, report, models.TransitionFailPickup, models.StatusUpdate{Now: now})
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.dispatcher.Emit(s.event(EventPickupFailed, report, pickup.ID))
	return pickup, report, nil
}

// ResolveReport confirms a collected report
func (s *LifecycleService) ResolveReport(ctx context.Context, actor Actor, reportID string) (*models.Report, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}

	var updated *models.Report
	err := s.store.InTx(ctx, func(tx ports.Store) error {
		report, err := tx.GetReport(ctx, reportID)
		if err != nil {
			return err
		}
		updated, err = applyTransition(ctx, tx, report, models.TransitionResolve, models.StatusUpdate{Now: s.now().Unix()})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Emit(s.event(EventReportResolved, updated, ""))
	return updated, nil
}

// CancelReport moves any non-terminal report to cancelled. Admins may cancel
// any report, citizens only their own. Open pickup logs are closed as failed
// and the assignment is cleared.
func (s *LifecycleService) CancelReport(ctx context.Context, actor Actor, reportID string) (*models.Report, error) {
	var (
		updated   *models.Report
		collector string
	)
	err := s.store.InTx(ctx, func(tx ports.Store) error {
		report, err := tx.GetReport(ctx, reportID)
		if err != nil {
			return err
		}
		if actor.Role != models.RoleAdmin && report.ReporterID != actor.UserID {
			return &models.InvalidRoleError{UserID: actor.UserID, Role: actor.Role, Want: models.RoleAdmin}
		}
		if report.AssignedCollectorID != nil {
			collector = *report.AssignedCollectorID
		}

		now := s.now().Unix()
		updated, err = applyTransition(ctx, tx, report, models.TransitionCancel, models.StatusUpdate{
			Now:             now,
			ClearAssignment: true,
		})
		if err != nil {
			return err
		}

		open, err := tx.FindOpenPickupLogsByReport(ctx, reportID)
		if err != nil {
			return err
		}
		for _, pl := range open {
			reason := cancelledPickupReason
			if _, err := tx.ClosePickupLog(ctx, models.PickupClose{
				LogID:         pl.ID,
				Outcome:       models.PickupStatusFailed,
				EndTime:       now,
				FailureReason: &reason,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := s.event(EventReportCancelled, updated, "")
	event.CollectorID = collector
	if collector != "" {
		s.dispatcher.Emit(event, Push{UserID: collector, Template: TemplateReportCancelled, Params: reportParams(updated)})
	} else {
		s.dispatcher.Emit(event)
	}
	return updated, nil
}

// DeactivateCollector disables a collector and returns their assigned and
// in-progress reports to the pending pool. Their open pickup logs stay open.
func (s *LifecycleService) DeactivateCollector(ctx context.Context, actor Actor, collectorID string) (int, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return 0, err
	}

	var (
		reverted []models.Report
		count    int
	)
	err := s.store.InTx(ctx, func(tx ports.Store) error {
		user, err := tx.GetUser(ctx, collectorID)
		if err != nil {
			return err
		}
		if user.Role != models.RoleCollector {
			return &models.InvalidRoleError{UserID: collectorID, Role: user.Role, Want: models.RoleCollector}
		}

		reverted, err = tx.FindReportsByCollectorAndStatus(ctx, collectorID, models.OpenStatuses)
		if err != nil {
			return err
		}
		count, err = tx.DeactivateCollectorCascade(ctx, collectorID, s.now().Unix())
		return err
	})
	if err != nil {
		return 0, err
	}

	for i := range reverted {
		r := reverted[i]
		r.Status = models.ReportStatusPending
		event := s.event(EventReportReverted, &r, "")
		event.CollectorID = collectorID
		s.dispatcher.Emit(event)
	}
	return count, nil
}

// GetPickupLog returns a log to its collector or to an admin
func (s *LifecycleService) GetPickupLog(ctx context.Context, actor Actor, logID string) (*models.PickupLog, error) {
	pl, err := s.store.GetPickupLog(ctx, logID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && pl.CollectorID != actor.UserID {
		return nil, &models.NotFoundError{Resource: "pickup log", ID: logID}
	}
	return pl, nil
}

func (s *LifecycleService) event(eventType string, r *models.Report, pickupLogID string) LifecycleEvent {
	event := LifecycleEvent{
		Type:        eventType,
		ReportID:    r.ID,
		Status:      r.Status,
		ReporterID:  r.ReporterID,
		PickupLogID: pickupLogID,
		Timestamp:   s.now().Unix(),
	}
	if r.AssignedCollectorID != nil {
		event.CollectorID = *r.AssignedCollectorID
	}
	return event
}

// applyTransition checks t against the report's current status and writes it
// guarded by that status
func applyTransition(ctx context.Context, tx ports.Store, report *models.Report, t models.Transition, u models.StatusUpdate) (*models.Report, error) {
	to, ok := t.Target(report.Status)
	if !ok {
		return nil, &models.StaleStateError{
			Resource: "report",
			ID:       report.ID,
			Expected: expectedFrom[t],
			Actual:   string(report.Status),
		}
	}
	u.ReportID = report.ID
	u.From = report.Status
	u.To = to
	return tx.UpdateReportStatus(ctx, u)
}

func rejectOpenPickup(ctx context.Context, tx ports.Store, reportID, collectorID string) error {
	open, err := tx.FindOpenPickupLog(ctx, reportID, collectorID)
	if err != nil {
		return err
	}
	if open != nil {
		return &models.DuplicateActiveLogError{ReportID: reportID, CollectorID: collectorID, LogID: open.ID}
	}
	return nil
}

// ownOpenPickup loads a log that must be open and belong to the collector
func ownOpenPickup(ctx context.Context, tx ports.Store, logID, collectorID string) (*models.PickupLog, error) {
	pl, err := tx.GetPickupLog(ctx, logID)
	if err != nil {
		return nil, err
	}
	if pl.CollectorID != collectorID {
		return nil, &models.NotAssignedError{ReportID: pl.ReportID, CollectorID: collectorID}
	}
	if !pl.IsOpen() {
		return nil, &models.StaleStateError{
			Resource: "pickup log",
			ID:       logID,
			Expected: string(models.PickupStatusStarted),
			Actual:   string(pl.Status),
		}
	}
	return pl, nil
}

func assignedTo(r *models.Report, collectorID string) bool {
	return r.AssignedCollectorID != nil && *r.AssignedCollectorID == collectorID
}

func requireRole(actor Actor, want models.Role) error {
	if actor.Role != want {
		return &models.InvalidRoleError{UserID: actor.UserID, Role: actor.Role, Want: want}
	}
	return nil
}

func reportParams(r *models.Report) map[string]string {
	params := map[string]string{
		"report_id": r.ID,
		"status":    string(r.Status),
		"urgency":   string(r.Urgency),
	}
	if r.Address != nil {
		params["address"] = *r.Address
	}
	if r.WasteType != "" {
		params["waste_type"] = r.WasteType
	}
	return params
}
