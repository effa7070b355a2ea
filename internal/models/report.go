package models

import (
	"github.com/paulmach/orb"
)

// ReportStatus is the lifecycle state of a waste report
type ReportStatus string

const (
	ReportStatusPending    ReportStatus = "pending"     // Submitted, no collector yet
	ReportStatusAssigned   ReportStatus = "assigned"    // Collector assigned, pickup not started
	ReportStatusInProgress ReportStatus = "in_progress" // Collector on site
	ReportStatusCollected  ReportStatus = "collected"   // Pickup completed, awaiting admin confirmation
	ReportStatusResolved   ReportStatus = "resolved"    // Confirmed by admin
	ReportStatusCancelled  ReportStatus = "cancelled"
)

// OpenStatuses are the statuses a collector's route is built from
var OpenStatuses = []ReportStatus{ReportStatusAssigned, ReportStatusInProgress}

func (s ReportStatus) Valid() bool {
	switch s {
	case ReportStatusPending, ReportStatusAssigned, ReportStatusInProgress,
		ReportStatusCollected, ReportStatusResolved, ReportStatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true for statuses that accept no further transitions
func (s ReportStatus) IsTerminal() bool {
	return s == ReportStatusResolved || s == ReportStatusCancelled
}

// HoldsAssignment reports whether a report in this status must carry an assigned collector
func (s ReportStatus) HoldsAssignment() bool {
	switch s {
	case ReportStatusAssigned, ReportStatusInProgress, ReportStatusCollected, ReportStatusResolved:
		return true
	}
	return false
}

// Transition is a named edge of the report state machine
type Transition string

const (
	TransitionAssign         Transition = "assign"          // pending -> assigned
	TransitionStartPickup    Transition = "start_pickup"    // assigned -> in_progress
	TransitionCompletePickup Transition = "complete_pickup" // in_progress -> collected
	TransitionFailPickup     Transition = "fail_pickup"     // in_progress -> assigned
	TransitionResolve        Transition = "resolve"         // collected -> resolved
	TransitionCancel         Transition = "cancel"          // any non-terminal -> cancelled
	TransitionRevert         Transition = "revert"          // assigned|in_progress -> pending
)

// Target returns the status reached by applying t to from, and false when
// the transition is not allowed out of that status.
func (t Transition) Target(from ReportStatus) (ReportStatus, bool) {
	switch t {
	case TransitionAssign:
		return ReportStatusAssigned, from == ReportStatusPending
	case TransitionStartPickup:
		return ReportStatusInProgress, from == ReportStatusAssigned
	case TransitionCompletePickup:
		return ReportStatusCollected, from == ReportStatusInProgress
	case TransitionFailPickup:
		return ReportStatusAssigned, from == ReportStatusInProgress
	case TransitionResolve:
		return ReportStatusResolved, from == ReportStatusCollected
	case TransitionCancel:
		return ReportStatusCancelled, from.Valid() && !from.IsTerminal()
	case TransitionRevert:
		return ReportStatusPending, from == ReportStatusAssigned || from == ReportStatusInProgress
	}
	return "", false
}

// Urgency ranks how quickly a report should be handled
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

func (u Urgency) Valid() bool {
	return u.Rank() > 0
}

// Rank orders urgencies from 1 (low) to 4 (critical); 0 means unknown
func (u Urgency) Rank() int {
	switch u {
	case UrgencyLow:
		return 1
	case UrgencyMedium:
		return 2
	case UrgencyHigh:
		return 3
	case UrgencyCritical:
		return 4
	}
	return 0
}

// Report is a citizen-submitted waste location.
// Coordinates are kept as separate columns and exposed in (lng, lat) order.
type Report struct {
	ID                  string       `db:"id"`
	ReporterID          string       `db:"reporter_id"`
	AssignedCollectorID *string      `db:"assigned_collector_id"`
	Longitude           float64      `db:"longitude"`
	Latitude            float64      `db:"latitude"`
	Address             *string      `db:"address"`
	Status              ReportStatus `db:"status"`
	Urgency             Urgency      `db:"urgency"`

	// Payload, not used by routing
	WasteType            string   `db:"waste_type"`
	ClassifierConfidence *float64 `db:"classifier_confidence"`
	Description          string   `db:"description"`
	EstimatedQuantity    *float64 `db:"estimated_quantity"`
	ImageFilename        *string  `db:"image_filename"`

	// Mirrored from the completed pickup log
	ActualQuantity     *float64 `db:"actual_quantity"`
	ConfirmedWasteType *string  `db:"confirmed_waste_type"`
	CollectorNotes     *string  `db:"collector_notes"`

	CreatedAt   int64  `db:"created_at"`
	AssignedAt  *int64 `db:"assigned_at"`
	CollectedAt *int64 `db:"collected_at"`
	ResolvedAt  *int64 `db:"resolved_at"`
	CancelledAt *int64 `db:"cancelled_at"`
	UpdatedAt   int64  `db:"updated_at"`
}

// Location returns the report position as an (lng, lat) point
func (r *Report) Location() orb.Point {
	return orb.Point{r.Longitude, r.Latitude}
}

type ReportResponse struct {
	ID                   string       `json:"id"`
	ReporterID           string       `json:"reporter_id"`
	AssignedCollectorID  *string      `json:"assigned_collector_id"`
	Location             orb.Point    `json:"location"` // [lng, lat]
	Address              *string      `json:"address,omitempty"`
	Status               ReportStatus `json:"status"`
	Urgency              Urgency      `json:"urgency"`
	WasteType            string       `json:"waste_type"`
	ClassifierConfidence *float64     `json:"classifier_confidence,omitempty"`
	Description          string       `json:"description"`
	EstimatedQuantity    *float64     `json:"estimated_quantity,omitempty"`
	ImageFilename        *string      `json:"image_filename,omitempty"`
	ActualQuantity       *float64     `json:"actual_quantity,omitempty"`
	ConfirmedWasteType   *string      `json:"confirmed_waste_type,omitempty"`
	CollectorNotes       *string      `json:"collector_notes,omitempty"`
	CreatedAt            int64        `json:"created_at"`
	AssignedAt           *int64       `json:"assigned_at,omitempty"`
	CollectedAt          *int64       `json:"collected_at,omitempty"`
	ResolvedAt           *int64       `json:"resolved_at,omitempty"`
	CancelledAt          *int64       `json:"cancelled_at,omitempty"`
}

func (r *Report) ToReportResponse() ReportResponse {
	return ReportResponse{
		ID:                   r.ID,
		ReporterID:           r.ReporterID,
		AssignedCollectorID:  r.AssignedCollectorID,
		Location:             r.Location(),
		Address:              r.Address,
		Status:               r.Status,
		Urgency:              r.Urgency,
		WasteType:            r.WasteType,
		ClassifierConfidence: r.ClassifierConfidence,
		Description:          r.Description,
		EstimatedQuantity:    r.EstimatedQuantity,
		ImageFilename:        r.ImageFilename,
		ActualQuantity:       r.ActualQuantity,
		ConfirmedWasteType:   r.ConfirmedWasteType,
		CollectorNotes:       r.CollectorNotes,
		CreatedAt:            r.CreatedAt,
		AssignedAt:           r.AssignedAt,
		CollectedAt:          r.CollectedAt,
		ResolvedAt:           r.ResolvedAt,
		CancelledAt:          r.CancelledAt,
	}
}

// CreateReportRequest is the request body for POST /api/reports
type CreateReportRequest struct {
	Description       string     `json:"description"`
	WasteType         string     `json:"waste_type"`
	EstimatedQuantity *float64   `json:"estimated_quantity,omitempty"`
	Urgency           Urgency    `json:"urgency"`
	Location          *orb.Point `json:"location"` // [lng, lat]
	ImageFilename     *string    `json:"image_filename,omitempty"`
}

// AssignCollectorRequest is the request body for POST /api/admin/reports/{id}/assign
type AssignCollectorRequest struct {
	CollectorID string `json:"collector_id"`
}
