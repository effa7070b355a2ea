package models

// ReportSort selects the ordering of a report listing
type ReportSort int

const (
	SortCreatedAsc ReportSort = iota
	SortCreatedDesc
	// SortUrgency puts critical first, then oldest first within an urgency
	SortUrgency
)

// ReportQuery filters a report listing. Zero values mean "no filter".
type ReportQuery struct {
	ReporterID  string
	CollectorID string
	Statuses    []ReportStatus
	Urgency     Urgency
	Sort        ReportSort
	Limit       int
	Offset      int
}

// StatusUpdate applies one transition to a report. The update only succeeds
// while the report is still in From.
type StatusUpdate struct {
	ReportID string
	From     ReportStatus
	To       ReportStatus
	Now      int64

	// Assignment; ClearAssignment wins over AssignCollectorID
	AssignCollectorID *string
	ClearAssignment   bool

	// Pickup outcome mirrored onto the report
	ActualQuantity     *float64
	ConfirmedWasteType *string
	CollectorNotes     *string
}

// PickupClose closes an open pickup log with an outcome
type PickupClose struct {
	LogID              string
	Outcome            PickupStatus
	EndTime            int64
	ActualQuantity     *float64
	ConfirmedWasteType *string
	Notes              *string
	FailureReason      *string
}

// CollectorCounts is the aggregate read behind route statistics
type CollectorCounts struct {
	TotalOpen      int `db:"total_open"`
	AwaitingStart  int `db:"awaiting_start"`
	InProgress     int `db:"in_progress"`
	CompletedToday int `db:"completed_today"`
}
