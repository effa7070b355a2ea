package models

import "time"

// PickupStatus is the outcome of a single pickup attempt
type PickupStatus string

const (
	PickupStatusStarted   PickupStatus = "started"
	PickupStatusCompleted PickupStatus = "completed"
	PickupStatusFailed    PickupStatus = "failed"
)

// PickupLog records one collector's attempt to collect a report
type PickupLog struct {
	ID                 string       `json:"id" db:"id"`
	ReportID           string       `json:"report_id" db:"report_id"`
	CollectorID        string       `json:"collector_id" db:"collector_id"`
	Status             PickupStatus `json:"status" db:"status"`
	StartTime          int64        `json:"start_time" db:"start_time"`
	EndTime            *int64       `json:"end_time,omitempty" db:"end_time"`
	ActualQuantity     *float64     `json:"actual_quantity,omitempty" db:"actual_quantity"`
	ConfirmedWasteType *string      `json:"confirmed_waste_type,omitempty" db:"confirmed_waste_type"`
	Notes              *string      `json:"notes,omitempty" db:"notes"`
	FailureReason      *string      `json:"failure_reason,omitempty" db:"failure_reason"`
	CreatedAt          int64        `json:"created_at" db:"created_at"`
}

// IsOpen returns true while the attempt has no outcome
func (l *PickupLog) IsOpen() bool {
	return l.Status == PickupStatusStarted
}

// Duration is end - start, valid only once the log is closed
func (l *PickupLog) Duration() (time.Duration, bool) {
	if l.EndTime == nil {
		return 0, false
	}
	return time.Duration(*l.EndTime-l.StartTime) * time.Second, true
}

type PickupLogResponse struct {
	PickupLog
	DurationSeconds *int64 `json:"duration_seconds,omitempty"`
}

func (l *PickupLog) ToPickupLogResponse() PickupLogResponse {
	resp := PickupLogResponse{PickupLog: *l}
	if d, ok := l.Duration(); ok {
		secs := int64(d / time.Second)
		resp.DurationSeconds = &secs
	}
	return resp
}

// StartPickupRequest is the request body for POST /api/pickups/start
type StartPickupRequest struct {
	ReportID string `json:"report_id"`
}

// CompletePickupRequest is the request body for POST /api/pickups/{id}/complete
type CompletePickupRequest struct {
	ActualQuantity     *float64 `json:"actual_quantity,omitempty"`
	ConfirmedWasteType *string  `json:"confirmed_waste_type,omitempty"`
	Notes              *string  `json:"notes,omitempty"`
}

// FailPickupRequest is the request body for POST /api/pickups/{id}/fail
type FailPickupRequest struct {
	Reason string `json:"reason"`
}

// CompletePickupResponse carries both sides of a completed pickup
type CompletePickupResponse struct {
	Report    ReportResponse    `json:"report"`
	PickupLog PickupLogResponse `json:"pickup_log"`
}
