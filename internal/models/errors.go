package models

import "fmt"

// NotFoundError is returned for unknown report, pickup log or user ids
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// InvalidRoleError is returned when a user does not hold the role an operation needs
type InvalidRoleError struct {
	UserID string
	Role   Role
	Want   Role
}

func (e *InvalidRoleError) Error() string {
	return fmt.Sprintf("user %s has role %q, expected %q", e.UserID, e.Role, e.Want)
}

// DuplicateActiveLogError is returned when a (report, collector) pair already has an open pickup log
type DuplicateActiveLogError struct {
	ReportID    string
	CollectorID string
	LogID       string
}

func (e *DuplicateActiveLogError) Error() string {
	if e.LogID == "" {
		return fmt.Sprintf("pickup already in progress for report %s by collector %s", e.ReportID, e.CollectorID)
	}
	return fmt.Sprintf("pickup %s already in progress for report %s by collector %s", e.LogID, e.ReportID, e.CollectorID)
}

// StaleStateError is returned when a transition targets a record that has already moved on
type StaleStateError struct {
	Resource string
	ID       string
	Expected string
	Actual   string
}

func (e *StaleStateError) Error() string {
	if e.Actual == "" {
		return fmt.Sprintf("%s %s is no longer %s", e.Resource, e.ID, e.Expected)
	}
	return fmt.Sprintf("%s %s is %s, expected %s", e.Resource, e.ID, e.Actual, e.Expected)
}

// InvalidGeometryError marks a coordinate that cannot be routed
type InvalidGeometryError struct {
	ReportID  string
	Longitude float64
	Latitude  float64
}

func (e *InvalidGeometryError) Error() string {
	if e.ReportID == "" {
		return fmt.Sprintf("invalid coordinate (%v, %v)", e.Longitude, e.Latitude)
	}
	return fmt.Sprintf("report %s has invalid coordinate (%v, %v)", e.ReportID, e.Longitude, e.Latitude)
}

// NotAssignedError is returned when a collector acts on a report assigned to someone else
type NotAssignedError struct {
	ReportID    string
	CollectorID string
}

func (e *NotAssignedError) Error() string {
	return fmt.Sprintf("report %s is not assigned to collector %s", e.ReportID, e.CollectorID)
}

// ValidationError is returned for malformed input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
