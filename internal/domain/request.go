package domain

import (
	"fmt"
	"time"
)

// Status enumerates lifecycle states for work requests.
type Status string

const (
	StatusOpen       Status = "Open"
	StatusInProgress Status = "In Progress"
	StatusBlocked    Status = "Blocked"
	StatusDone       Status = "Done"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusOpen, StatusInProgress, StatusBlocked, StatusDone}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusBlocked, StatusDone:
		return true
	}
	return false
}

// Terminal reports whether no further status change may leave s.
func (s Status) Terminal() bool {
	return s == StatusDone
}

// ParseStatus converts a wire value into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}

// Priority enumerates request urgency.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// Rank orders priorities by severity; unknown values rank below Low.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityCritical:
		return 4
	}
	return 0
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// ParsePriority converts a wire value into a Priority.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(raw)
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q", raw)
	}
	return p, nil
}

// DateLayout is the wire format of due dates.
const DateLayout = "2006-01-02"

// Request is the aggregate tracked through the lifecycle engine.
type Request struct {
	ID              string
	Title           string
	Description     string
	Status          Status
	Priority        Priority
	DueDate         time.Time
	AssignedAgentID *string
	Tags            []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	// Version is bumped by the store on every successful save.
	Version int64
}

// Assigned reports whether an agent owns the request.
func (r *Request) Assigned() bool {
	return r.AssignedAgentID != nil && *r.AssignedAgentID != ""
}

// Clone returns a deep copy safe to mutate.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	out := *r
	if r.AssignedAgentID != nil {
		id := *r.AssignedAgentID
		out.AssignedAgentID = &id
	}
	if r.Tags != nil {
		out.Tags = append([]string(nil), r.Tags...)
	}
	return &out
}
