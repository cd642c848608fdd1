package lifecycle

import "github.com/spec-kit/request-tracker/internal/domain"

// allowedTransitions is the complete status graph. Statuses missing from a
// row are unreachable from it; Done has no outgoing edges.
var allowedTransitions = map[domain.Status][]domain.Status{
	domain.StatusOpen:       {domain.StatusInProgress, domain.StatusBlocked},
	domain.StatusInProgress: {domain.StatusDone, domain.StatusBlocked},
	domain.StatusBlocked:    {domain.StatusInProgress},
	domain.StatusDone:       {},
}

// IsLegal reports whether a request may move from current to requested.
// Self-loops and unknown statuses are never legal.
func IsLegal(current, requested domain.Status) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == requested {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable from current in one step.
func AllowedTransitions(current domain.Status) []domain.Status {
	return append([]domain.Status{}, allowedTransitions[current]...)
}

// CanEnterDone reports whether a request with the given assignee may be marked Done.
func CanEnterDone(assignedAgentID *string) bool {
	return assignedAgentID != nil && *assignedAgentID != ""
}
