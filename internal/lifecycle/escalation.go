package lifecycle

import (
	"time"

	"github.com/spec-kit/request-tracker/internal/domain"
)

// EscalationThreshold is how long past its due date a request may sit before
// the sweep promotes it. The comparison is strict.
const EscalationThreshold = 72 * time.Hour

const day = 24 * time.Hour

// ShouldEscalate reports whether req must be promoted to Critical at now.
func ShouldEscalate(req *domain.Request, now time.Time) bool {
	if req == nil || req.Status == domain.StatusDone || req.Priority == domain.PriorityCritical {
		return false
	}
	return now.Sub(req.DueDate) > EscalationThreshold
}

// DaysOverdue returns the whole days elapsed since the due date, or 0 when not yet due.
func DaysOverdue(req *domain.Request, now time.Time) int {
	overdue := now.Sub(req.DueDate)
	if overdue <= 0 {
		return 0
	}
	return int(overdue / day)
}
