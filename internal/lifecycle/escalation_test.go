package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/request-tracker/internal/domain"
)

var sweepNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func dueBefore(d time.Duration, status domain.Status, priority domain.Priority) *domain.Request {
	return &domain.Request{
		ID:       "r",
		Status:   status,
		Priority: priority,
		DueDate:  sweepNow.Add(-d),
	}
}

func TestShouldEscalateBoundaryIsStrict(t *testing.T) {
	assert.False(t, ShouldEscalate(dueBefore(72*time.Hour, domain.StatusOpen, domain.PriorityHigh), sweepNow))
	assert.True(t, ShouldEscalate(dueBefore(72*time.Hour+time.Second, domain.StatusOpen, domain.PriorityHigh), sweepNow))
}

func TestShouldEscalateIgnoresCriticalAndDone(t *testing.T) {
	for _, overdue := range []time.Duration{73 * time.Hour, 30 * 24 * time.Hour, 10 * 365 * 24 * time.Hour} {
		assert.False(t, ShouldEscalate(dueBefore(overdue, domain.StatusOpen, domain.PriorityCritical), sweepNow))
		assert.False(t, ShouldEscalate(dueBefore(overdue, domain.StatusDone, domain.PriorityLow), sweepNow))
		assert.True(t, ShouldEscalate(dueBefore(overdue, domain.StatusBlocked, domain.PriorityLow), sweepNow))
	}
}

func TestShouldEscalateFutureDueDate(t *testing.T) {
	assert.False(t, ShouldEscalate(dueBefore(-48*time.Hour, domain.StatusOpen, domain.PriorityLow), sweepNow))
	assert.False(t, ShouldEscalate(nil, sweepNow))
}

func TestDaysOverdue(t *testing.T) {
	cases := []struct {
		overdue time.Duration
		want    int
	}{
		{-time.Hour, 0},
		{0, 0},
		{23 * time.Hour, 0},
		{72*time.Hour + time.Second, 3},
		{4*24*time.Hour + 11*time.Hour, 4},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DaysOverdue(dueBefore(tc.overdue, domain.StatusOpen, domain.PriorityLow), sweepNow), tc.overdue.String())
	}
}
