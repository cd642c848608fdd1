package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/request-tracker/internal/domain"
)

func TestIsLegalMatchesGraph(t *testing.T) {
	legal := map[[2]domain.Status]bool{
		{domain.StatusOpen, domain.StatusInProgress}:    true,
		{domain.StatusOpen, domain.StatusBlocked}:       true,
		{domain.StatusInProgress, domain.StatusDone}:    true,
		{domain.StatusInProgress, domain.StatusBlocked}: true,
		{domain.StatusBlocked, domain.StatusInProgress}: true,
	}

	for _, from := range domain.Statuses {
		for _, to := range domain.Statuses {
			want := legal[[2]domain.Status{from, to}]
			assert.Equal(t, want, IsLegal(from, to), "%s -> %s", from, to)
		}
	}
}

func TestIsLegalRejectsUnknownStatuses(t *testing.T) {
	assert.False(t, IsLegal("Archived", domain.StatusOpen))
	assert.False(t, IsLegal(domain.StatusOpen, "InProgress"))
}

func TestAllowedTransitionsReturnsCopy(t *testing.T) {
	next := AllowedTransitions(domain.StatusOpen)
	next[0] = domain.StatusDone

	assert.Equal(t, []domain.Status{domain.StatusInProgress, domain.StatusBlocked}, AllowedTransitions(domain.StatusOpen))
	assert.Empty(t, AllowedTransitions(domain.StatusDone))
}

func TestCanEnterDone(t *testing.T) {
	agent := "agent-1"
	empty := ""

	assert.True(t, CanEnterDone(&agent))
	assert.False(t, CanEnterDone(nil))
	assert.False(t, CanEnterDone(&empty))
}
