package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, s := range Statuses {
		got, err := ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseStatus("InProgress")
	assert.Error(t, err)
	_, err = ParseStatus("")
	assert.Error(t, err)
}

func TestPriorityRankIsTotallyOrdered(t *testing.T) {
	ordered := []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}
	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, ordered[i].Rank(), ordered[i-1].Rank())
	}
	assert.False(t, Priority("Urgent").Valid())
}

func TestCloneDoesNotShareAssignment(t *testing.T) {
	agent := "agent-1"
	req := &Request{ID: "r1", AssignedAgentID: &agent, Tags: []string{"a"}}

	cp := req.Clone()
	*cp.AssignedAgentID = "agent-2"
	cp.Tags[0] = "b"

	assert.Equal(t, "agent-1", *req.AssignedAgentID)
	assert.Equal(t, "a", req.Tags[0])
	assert.True(t, cp.Assigned())
	assert.False(t, (&Request{}).Assigned())
}
