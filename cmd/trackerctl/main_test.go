package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/request-tracker/internal/domain"
	"github.com/spec-kit/request-tracker/internal/lifecycle"
)

func TestRenderSweep(t *testing.T) {
	var buf bytes.Buffer
	renderSweep(&buf, &lifecycle.SweepResult{
		Escalated: []string{"req-1"},
		Failures:  []lifecycle.SweepFailure{{RequestID: "req-2", Code: "STORE_UNAVAILABLE", Err: errors.New("timeout")}},
	})

	out := buf.String()
	assert.Contains(t, out, "req-1")
	assert.Contains(t, out, "escalated")
	assert.Contains(t, out, "STORE_UNAVAILABLE")
	assert.Contains(t, out, "timeout")
}

func TestRenderAgents(t *testing.T) {
	var buf bytes.Buffer
	renderAgents(&buf, []domain.Agent{{ID: "agent-1", Name: "Alice Johnson", Role: domain.RoleAdmin}})

	assert.Contains(t, buf.String(), "Alice Johnson")
	assert.Contains(t, buf.String(), "agent-1")
}
