package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCodeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("change status: %w", NewInvalidTransition("Blocked", "Done"))

	assert.True(t, HasCode(err, CodeInvalidTransition))
	assert.False(t, HasCode(err, CodeTerminal))
	assert.False(t, HasCode(errors.New("plain"), CodeInvalidTransition))
}

func TestInvalidTransitionNamesBothStatuses(t *testing.T) {
	err := NewInvalidTransition("Blocked", "Done")

	assert.Contains(t, err.Error(), "Blocked")
	assert.Contains(t, err.Error(), "Done")
}

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"domain error passes through", NewTerminal("r1"), CodeTerminal, http.StatusConflict},
		{"deadline is transient", context.DeadlineExceeded, CodeStoreUnavailable, http.StatusServiceUnavailable},
		{"unknown is internal", errors.New("boom"), CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDomainError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantStatus, got.HTTPStatus)
		})
	}
	assert.Nil(t, ToDomainError(nil))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(NewStoreUnavailable(errors.New("timeout"))))
	assert.False(t, IsTransient(NewConflict("stale", nil)))
}
