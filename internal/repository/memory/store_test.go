package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/request-tracker/internal/domain"
	"github.com/spec-kit/request-tracker/internal/repository"
)

func newRequest(id string, status domain.Status, created time.Time) *domain.Request {
	return &domain.Request{
		ID:        id,
		Title:     "title " + id,
		Status:    status,
		Priority:  domain.PriorityMedium,
		DueDate:   created,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestSaveRequestComparesVersion(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Requests.Create(ctx, newRequest("r1", domain.StatusOpen, base)))

	first, err := store.Requests.GetRequest(ctx, "r1")
	require.NoError(t, err)
	second, err := store.Requests.GetRequest(ctx, "r1")
	require.NoError(t, err)

	first.Status = domain.StatusInProgress
	require.NoError(t, store.Requests.SaveRequest(ctx, first, 1))
	assert.Equal(t, int64(2), first.Version)

	second.Priority = domain.PriorityCritical
	err = store.Requests.SaveRequest(ctx, second, 1)
	assert.ErrorIs(t, err, repository.ErrVersionConflict)

	stored, err := store.Requests.GetRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, stored.Status)
	assert.Equal(t, domain.PriorityMedium, stored.Priority)
}

func TestSaveUnknownRequest(t *testing.T) {
	store := NewStore()
	err := store.Requests.SaveRequest(context.Background(), newRequest("missing", domain.StatusOpen, time.Now()), 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSaveRequestRequiresExistingAgent(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Requests.Create(ctx, newRequest("r1", domain.StatusOpen, time.Now())))
	require.NoError(t, store.Agents.Create(ctx, &domain.Agent{ID: "agent-1", Name: "John Doe", Role: domain.RoleAgent}))
	require.NoError(t, store.Agents.Delete(ctx, "agent-1"))

	req, err := store.Requests.GetRequest(ctx, "r1")
	require.NoError(t, err)
	agentID := "agent-1"
	req.AssignedAgentID = &agentID

	assert.ErrorIs(t, store.Requests.SaveRequest(ctx, req, 1), repository.ErrAgentNotFound)
	stored, err := store.Requests.GetRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, stored.AssignedAgentID)
	assert.Equal(t, int64(1), stored.Version)
}

func TestReturnedRequestsAreCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Requests.Create(ctx, newRequest("r1", domain.StatusOpen, time.Now())))

	got, err := store.Requests.GetRequest(ctx, "r1")
	require.NoError(t, err)
	got.Status = domain.StatusBlocked

	again, err := store.Requests.GetRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, again.Status)
}

func TestListActiveSkipsDone(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Requests.Create(ctx, newRequest("open", domain.StatusOpen, base)))
	require.NoError(t, store.Requests.Create(ctx, newRequest("done", domain.StatusDone, base.Add(time.Hour))))
	require.NoError(t, store.Requests.Create(ctx, newRequest("blocked", domain.StatusBlocked, base.Add(2*time.Hour))))

	active, err := store.Requests.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "open", active[0].ID)
	assert.Equal(t, "blocked", active[1].ID)

	all, err := store.Requests.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "blocked", all[0].ID)
}

func TestDeleteCascadesComments(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Requests.Create(ctx, newRequest("r1", domain.StatusOpen, time.Now())))
	require.NoError(t, store.Comments.AppendComment(ctx, &domain.Comment{ID: "c1", RequestID: "r1", Text: "hi"}))

	require.NoError(t, store.Requests.Delete(ctx, "r1"))
	comments, err := store.Comments.ListByRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, comments)
	assert.ErrorIs(t, store.Requests.Delete(ctx, "r1"), repository.ErrNotFound)
}

func TestCommentsOrderedOldestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Requests.Create(ctx, newRequest("r1", domain.StatusOpen, base)))
	require.NoError(t, store.Comments.AppendComment(ctx, &domain.Comment{ID: "late", RequestID: "r1", CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, store.Comments.AppendComment(ctx, &domain.Comment{ID: "early", RequestID: "r1", CreatedAt: base}))

	comments, err := store.Comments.ListByRequest(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "early", comments[0].ID)
}

func TestAgentDeleteGuard(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	agentID := "agent-1"
	require.NoError(t, store.Agents.Create(ctx, &domain.Agent{ID: agentID, Name: "John Doe", Role: domain.RoleAgent}))

	req := newRequest("r1", domain.StatusInProgress, time.Now())
	req.AssignedAgentID = &agentID
	require.NoError(t, store.Requests.Create(ctx, req))

	assert.ErrorIs(t, store.Agents.Delete(ctx, agentID), repository.ErrAgentInUse)

	req.Status = domain.StatusDone
	require.NoError(t, store.Requests.SaveRequest(ctx, req, 1))
	assert.NoError(t, store.Agents.Delete(ctx, agentID))
	assert.ErrorIs(t, store.Agents.Delete(ctx, agentID), repository.ErrNotFound)
}
