package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/request-tracker/internal/api/http/handlers"
	"github.com/spec-kit/request-tracker/internal/auth"
	"github.com/spec-kit/request-tracker/internal/config"
	"github.com/spec-kit/request-tracker/internal/events"
	"github.com/spec-kit/request-tracker/internal/lifecycle"
	"github.com/spec-kit/request-tracker/internal/observability"
	"github.com/spec-kit/request-tracker/internal/repository/memory"
	"github.com/spec-kit/request-tracker/internal/service"
)

type testServer struct {
	app   *fiber.App
	store *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	store := memory.NewStore()
	dispatcher := events.NewInMemoryDispatcher()

	engine := lifecycle.NewEngine(lifecycle.Dependencies{
		Requests:   store.Requests,
		Comments:   store.Comments,
		Agents:     store.Agents,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	agentService := service.NewAgentService(store.Agents, logger)
	_, err := agentService.SeedDemoAgents(context.Background())
	require.NoError(t, err)
	requestService := service.NewRequestService(service.RequestDependencies{
		RequestRepo: store.Requests,
		CommentRepo: store.Comments,
		AgentRepo:   store.Agents,
		Engine:      engine,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	authService := service.NewAuthService(config.AuthConfig{JWTSecret: "test", AccessTokenTTLMinutes: 5}, store.Agents)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler(handlers.HealthConfig{ServiceName: "request-tracker", Version: "test", StoreName: "memory"}),
		Auth:           handlers.NewAuthHandler(authService),
		Requests:       handlers.NewRequestsHandler(requestService),
		Agents:         handlers.NewAgentsHandler(agentService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), store.Agents),
		Metrics:        metrics,
	})
	return &testServer{app: app, store: store}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &env)
	}
	return resp.StatusCode, env
}

func (s *testServer) token(t *testing.T, agentID string) string {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/auth/token", "", map[string]string{"agentId": agentID})
	require.Equal(t, http.StatusCreated, status)
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out.Token
}

type requestBody struct {
	ID              string  `json:"id"`
	Status          string  `json:"status"`
	Priority        string  `json:"priority"`
	DueDate         string  `json:"dueDate"`
	AssignedAgentID *string `json:"assignedAgentId"`
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestRequestLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	token := srv.token(t, "agent-2")

	status, env := srv.do(t, http.MethodPost, "/api/requests", token, map[string]any{
		"title":   "Laptop will not boot",
		"dueDate": time.Now().UTC().AddDate(0, 0, 7).Format("2006-01-02"),
	})
	require.Equal(t, http.StatusCreated, status)
	created := decode[requestBody](t, env.Data)
	assert.Equal(t, "Open", created.Status)
	assert.Equal(t, "Medium", created.Priority)

	status, _ = srv.do(t, http.MethodPut, "/api/requests/"+created.ID+"/status", token, map[string]string{"status": "In Progress"})
	require.Equal(t, http.StatusOK, status)

	status, env = srv.do(t, http.MethodPut, "/api/requests/"+created.ID+"/status", token, map[string]string{"status": "Done"})
	assert.Equal(t, http.StatusConflict, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNASSIGNED_DONE_REJECTED", env.Error.Code)

	status, _ = srv.do(t, http.MethodPut, "/api/requests/"+created.ID+"/assign", token, map[string]string{"agentId": "agent-2"})
	require.Equal(t, http.StatusOK, status)
	status, env = srv.do(t, http.MethodPut, "/api/requests/"+created.ID+"/status", token, map[string]string{"status": "Done"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Done", decode[requestBody](t, env.Data).Status)

	status, env = srv.do(t, http.MethodPut, "/api/requests/"+created.ID+"/status", token, map[string]string{"status": "Blocked"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "TERMINAL", env.Error.Code)

	status, env = srv.do(t, http.MethodGet, "/api/requests/"+created.ID+"/comments", token, nil)
	require.Equal(t, http.StatusOK, status)
	comments := decode[[]map[string]any](t, env.Data)
	require.Len(t, comments, 3)
	assert.Equal(t, "Status update", comments[0]["type"])
	assert.Equal(t, "Bob Smith", comments[0]["author"])
}

func TestStatusValidationOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	token := srv.token(t, "agent-2")

	status, env := srv.do(t, http.MethodPut, "/api/requests/nope/status", token, map[string]string{"status": "InProgress"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	assert.Contains(t, env.Error.Details, "status")

	status, env = srv.do(t, http.MethodPut, "/api/requests/nope/status", token, map[string]string{"status": "In Progress"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestCheckEscalationsOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	token := srv.token(t, "agent-1")

	status, env := srv.do(t, http.MethodPost, "/api/requests", token, map[string]any{
		"title":    "Overdue badge",
		"priority": "High",
		"dueDate":  time.Now().UTC().AddDate(0, 0, -10).Format("2006-01-02"),
	})
	require.Equal(t, http.StatusCreated, status)
	created := decode[requestBody](t, env.Data)

	status, env = srv.do(t, http.MethodPost, "/api/requests/check-escalations", token, nil)
	require.Equal(t, http.StatusOK, status)
	sweep := decode[struct {
		Escalated []string `json:"escalated"`
		Count     int      `json:"count"`
		Failures  []any    `json:"failures"`
	}](t, env.Data)
	assert.Equal(t, []string{created.ID}, sweep.Escalated)
	assert.Equal(t, 1, sweep.Count)
	assert.Empty(t, sweep.Failures)

	status, env = srv.do(t, http.MethodGet, "/api/requests/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Critical", decode[requestBody](t, env.Data).Priority)

	status, env = srv.do(t, http.MethodGet, "/api/requests/check-escalations", token, nil)
	require.Equal(t, http.StatusOK, status)
	again := decode[struct {
		Escalated []string `json:"escalated"`
		Count     int      `json:"count"`
	}](t, env.Data)
	assert.Empty(t, again.Escalated)
	assert.Zero(t, again.Count)
}

func TestTransitionsOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	token := srv.token(t, "agent-2")

	_, env := srv.do(t, http.MethodPost, "/api/requests", token, map[string]any{
		"title":   "Blocked on vendor",
		"dueDate": "2030-01-01",
	})
	created := decode[requestBody](t, env.Data)

	status, env := srv.do(t, http.MethodGet, "/api/requests/"+created.ID+"/transitions", token, nil)
	require.Equal(t, http.StatusOK, status)
	out := decode[struct {
		Current   string   `json:"current"`
		Allowed   []string `json:"allowed"`
		CanFinish bool     `json:"canFinish"`
	}](t, env.Data)
	assert.Equal(t, "Open", out.Current)
	assert.Equal(t, []string{"In Progress", "Blocked"}, out.Allowed)
	assert.False(t, out.CanFinish)
}

func TestAuthAndRolesOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	status, env := srv.do(t, http.MethodGet, "/api/requests", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	status, _ = srv.do(t, http.MethodPost, "/auth/token", "", map[string]string{"agentId": "ghost"})
	assert.Equal(t, http.StatusNotFound, status)

	agentToken := srv.token(t, "agent-2")
	status, env = srv.do(t, http.MethodPost, "/api/agents", agentToken, map[string]string{"name": "Eve", "role": "Agent"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	status, _ = srv.do(t, http.MethodGet, "/api/agents", agentToken, nil)
	assert.Equal(t, http.StatusOK, status)

	adminToken := srv.token(t, "agent-1")
	status, _ = srv.do(t, http.MethodPost, "/api/agents", adminToken, map[string]string{"name": "Eve", "role": "Agent"})
	assert.Equal(t, http.StatusCreated, status)
}

func TestAgentDeleteGuardOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	admin := srv.token(t, "agent-1")

	status, env := srv.do(t, http.MethodPost, "/api/requests", admin, map[string]any{
		"title":           "Network drop",
		"dueDate":         "2030-01-01",
		"assignedAgentId": "agent-3",
	})
	require.Equal(t, http.StatusCreated, status)
	created := decode[requestBody](t, env.Data)
	assert.Equal(t, "Open", created.Status)

	status, env = srv.do(t, http.MethodGet, "/api/requests/"+created.ID+"/comments", admin, nil)
	require.Equal(t, http.StatusOK, status)
	comments := decode[[]struct {
		Text string `json:"text"`
	}](t, env.Data)
	require.Len(t, comments, 1)
	assert.Equal(t, "Assigned to Carol Davis by Alice Johnson", comments[0].Text)

	status, env = srv.do(t, http.MethodDelete, "/api/agents/agent-3", admin, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	status, _ = srv.do(t, http.MethodDelete, "/api/agents/agent-4", admin, nil)
	assert.Equal(t, http.StatusNoContent, status)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	status, _ := srv.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = srv.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)

	resp, err := srv.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	srv := newTestServer(t)

	status, env := srv.do(t, http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}
