// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskVault Contributors

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/taskvault/taskvault/internal/auth"
	"github.com/taskvault/taskvault/internal/observability"
	"github.com/taskvault/taskvault/internal/task"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const goodToken = "Bearer good-token"

var (
	testUserID = uuid.MustParse("0190a6f4-8f0e-7c3a-9b1d-2f4e6a8c0b12")
	testNow    = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
)

type fakeAccounts struct {
	register func(ctx context.Context, email, password string) (*auth.User, error)
	login    func(ctx context.Context, email, password string) (*auth.LoginResult, error)
}

func (f *fakeAccounts) Register(ctx context.Context, email, password string) (*auth.User, error) {
	return f.register(ctx, email, password)
}

func (f *fakeAccounts) Login(ctx context.Context, email, password string) (*auth.LoginResult, error) {
	return f.login(ctx, email, password)
}

type fakeTasks struct {
	create func(userID uuid.UUID, in task.Input) (*task.Task, error)
	list   func(userID uuid.UUID, opts task.ListOptions) (*task.Page, error)
	get    func(userID uuid.UUID, id int64) (*task.Task, error)
	update func(userID uuid.UUID, id int64, in task.Input) (*task.Task, error)
	toggle func(userID uuid.UUID, id int64, completed *bool) (*task.Task, error)
	delete func(userID uuid.UUID, id int64) error
}

func (f *fakeTasks) Create(_ context.Context, userID uuid.UUID, in task.Input) (*task.Task, error) {
	return f.create(userID, in)
}

func (f *fakeTasks) List(_ context.Context, userID uuid.UUID, opts task.ListOptions) (*task.Page, error) {
	return f.list(userID, opts)
}

func (f *fakeTasks) Get(_ context.Context, userID uuid.UUID, id int64) (*task.Task, error) {
	return f.get(userID, id)
}

func (f *fakeTasks) Update(_ context.Context, userID uuid.UUID, id int64, in task.Input) (*task.Task, error) {
	return f.update(userID, id, in)
}

func (f *fakeTasks) Toggle(_ context.Context, userID uuid.UUID, id int64, completed *bool) (*task.Task, error) {
	return f.toggle(userID, id, completed)
}

func (f *fakeTasks) Delete(_ context.Context, userID uuid.UUID, id int64) error {
	return f.delete(userID, id)
}

// fakeResolver accepts goodToken and rejects everything else the way
// auth.Resolver does.
type fakeResolver struct{}

func (fakeResolver) Resolve(_ context.Context, header string) (*auth.User, error) {
	switch header {
	case goodToken:
		return &auth.User{ID: testUserID, Email: "ada@example.com"}, nil
	case "":
		return nil, oops.Code(auth.CodeHeaderMissing).Wrap(auth.ErrUnauthorized)
	default:
		return nil, oops.Code(auth.CodeTokenInvalid).Wrap(auth.ErrUnauthorized)
	}
}

type harness struct {
	server   *Server
	accounts *fakeAccounts
	tasks    *fakeTasks
	metrics  *observability.Metrics
}

func newHarness(t *testing.T, mutate ...func(*Options)) *harness {
	t.Helper()
	h := &harness{
		accounts: &fakeAccounts{},
		tasks:    &fakeTasks{},
		metrics:  observability.NewMetrics(prometheus.NewRegistry()),
	}
	opts := Options{
		Version:        "1.2.3",
		AllowedOrigins: []string{"http://localhost:3000", "https://*.example.com"},
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:        h.metrics,
	}
	for _, m := range mutate {
		m(&opts)
	}
	srv, err := New(opts, h.accounts, h.tasks, fakeResolver{})
	require.NoError(t, err)
	h.server = srv
	return h
}

func (h *harness) do(t *testing.T, method, target, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (h *harness) authed(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	return h.do(t, method, target, body, "Authorization", goodToken)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func detailOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[errorResponse](t, rec).Detail
}

func sampleTask(id int64) *task.Task {
	desc := "milk, eggs"
	return &task.Task{
		ID:          id,
		UserID:      testUserID,
		Title:       "Buy groceries",
		Description: &desc,
		CreatedAt:   testNow,
		UpdatedAt:   testNow,
	}
}

func TestRootAndHealth(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	root := decode[map[string]string](t, rec)
	assert.Equal(t, "TaskVault API", root["message"])
	assert.Equal(t, "1.2.3", root["version"])
	assert.Equal(t, "running", root["status"])

	rec = h.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, rec)["status"])
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/nope", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", detailOf(t, rec))
}

func TestRequestIDIsULID(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/health", "")
	assert.Len(t, rec.Header().Get("X-Request-ID"), 26)

	rec = h.do(t, http.MethodGet, "/health", "", "X-Request-ID", "caller-supplied")
	assert.Equal(t, "caller-supplied", rec.Header().Get("X-Request-ID"))
}

func TestNew_RejectsBadOriginPattern(t *testing.T) {
	_, err := New(Options{AllowedOrigins: []string{"https://[a-"}}, &fakeAccounts{}, &fakeTasks{}, fakeResolver{})
	require.Error(t, err)
}

func TestCORS(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name    string
		origin  string
		allowed bool
	}{
		{"exact origin", "http://localhost:3000", true},
		{"glob subdomain", "https://app.example.com", true},
		{"glob does not span labels", "https://a.b.example.com", false},
		{"other port", "http://localhost:4000", false},
		{"unrelated", "https://evil.test", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(t, http.MethodOptions, "/api/tasks", "",
				"Origin", tt.origin,
				"Access-Control-Request-Method", http.MethodPost,
				"Access-Control-Request-Headers", "Authorization, Content-Type",
			)
			if !tt.allowed {
				assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
				return
			}
			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, tt.origin, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
			assert.Equal(t, "Authorization, Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
		})
	}
}

func TestCORS_Wildcard(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.AllowedOrigins = []string{"*"} })

	rec := h.do(t, http.MethodGet, "/health", "", "Origin", "https://a.b.anything.test")

	assert.Equal(t, "https://a.b.anything.test", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStartStop(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Addr = "127.0.0.1:0" })

	errCh, err := h.server.Start()
	require.NoError(t, err)
	_, err = h.server.Start()
	require.Error(t, err, "second start must fail")

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + h.server.Addr() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.server.Stop(ctx))
	require.NoError(t, h.server.Stop(ctx), "stop is idempotent")

	_, open := <-errCh
	assert.False(t, open, "error channel closes on graceful stop")
}

func TestPanicIsInternalError(t *testing.T) {
	h := newHarness(t)
	h.tasks.get = func(uuid.UUID, int64) (*task.Task, error) {
		panic("boom")
	}

	rec := h.authed(t, http.MethodGet, "/api/tasks/1", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", detailOf(t, rec))
}

func TestRequestMetrics(t *testing.T) {
	h := newHarness(t)
	h.tasks.get = func(_ uuid.UUID, id int64) (*task.Task, error) { return nil, task.NotFound(id) }

	h.authed(t, http.MethodGet, "/api/tasks/9", "")
	h.authed(t, http.MethodGet, "/api/tasks/9", "")
	h.do(t, http.MethodGet, "/api/tasks", "")

	assert.InDelta(t, 2, testutil.ToFloat64(
		h.metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/tasks/:id", "404")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(
		h.metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/tasks", "401")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(
		h.metrics.AuthFailuresTotal.WithLabelValues(auth.CodeHeaderMissing)), 0)
}

func TestMetricsOptional(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Metrics = nil })

	rec := h.do(t, http.MethodGet, "/api/tasks", "", "Authorization", "Bearer bad")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnexpectedErrorDoesNotLeak(t *testing.T) {
	h := newHarness(t)
	h.tasks.list = func(uuid.UUID, task.ListOptions) (*task.Page, error) {
		return nil, oops.Code("TASK_LIST_FAILED").Wrap(errors.New("pq: connection refused to 10.0.0.7"))
	}

	rec := h.authed(t, http.MethodGet, "/api/tasks", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, `{"detail":"Internal server error"}`, strings.TrimSpace(rec.Body.String()))
}
