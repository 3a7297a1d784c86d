package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardworks/govrec/internal/authz"
	"github.com/boardworks/govrec/internal/governance"
	"github.com/boardworks/govrec/internal/metrics"
	"github.com/boardworks/govrec/internal/storage"
	"github.com/boardworks/govrec/internal/types"
)

var testToday = time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)

type testServer struct {
	t       *testing.T
	server  *Server
	store   storage.Storage
	metrics *metrics.Metrics
	logs    *bytes.Buffer
}

func newTestServer(t *testing.T, rateLimit float64, burst int) *testServer {
	t.Helper()
	store, err := storage.NewStorage(context.Background(), &storage.Config{
		Path: filepath.Join(t.TempDir(), "governance.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, nil))
	m := metrics.New()
	svc, err := governance.New(&governance.Config{Store: store, Logger: logger, Metrics: m})
	require.NoError(t, err)

	server, err := New(&Config{
		Service:   svc,
		Oracle:    authz.DefaultPolicy(),
		Logger:    logger,
		Metrics:   m,
		RateLimit: rateLimit,
		RateBurst: burst,
		Now:       func() time.Time { return testToday },
	})
	require.NoError(t, err)
	return &testServer{t: t, server: server, store: store, metrics: m, logs: logs}
}

// do sends a request as actor with role. An empty actor omits both headers.
func (ts *testServer) do(method, path, actor, role string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if actor != "" {
		req.Header.Set(HeaderActorID, actor)
		req.Header.Set(HeaderActorRole, role)
	}
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (ts *testServer) createMeeting(date string) *types.Meeting {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/meetings", "sec", "secretary", map[string]any{
		"date": date,
		"type": "BOARD",
	})
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	m := decode[types.Meeting](ts.t, rec)
	return &m
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, 0, 0)

	rec := ts.do(http.MethodGet, "/healthz", "", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	ts.do(http.MethodGet, "/meetings", "alice", "member", nil)

	rec = ts.do(http.MethodGet, "/metrics", "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `govrec_http_requests_total{code="200",route="GET /meetings"} 1`)
}

func TestActorAndCapabilityChecks(t *testing.T) {
	ts := newTestServer(t, 0, 0)

	rec := ts.do(http.MethodGet, "/meetings", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodPost, "/meetings", "bob", "member", map[string]any{"date": "2024-05-14", "type": "BOARD"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), authz.MeetingsCreate)

	rec = ts.do(http.MethodGet, "/audit", "bob", "member", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodGet, "/meetings", "bob", "no-such-role", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMeetingErrors(t *testing.T) {
	ts := newTestServer(t, 0, 0)
	meeting := ts.createMeeting("2024-05-14")

	rec := ts.do(http.MethodPost, "/meetings", "sec", "secretary", map[string]any{"date": "2024-05-14", "type": "BOARD"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", decode[ErrorResponse](t, rec).Error)

	rec = ts.do(http.MethodPost, "/meetings", "sec", "secretary", `{"date":"14/05/2024","type":"BOARD"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/meetings", "sec", "secretary", `{"date":"2024-05-15","type":"BOARD","colour":"red"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodGet, "/meetings/does-not-exist", "sec", "secretary", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodGet, "/meetings?type=picnic", "sec", "secretary", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/meetings/"+meeting.ID+"/motions", "sec", "secretary", map[string]any{"motion_text": "Adjourn"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(http.MethodDelete, "/meetings/"+meeting.ID, "sec", "secretary", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, 1, resp.Details["motions"])
}

func TestMinutesWorkflowOverHTTP(t *testing.T) {
	ts := newTestServer(t, 0, 0)
	meeting := ts.createMeeting("2024-05-14")

	rec := ts.do(http.MethodPost, "/meetings/"+meeting.ID+"/minutes", "sec", "secretary", map[string]any{
		"content": map[string]any{"items": []string{"call to order"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	v1 := decode[types.Minutes](t, rec)
	assert.Equal(t, types.MinutesDraft, v1.Status)

	rec = ts.do(http.MethodPost, "/minutes/"+v1.ID+"/publish", "chair", "chair", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "INVALID_TRANSITION", resp.Error)
	assert.Equal(t, "DRAFT", resp.From)
	assert.Equal(t, "PUBLISHED", resp.To)

	// the chair may approve but not submit
	rec = ts.do(http.MethodPost, "/minutes/"+v1.ID+"/submit", "chair", "chair", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPost, "/minutes/"+v1.ID+"/submit", "sec", "secretary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPatch, "/minutes/"+v1.ID, "sec", "secretary", map[string]any{"summary": "late edit"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPost, "/minutes/"+v1.ID+"/request-revision", "chair", "chair", map[string]any{
		"review_notes": "attendance is missing",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	v2 := decode[types.Minutes](t, rec)
	assert.Equal(t, 2, v2.Version)
	assert.Equal(t, "attendance is missing", v2.ReviewNotes)

	rec = ts.do(http.MethodPost, "/minutes/"+v1.ID+"/approve", "chair", "chair", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "superseded version")

	rec = ts.do(http.MethodPost, "/minutes/"+v2.ID+"/submit", "sec", "secretary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(http.MethodPost, "/minutes/"+v2.ID+"/approve", "chair", "chair", map[string]any{"notes": "moved and carried"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "moved and carried", decode[types.Minutes](t, rec).ApprovalNotes)
	rec = ts.do(http.MethodPost, "/minutes/"+v2.ID+"/publish", "chair", "chair", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/meetings/"+meeting.ID+"/minutes/current", "m", "member", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	current := decode[types.Minutes](t, rec)
	assert.Equal(t, v2.ID, current.ID)
	assert.Equal(t, types.MinutesPublished, current.Status)

	rec = ts.do(http.MethodGet, "/meetings/"+meeting.ID+"/minutes", "m", "member", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[listResponse[types.Minutes]](t, rec).Count)

	rec = ts.do(http.MethodGet, "/audit?objectId="+v2.ID, "chair", "chair", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotZero(t, decode[listResponse[types.AuditEntry]](t, rec).Count)
}

func TestMotionVoting(t *testing.T) {
	ts := newTestServer(t, 0, 0)
	meeting := ts.createMeeting("2024-05-14")

	for i := 1; i <= 3; i++ {
		rec := ts.do(http.MethodPost, "/meetings/"+meeting.ID+"/motions", "chair", "chair", map[string]any{"motion_text": "Motion"})
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, i, decode[types.Motion](t, rec).MotionNumber)
	}

	rec := ts.do(http.MethodGet, "/meetings/"+meeting.ID+"/motions", "m", "member", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	motions := decode[listResponse[types.Motion]](t, rec)
	require.Equal(t, 3, motions.Count)

	first := motions.Items[0]
	vote := map[string]any{"votes_yes": 6, "votes_no": 1, "votes_abstain": 0, "result": "PASSED"}
	rec = ts.do(http.MethodPost, "/motions/"+first.ID+"/vote", "chair", "chair", vote)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = ts.do(http.MethodPost, "/motions/"+first.ID+"/vote", "chair", "chair", vote)
	require.Equal(t, http.StatusOK, rec.Code, "same vote again is accepted")

	rec = ts.do(http.MethodPatch, "/motions/"+first.ID, "chair", "chair", map[string]any{"result": "PASSED"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodDelete, "/motions/"+first.ID, "sec", "secretary", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodGet, "/meetings/"+meeting.ID+"/motions/stats", "m", "member", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[types.MotionStats](t, rec)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Passed)
	assert.Equal(t, 2, stats.Pending)
}

func TestUnpublishedAnnotationsAreHidden(t *testing.T) {
	ts := newTestServer(t, 0, 0)

	rec := ts.do(http.MethodPost, "/annotations", "dana", "director", map[string]any{
		"target_type": "bylaw",
		"target_id":   "article-4",
		"body":        "Conflicts with the 2019 amendment",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	a := decode[types.Annotation](t, rec)
	assert.False(t, a.IsPublished)

	// member asks for unpublished but lacks the capability
	rec = ts.do(http.MethodGet, "/annotations?targetType=bylaw&targetId=article-4&includeUnpublished=true", "m", "member", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[listResponse[types.Annotation]](t, rec).Count)

	rec = ts.do(http.MethodGet, "/annotations/counts?targetType=bylaw&targetId=article-4&includeUnpublished=true", "m", "member", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.AnnotationCounts{}, decode[types.AnnotationCounts](t, rec))

	rec = ts.do(http.MethodGet, "/annotations/"+a.ID, "m", "member", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodGet, "/annotations?targetType=bylaw&targetId=article-4&includeUnpublished=true", "dana", "director", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[listResponse[types.Annotation]](t, rec).Count)

	// directors cannot publish
	rec = ts.do(http.MethodPost, "/annotations/"+a.ID+"/publish", "dana", "director", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPost, "/annotations/"+a.ID+"/publish", "chair", "chair", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/annotations/"+a.ID, "m", "member", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFlagsOverHTTP(t *testing.T) {
	ts := newTestServer(t, 0, 0)

	rec := ts.do(http.MethodPost, "/flags", "cara", "compliance", map[string]any{
		"target_type": "policy",
		"target_id":   "whistleblower",
		"flag_type":   "LEGAL_REVIEW",
		"title":       "Annual legal review",
		"due_date":    "2024-05-31",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	flag := decode[types.ReviewFlag](t, rec)

	rec = ts.do(http.MethodGet, "/flags/overdue", "cara", "compliance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[listResponse[types.ReviewFlag]](t, rec).Count, "due 2024-05-31, today 2024-06-01")

	rec = ts.do(http.MethodGet, "/flags/overdue?today=2024-05-31", "cara", "compliance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[listResponse[types.ReviewFlag]](t, rec).Count)

	rec = ts.do(http.MethodPost, "/flags/"+flag.ID+"/resolve", "cara", "compliance", map[string]any{"resolution": "done"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "OPEN cannot be resolved directly")

	rec = ts.do(http.MethodPost, "/flags/"+flag.ID+"/start", "cara", "compliance", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPost, "/flags/"+flag.ID+"/resolve", "cara", "compliance", map[string]any{"resolution": "reviewed by counsel"})
	require.Equal(t, http.StatusOK, rec.Code)
	resolved := decode[types.ReviewFlag](t, rec)
	assert.Equal(t, types.FlagResolved, resolved.Status)
	assert.Equal(t, "cara", resolved.ResolvedBy)

	rec = ts.do(http.MethodDelete, "/flags/"+flag.ID, "cara", "compliance", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodGet, "/flags?status=resolved", "d", "director", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[listResponse[types.ReviewFlag]](t, rec).Count)
}

func TestMutationRateLimit(t *testing.T) {
	ts := newTestServer(t, 0.001, 2)

	ts.createMeeting("2024-01-01")
	ts.createMeeting("2024-01-02")

	rec := ts.do(http.MethodPost, "/meetings", "sec", "secretary", map[string]any{"date": "2024-01-03", "type": "BOARD"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// reads and other actors are unaffected
	rec = ts.do(http.MethodGet, "/meetings", "sec", "secretary", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(http.MethodPost, "/meetings", "other", "secretary", map[string]any{"date": "2024-01-03", "type": "BOARD"})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	ts := newTestServer(t, 0, 0)
	require.NoError(t, ts.store.Close())

	rec := ts.do(http.MethodGet, "/meetings", "m", "member", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "internal error", resp.Message)
	assert.NotContains(t, rec.Body.String(), "sql")
	assert.Contains(t, ts.logs.String(), "request failed")
}
