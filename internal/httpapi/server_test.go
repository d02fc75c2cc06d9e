package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adwforge/phaseq/internal/queue"
	"github.com/adwforge/phaseq/internal/storage/sqlite"
	"github.com/adwforge/phaseq/internal/types"
)

func newTestServer(t *testing.T) (*queue.Service, http.Handler) {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc := queue.NewService(store)
	return svc, NewServer(svc).Handler()
}

func enqueue(t *testing.T, svc *queue.Service, parent, number int, dependsOn *int) string {
	t.Helper()
	id, err := svc.Enqueue(context.Background(), queue.EnqueueRequest{
		ParentIssue:    parent,
		PhaseNumber:    number,
		DependsOnPhase: dependsOn,
		Data: types.PhaseData{
			WorkflowType: "plan_build_test",
			ExecutorID:   "agent-1",
			Title:        "test phase",
		},
	})
	require.NoError(t, err)
	return id
}

func do(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	_, handler := newTestServer(t)
	rec := do(t, handler, "GET", "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestGetPhase(t *testing.T) {
	svc, handler := newTestServer(t)
	id := enqueue(t, svc, 114, 1, nil)

	rec := do(t, handler, "GET", "/api/queue/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, id, body["queue_id"])
	assert.Equal(t, "ready", body["status"])

	rec = do(t, handler, "GET", "/api/queue/no-such-id", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNextRespectsDependencies(t *testing.T) {
	svc, handler := newTestServer(t)
	first := enqueue(t, svc, 114, 1, nil)
	dep := 1
	enqueue(t, svc, 114, 2, &dep)

	rec := do(t, handler, "GET", "/api/queue/next", "")
	require.Equal(t, http.StatusOK, rec.Code)
	next, ok := decode(t, rec)["next"].(map[string]interface{})
	require.True(t, ok, "expected a next phase")
	assert.Equal(t, first, next["queue_id"])
}

func TestNextEmptyQueue(t *testing.T) {
	_, handler := newTestServer(t)
	rec := do(t, handler, "GET", "/api/queue/next", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode(t, rec)["next"])
}

func TestStartClaimsExactlyOnce(t *testing.T) {
	svc, handler := newTestServer(t)
	id := enqueue(t, svc, 114, 1, nil)

	rec := do(t, handler, "POST", "/api/queue/"+id+"/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "running", decode(t, rec)["status"])

	// Second claim loses the compare-and-set.
	rec = do(t, handler, "POST", "/api/queue/"+id+"/start", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, handler, "POST", "/api/queue/no-such-id/start", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportUnmanagedIssueIsNoOp(t *testing.T) {
	_, handler := newTestServer(t)

	rec := do(t, handler, "POST", "/api/report", `{"issue_number": 999, "success": true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["managed"])
}

func TestReportAdvancesChain(t *testing.T) {
	svc, handler := newTestServer(t)
	ctx := context.Background()

	first := enqueue(t, svc, 114, 1, nil)
	dep := 1
	second := enqueue(t, svc, 114, 2, &dep)
	require.NoError(t, svc.AttachIssueNumber(ctx, first, 901))
	require.NoError(t, svc.MarkRunning(ctx, first))

	rec := do(t, handler, "POST", "/api/report", `{"issue_number": 901, "success": true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["managed"])
	assert.Equal(t, first, body["queue_id"])

	promoted, err := svc.Get(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, types.StatusReady, promoted.Status)
}

func TestReportFailureRecordsError(t *testing.T) {
	svc, handler := newTestServer(t)
	ctx := context.Background()

	first := enqueue(t, svc, 114, 1, nil)
	dep := 1
	second := enqueue(t, svc, 114, 2, &dep)
	require.NoError(t, svc.AttachIssueNumber(ctx, first, 901))
	require.NoError(t, svc.MarkRunning(ctx, first))

	rec := do(t, handler, "POST", "/api/report", `{"issue_number": 901, "success": false, "error": "tests red"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	failed, err := svc.Get(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, failed.Status)
	require.NotNil(t, failed.ErrorMessage)
	assert.Equal(t, "tests red", *failed.ErrorMessage)

	blocked, err := svc.Get(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, types.StatusBlocked, blocked.Status)
}

func TestReportRejectsBadInput(t *testing.T) {
	_, handler := newTestServer(t)

	rec := do(t, handler, "POST", "/api/report", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, handler, "POST", "/api/report", `{"success": true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportOnUnstartedPhaseConflicts(t *testing.T) {
	svc, handler := newTestServer(t)
	ctx := context.Background()

	id := enqueue(t, svc, 114, 1, nil)
	require.NoError(t, svc.AttachIssueNumber(ctx, id, 901))

	// Still ready: running → completed has no valid source state.
	rec := do(t, handler, "POST", "/api/report", `{"issue_number": 901, "success": true}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestByParentListsChainInOrder(t *testing.T) {
	svc, handler := newTestServer(t)
	enqueue(t, svc, 114, 1, nil)
	dep := 1
	enqueue(t, svc, 114, 2, &dep)
	enqueue(t, svc, 115, 1, nil)

	rec := do(t, handler, "GET", "/api/parents/114", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var phases []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &phases))
	require.Len(t, phases, 2)
	assert.Equal(t, float64(1), phases[0]["phase_number"])
	assert.Equal(t, float64(2), phases[1]["phase_number"])

	rec = do(t, handler, "GET", "/api/parents/bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
