package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/tribunal/internal/engine"
	"github.com/joescharf/tribunal/internal/models"
	"github.com/joescharf/tribunal/internal/rubric"
	"github.com/joescharf/tribunal/internal/store"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

// mockAuditor implements Auditor with a canned run.
type mockAuditor struct {
	state *engine.RunState
	err   error

	// Track calls for verification.
	repoRefs []string
	docRefs  []string
}

func (m *mockAuditor) Run(_ context.Context, repoRef, docRef string) (*engine.RunState, error) {
	m.repoRefs = append(m.repoRefs, repoRef)
	m.docRefs = append(m.docRefs, docRef)
	return m.state, m.err
}

// mockStore implements store.Store for testing.
type mockStore struct {
	runs []*store.Run

	listRunsErr error
}

func (m *mockStore) SaveRun(_ context.Context, r *store.Run) error {
	m.runs = append(m.runs, r)
	return nil
}

func (m *mockStore) GetRun(_ context.Context, id string) (*store.Run, error) {
	for _, r := range m.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("run not found: %s", id)
}

func (m *mockStore) GetRunByTraceID(_ context.Context, traceID string) (*store.Run, error) {
	for _, r := range m.runs {
		if r.TraceID == traceID {
			return r, nil
		}
	}
	return nil, fmt.Errorf("run not found for trace: %s", traceID)
}

func (m *mockStore) ListRuns(_ context.Context, limit int) ([]*store.Run, error) {
	if m.listRunsErr != nil {
		return nil, m.listRunsErr
	}
	if limit > 0 && limit < len(m.runs) {
		return m.runs[:limit], nil
	}
	return m.runs, nil
}

func (m *mockStore) Migrate(_ context.Context) error { return nil }
func (m *mockStore) Close() error                    { return nil }

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func newTestServer(t *testing.T) (*Server, *mockAuditor, *mockStore) {
	t.Helper()

	r, err := rubric.Default()
	require.NoError(t, err)

	auditor := &mockAuditor{state: completedState()}
	ms := &mockStore{}

	srv := NewServer(auditor, ms, r)
	require.NotNil(t, srv)
	return srv, auditor, ms
}

func completedState() *engine.RunState {
	verdicts := []models.FinalVerdict{
		{CriterionID: "forensic_accuracy_code", FinalScore: 4},
		{CriterionID: "orchestration_rigor", FinalScore: 2},
	}
	return &engine.RunState{
		TraceID:  "trace-1",
		RepoRef:  "repo",
		Verdicts: verdicts,
		Report: &models.AuditReport{
			RepoRef:            "repo",
			Timestamp:          time.Now().UTC(),
			CriterionBreakdown: verdicts,
		},
		Artifacts: engine.Artifacts{Full: "full.md", Summary: "summary.md", JSON: "report.json"},
	}
}

// callToolReq builds a mcpgo.CallToolRequest with the given name and arguments.
func callToolReq(name string, args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the concatenated text from a CallToolResult.
func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range result.Content {
		tc, ok := c.(mcpgo.TextContent)
		if ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// resultJSON parses the text result as JSON into the provided target.
func resultJSON(t *testing.T, result *mcpgo.CallToolResult, target any) {
	t.Helper()
	text := resultText(t, result)
	err := json.Unmarshal([]byte(text), target)
	require.NoError(t, err, "failed to parse result JSON: %s", text)
}

// seedRun adds a run to the mock store and returns it.
func seedRun(t *testing.T, ms *mockStore, id, traceID string) *store.Run {
	t.Helper()
	r := &store.Run{
		ID:         id,
		TraceID:    traceID,
		RepoRef:    "repo",
		TotalScore: 12,
		MaxScore:   20,
		CreatedAt:  time.Now().UTC(),
	}
	ms.runs = append(ms.runs, r)
	return r
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestNewServer(t *testing.T) {
	srv, _, _ := newTestServer(t)
	mcpSrv := srv.MCPServer()
	require.NotNil(t, mcpSrv, "MCPServer() should return non-nil")
}

func TestHandleAudit(t *testing.T) {
	srv, auditor, _ := newTestServer(t)

	result, err := srv.handleAudit(context.Background(), callToolReq("tribunal_audit", map[string]any{
		"repo": "https://example.com/repo",
		"doc":  "report.pdf",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	assert.Equal(t, []string{"https://example.com/repo"}, auditor.repoRefs)
	assert.Equal(t, []string{"report.pdf"}, auditor.docRefs)

	var out struct {
		TraceID    string `json:"trace_id"`
		Aborted    bool   `json:"aborted"`
		TotalScore int    `json:"total_score"`
		MaxScore   int    `json:"max_score"`
		Artifacts  struct {
			Full string `json:"full"`
		} `json:"artifacts"`
	}
	resultJSON(t, result, &out)
	assert.Equal(t, "trace-1", out.TraceID)
	assert.False(t, out.Aborted)
	assert.Equal(t, 6, out.TotalScore)
	assert.Equal(t, 10, out.MaxScore)
	assert.Equal(t, "full.md", out.Artifacts.Full)
}

func TestHandleAudit_MissingRepo(t *testing.T) {
	srv, _, _ := newTestServer(t)

	result, err := srv.handleAudit(context.Background(), callToolReq("tribunal_audit", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleAudit_AbortedRunStillReports(t *testing.T) {
	srv, auditor, _ := newTestServer(t)
	auditor.state = &engine.RunState{
		TraceID: "trace-abort",
		RepoRef: "repo",
		Aborted: true,
		Errors:  []string{"evidence gate aborted the run"},
	}
	auditor.err = engine.ErrAborted

	result, err := srv.handleAudit(context.Background(), callToolReq("tribunal_audit", map[string]any{
		"repo": "repo",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, "an aborted run is a result, not a tool error")

	var out struct {
		TraceID string   `json:"trace_id"`
		Aborted bool     `json:"aborted"`
		Errors  []string `json:"errors"`
	}
	resultJSON(t, result, &out)
	assert.Equal(t, "trace-abort", out.TraceID)
	assert.True(t, out.Aborted)
	assert.NotEmpty(t, out.Errors)
}

func TestHandleAudit_EngineFailure(t *testing.T) {
	srv, auditor, _ := newTestServer(t)
	auditor.state = nil
	auditor.err = fmt.Errorf("workdir is not writable")

	result, err := srv.handleAudit(context.Background(), callToolReq("tribunal_audit", map[string]any{
		"repo": "repo",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "workdir is not writable")
}

func TestHandleListRuns(t *testing.T) {
	srv, _, ms := newTestServer(t)
	seedRun(t, ms, "run-1", "trace-1")
	seedRun(t, ms, "run-2", "trace-2")

	result, err := srv.handleListRuns(context.Background(), callToolReq("tribunal_list_runs", map[string]any{}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out []struct {
		ID         string `json:"id"`
		TraceID    string `json:"trace_id"`
		TotalScore int    `json:"total_score"`
	}
	resultJSON(t, result, &out)
	require.Len(t, out, 2)
	assert.Equal(t, "run-1", out[0].ID)
	assert.Equal(t, 12, out[0].TotalScore)
}

func TestHandleListRuns_Limit(t *testing.T) {
	srv, _, ms := newTestServer(t)
	seedRun(t, ms, "run-1", "trace-1")
	seedRun(t, ms, "run-2", "trace-2")

	result, err := srv.handleListRuns(context.Background(), callToolReq("tribunal_list_runs", map[string]any{
		"limit": 1,
	}))
	require.NoError(t, err)

	var out []struct {
		ID string `json:"id"`
	}
	resultJSON(t, result, &out)
	assert.Len(t, out, 1)
}

func TestHandleListRuns_StoreError(t *testing.T) {
	srv, _, ms := newTestServer(t)
	ms.listRunsErr = fmt.Errorf("database is locked")

	result, err := srv.handleListRuns(context.Background(), callToolReq("tribunal_list_runs", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleGetRun_ByID(t *testing.T) {
	srv, _, ms := newTestServer(t)
	seedRun(t, ms, "run-1", "trace-1")

	result, err := srv.handleGetRun(context.Background(), callToolReq("tribunal_get_run", map[string]any{
		"id": "run-1",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out store.Run
	resultJSON(t, result, &out)
	assert.Equal(t, "trace-1", out.TraceID)
}

func TestHandleGetRun_FallsBackToTraceID(t *testing.T) {
	srv, _, ms := newTestServer(t)
	seedRun(t, ms, "run-1", "trace-1")

	result, err := srv.handleGetRun(context.Background(), callToolReq("tribunal_get_run", map[string]any{
		"id": "trace-1",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
}

func TestHandleGetRun_NotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)

	result, err := srv.handleGetRun(context.Background(), callToolReq("tribunal_get_run", map[string]any{
		"id": "missing",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleGetRun_MissingID(t *testing.T) {
	srv, _, _ := newTestServer(t)

	result, err := srv.handleGetRun(context.Background(), callToolReq("tribunal_get_run", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleRubric(t *testing.T) {
	srv, _, _ := newTestServer(t)

	result, err := srv.handleRubric(context.Background(), callToolReq("tribunal_rubric", map[string]any{}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out rubric.Rubric
	resultJSON(t, result, &out)
	assert.NotEmpty(t, out.Dimensions)
}
