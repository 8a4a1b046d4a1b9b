// Package mcp exposes the tribunal over the Model Context Protocol so
// agents can trigger audits and query the run archive.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/tribunal/internal/engine"
	"github.com/joescharf/tribunal/internal/rubric"
	"github.com/joescharf/tribunal/internal/store"
)

// Auditor runs one full audit. Satisfied by *engine.Engine.
type Auditor interface {
	Run(ctx context.Context, repoRef, docRef string) (*engine.RunState, error)
}

// Server wraps the tribunal engine and archive and exposes them as MCP tools.
type Server struct {
	auditor Auditor
	store   store.Store
	rubric  *rubric.Rubric
}

// NewServer creates the MCP server wrapper with all required dependencies.
func NewServer(a Auditor, s store.Store, r *rubric.Rubric) *Server {
	return &Server{auditor: a, store: s, rubric: r}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("tribunal", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.auditTool())
	srv.AddTool(s.listRunsTool())
	srv.AddTool(s.getRunTool())
	srv.AddTool(s.rubricTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// tribunal_audit
func (s *Server) auditTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tribunal_audit",
		mcp.WithDescription("Run a full audit of a repository: collect evidence, score every rubric criterion with three adversarial judges, and synthesize final verdicts. Returns a JSON object with trace_id, per-criterion scores, total score, and paths to the generated report artifacts. May take several minutes."),
		mcp.WithString("repo", mcp.Required(), mcp.Description("Repository reference to audit (local path or clone URL)")),
		mcp.WithString("doc", mcp.Description("Optional path to the submission document (PDF or markdown) to cross-examine")),
	)
	return tool, s.handleAudit
}

func (s *Server) handleAudit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoRef, err := request.RequireString("repo")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: repo"), nil
	}
	docRef := request.GetString("doc", "")

	st, err := s.auditor.Run(ctx, repoRef, docRef)
	if err != nil && !errors.Is(err, engine.ErrAborted) {
		return mcp.NewToolResultError(fmt.Sprintf("audit failed: %v", err)), nil
	}

	result := map[string]any{
		"trace_id": st.TraceID,
		"repo":     st.RepoRef,
		"aborted":  st.Aborted,
		"errors":   st.Errors,
		"warnings": st.Warnings,
		"artifacts": map[string]string{
			"full":    st.Artifacts.Full,
			"summary": st.Artifacts.Summary,
			"json":    st.Artifacts.JSON,
		},
	}
	if st.Report != nil {
		result["total_score"] = st.Report.TotalScore()
		result["max_score"] = st.Report.MaxScore()
		result["verdicts"] = st.Report.CriterionBreakdown
	}

	data, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// tribunal_list_runs
func (s *Server) listRunsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tribunal_list_runs",
		mcp.WithDescription("List archived audit runs, newest first. Returns a JSON array with id, trace_id, repo, scores, aborted flag, and created_at."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of runs to return (default: all)")),
	)
	return tool, s.handleListRuns
}

func (s *Server) handleListRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", 0)

	runs, err := s.store.ListRuns(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list runs: %v", err)), nil
	}

	type runOut struct {
		ID         string `json:"id"`
		TraceID    string `json:"trace_id"`
		Repo       string `json:"repo"`
		Doc        string `json:"doc,omitempty"`
		TotalScore int    `json:"total_score"`
		MaxScore   int    `json:"max_score"`
		Aborted    bool   `json:"aborted"`
		CreatedAt  string `json:"created_at"`
	}

	out := make([]runOut, len(runs))
	for i, r := range runs {
		out[i] = runOut{
			ID:         r.ID,
			TraceID:    r.TraceID,
			Repo:       r.RepoRef,
			Doc:        r.DocRef,
			TotalScore: r.TotalScore,
			MaxScore:   r.MaxScore,
			Aborted:    r.Aborted,
			CreatedAt:  r.CreatedAt.Format("2006-01-02 15:04:05"),
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal runs: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// tribunal_get_run
func (s *Server) getRunTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tribunal_get_run",
		mcp.WithDescription("Get one archived audit run by id or trace id, including full per-criterion verdicts, dissent summaries, and remediation plans."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Run id or trace id")),
	)
	return tool, s.handleGetRun
}

func (s *Server) handleGetRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}

	r, err := s.store.GetRun(ctx, id)
	if err != nil {
		r, err = s.store.GetRunByTraceID(ctx, id)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run not found: %s", id)), nil
	}

	data, err := json.Marshal(r)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal run: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// tribunal_rubric
func (s *Server) rubricTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tribunal_rubric",
		mcp.WithDescription("Show the grading rubric the tribunal scores against: every dimension with its forensic instruction and per-persona judicial logic."),
	)
	return tool, s.handleRubric
}

func (s *Server) handleRubric(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(s.rubric)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal rubric: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
