package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/inov8tr/ecolab/internal/lifecycle"
	"github.com/inov8tr/ecolab/internal/models"
	"github.com/inov8tr/ecolab/internal/store"
)

// Server wraps the lifecycle service and exposes it as MCP tools.
type Server struct {
	svc     *lifecycle.Service
	actor   models.Actor
	version string
}

// NewServer creates the MCP server wrapper. actor is recorded on mutations
// whose call does not name a user.
func NewServer(svc *lifecycle.Service, actor models.Actor, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{svc: svc, actor: actor, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("ecolab", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.listTestsTool())
	srv.AddTool(s.createTestTool())
	srv.AddTool(s.addFileTool())
	srv.AddTool(s.parseTool())
	srv.AddTool(s.listMetricsTool())
	srv.AddTool(s.repositionMetricTool())
	srv.AddTool(s.confirmTool())
	srv.AddTool(s.createSummaryTool())
	srv.AddTool(s.getSummaryTool())
	srv.AddTool(s.listSummariesTool())
	srv.AddTool(s.addCommentTool())
	srv.AddTool(s.listCommentsTool())
	srv.AddTool(s.addDecisionTool())
	srv.AddTool(s.listDecisionsTool())
	srv.AddTool(s.auditLogTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Shared helpers
// ---------------------------------------------------------------------------

func actorParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("user_id", mcp.Description("Acting user id recorded in the audit ledger")),
		mcp.WithString("role", mcp.Description("Acting user role recorded in the audit ledger")),
	}
}

func (s *Server) actorFrom(request mcp.CallToolRequest) models.Actor {
	a := s.actor
	if id := request.GetString("user_id", ""); id != "" {
		a.UserID = id
	}
	if role := request.GetString("role", ""); role != "" {
		a.Role = role
	}
	return a
}

// optionalFloat returns the named number argument, or nil when absent.
func optionalFloat(request mcp.CallToolRequest, key string) *float64 {
	if _, ok := request.GetArguments()[key]; !ok {
		return nil
	}
	v := request.GetFloat(key, 0)
	return &v
}

// optionalInt returns the named integer argument, or nil when absent.
func optionalInt(request mcp.CallToolRequest, key string) *int {
	if _, ok := request.GetArguments()[key]; !ok {
		return nil
	}
	v := request.GetInt(key, 0)
	return &v
}

func jsonResult(v any, what string) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal %s: %v", what, err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func failure(action string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("failed to %s: %v", action, err))
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

// ecolab_list_tests
func (s *Server) listTestsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("ecolab_list_tests",
		mcp.WithDescription("List binder tests. Archived tests are hidden unless status is ARCHIVED. Returns a JSON array."),
		mcp.WithString("query", mcp.Description("Substring matched against name and test name")),
		mcp.WithString("status", mcp.Description("PENDING_REVIEW, READY or ARCHIVED")),
	)
	return tool, s.handleListTests
}

func (s *Server) handleListTests(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tests, err := s.svc.ListBinderTests(ctx, store.BinderTestListFilter{
		Query:  request.GetString("query", ""),
		Status: models.LifecycleStatus(request.GetString("status", "")),
	})
	if err != nil {
		return failure("list binder tests", err), nil
	}
	if tests == nil {
		tests = []*models.BinderTest{}
	}
	return jsonResult(tests, "binder tests")
}

// ecolab_create_test
func (s *Server) createTestTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("ecolab_create_test",
		mcp.WithDescription("Create a binder test in PENDING_REVIEW. Returns the created test as JSON."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Test name")),
		mcp.WithString("test_name", mcp.Description("Laboratory test performed, e.g. DSR")),
		mcp.WithNumber("pg_high", mcp.Description("Performance grade upper bound")),
		mcp.WithNumber("pg_low", mcp.Description("Performance grade lower bound")),
		mcp.WithString("batch_id", mcp.Description("Binder batch identifier")),
		mcp.WithString("test_standard", mcp.Description("Governing standard, e.g. AASHTO T 315")),
	)
	return tool, s.handleCreateTest
}

func (s *Server) handleCreateTest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: name"), nil
	}
	t, err := s.svc.CreateBinderTest(ctx, lifecycle.NewBinderTest{
		Name:         name,
		TestName:     request.GetString("test_name", ""),
		PGHigh:       optionalFloat(request, "pg_high"),
		PGLow:        optionalFloat(request, "pg_low"),
		BatchID:      request.GetString("batch_id", ""),
		TestStandard: request.GetString("test_standard", ""),
	})
	if err != nil {
		return failure("create binder test", err), nil
	}
	return jsonResult(t, "binder test")
}

// ecolab_add_file
func (s *Server) addFileTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("ecolab_add_file",
		mcp.WithDescription("Attach a data file to a binder test. Only PDF and Excel files are parsed."),
		mcp.WithString("test_id", mcp.Required(), mcp.Description("Binder test id")),
		mcp.WithString("file_url", mcp.Required(), mcp.Description("Where the file is stored")),
		mcp.WithString("file_type", mcp.Description("MIME type or extension, e.g. application/pdf")),
		mcp.WithString("label", mcp.Description("Display name used as the evidence filename")),
	)
	return tool, s.handleAddFile
}

func (s *Server) handleAddFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	testID, err := request.RequireString("test_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: test_id"), nil
	}
	fileURL, err := request.RequireString("file_url")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: file_url"), nil
	}
	f, err := s.svc.AddDataFile(ctx, testID, lifecycle.NewDataFile{
		FileURL:  fileURL,
		FileType: request.GetString("file_type", ""),
		Label:    request.GetString("label", ""),
	})
	if err != nil {
		return failure("add data file", err), nil
	}
	return jsonResult(f, "data file")
}

// ---------------------------------------------------------------------------
// Parse, metrics and confirmation
// ---------------------------------------------------------------------------

// ecolab_parse
func (s *Server) parseTool() (mcp.Tool, server.ToolHandlerFunc) {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Run a parse over a binder test's PDF and Excel files. Replaces unconfirmed metrics and moves the test to review."),
		mcp.WithString("test_id", mcp.Required(), mcp.Description("Binder test id")),
	}, actorParams()...)
	return mcp.NewTool("ecolab_parse", opts...), s.handleParse
}

func (s *Server) handleParse(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	testID, err := request.RequireString("test_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: test_id"), nil
	}
	res, err := s.svc.Parse(ctx, testID, s.actorFrom(request))
	if err != nil {
		return failure("parse", err), nil
	}
	return jsonResult(res, "parse result")
}

// ecolab_list_metrics
func (s *Server) listMetricsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("ecolab_list_metrics",
		mcp.WithDescription("List a binder test's metrics in creation order, confirmed and unconfirmed."),
		mcp.WithString("test_id", mcp.Required(), mcp.Description("Binder test id")),
	)
	return tool, s.handleListMetrics
}

func (s *Server) handleListMetrics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	testID, err := request.RequireString("test_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: test_id"), nil
	}
	metrics, err := s.svc.ListMetrics(ctx, testID)
	if err != nil {
		return failure("list metrics", err), nil
	}
	if metrics == nil {
		metrics = []*models.Metric{}
	}
	return jsonResult(metrics, "metrics")
}

// ecolab_reposition_metric
func (s *Server) repositionMetricTool() (mcp.Tool, server.ToolHandlerFunc) {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Correct the position of an unconfirmed metric, e.g. to clear UNKNOWN before confirming."),
		mcp.WithString("test_id", mcp.Required(), mcp.Description("Binder test id")),
		mcp.WithString("metric_id", mcp.Required(), mcp.Description("Metric id")),
		mcp.WithString("position", mcp.Required(), mcp.Description("New position")),
	}, actorParams()...)
	return mcp.NewTool("ecolab_reposition_metric", opts...), s.handleRepositionMetric
}

func (s *Server) handleRepositionMetric(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	testID, err := request.RequireString("test_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: test_id"), nil
	}
	metricID, err := request.RequireString("metric_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: metric_id"), nil
	}
	position, err := request.RequireString("position")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: position"), nil
	}
	m, err := s.svc.RepositionMetric(ctx, testID, metricID, position, s.actorFrom(request))
	if err != nil {
		return failure("reposition metric", err), nil
	}
	return jsonResult(m, "metric")
}

// ecolab_confirm
func (s *Server) confirmTool() (mcp.Tool, server.ToolHandlerFunc) {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Confirm every unconfirmed metric and move the test to READY. Fails while any metric has position UNKNOWN."),
		mcp.WithString("test_id", mcp.Required(), mcp.Description("Binder test id")),
	}, actorParams()...)
	return mcp.NewTool("ecolab_confirm", opts...), s.handleConfirm
}

func (s *Server) handleConfirm(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	testID, err := request.RequireString("test_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: test_id"), nil
	}
	res, err := s.svc.Confirm(ctx, testID, s.actorFrom(request))
	if err != nil {
		return failure("confirm metrics", err), nil
	}
	return jsonResult(res, "confirm result")
}

// ---------------------------------------------------------------------------
// Summaries
// ---------------------------------------------------------------------------

// ecolab_create_summary
func (s *Server) createSummaryTool() (mcp.Tool, server.ToolHandlerFunc) {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Freeze the confirmed metrics of a READY test into the next summary version, superseding the previous one."),
		mcp.WithString("test_id", mcp.Required(), mcp.Description("Binder test id")),
	}, actorParams()...)
	return mcp.NewTool("ecolab_create_summary", opts...), s.handleCreateSummary
}

func (s *Server) handleCreateSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	testID, err := request.RequireString("test_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: test_id"), nil
	}
	sum, err := s.svc.CreateSummary(ctx, testID, s.actorFrom(request))
	if err != nil {
		return failure("create summary", err), nil
	}
	result := map[string]any{
		"summary_id": sum.ID,
		"version":    sum.Version,
		"durable_id": sum.DurableID,
		"status":     string(sum.Status),
		"hash":       sum.DerivedFromMetricsHash,
	}
	return jsonResult(result, "summary")
}

// ecolab_get_summary
func (s *Server) getSummaryTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("ecolab_get_summary",
		mcp.WithDescription("Get one summary version, including its frozen payload."),
		mcp.WithString("test_id", mcp.Required(), mcp.Description("Binder test id")),
		mcp.WithNumber("version", mcp.Required(), mcp.Description("Summary version")),
	)
	return tool, s.handleGetSummary
}

func (s *Server) handleGetSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	testID, err := request.RequireString("test_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: test_id"), nil
	}
	version, err := request.RequireInt("version")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: version"), nil
	}
	sum, err := s.svc.GetSummary(ctx, testID, version)
	if err != nil {
		return failure("get summary", err), nil
	}
	return jsonResult(sum, "summary")
}

// ecolab_list_summaries
func (s *Server) listSummariesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("ecolab_list_summaries",
		mcp.WithDescription("List every summary version of a binder test, newest first. Superseded versions are included."),
		mcp.WithString("test_id", mcp.Required(), mcp.Description("Binder test id")),
	)
	return tool, s.handleListSummaries
}

func (s *Server) handleListSummaries(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	testID, err := request.RequireString("test_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: test_id"), nil
	}
	sums, err := s.svc.ListSummaries(ctx, testID)
	if err != nil {
		return failure("list summaries", err), nil
	}
	if sums == nil {
		sums = []*models.Summary{}
	}
	return jsonResult(sums, "summaries")
}

// ---------------------------------------------------------------------------
// Peer review and audit
// ---------------------------------------------------------------------------

// ecolab_add_comment
func (s *Server) addCommentTool() (mcp.Tool, server.ToolHandlerFunc) {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Add a peer comment to a binder test, optionally tied to a summary version."),
		mcp.WithString("test_id", mcp.Required(), mcp.Description("Binder test id")),
		mcp.WithString("type", mcp.Required(), mcp.Description("QUESTION, CONCERN, NOTE or another type")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Comment text")),
		mcp.WithNumber("summary_version", mcp.Description("Summary version the comment refers to")),
	}, actorParams()...)
	return mcp.NewTool("ecolab_add_comment", opts...), s.handleAddComment
}

func (s *Server) handleAddComment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	testID, err := request.RequireString("test_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: test_id"), nil
	}
	c, err := s.svc.AddComment(ctx, testID, lifecycle.CommentInput{
		CommentType:    request.GetString("type", ""),
		CommentText:    request.GetString("text", ""),
		SummaryVersion: optionalInt(request, "summary_version"),
	}, s.actorFrom(request))
	if err != nil {
		return failure("add comment", err), nil
	}
	return jsonResult(c, "comment")
}

// ecolab_list_comments
func (s *Server) listCommentsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("ecolab_list_comments",
		mcp.WithDescription("List a binder test's peer comments, optionally only those tied to one summary version."),
		mcp.WithString("test_id", mcp.Required(), mcp.Description("Binder test id")),
		mcp.WithNumber("summary_version", mcp.Description("Only comments on this summary version")),
	)
	return tool, s.handleListComments
}

func (s *Server) handleListComments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	testID, err := request.RequireString("test_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: test_id"), nil
	}
	comments, err := s.svc.ListComments(ctx, testID, optionalInt(request, "summary_version"))
	if err != nil {
		return failure("list comments", err), nil
	}
	if comments == nil {
		comments = []*models.PeerComment{}
	}
	return jsonResult(comments, "comments")
}

// ecolab_add_decision
func (s *Server) addDecisionTool() (mcp.Tool, server.ToolHandlerFunc) {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Record a peer review decision against a summary version. Decisions never change the test's status."),
		mcp.WithString("test_id", mcp.Required(), mcp.Description("Binder test id")),
		mcp.WithNumber("summary_version", mcp.Required(), mcp.Description("Summary version under review")),
		mcp.WithString("decision", mcp.Required(), mcp.Description("APPROVE, ACCEPT, REJECT, REQUEST_CHANGES or COMMENT_ONLY")),
		mcp.WithString("notes", mcp.Description("Decision notes")),
	}, actorParams()...)
	return mcp.NewTool("ecolab_add_decision", opts...), s.handleAddDecision
}

func (s *Server) handleAddDecision(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	testID, err := request.RequireString("test_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: test_id"), nil
	}
	d, err := s.svc.AddDecision(ctx, testID, lifecycle.DecisionInput{
		SummaryVersion: optionalInt(request, "summary_version"),
		Decision:       request.GetString("decision", ""),
		DecisionNotes:  request.GetString("notes", ""),
	}, s.actorFrom(request))
	if err != nil {
		return failure("add decision", err), nil
	}
	return jsonResult(d, "decision")
}

// ecolab_list_decisions
func (s *Server) listDecisionsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("ecolab_list_decisions",
		mcp.WithDescription("List the peer review decisions recorded against one summary version."),
		mcp.WithString("test_id", mcp.Required(), mcp.Description("Binder test id")),
		mcp.WithNumber("summary_version", mcp.Required(), mcp.Description("Summary version")),
	)
	return tool, s.handleListDecisions
}

func (s *Server) handleListDecisions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	testID, err := request.RequireString("test_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: test_id"), nil
	}
	version, err := request.RequireInt("summary_version")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: summary_version"), nil
	}
	decisions, err := s.svc.ListDecisions(ctx, testID, version)
	if err != nil {
		return failure("list decisions", err), nil
	}
	if decisions == nil {
		decisions = []*models.PeerReviewDecision{}
	}
	return jsonResult(decisions, "decisions")
}

// ecolab_audit_log
func (s *Server) auditLogTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("ecolab_audit_log",
		mcp.WithDescription("List a binder test's audit events, newest first."),
		mcp.WithString("test_id", mcp.Required(), mcp.Description("Binder test id")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of events to return (default: all)")),
	)
	return tool, s.handleAuditLog
}

func (s *Server) handleAuditLog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	testID, err := request.RequireString("test_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: test_id"), nil
	}
	events, err := s.svc.ListAuditEvents(ctx, testID)
	if err != nil {
		return failure("list audit events", err), nil
	}
	if limit := request.GetInt("limit", 0); limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	if events == nil {
		events = []*models.AuditEvent{}
	}
	return jsonResult(events, "audit events")
}
