package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/inov8tr/ecolab/internal/health"
	"github.com/inov8tr/ecolab/internal/lifecycle"
	"github.com/inov8tr/ecolab/internal/models"
	"github.com/inov8tr/ecolab/internal/store"
)

// Actor headers. Identity is taken as given.
const (
	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"
)

// Server provides the REST API handlers.
type Server struct {
	svc     *lifecycle.Service
	metrics http.Handler
	health  *health.Checker
}

// NewServer creates a new API server.
// The metrics handler may be nil, in which case /metrics is not served.
func NewServer(svc *lifecycle.Service, metrics http.Handler) *Server {
	return &Server{svc: svc, metrics: metrics}
}

// WithHealth serves the checker's report at /healthz.
func (s *Server) WithHealth(c *health.Checker) *Server {
	s.health = c
	return s
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/binder-tests", s.listBinderTests)
	mux.HandleFunc("POST /api/v1/binder-tests", s.createBinderTest)
	mux.HandleFunc("GET /api/v1/binder-tests/{id}", s.getBinderTest)
	mux.HandleFunc("POST /api/v1/binder-tests/{id}/archive", s.archiveBinderTest)

	mux.HandleFunc("GET /api/v1/binder-tests/{id}/files", s.listDataFiles)
	mux.HandleFunc("POST /api/v1/binder-tests/{id}/files", s.addDataFile)

	mux.HandleFunc("POST /api/v1/binder-tests/{id}/parse", s.parse)

	mux.HandleFunc("GET /api/v1/binder-tests/{id}/metrics", s.listMetrics)
	mux.HandleFunc("POST /api/v1/binder-tests/{id}/metrics/manual", s.addManualMetric)
	mux.HandleFunc("PATCH /api/v1/binder-tests/{id}/metrics/{metricId}", s.repositionMetric)

	mux.HandleFunc("POST /api/v1/binder-tests/{id}/confirm", s.confirm)

	mux.HandleFunc("GET /api/v1/binder-tests/{id}/summaries", s.listSummaries)
	mux.HandleFunc("POST /api/v1/binder-tests/{id}/summaries", s.createSummary)
	mux.HandleFunc("GET /api/v1/binder-tests/{id}/summaries/{version}", s.getSummary)

	mux.HandleFunc("GET /api/v1/binder-tests/{id}/peer-comments", s.listComments)
	mux.HandleFunc("POST /api/v1/binder-tests/{id}/peer-comments", s.addComment)
	mux.HandleFunc("POST /api/v1/binder-tests/{id}/peer-comments/{commentId}/resolve", s.resolveComment)

	mux.HandleFunc("GET /api/v1/binder-tests/{id}/peer-review-decisions", s.listDecisions)
	mux.HandleFunc("POST /api/v1/binder-tests/{id}/peer-review-decisions", s.addDecision)

	mux.HandleFunc("GET /api/v1/binder-tests/{id}/audit", s.listAuditEvents)

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	if s.health != nil {
		mux.HandleFunc("GET /healthz", s.healthz)
	}

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+HeaderUserID+", "+HeaderUserRole)
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps a lifecycle failure kind to an HTTP status.
func statusFor(err error) int {
	if errors.Is(err, errBadRequest) {
		return http.StatusBadRequest
	}
	switch lifecycle.KindOf(err) {
	case lifecycle.KindValidation, lifecycle.KindPrecondition:
		return http.StatusBadRequest
	case lifecycle.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError reports err with the status its kind maps to.
// Persistence failures are logged and their detail kept off the wire.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, status, "internal error")
		return
	}
	msg := err.Error()
	var le *lifecycle.Error
	if errors.As(err, &le) {
		msg = le.Err.Error()
	}
	writeError(w, status, msg)
}

func actorFrom(r *http.Request) models.Actor {
	return models.Actor{
		UserID: strings.TrimSpace(r.Header.Get(HeaderUserID)),
		Role:   strings.TrimSpace(r.Header.Get(HeaderUserRole)),
	}
}

// optionalVersion parses the "version" query parameter, if present.
func optionalVersion(r *http.Request) (*int, bool) {
	raw := r.URL.Query().Get("version")
	if raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return nil, false
	}
	return &v, true
}

// --- Binder tests ---

func (s *Server) listBinderTests(w http.ResponseWriter, r *http.Request) {
	filter := store.BinderTestListFilter{
		Query:  r.URL.Query().Get("q"),
		Status: models.LifecycleStatus(strings.ToUpper(r.URL.Query().Get("status"))),
	}
	tests, err := s.svc.ListBinderTests(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if tests == nil {
		tests = []*models.BinderTest{}
	}
	writeJSON(w, http.StatusOK, tests)
}

func (s *Server) createBinderTest(w http.ResponseWriter, r *http.Request) {
	var in lifecycle.NewBinderTest
	if err := decodeBody(r, "binder_test", &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	t, err := s.svc.CreateBinderTest(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) getBinderTest(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.GetBinderTest(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) archiveBinderTest(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.Archive(r.Context(), r.PathValue("id"), actorFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// --- Data files ---

func (s *Server) listDataFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.svc.ListDataFiles(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if files == nil {
		files = []*models.DataFile{}
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) addDataFile(w http.ResponseWriter, r *http.Request) {
	var in lifecycle.NewDataFile
	if err := decodeBody(r, "data_file", &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	f, err := s.svc.AddDataFile(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// --- Parse runs and metrics ---

func (s *Server) parse(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Parse(r.Context(), r.PathValue("id"), actorFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) listMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := s.svc.ListMetrics(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if metrics == nil {
		metrics = []*models.Metric{}
	}
	writeJSON(w, http.StatusOK, metrics)
}

func (s *Server) addManualMetric(w http.ResponseWriter, r *http.Request) {
	var in lifecycle.ManualMetricInput
	if err := decodeBody(r, "manual_metric", &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	m, err := s.svc.AddManualMetric(r.Context(), r.PathValue("id"), in, actorFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) repositionMetric(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Position string `json:"position"`
	}
	if err := decodeBody(r, "metric_position", &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	m, err := s.svc.RepositionMetric(r.Context(), r.PathValue("id"), r.PathValue("metricId"), in.Position, actorFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) confirm(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Confirm(r.Context(), r.PathValue("id"), actorFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- Summaries ---

func (s *Server) createSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.svc.CreateSummary(r.Context(), r.PathValue("id"), actorFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, lifecycle.ResultOf(sum))
}

func (s *Server) listSummaries(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.svc.ListSummaries(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if summaries == nil {
		summaries = []*models.Summary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	version, err := strconv.Atoi(r.PathValue("version"))
	if err != nil || version < 1 {
		writeError(w, http.StatusBadRequest, "version must be a positive integer")
		return
	}
	sum, err := s.svc.GetSummary(r.Context(), r.PathValue("id"), version)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// --- Peer review ---

func (s *Server) addComment(w http.ResponseWriter, r *http.Request) {
	var in lifecycle.CommentInput
	if err := decodeBody(r, "peer_comment", &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	c, err := s.svc.AddComment(r.Context(), r.PathValue("id"), in, actorFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	version, ok := optionalVersion(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "version must be a positive integer")
		return
	}
	comments, err := s.svc.ListComments(r.Context(), r.PathValue("id"), version)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if comments == nil {
		comments = []*models.PeerComment{}
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) resolveComment(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.ResolveComment(r.Context(), r.PathValue("id"), r.PathValue("commentId"), actorFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) addDecision(w http.ResponseWriter, r *http.Request) {
	var in lifecycle.DecisionInput
	if err := decodeBody(r, "peer_review_decision", &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	d, err := s.svc.AddDecision(r.Context(), r.PathValue("id"), in, actorFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) listDecisions(w http.ResponseWriter, r *http.Request) {
	version, ok := optionalVersion(r)
	if !ok || version == nil {
		writeError(w, http.StatusBadRequest, "version query parameter is required")
		return
	}
	decisions, err := s.svc.ListDecisions(r.Context(), r.PathValue("id"), *version)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if decisions == nil {
		decisions = []*models.PeerReviewDecision{}
	}
	writeJSON(w, http.StatusOK, decisions)
}

// --- Audit ---

func (s *Server) listAuditEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.svc.ListAuditEvents(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if events == nil {
		events = []*models.AuditEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	report := s.health.Run(r.Context())
	status := http.StatusOK
	if report.Status == health.StatusDown {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}
