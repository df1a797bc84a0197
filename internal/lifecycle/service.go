// Package lifecycle implements the binder test curation pipeline: parse runs,
// the metric store projection, the confirmation gate, summary versioning,
// peer review tracking and the audit ledger that records all of it.
//
// Every mutating operation runs as one store unit of work together with its
// audit events. The only exception is a failed parse, whose failure record is
// written by a second, independent unit after the first one rolled back.
package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/inov8tr/ecolab/internal/archive"
	"github.com/inov8tr/ecolab/internal/extract"
	"github.com/inov8tr/ecolab/internal/models"
	"github.com/inov8tr/ecolab/internal/store"
	"github.com/inov8tr/ecolab/internal/telemetry"
)

// DefaultNamespace prefixes every durable summary identifier.
const DefaultNamespace = "ecotek.binder"

// NotesDrafter writes the narrative notes frozen into a summary payload.
type NotesDrafter interface {
	DraftSummaryNotes(ctx context.Context, test *models.BinderTest, metrics []*models.Metric) (string, error)
}

// Service runs lifecycle operations against a store.
type Service struct {
	store         store.Store
	extractor     extract.Extractor
	publisher     archive.Publisher
	notes         NotesDrafter
	recorder      telemetry.Recorder
	logger        *slog.Logger
	parserVersion string
	namespace     string
	now           func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithExtractor sets the extraction collaborator. Defaults to extract.Placeholder.
func WithExtractor(e extract.Extractor) Option { return func(s *Service) { s.extractor = e } }

// WithPublisher publishes each new summary after it commits.
func WithPublisher(p archive.Publisher) Option { return func(s *Service) { s.publisher = p } }

// WithNotesDrafter drafts summary notes before the summary is frozen.
func WithNotesDrafter(d NotesDrafter) Option { return func(s *Service) { s.notes = d } }

// WithRecorder observes every operation's outcome and latency.
func WithRecorder(r telemetry.Recorder) Option { return func(s *Service) { s.recorder = r } }

// WithLogger sets the logger for best-effort failures.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithParserVersion overrides the parser version stamped on parse runs.
func WithParserVersion(v string) Option {
	return func(s *Service) {
		if v != "" {
			s.parserVersion = v
		}
	}
}

// WithNamespace overrides the durable identifier namespace.
func WithNamespace(ns string) Option {
	return func(s *Service) {
		if ns != "" {
			s.namespace = ns
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService creates a Service over st.
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:         st,
		extractor:     extract.Placeholder{},
		publisher:     archive.Nop{},
		recorder:      telemetry.Nop{},
		logger:        slog.Default(),
		parserVersion: extract.DefaultParserVersion,
		namespace:     DefaultNamespace,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) clock() time.Time { return s.now().UTC() }

// observe records the outcome of an operation; use with defer and a named error.
func (s *Service) observe(op string, start time.Time, errp *error) {
	result := telemetry.ResultOK
	if *errp != nil {
		result = string(KindOf(*errp))
	}
	s.recorder.Observe(op, result, time.Since(start))
}

// loadTest fetches a binder test through q, classifying a miss as NotFound.
func loadTest(ctx context.Context, q store.Queries, op, id string) (*models.BinderTest, error) {
	t, err := q.GetBinderTest(ctx, id)
	if err != nil {
		return nil, classify(op, err)
	}
	return t, nil
}

// requireActive rejects operations on archived tests.
func requireActive(op string, t *models.BinderTest) error {
	if t.IsArchived() {
		return preconditionError(op, ErrArchived)
	}
	return nil
}
