package store

import (
	"context"
	"errors"
	"time"

	"github.com/inov8tr/ecolab/internal/models"
)

// ErrNotFound is wrapped by every lookup that matches no row.
var ErrNotFound = errors.New("not found")

// BinderTestListFilter specifies filters for listing binder tests.
// An empty Status excludes archived tests.
type BinderTestListFilter struct {
	Query  string
	Status models.LifecycleStatus
}

// Queries is the read/write contract shared by the store and by a unit of work.
type Queries interface {
	// Binder tests
	CreateBinderTest(ctx context.Context, t *models.BinderTest) error
	GetBinderTest(ctx context.Context, id string) (*models.BinderTest, error)
	ListBinderTests(ctx context.Context, filter BinderTestListFilter) ([]*models.BinderTest, error)
	UpdateBinderTestStatus(ctx context.Context, id string, status, lifecycle models.LifecycleStatus) error

	// Data files (catalog)
	CreateDataFile(ctx context.Context, f *models.DataFile) error
	ListDataFiles(ctx context.Context, binderTestID string) ([]*models.DataFile, error)
	GetDataFiles(ctx context.Context, ids []string) ([]*models.DataFile, error)

	// Parse runs
	CreateParseRun(ctx context.Context, run *models.ParseRun) error
	GetParseRun(ctx context.Context, id string) (*models.ParseRun, error)
	FinishParseRun(ctx context.Context, run *models.ParseRun) error
	LatestCompletedParseRun(ctx context.Context, binderTestID string) (*models.ParseRun, error)

	// Metrics
	InsertMetric(ctx context.Context, m *models.Metric) error
	GetMetric(ctx context.Context, binderTestID, id string) (*models.Metric, error)
	ListMetrics(ctx context.Context, binderTestID string) ([]*models.Metric, error)
	ListConfirmedMetrics(ctx context.Context, binderTestID string) ([]*models.Metric, error)
	DeleteUnconfirmedMetrics(ctx context.Context, binderTestID string) (int64, error)
	ConfirmMetrics(ctx context.Context, binderTestID string, actor models.Actor, at time.Time) (int64, error)
	UpdateMetricPosition(ctx context.Context, id, position string) error

	// Summaries
	NextSummaryVersion(ctx context.Context, binderTestID string) (int, error)
	LatestSummary(ctx context.Context, binderTestID string) (*models.Summary, error)
	InsertSummary(ctx context.Context, s *models.Summary) error
	UpdateSummaryStatus(ctx context.Context, id string, status models.SummaryStatus) error
	GetSummary(ctx context.Context, binderTestID string, version int) (*models.Summary, error)
	ListSummaries(ctx context.Context, binderTestID string) ([]*models.Summary, error)

	// Peer review
	InsertPeerComment(ctx context.Context, c *models.PeerComment) error
	GetPeerComment(ctx context.Context, binderTestID, id string) (*models.PeerComment, error)
	ResolvePeerComment(ctx context.Context, id, resolvedBy string, at time.Time) error
	ListPeerComments(ctx context.Context, binderTestID string, version *int) ([]*models.PeerComment, error)
	InsertPeerReviewDecision(ctx context.Context, d *models.PeerReviewDecision) error
	ListPeerReviewDecisions(ctx context.Context, binderTestID string, version int) ([]*models.PeerReviewDecision, error)

	// Audit ledger (append-only)
	AppendAuditEvent(ctx context.Context, e *models.AuditEvent) error
	ListAuditEvents(ctx context.Context, binderTestID string) ([]*models.AuditEvent, error)
}

// Store defines the persistence interface for ecolab.
type Store interface {
	Queries

	// InTx runs fn inside one transaction. The transaction commits when fn
	// returns nil and rolls back on error or panic; it is always released.
	InTx(ctx context.Context, fn func(q Queries) error) error

	// Lifecycle
	Driver() Driver
	Migrate(ctx context.Context) error
	Close() error
}
