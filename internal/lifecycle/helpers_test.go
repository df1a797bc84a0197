package lifecycle

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inov8tr/ecolab/internal/extract"
	"github.com/inov8tr/ecolab/internal/models"
	"github.com/inov8tr/ecolab/internal/store"
)

var (
	testActor = models.Actor{UserID: "tech-1", Role: "TECHNICIAN"}
	fixedNow  = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
)

func newTestStore(t *testing.T) *store.SQLStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// positionsExtractor emits one metric per position, valued 1, 2, ...
func positionsExtractor(positions ...string) extract.Extractor {
	return extract.ExtractorFunc(func(ctx context.Context, in extract.Input) ([]*models.Metric, error) {
		var out []*models.Metric
		for i, p := range positions {
			v := float64(i + 1)
			out = append(out, &models.Metric{
				MetricType:   "G*/sin(delta)",
				MetricName:   "Rutting parameter",
				Position:     p,
				Value:        &v,
				Units:        "kPa",
				SourceFileID: in.Files[0].ID,
			})
		}
		return out, nil
	})
}

func newTestService(t *testing.T, opts ...Option) (*Service, *store.SQLStore) {
	t.Helper()
	st := newTestStore(t)
	base := []Option{
		WithExtractor(positionsExtractor("POS_A", "POS_B")),
		WithClock(func() time.Time { return fixedNow }),
	}
	return NewService(st, append(base, opts...)...), st
}

// seedTest creates a binder test with one PDF data file.
func seedTest(t *testing.T, svc *Service) (*models.BinderTest, *models.DataFile) {
	t.Helper()
	ctx := context.Background()
	bt, err := svc.CreateBinderTest(ctx, NewBinderTest{Name: "PG 64-22 trial"})
	require.NoError(t, err)
	f, err := svc.AddDataFile(ctx, bt.ID, NewDataFile{FileURL: "s3://lab/dsr.pdf", FileType: "application/pdf", Label: "dsr.pdf"})
	require.NoError(t, err)
	return bt, f
}

// seedReady parses and confirms a seeded test.
func seedReady(t *testing.T, svc *Service) *models.BinderTest {
	t.Helper()
	ctx := context.Background()
	bt, _ := seedTest(t, svc)
	_, err := svc.Parse(ctx, bt.ID, testActor)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, bt.ID, testActor)
	require.NoError(t, err)
	return bt
}

func eventTypes(t *testing.T, svc *Service, testID string) []string {
	t.Helper()
	events, err := svc.ListAuditEvents(context.Background(), testID)
	require.NoError(t, err)
	var types []string
	for _, e := range events {
		types = append(types, e.EventType)
	}
	return types
}

var errInjected = errors.New("injected failure")

// faultyStore fails the named Queries method inside units of work.
type faultyStore struct {
	store.Store
	failOn string
}

func (f *faultyStore) InTx(ctx context.Context, fn func(q store.Queries) error) error {
	return f.Store.InTx(ctx, func(q store.Queries) error {
		return fn(&faultyQueries{Queries: q, failOn: f.failOn})
	})
}

type faultyQueries struct {
	store.Queries
	failOn string
}

func (q *faultyQueries) FinishParseRun(ctx context.Context, run *models.ParseRun) error {
	if q.failOn == "FinishParseRun" && run.Status == models.ParseRunStatusCompleted {
		return errInjected
	}
	return q.Queries.FinishParseRun(ctx, run)
}

func (q *faultyQueries) ConfirmMetrics(ctx context.Context, testID string, actor models.Actor, at time.Time) (int64, error) {
	if q.failOn == "ConfirmMetrics" {
		return 0, errInjected
	}
	return q.Queries.ConfirmMetrics(ctx, testID, actor, at)
}

func (q *faultyQueries) InsertSummary(ctx context.Context, s *models.Summary) error {
	if q.failOn == "InsertSummary" {
		return errInjected
	}
	return q.Queries.InsertSummary(ctx, s)
}

// fakeRecorder captures observations.
type fakeRecorder struct {
	mu   sync.Mutex
	seen []string
}

func (r *fakeRecorder) Observe(op, result string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, op+":"+result)
}

type fakeDrafter struct {
	notes string
	err   error
}

func (d fakeDrafter) DraftSummaryNotes(context.Context, *models.BinderTest, []*models.Metric) (string, error) {
	return d.notes, d.err
}
