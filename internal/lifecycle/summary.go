package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inov8tr/ecolab/internal/archive"
	"github.com/inov8tr/ecolab/internal/models"
	"github.com/inov8tr/ecolab/internal/store"
)

// DefaultSummaryNotes is frozen into a summary when no notes were drafted.
const DefaultSummaryNotes = "Derived from confirmed metrics only."

// CreateSummaryResult is the externally visible outcome of CreateSummary.
type CreateSummaryResult struct {
	SummaryID              string               `json:"summaryId"`
	Version                int                  `json:"version"`
	DurableID              string               `json:"durableId"`
	Status                 models.SummaryStatus `json:"status"`
	DerivedFromMetricsHash string               `json:"derivedFromMetricsHash"`
	SupersedesSummaryID    string               `json:"supersedesSummaryId,omitempty"`
}

// ResultOf reduces a created summary to its CreateSummaryResult.
func ResultOf(sum *models.Summary) *CreateSummaryResult {
	return &CreateSummaryResult{
		SummaryID:              sum.ID,
		Version:                sum.Version,
		DurableID:              sum.DurableID,
		Status:                 sum.Status,
		DerivedFromMetricsHash: sum.DerivedFromMetricsHash,
		SupersedesSummaryID:    sum.SupersedesSummaryID,
	}
}

// DurableID builds the external reference of a summary version:
// <namespace>.<YYYY>.<MMDD>.<first 8 chars of test id>v<version>.
func DurableID(namespace, testID string, version int, at time.Time) string {
	prefix := testID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	at = at.UTC()
	return fmt.Sprintf("%s.%04d.%s.%sv%d", namespace, at.Year(), at.Format("0102"), prefix, version)
}

// CreateSummary freezes a READY test's confirmed metrics into the next
// summary version. The previous version, if any, is superseded in the same
// unit of work, so exactly one FINAL summary exists afterwards.
//
// Version assignment is max+1 inside the unit; two concurrent creations for
// one test can race, and the loser fails on the (test, version) uniqueness
// constraint rather than producing a duplicate.
func (s *Service) CreateSummary(ctx context.Context, testID string, actor models.Actor) (_ *models.Summary, err error) {
	const op = "create summary"
	defer s.observe("create_summary", time.Now(), &err)

	test, err := loadTest(ctx, s.store, op, testID)
	if err != nil {
		return nil, err
	}
	if err := checkSummarizable(op, test); err != nil {
		return nil, err
	}
	notes := s.draftNotes(ctx, test)

	var created *models.Summary
	err = s.store.InTx(ctx, func(q store.Queries) error {
		t, err := loadTest(ctx, q, op, testID)
		if err != nil {
			return err
		}
		if err := checkSummarizable(op, t); err != nil {
			return err
		}

		metrics, err := q.ListConfirmedMetrics(ctx, testID)
		if err != nil {
			return err
		}
		if len(metrics) == 0 {
			return preconditionError(op, ErrNoConfirmedMetrics)
		}

		version, err := q.NextSummaryVersion(ctx, testID)
		if err != nil {
			return err
		}
		prev, err := q.LatestSummary(ctx, testID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		evidence, err := evidenceFiles(ctx, q, testID)
		if err != nil {
			return err
		}

		at := s.clock()
		durableID := DurableID(s.namespace, testID, version, at)
		sum := &models.Summary{
			ID:                     store.NewID(),
			BinderTestID:           testID,
			Version:                version,
			DurableID:              durableID,
			Status:                 models.SummaryStatusFinal,
			CreatedAt:              at,
			CreatedByUserID:        actor.UserID,
			CreatedByRole:          actor.Role,
			DerivedFromMetricsHash: MetricsHash(metrics),
			Payload: models.SummaryPayload{
				BinderTestID:    testID,
				Version:         version,
				DurableID:       durableID,
				CreatedAt:       at,
				CreatedByUserID: actor.UserID,
				CreatedByRole:   actor.Role,
				Metrics:         metrics,
				EvidenceFiles:   evidence,
				Notes:           notes,
			},
		}
		if prev != nil {
			sum.SupersedesSummaryID = prev.ID
		}
		if err := q.InsertSummary(ctx, sum); err != nil {
			return err
		}

		if prev != nil {
			if err := q.UpdateSummaryStatus(ctx, prev.ID, models.SummaryStatusSuperseded); err != nil {
				return err
			}
			if err := s.record(ctx, q, event{
				testID:     testID,
				eventType:  models.EventSummarySuperseded,
				entityType: models.EntitySummary,
				entityID:   prev.ID,
				actor:      actor,
				before:     map[string]any{"status": prev.Status, "version": prev.Version},
				after:      map[string]any{"status": models.SummaryStatusSuperseded, "supersededBy": sum.ID},
			}); err != nil {
				return err
			}
		}

		if err := s.record(ctx, q, event{
			testID:     testID,
			eventType:  models.EventSummaryCreated,
			entityType: models.EntitySummary,
			entityID:   sum.ID,
			actor:      actor,
			after:      map[string]any{"version": version, "durableId": durableID, "derivedFromMetricsHash": sum.DerivedFromMetricsHash},
		}); err != nil {
			return err
		}
		created = sum
		return nil
	})
	if err != nil {
		err = classify(op, err)
		s.recordFailure(ctx, op, testID, actor, err)
		return nil, err
	}

	s.publish(ctx, created)
	return created, nil
}

func checkSummarizable(op string, t *models.BinderTest) error {
	if err := requireActive(op, t); err != nil {
		return err
	}
	if t.EffectiveLifecycle() != models.LifecycleStatusReady {
		return preconditionError(op, ErrNotReady)
	}
	return nil
}

// evidenceFiles resolves the inputs of the latest completed parse run, in
// run order. A file no longer in the catalog keeps its id with no filename.
func evidenceFiles(ctx context.Context, q store.Queries, testID string) ([]models.EvidenceFile, error) {
	run, err := q.LatestCompletedParseRun(ctx, testID)
	if errors.Is(err, store.ErrNotFound) {
		return []models.EvidenceFile{}, nil
	}
	if err != nil {
		return nil, err
	}
	files, err := q.GetDataFiles(ctx, run.InputFileIDs)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(files))
	for _, f := range files {
		names[f.ID] = f.DisplayName()
	}
	evidence := make([]models.EvidenceFile, 0, len(run.InputFileIDs))
	for _, id := range run.InputFileIDs {
		evidence = append(evidence, models.EvidenceFile{ID: id, Filename: names[id]})
	}
	return evidence, nil
}

// draftNotes asks the notes drafter for narrative notes, falling back to the
// default text when none is configured or drafting fails.
func (s *Service) draftNotes(ctx context.Context, test *models.BinderTest) string {
	if s.notes == nil {
		return DefaultSummaryNotes
	}
	metrics, err := s.store.ListConfirmedMetrics(ctx, test.ID)
	if err != nil || len(metrics) == 0 {
		return DefaultSummaryNotes
	}
	notes, err := s.notes.DraftSummaryNotes(ctx, test, metrics)
	if err != nil {
		s.logger.Warn("summary notes drafting failed", "binder_test_id", test.ID, "error", err)
		return DefaultSummaryNotes
	}
	if notes == "" {
		return DefaultSummaryNotes
	}
	return notes
}

// publish hands a committed summary to the publisher. Failures are logged;
// the summary already exists.
func (s *Service) publish(ctx context.Context, sum *models.Summary) {
	if s.publisher == nil || s.publisher.Driver() == archive.DriverNone {
		return
	}
	receipt, err := s.publisher.Publish(ctx, sum)
	if err != nil {
		s.logger.Warn("summary publication failed", "binder_test_id", sum.BinderTestID, "version", sum.Version, "error", err)
		return
	}
	s.logger.Info("summary published", "binder_test_id", sum.BinderTestID, "version", sum.Version, "location", receipt.Location)
}

// GetSummary returns one summary version.
func (s *Service) GetSummary(ctx context.Context, testID string, version int) (*models.Summary, error) {
	sum, err := s.store.GetSummary(ctx, testID, version)
	if err != nil {
		return nil, classify("get summary", err)
	}
	return sum, nil
}

// ListSummaries returns a test's summaries, newest version first.
func (s *Service) ListSummaries(ctx context.Context, testID string) ([]*models.Summary, error) {
	const op = "list summaries"
	if _, err := loadTest(ctx, s.store, op, testID); err != nil {
		return nil, err
	}
	summaries, err := s.store.ListSummaries(ctx, testID)
	if err != nil {
		return nil, classify(op, err)
	}
	return summaries, nil
}
