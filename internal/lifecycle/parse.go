package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/inov8tr/ecolab/internal/extract"
	"github.com/inov8tr/ecolab/internal/models"
	"github.com/inov8tr/ecolab/internal/store"
)

// ParseStatusParsed is reported by a successful parse.
const ParseStatusParsed = "PARSED"

// ParseResult is the outcome of a successful parse.
type ParseResult struct {
	Status          string `json:"status"`
	MetricsInserted int    `json:"metricsInserted"`
	ParseRunID      string `json:"parseRunId"`
}

// Parse runs one ingestion attempt for a test: it records the run, replaces
// the test's unconfirmed metrics with freshly extracted ones and moves the
// test to REVIEW_REQUIRED. Confirmed metrics from earlier runs are kept.
//
// On failure after the run was started, the run is marked FAILED in a
// separate unit of work and the original error is returned.
func (s *Service) Parse(ctx context.Context, testID string, actor models.Actor) (_ *ParseResult, err error) {
	const op = "parse"
	defer s.observe("parse", time.Now(), &err)

	test, err := loadTest(ctx, s.store, op, testID)
	if err != nil {
		return nil, err
	}
	if err := requireActive(op, test); err != nil {
		return nil, err
	}

	files, err := s.store.ListDataFiles(ctx, testID)
	if err != nil {
		return nil, classify(op, err)
	}
	candidates := extract.FilterCandidates(files)
	if len(candidates) == 0 {
		return nil, validationError(op, ErrNoParseableInput)
	}

	run, err := s.startRun(ctx, test, candidates, actor)
	if err != nil {
		return nil, classify(op, err)
	}

	inserted, err := s.completeRun(ctx, test, run, candidates, actor)
	if err != nil {
		s.recordParseFailure(ctx, run, actor, err)
		return nil, classify(op, err)
	}

	return &ParseResult{Status: ParseStatusParsed, MetricsInserted: inserted, ParseRunID: run.ID}, nil
}

// startRun persists the STARTED run and its PARSE_STARTED event in their own
// committed unit, before any metric is touched.
func (s *Service) startRun(ctx context.Context, test *models.BinderTest, candidates []*models.DataFile, actor models.Actor) (*models.ParseRun, error) {
	fileIDs := make([]string, len(candidates))
	for i, f := range candidates {
		fileIDs[i] = f.ID
	}
	run := &models.ParseRun{
		ID:             store.NewID(),
		BinderTestID:   test.ID,
		InputFileIDs:   fileIDs,
		InputFilesHash: InputFilesHash(candidates),
		ParserVersion:  s.parserVersion,
		Status:         models.ParseRunStatusStarted,
		StartedAt:      s.clock(),
	}

	err := s.store.InTx(ctx, func(q store.Queries) error {
		if err := q.CreateParseRun(ctx, run); err != nil {
			return err
		}
		return s.record(ctx, q, event{
			testID:     test.ID,
			eventType:  models.EventParseStarted,
			entityType: models.EntityParseRun,
			entityID:   run.ID,
			actor:      actor,
			after:      map[string]any{"parserVersion": run.ParserVersion, "inputFilesHash": run.InputFilesHash},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("start parse run: %w", err)
	}
	return run, nil
}

// completeRun extracts metrics and commits them, the COMPLETED run, both
// completion events and the lifecycle transition as one unit.
func (s *Service) completeRun(ctx context.Context, test *models.BinderTest, run *models.ParseRun, candidates []*models.DataFile, actor models.Actor) (int, error) {
	extracted, err := s.extractor.Extract(ctx, extract.Input{Test: test, Files: candidates})
	if err != nil {
		return 0, fmt.Errorf("extract metrics: %w", err)
	}

	inserted := 0
	err = s.store.InTx(ctx, func(q store.Queries) error {
		if _, err := q.DeleteUnconfirmedMetrics(ctx, test.ID); err != nil {
			return err
		}
		for _, m := range extracted {
			m.ID = ""
			m.BinderTestID = test.ID
			m.ParseRunID = run.ID
			m.IsUserConfirmed = false
			m.ConfirmedByUserID = ""
			m.ConfirmedByRole = ""
			m.ConfirmedAt = nil
			if err := q.InsertMetric(ctx, m); err != nil {
				return err
			}
			inserted++
		}

		completedAt := s.clock()
		run.Status = models.ParseRunStatusCompleted
		run.CompletedAt = &completedAt
		if err := q.FinishParseRun(ctx, run); err != nil {
			return err
		}

		if err := s.record(ctx, q, event{
			testID:     test.ID,
			eventType:  models.EventParseCompleted,
			entityType: models.EntityParseRun,
			entityID:   run.ID,
			actor:      actor,
			after:      map[string]any{"status": run.Status, "metricsInserted": inserted},
		}); err != nil {
			return err
		}
		if err := s.record(ctx, q, event{
			testID:     test.ID,
			eventType:  models.EventMetricsUpserted,
			entityType: models.EntityParseRun,
			entityID:   run.ID,
			actor:      actor,
			after:      map[string]any{"count": inserted},
		}); err != nil {
			return err
		}
		return transition(ctx, q, "parse", test, triggerParsed)
	})
	if err != nil {
		run.Status = models.ParseRunStatusStarted
		run.CompletedAt = nil
		return 0, err
	}
	return inserted, nil
}

// recordParseFailure marks run FAILED and emits PARSE_COMPLETED with status
// FAILED in a fresh unit of work, after the parse unit rolled back. It runs
// even if ctx was cancelled; its own failure is logged, never returned.
func (s *Service) recordParseFailure(ctx context.Context, run *models.ParseRun, actor models.Actor, cause error) {
	ctx = context.WithoutCancel(ctx)
	completedAt := s.clock()
	failed := *run
	failed.Status = models.ParseRunStatusFailed
	failed.ErrorMessage = cause.Error()
	failed.CompletedAt = &completedAt

	err := s.store.InTx(ctx, func(q store.Queries) error {
		if err := q.FinishParseRun(ctx, &failed); err != nil {
			return err
		}
		return s.record(ctx, q, event{
			testID:     run.BinderTestID,
			eventType:  models.EventParseCompleted,
			entityType: models.EntityParseRun,
			entityID:   run.ID,
			actor:      actor,
			after:      map[string]any{"status": models.ParseRunStatusFailed, "error": cause.Error()},
		})
	})
	if err != nil {
		s.logger.Warn("failed to record parse failure", "parse_run_id", run.ID, "binder_test_id", run.BinderTestID, "error", err)
		return
	}
	*run = failed
}
