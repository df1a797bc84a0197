package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/inov8tr/ecolab/internal/models"
	"github.com/inov8tr/ecolab/internal/store"
)

// trigger names a lifecycle transition.
type trigger string

const (
	triggerParsed    trigger = "parsed"
	triggerConfirmed trigger = "confirmed"
	triggerArchived  trigger = "archived"
)

// transitions maps each trigger to the (status, lifecycle) pair it sets.
// Peer review decisions have no entry: they never move a test.
var transitions = map[trigger]struct {
	status    models.LifecycleStatus
	lifecycle models.LifecycleStatus
}{
	triggerParsed:    {models.LifecycleStatusPendingReview, models.LifecycleStatusReviewRequired},
	triggerConfirmed: {models.LifecycleStatusReady, models.LifecycleStatusReady},
	triggerArchived:  {models.LifecycleStatusArchived, models.LifecycleStatusArchived},
}

// transition is the only writer of a test's status fields once it exists.
// ARCHIVED is terminal.
func transition(ctx context.Context, q store.Queries, op string, t *models.BinderTest, tr trigger) error {
	if t.IsArchived() {
		return preconditionError(op, ErrArchived)
	}
	next := transitions[tr]
	if err := q.UpdateBinderTestStatus(ctx, t.ID, next.status, next.lifecycle); err != nil {
		return err
	}
	t.Status = next.status
	t.Lifecycle = next.lifecycle
	return nil
}

// NewBinderTest is the input for CreateBinderTest.
type NewBinderTest struct {
	Name                string   `json:"name"`
	TestName            string   `json:"testName,omitempty"`
	PGHigh              *float64 `json:"pgHigh,omitempty"`
	PGLow               *float64 `json:"pgLow,omitempty"`
	BatchID             string   `json:"batchId,omitempty"`
	BinderSource        string   `json:"binderSource,omitempty"`
	TestPurpose         string   `json:"testPurpose,omitempty"`
	MaterialDescription string   `json:"materialDescription,omitempty"`
	TestStandard        string   `json:"testStandard,omitempty"`
}

// CreateBinderTest adds a test to the catalog in PENDING_REVIEW.
func (s *Service) CreateBinderTest(ctx context.Context, in NewBinderTest) (_ *models.BinderTest, err error) {
	const op = "create binder test"
	defer s.observe("create_test", time.Now(), &err)

	if strings.TrimSpace(in.Name) == "" {
		return nil, validationError(op, ErrInvalidTest)
	}
	t := &models.BinderTest{
		Name:                strings.TrimSpace(in.Name),
		TestName:            in.TestName,
		PGHigh:              in.PGHigh,
		PGLow:               in.PGLow,
		BatchID:             in.BatchID,
		BinderSource:        in.BinderSource,
		TestPurpose:         in.TestPurpose,
		MaterialDescription: in.MaterialDescription,
		TestStandard:        in.TestStandard,
		Status:              models.LifecycleStatusPendingReview,
		Lifecycle:           models.LifecycleStatusPendingReview,
	}
	if err := s.store.CreateBinderTest(ctx, t); err != nil {
		return nil, classify(op, err)
	}
	return t, nil
}

// GetBinderTest returns one test.
func (s *Service) GetBinderTest(ctx context.Context, id string) (*models.BinderTest, error) {
	return loadTest(ctx, s.store, "get binder test", id)
}

// ListBinderTests lists tests matching filter. Archived tests are excluded
// unless filter.Status asks for them.
func (s *Service) ListBinderTests(ctx context.Context, filter store.BinderTestListFilter) ([]*models.BinderTest, error) {
	const op = "list binder tests"
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, validationError(op, fmt.Errorf("unknown status %q", filter.Status))
	}
	tests, err := s.store.ListBinderTests(ctx, filter)
	if err != nil {
		return nil, classify(op, err)
	}
	return tests, nil
}

// NewDataFile is the input for AddDataFile.
type NewDataFile struct {
	FileURL  string `json:"fileUrl"`
	FileType string `json:"fileType,omitempty"`
	Label    string `json:"label,omitempty"`
}

// AddDataFile attaches a data file to a test's catalog.
func (s *Service) AddDataFile(ctx context.Context, testID string, in NewDataFile) (_ *models.DataFile, err error) {
	const op = "add data file"
	defer s.observe("add_file", time.Now(), &err)

	if strings.TrimSpace(in.FileURL) == "" {
		return nil, validationError(op, ErrInvalidFile)
	}
	if _, err := loadTest(ctx, s.store, op, testID); err != nil {
		return nil, err
	}
	f := &models.DataFile{
		BinderTestID: testID,
		FileURL:      strings.TrimSpace(in.FileURL),
		FileType:     in.FileType,
		Label:        in.Label,
		CreatedAt:    s.clock(),
	}
	if err := s.store.CreateDataFile(ctx, f); err != nil {
		return nil, classify(op, err)
	}
	return f, nil
}

// ListDataFiles returns a test's files in creation order.
func (s *Service) ListDataFiles(ctx context.Context, testID string) ([]*models.DataFile, error) {
	const op = "list data files"
	if _, err := loadTest(ctx, s.store, op, testID); err != nil {
		return nil, err
	}
	files, err := s.store.ListDataFiles(ctx, testID)
	if err != nil {
		return nil, classify(op, err)
	}
	return files, nil
}

// Archive moves a test to the terminal ARCHIVED state.
func (s *Service) Archive(ctx context.Context, testID string, actor models.Actor) (_ *models.BinderTest, err error) {
	const op = "archive"
	defer s.observe("archive", time.Now(), &err)

	var archived *models.BinderTest
	err = s.store.InTx(ctx, func(q store.Queries) error {
		t, err := loadTest(ctx, q, op, testID)
		if err != nil {
			return err
		}
		before := map[string]any{"status": t.Status, "lifecycleStatus": t.Lifecycle}
		if err := transition(ctx, q, op, t, triggerArchived); err != nil {
			return err
		}
		archived = t
		return s.record(ctx, q, event{
			testID:     testID,
			eventType:  models.EventTestArchived,
			entityType: models.EntityBinderTest,
			entityID:   testID,
			actor:      actor,
			before:     before,
			after:      map[string]any{"status": t.Status, "lifecycleStatus": t.Lifecycle},
		})
	})
	if err != nil {
		err = classify(op, err)
		s.recordFailure(ctx, op, testID, actor, err)
		return nil, err
	}
	return archived, nil
}
