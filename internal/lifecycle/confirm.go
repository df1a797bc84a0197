package lifecycle

import (
	"context"
	"time"

	"github.com/inov8tr/ecolab/internal/models"
	"github.com/inov8tr/ecolab/internal/store"
)

// ConfirmResult is the outcome of a successful confirmation.
type ConfirmResult struct {
	Status           models.LifecycleStatus `json:"status"`
	MetricsConfirmed int64                  `json:"metricsConfirmed"`
}

// Confirm is the confirmation gate. It refuses a test with no metrics or with
// any metric, confirmed or not, positioned UNKNOWN. Otherwise every
// unconfirmed metric is stamped with the actor and the test becomes READY.
// Re-running it confirms zero rows and still succeeds.
func (s *Service) Confirm(ctx context.Context, testID string, actor models.Actor) (_ *ConfirmResult, err error) {
	const op = "confirm"
	defer s.observe("confirm", time.Now(), &err)

	var result *ConfirmResult
	err = s.store.InTx(ctx, func(q store.Queries) error {
		t, err := loadTest(ctx, q, op, testID)
		if err != nil {
			return err
		}
		if err := requireActive(op, t); err != nil {
			return err
		}

		metrics, err := q.ListMetrics(ctx, testID)
		if err != nil {
			return err
		}
		if len(metrics) == 0 {
			return preconditionError(op, ErrNoMetricsToConfirm)
		}
		for _, m := range metrics {
			if m.HasUnknownPosition() {
				return preconditionError(op, ErrInvalidPosition)
			}
		}

		n, err := q.ConfirmMetrics(ctx, testID, actor, s.clock())
		if err != nil {
			return err
		}
		if err := transition(ctx, q, op, t, triggerConfirmed); err != nil {
			return err
		}
		if err := s.record(ctx, q, event{
			testID:     testID,
			eventType:  models.EventMetricsConfirmed,
			entityType: models.EntityMetric,
			actor:      actor,
			after:      map[string]any{"count": n},
		}); err != nil {
			return err
		}
		result = &ConfirmResult{Status: t.Lifecycle, MetricsConfirmed: n}
		return nil
	})
	if err != nil {
		err = classify(op, err)
		s.recordFailure(ctx, op, testID, actor, err)
		return nil, err
	}
	return result, nil
}
