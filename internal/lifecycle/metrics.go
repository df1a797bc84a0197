package lifecycle

import (
	"context"
	"strings"
	"time"

	"github.com/inov8tr/ecolab/internal/models"
	"github.com/inov8tr/ecolab/internal/store"
)

// ListMetrics returns a test's metrics in creation order.
func (s *Service) ListMetrics(ctx context.Context, testID string) ([]*models.Metric, error) {
	const op = "list metrics"
	if _, err := loadTest(ctx, s.store, op, testID); err != nil {
		return nil, err
	}
	metrics, err := s.store.ListMetrics(ctx, testID)
	if err != nil {
		return nil, classify(op, err)
	}
	return metrics, nil
}

// ManualMetricInput is a measurement entered by hand.
type ManualMetricInput struct {
	MetricType   string   `json:"metricType"`
	MetricName   string   `json:"metricName,omitempty"`
	Position     string   `json:"position,omitempty"`
	Value        *float64 `json:"value"`
	Units        string   `json:"units,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	Frequency    *float64 `json:"frequency,omitempty"`
	SourceFileID string   `json:"sourceFileId,omitempty"`
	SourcePage   *int     `json:"sourcePage,omitempty"`
}

// AddManualMetric records a hand-entered metric. It belongs to no parse run
// and is confirmed by the actor who entered it, so re-parsing keeps it.
func (s *Service) AddManualMetric(ctx context.Context, testID string, in ManualMetricInput, actor models.Actor) (_ *models.Metric, err error) {
	const op = "add manual metric"
	defer s.observe("add_manual_metric", time.Now(), &err)

	if strings.TrimSpace(in.MetricType) == "" || in.Value == nil {
		return nil, validationError(op, ErrInvalidMetric)
	}
	m := &models.Metric{
		BinderTestID:      testID,
		MetricType:        strings.TrimSpace(in.MetricType),
		MetricName:        in.MetricName,
		Position:          strings.TrimSpace(in.Position),
		Value:             in.Value,
		Units:             in.Units,
		Temperature:       in.Temperature,
		Frequency:         in.Frequency,
		SourceFileID:      in.SourceFileID,
		SourcePage:        in.SourcePage,
		IsUserConfirmed:   true,
		ConfirmedByUserID: actor.UserID,
		ConfirmedByRole:   actor.Role,
	}
	if m.HasUnknownPosition() {
		return nil, validationError(op, ErrInvalidPosition)
	}

	err = s.store.InTx(ctx, func(q store.Queries) error {
		t, err := loadTest(ctx, q, op, testID)
		if err != nil {
			return err
		}
		if err := requireActive(op, t); err != nil {
			return err
		}
		at := s.clock()
		m.ConfirmedAt = &at
		if err := q.InsertMetric(ctx, m); err != nil {
			return err
		}
		return s.record(ctx, q, event{
			testID:     testID,
			eventType:  models.EventMetricAddedManually,
			entityType: models.EntityMetric,
			entityID:   m.ID,
			actor:      actor,
			after:      m,
		})
	})
	if err != nil {
		err = classify(op, err)
		s.recordFailure(ctx, op, testID, actor, err)
		return nil, err
	}
	return m, nil
}

// RepositionMetric corrects the position of an unconfirmed metric, typically
// to clear an UNKNOWN that blocks confirmation.
func (s *Service) RepositionMetric(ctx context.Context, testID, metricID, position string, actor models.Actor) (_ *models.Metric, err error) {
	const op = "reposition metric"
	defer s.observe("reposition_metric", time.Now(), &err)

	position = strings.TrimSpace(position)
	if position == "" || strings.EqualFold(position, models.PositionUnknown) {
		return nil, validationError(op, ErrInvalidPosition)
	}

	var updated *models.Metric
	err = s.store.InTx(ctx, func(q store.Queries) error {
		t, err := loadTest(ctx, q, op, testID)
		if err != nil {
			return err
		}
		if err := requireActive(op, t); err != nil {
			return err
		}
		m, err := q.GetMetric(ctx, testID, metricID)
		if err != nil {
			return err
		}
		if m.IsUserConfirmed {
			return preconditionError(op, ErrMetricConfirmed)
		}
		before := m.Position
		if err := q.UpdateMetricPosition(ctx, m.ID, position); err != nil {
			return err
		}
		m.Position = position
		updated = m
		return s.record(ctx, q, event{
			testID:     testID,
			eventType:  models.EventMetricRepositioned,
			entityType: models.EntityMetric,
			entityID:   m.ID,
			actor:      actor,
			before:     map[string]string{"position": before},
			after:      map[string]string{"position": position},
		})
	})
	if err != nil {
		err = classify(op, err)
		s.recordFailure(ctx, op, testID, actor, err)
		return nil, err
	}
	return updated, nil
}
