package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/inov8tr/ecolab/internal/models"
	"github.com/inov8tr/ecolab/internal/store"
)

// event is one ledger entry about to be appended.
type event struct {
	testID     string
	eventType  string
	entityType string
	entityID   string
	actor      models.Actor
	before     any
	after      any
	notes      string
}

// record appends e through q, inside whatever unit of work q belongs to.
func (s *Service) record(ctx context.Context, q store.Queries, e event) error {
	before, err := snapshot(e.before)
	if err != nil {
		return err
	}
	after, err := snapshot(e.after)
	if err != nil {
		return err
	}
	return q.AppendAuditEvent(ctx, &models.AuditEvent{
		BinderTestID:      e.testID,
		EventType:         e.eventType,
		EntityType:        e.entityType,
		EntityID:          e.entityID,
		PerformedByUserID: e.actor.UserID,
		PerformedByRole:   e.actor.Role,
		PerformedAt:       s.clock(),
		Before:            before,
		After:             after,
		Notes:             e.notes,
	})
}

func snapshot(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode audit snapshot: %w", err)
	}
	return data, nil
}

// recordFailure writes an OPERATION_FAILED entry in a fresh unit of work after
// the operation's own unit rolled back. Only persistence failures are
// recorded; validation, not-found and precondition failures never mutate.
// The write survives cancellation of ctx and its own failure is only logged.
func (s *Service) recordFailure(ctx context.Context, op, testID string, actor models.Actor, cause error) {
	if KindOf(cause) != KindPersistence {
		return
	}
	ctx = context.WithoutCancel(ctx)
	err := s.store.InTx(ctx, func(q store.Queries) error {
		return s.record(ctx, q, event{
			testID:    testID,
			eventType: models.EventOperationFailed,
			actor:     actor,
			after:     map[string]any{"operation": op, "error": cause.Error()},
		})
	})
	if err != nil {
		s.logger.Warn("failed to record operation failure", "operation", op, "binder_test_id", testID, "error", err)
	}
}

// ListAuditEvents returns a test's ledger, newest first.
func (s *Service) ListAuditEvents(ctx context.Context, testID string) ([]*models.AuditEvent, error) {
	const op = "list audit events"
	if _, err := loadTest(ctx, s.store, op, testID); err != nil {
		return nil, err
	}
	events, err := s.store.ListAuditEvents(ctx, testID)
	if err != nil {
		return nil, classify(op, err)
	}
	return events, nil
}
