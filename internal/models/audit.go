package models

import (
	"encoding/json"
	"time"
)

// Recognised audit event types. The ledger accepts any non-empty type.
const (
	EventParseStarted            = "PARSE_STARTED"
	EventParseCompleted          = "PARSE_COMPLETED"
	EventMetricsUpserted         = "METRICS_UPSERTED"
	EventMetricsConfirmed        = "METRICS_CONFIRMED"
	EventMetricAddedManually     = "METRIC_ADDED_MANUALLY"
	EventMetricRepositioned      = "METRIC_REPOSITIONED"
	EventSummaryCreated          = "SUMMARY_CREATED"
	EventSummarySuperseded       = "SUMMARY_SUPERSEDED"
	EventPeerCommentAdded        = "PEER_COMMENT_ADDED"
	EventPeerCommentResolved     = "PEER_COMMENT_RESOLVED"
	EventPeerReviewDecisionAdded = "PEER_REVIEW_DECISION_ADDED"
	EventTestArchived            = "TEST_ARCHIVED"
	EventOperationFailed         = "OPERATION_FAILED"
)

// Entity types referenced by audit events.
const (
	EntityParseRun       = "parse_run"
	EntityMetric         = "metric"
	EntitySummary        = "summary"
	EntityComment        = "comment"
	EntityReviewDecision = "review_decision"
	EntityBinderTest     = "binder_test"
)

// AuditEvent is one immutable ledger entry.
type AuditEvent struct {
	ID                string          `json:"id"`
	BinderTestID      string          `json:"binderTestId"`
	EventType         string          `json:"eventType"`
	EntityType        string          `json:"entityType,omitempty"`
	EntityID          string          `json:"entityId,omitempty"`
	PerformedByUserID string          `json:"performedByUserId,omitempty"`
	PerformedByRole   string          `json:"performedByRole,omitempty"`
	PerformedAt       time.Time       `json:"performedAt"`
	Before            json.RawMessage `json:"beforeJson,omitempty"`
	After             json.RawMessage `json:"afterJson,omitempty"`
	Notes             string          `json:"notes,omitempty"`
}

// Actor is the caller identity as given; no policy is applied to it.
type Actor struct {
	UserID string `json:"userId,omitempty"`
	Role   string `json:"role,omitempty"`
}
