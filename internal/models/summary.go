package models

import "time"

// SummaryStatus represents whether a summary is the current version.
type SummaryStatus string

const (
	SummaryStatusFinal      SummaryStatus = "FINAL"
	SummaryStatusSuperseded SummaryStatus = "SUPERSEDED"
)

// Summary is an immutable, versioned snapshot of a test's confirmed metrics.
// Only Status changes after creation, when the next version supersedes it.
type Summary struct {
	ID                     string         `json:"id"`
	BinderTestID           string         `json:"binderTestId"`
	Version                int            `json:"version"`
	DurableID              string         `json:"durableId"`
	Status                 SummaryStatus  `json:"status"`
	CreatedAt              time.Time      `json:"createdAt"`
	CreatedByUserID        string         `json:"createdByUserId,omitempty"`
	CreatedByRole          string         `json:"createdByRole,omitempty"`
	DerivedFromMetricsHash string         `json:"derivedFromMetricsHash"`
	Payload                SummaryPayload `json:"summaryJson"`
	SupersedesSummaryID    string         `json:"supersedesSummaryId,omitempty"`
}

// SummaryPayload is the frozen document stored with a summary.
type SummaryPayload struct {
	BinderTestID    string         `json:"binder_test_id"`
	Version         int            `json:"version"`
	DurableID       string         `json:"durable_id"`
	CreatedAt       time.Time      `json:"created_at"`
	CreatedByUserID string         `json:"created_by_user_id,omitempty"`
	CreatedByRole   string         `json:"created_by_role,omitempty"`
	Metrics         []*Metric      `json:"metrics"`
	EvidenceFiles   []EvidenceFile `json:"evidence_files"`
	Notes           string         `json:"notes"`
}
