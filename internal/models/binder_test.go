package models

import "time"

// LifecycleStatus is the closed set of states a binder test moves through.
type LifecycleStatus string

const (
	LifecycleStatusPendingReview  LifecycleStatus = "PENDING_REVIEW"
	LifecycleStatusReviewRequired LifecycleStatus = "REVIEW_REQUIRED"
	LifecycleStatusReady          LifecycleStatus = "READY"
	LifecycleStatusArchived       LifecycleStatus = "ARCHIVED"
)

// Valid reports whether s is one of the known lifecycle states.
func (s LifecycleStatus) Valid() bool {
	switch s {
	case LifecycleStatusPendingReview, LifecycleStatusReviewRequired, LifecycleStatusReady, LifecycleStatusArchived:
		return true
	}
	return false
}

// BinderTest is the laboratory record under review.
//
// Status is the coarse listing status (PENDING_REVIEW, READY, ARCHIVED) while
// Lifecycle carries the finer review stage. Both are written only by the
// lifecycle controller once the test exists.
type BinderTest struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	TestName            string          `json:"testName"`
	Status              LifecycleStatus `json:"status"`
	Lifecycle           LifecycleStatus `json:"lifecycleStatus"`
	PGHigh              *float64        `json:"pgHigh,omitempty"`
	PGLow               *float64        `json:"pgLow,omitempty"`
	BatchID             string          `json:"batchId,omitempty"`
	BinderSource        string          `json:"binderSource,omitempty"`
	TestPurpose         string          `json:"testPurpose,omitempty"`
	MaterialDescription string          `json:"materialDescription,omitempty"`
	TestStandard        string          `json:"testStandard,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

// EffectiveLifecycle falls back to Status when no lifecycle stage was recorded.
func (t *BinderTest) EffectiveLifecycle() LifecycleStatus {
	if t.Lifecycle != "" {
		return t.Lifecycle
	}
	return t.Status
}

// IsArchived reports whether the test reached the terminal state.
func (t *BinderTest) IsArchived() bool {
	return t.Status == LifecycleStatusArchived || t.Lifecycle == LifecycleStatusArchived
}
