package models

import "time"

// Recognised comment types. The set is open: any non-empty type is stored.
const (
	CommentTypeQuestion = "QUESTION"
	CommentTypeConcern  = "CONCERN"
	CommentTypeNote     = "NOTE"
)

// Recognised review decisions. The set is open: any non-empty decision is stored.
const (
	DecisionApprove        = "APPROVE"
	DecisionAccept         = "ACCEPT"
	DecisionReject         = "REJECT"
	DecisionRequestChanges = "REQUEST_CHANGES"
	DecisionCommentOnly    = "COMMENT_ONLY"
)

// PeerComment is free-text feedback on a test, optionally tied to a summary version.
type PeerComment struct {
	ID               string     `json:"id"`
	BinderTestID     string     `json:"binderTestId"`
	SummaryVersion   *int       `json:"summaryVersion,omitempty"`
	CommentType      string     `json:"commentType"`
	CommentText      string     `json:"commentText"`
	CreatedByUserID  string     `json:"createdByUserId,omitempty"`
	CreatedByRole    string     `json:"createdByRole,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	Resolved         bool       `json:"resolved"`
	ResolvedByUserID string     `json:"resolvedByUserId,omitempty"`
	ResolvedAt       *time.Time `json:"resolvedAt,omitempty"`
}

// PeerReviewDecision is a reviewer's verdict against one summary version.
type PeerReviewDecision struct {
	ID             string    `json:"id"`
	BinderTestID   string    `json:"binderTestId"`
	SummaryVersion int       `json:"summaryVersion"`
	Decision       string    `json:"decision"`
	DecisionNotes  string    `json:"decisionNotes,omitempty"`
	ReviewerUserID string    `json:"reviewerUserId,omitempty"`
	ReviewerRole   string    `json:"reviewerRole,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}
