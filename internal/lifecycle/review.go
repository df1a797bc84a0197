package lifecycle

import (
	"context"
	"strings"
	"time"

	"github.com/inov8tr/ecolab/internal/models"
	"github.com/inov8tr/ecolab/internal/store"
)

// CommentInput is the input for AddComment. The comment type is upper-cased;
// any non-empty type is accepted (see models.CommentTypeQuestion and friends
// for the recognised set).
type CommentInput struct {
	CommentType    string `json:"commentType"`
	CommentText    string `json:"commentText"`
	SummaryVersion *int   `json:"summaryVersion,omitempty"`
}

// DecisionInput is the input for AddDecision.
type DecisionInput struct {
	SummaryVersion *int   `json:"summaryVersion"`
	Decision       string `json:"decision"`
	DecisionNotes  string `json:"decisionNotes,omitempty"`
}

// AddComment records peer feedback. The referenced summary version is not
// checked for existence.
func (s *Service) AddComment(ctx context.Context, testID string, in CommentInput, actor models.Actor) (_ *models.PeerComment, err error) {
	const op = "add peer comment"
	defer s.observe("add_comment", time.Now(), &err)

	commentType := strings.ToUpper(strings.TrimSpace(in.CommentType))
	if commentType == "" || strings.TrimSpace(in.CommentText) == "" {
		return nil, validationError(op, ErrInvalidComment)
	}

	c := &models.PeerComment{
		BinderTestID:    testID,
		SummaryVersion:  in.SummaryVersion,
		CommentType:     commentType,
		CommentText:     in.CommentText,
		CreatedByUserID: actor.UserID,
		CreatedByRole:   actor.Role,
	}
	err = s.store.InTx(ctx, func(q store.Queries) error {
		if _, err := loadTest(ctx, q, op, testID); err != nil {
			return err
		}
		c.CreatedAt = s.clock()
		if err := q.InsertPeerComment(ctx, c); err != nil {
			return err
		}
		return s.record(ctx, q, event{
			testID:     testID,
			eventType:  models.EventPeerCommentAdded,
			entityType: models.EntityComment,
			entityID:   c.ID,
			actor:      actor,
			after:      map[string]any{"summaryVersion": c.SummaryVersion, "commentType": c.CommentType},
		})
	})
	if err != nil {
		err = classify(op, err)
		s.recordFailure(ctx, op, testID, actor, err)
		return nil, err
	}
	return c, nil
}

// ResolveComment marks a comment resolved by actor. Resolving twice is a no-op
// that keeps the first resolver.
func (s *Service) ResolveComment(ctx context.Context, testID, commentID string, actor models.Actor) (_ *models.PeerComment, err error) {
	const op = "resolve peer comment"
	defer s.observe("resolve_comment", time.Now(), &err)

	var resolved *models.PeerComment
	err = s.store.InTx(ctx, func(q store.Queries) error {
		c, err := q.GetPeerComment(ctx, testID, commentID)
		if err != nil {
			return err
		}
		if c.Resolved {
			resolved = c
			return nil
		}
		at := s.clock()
		if err := q.ResolvePeerComment(ctx, c.ID, actor.UserID, at); err != nil {
			return err
		}
		c.Resolved = true
		c.ResolvedByUserID = actor.UserID
		c.ResolvedAt = &at
		resolved = c
		return s.record(ctx, q, event{
			testID:     testID,
			eventType:  models.EventPeerCommentResolved,
			entityType: models.EntityComment,
			entityID:   c.ID,
			actor:      actor,
			before:     map[string]any{"resolved": false},
			after:      map[string]any{"resolved": true},
		})
	})
	if err != nil {
		err = classify(op, err)
		s.recordFailure(ctx, op, testID, actor, err)
		return nil, err
	}
	return resolved, nil
}

// ListComments returns a test's comments, newest first, optionally limited
// to one summary version.
func (s *Service) ListComments(ctx context.Context, testID string, version *int) ([]*models.PeerComment, error) {
	const op = "list peer comments"
	if _, err := loadTest(ctx, s.store, op, testID); err != nil {
		return nil, err
	}
	comments, err := s.store.ListPeerComments(ctx, testID, version)
	if err != nil {
		return nil, classify(op, err)
	}
	return comments, nil
}

// AddDecision records a reviewer's verdict on a summary version. Decisions
// are advisory: neither the summary nor the test changes state.
func (s *Service) AddDecision(ctx context.Context, testID string, in DecisionInput, actor models.Actor) (_ *models.PeerReviewDecision, err error) {
	const op = "add peer review decision"
	defer s.observe("add_decision", time.Now(), &err)

	decision := strings.ToUpper(strings.TrimSpace(in.Decision))
	if in.SummaryVersion == nil || decision == "" {
		return nil, validationError(op, ErrInvalidDecision)
	}

	d := &models.PeerReviewDecision{
		BinderTestID:   testID,
		SummaryVersion: *in.SummaryVersion,
		Decision:       decision,
		DecisionNotes:  in.DecisionNotes,
		ReviewerUserID: actor.UserID,
		ReviewerRole:   actor.Role,
	}
	err = s.store.InTx(ctx, func(q store.Queries) error {
		if _, err := loadTest(ctx, q, op, testID); err != nil {
			return err
		}
		d.CreatedAt = s.clock()
		if err := q.InsertPeerReviewDecision(ctx, d); err != nil {
			return err
		}
		return s.record(ctx, q, event{
			testID:     testID,
			eventType:  models.EventPeerReviewDecisionAdded,
			entityType: models.EntityReviewDecision,
			entityID:   d.ID,
			actor:      actor,
			after:      map[string]any{"summaryVersion": d.SummaryVersion, "decision": d.Decision},
		})
	})
	if err != nil {
		err = classify(op, err)
		s.recordFailure(ctx, op, testID, actor, err)
		return nil, err
	}
	return d, nil
}

// ListDecisions returns the decisions recorded against one summary version,
// newest first.
func (s *Service) ListDecisions(ctx context.Context, testID string, version int) ([]*models.PeerReviewDecision, error) {
	const op = "list peer review decisions"
	if _, err := loadTest(ctx, s.store, op, testID); err != nil {
		return nil, err
	}
	decisions, err := s.store.ListPeerReviewDecisions(ctx, testID, version)
	if err != nil {
		return nil, classify(op, err)
	}
	return decisions, nil
}
