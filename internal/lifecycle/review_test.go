package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inov8tr/ecolab/internal/models"
)

func intPtr(v int) *int { return &v }

func TestAddComment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	bt := seedReady(t, svc)

	c, err := svc.AddComment(ctx, bt.ID, CommentInput{CommentType: "question", CommentText: "Which spindle?", SummaryVersion: intPtr(1)}, testActor)
	require.NoError(t, err)
	assert.Equal(t, models.CommentTypeQuestion, c.CommentType)
	assert.False(t, c.Resolved)
	require.NotNil(t, c.SummaryVersion)
	assert.Equal(t, 1, *c.SummaryVersion)

	events, err := svc.ListAuditEvents(ctx, bt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventPeerCommentAdded, events[0].EventType)
	assert.Equal(t, c.ID, events[0].EntityID)
	assert.JSONEq(t, `{"summaryVersion":1,"commentType":"QUESTION"}`, string(events[0].After))
}

func TestAddComment_VersionNotChecked(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	bt, _ := seedTest(t, svc)

	_, err := svc.AddComment(ctx, bt.ID, CommentInput{CommentType: "NOTE", CommentText: "early note", SummaryVersion: intPtr(42)}, testActor)
	assert.NoError(t, err)
}

func TestAddComment_Invalid(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	bt, _ := seedTest(t, svc)

	for _, in := range []CommentInput{
		{CommentType: "", CommentText: "text"},
		{CommentType: "NOTE", CommentText: "  "},
	} {
		_, err := svc.AddComment(ctx, bt.ID, in, testActor)
		assert.ErrorIs(t, err, ErrInvalidComment)
		assert.Equal(t, KindValidation, KindOf(err))
	}
	assert.Empty(t, eventTypes(t, svc, bt.ID))
}

func TestAddComment_UnknownTest(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.AddComment(context.Background(), "missing", CommentInput{CommentType: "NOTE", CommentText: "x"}, testActor)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestListComments_FilterAndOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	bt, _ := seedTest(t, svc)

	c1, err := svc.AddComment(ctx, bt.ID, CommentInput{CommentType: "NOTE", CommentText: "v1 note", SummaryVersion: intPtr(1)}, testActor)
	require.NoError(t, err)
	c2, err := svc.AddComment(ctx, bt.ID, CommentInput{CommentType: "CONCERN", CommentText: "general"}, testActor)
	require.NoError(t, err)

	all, err := svc.ListComments(ctx, bt.ID, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, c2.ID, all[0].ID)

	v1, err := svc.ListComments(ctx, bt.ID, intPtr(1))
	require.NoError(t, err)
	require.Len(t, v1, 1)
	assert.Equal(t, c1.ID, v1[0].ID)
}

func TestResolveComment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	bt, _ := seedTest(t, svc)

	c, err := svc.AddComment(ctx, bt.ID, CommentInput{CommentType: "QUESTION", CommentText: "units?"}, testActor)
	require.NoError(t, err)

	resolved, err := svc.ResolveComment(ctx, bt.ID, c.ID, models.Actor{UserID: "lead-1", Role: "LEAD"})
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	assert.Equal(t, "lead-1", resolved.ResolvedByUserID)

	again, err := svc.ResolveComment(ctx, bt.ID, c.ID, models.Actor{UserID: "lead-2"})
	require.NoError(t, err)
	assert.Equal(t, "lead-1", again.ResolvedByUserID)

	types := eventTypes(t, svc, bt.ID)
	assert.Equal(t, []string{models.EventPeerCommentResolved, models.EventPeerCommentAdded}, types)

	_, err = svc.ResolveComment(ctx, bt.ID, "missing", testActor)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestAddDecision_RejectDoesNotChangeLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	bt := seedReady(t, svc)
	_, err := svc.CreateSummary(ctx, bt.ID, testActor)
	require.NoError(t, err)

	d, err := svc.AddDecision(ctx, bt.ID, DecisionInput{SummaryVersion: intPtr(1), Decision: "reject", DecisionNotes: "DSR curve incomplete"}, models.Actor{UserID: "rev-1", Role: "REVIEWER"})
	require.NoError(t, err)
	assert.Equal(t, models.DecisionReject, d.Decision)
	assert.Equal(t, "rev-1", d.ReviewerUserID)

	got, err := svc.GetBinderTest(ctx, bt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LifecycleStatusReady, got.Lifecycle)
	assert.Equal(t, models.LifecycleStatusReady, got.Status)

	sum, err := svc.GetSummary(ctx, bt.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.SummaryStatusFinal, sum.Status)

	assert.Equal(t, models.EventPeerReviewDecisionAdded, eventTypes(t, svc, bt.ID)[0])
}

func TestAddDecision_Invalid(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	bt, _ := seedTest(t, svc)

	_, err := svc.AddDecision(ctx, bt.ID, DecisionInput{Decision: "ACCEPT"}, testActor)
	assert.ErrorIs(t, err, ErrInvalidDecision)
	_, err = svc.AddDecision(ctx, bt.ID, DecisionInput{SummaryVersion: intPtr(1)}, testActor)
	assert.ErrorIs(t, err, ErrInvalidDecision)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestListDecisions_MultiplePerVersion(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	bt, _ := seedTest(t, svc)

	for _, dec := range []string{"REQUEST_CHANGES", "ACCEPT", "ACCEPT"} {
		_, err := svc.AddDecision(ctx, bt.ID, DecisionInput{SummaryVersion: intPtr(1), Decision: dec}, testActor)
		require.NoError(t, err)
	}
	_, err := svc.AddDecision(ctx, bt.ID, DecisionInput{SummaryVersion: intPtr(2), Decision: "ACCEPT"}, testActor)
	require.NoError(t, err)

	decisions, err := svc.ListDecisions(ctx, bt.ID, 1)
	require.NoError(t, err)
	require.Len(t, decisions, 3)
	assert.Equal(t, "REQUEST_CHANGES", decisions[2].Decision)
}
