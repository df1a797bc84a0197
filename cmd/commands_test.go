package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inov8tr/ecolab/internal/lifecycle"
	"github.com/inov8tr/ecolab/internal/models"
	"github.com/inov8tr/ecolab/internal/store"
)

// captureUI points the shared UI at buffers.
func captureUI(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	ui.Out = out
	ui.ErrOut = errOut
	return out, errOut
}

// createTestViaCLI runs `test add` and returns the new test.
func createTestViaCLI(t *testing.T, name string) *models.BinderTest {
	t.Helper()
	testName = name
	testTestName = "DSR"
	testStandard = "AASHTO T 315"
	t.Cleanup(func() { testName, testTestName, testStandard = "", "", "" })
	require.NoError(t, testAddRun(nil))

	svc, err := getService(nil)
	require.NoError(t, err)
	tests, err := svc.ListBinderTests(context.Background(), store.BinderTestListFilter{Query: name})
	require.NoError(t, err)
	require.Len(t, tests, 1)
	return tests[0]
}

func TestTestAddRun_DryRun(t *testing.T) {
	dir := testEnv(t)
	_, errOut := captureUI(t)
	dryRun = true
	testName = "dry"
	t.Cleanup(func() { dryRun, testName = false, "" })

	require.NoError(t, testAddRun(nil))
	assert.Contains(t, errOut.String(), "Would create binder test: dry")
	assert.Nil(t, dataStore, "dry run must not open the database")
	assert.NoFileExists(t, filepath.Join(dir, "ecolab.db"))
}

func TestTestCommands(t *testing.T) {
	testEnv(t)
	out, _ := captureUI(t)

	bt := createTestViaCLI(t, "PG 64-22 trial")
	assert.Contains(t, out.String(), "Created binder test")
	assert.Equal(t, "DSR", bt.TestName)

	out.Reset()
	require.NoError(t, testListRun())
	assert.Contains(t, out.String(), "PG 64-22 trial")

	out.Reset()
	require.NoError(t, testShowRun(bt.ID))
	assert.Contains(t, out.String(), "AASHTO T 315")

	testStatus = "bogus"
	t.Cleanup(func() { testStatus = "" })
	err := testListRun()
	require.Error(t, err)
	assert.Equal(t, lifecycle.KindValidation, lifecycle.KindOf(err))
}

func TestTestShowRun_NotFound(t *testing.T) {
	testEnv(t)
	captureUI(t)

	err := testShowRun("missing")
	require.Error(t, err)
	assert.Equal(t, lifecycle.KindNotFound, lifecycle.KindOf(err))
}

func TestLifecycleThroughCommands(t *testing.T) {
	testEnv(t)
	out, _ := captureUI(t)
	bt := createTestViaCLI(t, "full lifecycle")

	fileURL, fileType, fileLabel = "s3://lab/dsr-report.pdf", "application/pdf", "DSR report"
	t.Cleanup(func() { fileURL, fileType, fileLabel = "", "", "" })
	require.NoError(t, fileAddRun(bt.ID))
	out.Reset()
	require.NoError(t, fileListRun(bt.ID))
	assert.Contains(t, out.String(), "DSR report")

	// Confirm before parse has nothing to confirm.
	err := confirmRun(bt.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, lifecycle.ErrNoMetricsToConfirm)

	out.Reset()
	require.NoError(t, parseRun(bt.ID))
	assert.Contains(t, out.String(), "Parsed")

	out.Reset()
	require.NoError(t, metricListRun(bt.ID))
	assert.NotContains(t, out.String(), "No metrics.")

	metricType, metricValue, metricUnits = "softeningPoint", 48.5, "C"
	t.Cleanup(func() { metricType, metricValue, metricUnits = "", 0, "" })
	out.Reset()
	require.NoError(t, metricAddRun(nil, bt.ID))
	assert.Contains(t, out.String(), "Added metric")

	out.Reset()
	require.NoError(t, confirmRun(bt.ID))
	assert.Contains(t, out.String(), "READY")

	out.Reset()
	require.NoError(t, summaryCreateRun(bt.ID))
	assert.Contains(t, out.String(), "Created summary v1")
	assert.Contains(t, out.String(), "summary id ")

	out.Reset()
	require.NoError(t, summaryListRun(bt.ID))
	assert.Contains(t, out.String(), "FINAL")

	out.Reset()
	require.NoError(t, summaryShowRun(bt.ID, "1"))
	assert.Contains(t, out.String(), "softeningPoint")

	err = summaryShowRun(bt.ID, "zero")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid version")

	commentType = models.CommentTypeQuestion
	t.Cleanup(func() { commentType = models.CommentTypeNote })
	require.NoError(t, commentAddRun(nil, bt.ID, "Is the replicate within tolerance?"))
	out.Reset()
	require.NoError(t, commentListRun(nil, bt.ID))
	assert.Contains(t, out.String(), "QUESTION")

	decisionVersion, decisionNotes = 1, "looks good"
	t.Cleanup(func() { decisionVersion, decisionNotes = 0, "" })
	out.Reset()
	require.NoError(t, decisionAddRun(bt.ID, "approve"))
	assert.Contains(t, out.String(), "APPROVE")
	out.Reset()
	require.NoError(t, decisionListRun(bt.ID))
	assert.Contains(t, out.String(), "looks good")

	out.Reset()
	require.NoError(t, auditRun(bt.ID))
	for _, ev := range []string{
		models.EventParseStarted,
		models.EventMetricsConfirmed,
		models.EventSummaryCreated,
		models.EventPeerReviewDecisionAdded,
	} {
		assert.Contains(t, out.String(), ev)
	}

	require.NoError(t, testArchiveRun(bt.ID))
	err = parseRun(bt.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, lifecycle.ErrArchived)
}

func TestCommentResolveRun(t *testing.T) {
	testEnv(t)
	out, _ := captureUI(t)
	bt := createTestViaCLI(t, "comments")

	svc, err := getService(nil)
	require.NoError(t, err)
	c, err := svc.AddComment(context.Background(), bt.ID, lifecycle.CommentInput{
		CommentType: models.CommentTypeConcern,
		CommentText: "Check the temperature",
	}, models.Actor{UserID: "reviewer"})
	require.NoError(t, err)

	t.Setenv("USER", "tech-1")
	require.NoError(t, commentResolveRun(bt.ID, c.ID))
	assert.Contains(t, out.String(), "resolved by tech-1")
}

func TestMetricPositionRun(t *testing.T) {
	testEnv(t)
	out, _ := captureUI(t)
	bt := createTestViaCLI(t, "positions")

	svc, err := getService(nil)
	require.NoError(t, err)
	ctx := context.Background()
	_, err = svc.AddDataFile(ctx, bt.ID, lifecycle.NewDataFile{FileURL: "s3://lab/x.xlsx", FileType: "xlsx"})
	require.NoError(t, err)
	_, err = svc.Parse(ctx, bt.ID, models.Actor{UserID: "tech"})
	require.NoError(t, err)
	metrics, err := svc.ListMetrics(ctx, bt.ID)
	require.NoError(t, err)
	require.NotEmpty(t, metrics)

	require.NoError(t, metricPositionRun(bt.ID, metrics[0].ID, "POS_B"))
	assert.Contains(t, out.String(), "POS_B")
}

func TestCurrentActor(t *testing.T) {
	testEnv(t)
	t.Setenv("USER", "shell-user")
	assert.Equal(t, models.Actor{UserID: "shell-user"}, currentActor())

	t.Setenv("ECOLAB_ACTOR_USER_ID", "tech-7")
	t.Setenv("ECOLAB_ACTOR_ROLE", "technician")
	initConfig()
	assert.Equal(t, models.Actor{UserID: "tech-7", Role: "technician"}, currentActor())
}

func TestStatusRun(t *testing.T) {
	dir := testEnv(t)
	out, _ := captureUI(t)
	viper.Set("archive.driver", "fs")
	viper.Set("archive.dir", filepath.Join(dir, "archive"))

	require.NoError(t, statusRun())
	assert.Contains(t, out.String(), "database (sqlite)")
	assert.Contains(t, out.String(), "archive (fs)")
	assert.Contains(t, out.String(), "Overall: ok")
}

func TestStatusRun_DatabaseDown(t *testing.T) {
	testEnv(t)
	captureUI(t)

	s, err := getStore()
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = statusRun()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unhealthy")
}
