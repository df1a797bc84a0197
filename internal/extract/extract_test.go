package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inov8tr/ecolab/internal/models"
)

func TestIsCandidate(t *testing.T) {
	tests := []struct {
		fileType string
		want     bool
	}{
		{"application/pdf", true},
		{"PDF", true},
		{"application/vnd.ms-excel", true},
		{"xlsx", true},
		{"XLS", true},
		{"image/png", false},
		{"text/csv", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.fileType, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCandidate(tt.fileType))
		})
	}
}

func TestFilterCandidates_PreservesOrder(t *testing.T) {
	files := []*models.DataFile{
		{ID: "a", FileType: "xlsx"},
		{ID: "b", FileType: "image/jpeg"},
		{ID: "c", FileType: "application/pdf"},
	}
	got := FilterCandidates(files)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)

	assert.Empty(t, FilterCandidates(nil))
}

func TestPlaceholder_UsesGradeBounds(t *testing.T) {
	high, low := 64.0, -22.0
	in := Input{
		Test:  &models.BinderTest{PGHigh: &high, PGLow: &low},
		Files: []*models.DataFile{{ID: "f1"}, {ID: "f2"}},
	}
	metrics, err := Placeholder{}.Extract(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, metrics, 2)
	assert.Equal(t, "pgHigh", metrics[0].MetricType)
	assert.InDelta(t, 64.0, *metrics[0].Value, 1e-9)
	assert.Equal(t, "f1", metrics[0].SourceFileID)
	assert.Equal(t, "pgLow", metrics[1].MetricType)
	assert.Empty(t, metrics[1].Position)
}

func TestPlaceholder_FilePresentFallback(t *testing.T) {
	in := Input{
		Test:  &models.BinderTest{},
		Files: []*models.DataFile{{ID: "f1"}, {ID: "f2"}},
	}
	metrics, err := Placeholder{}.Extract(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, metrics, 2)
	assert.Equal(t, "FILE_PRESENT", metrics[1].MetricType)
	assert.Equal(t, "FILE_2", metrics[1].Position)
	assert.Equal(t, "f2", metrics[1].SourceFileID)
	assert.InDelta(t, 2.0, *metrics[1].Value, 1e-9)
}

func TestPlaceholder_NoFiles(t *testing.T) {
	_, err := Placeholder{}.Extract(context.Background(), Input{})
	assert.Error(t, err)
}

func TestExtractorFunc(t *testing.T) {
	var called bool
	var e Extractor = ExtractorFunc(func(ctx context.Context, in Input) ([]*models.Metric, error) {
		called = true
		return nil, nil
	})
	_, err := e.Extract(context.Background(), Input{})
	require.NoError(t, err)
	assert.True(t, called)
}
