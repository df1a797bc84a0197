package lifecycle

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/inov8tr/ecolab/internal/models"
)

// stableHash is the hex sha256 of parts joined by "|".
func stableHash(parts []string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// InputFilesHash digests the candidate files of a parse run. Files are
// sorted by id so discovery order does not matter.
func InputFilesHash(files []*models.DataFile) string {
	sorted := make([]*models.DataFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	parts := make([]string, 0, len(sorted))
	for _, f := range sorted {
		parts = append(parts, f.ID+":"+f.DisplayName()+":"+f.CreatedAt.UTC().Format(time.RFC3339Nano))
	}
	return stableHash(parts)
}

// MetricsHash digests a confirmed metric set. Rows are ordered by type, then
// position, then rendered content, with id only as a final tie-break, so an
// identical multiset hashes identically whatever its ids or insertion order.
func MetricsHash(metrics []*models.Metric) string {
	if len(metrics) == 0 {
		return stableHash([]string{"empty"})
	}

	type row struct {
		m    *models.Metric
		line string
	}
	rows := make([]row, 0, len(metrics))
	for _, m := range metrics {
		rows = append(rows, row{m: m, line: renderMetric(m)})
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.m.MetricType != b.m.MetricType {
			return a.m.MetricType < b.m.MetricType
		}
		if a.m.Position != b.m.Position {
			return a.m.Position < b.m.Position
		}
		if a.line != b.line {
			return a.line < b.line
		}
		return a.m.ID < b.m.ID
	})

	parts := make([]string, 0, len(rows))
	for _, r := range rows {
		parts = append(parts, r.line)
	}
	return stableHash(parts)
}

// renderMetric renders type|position|value|units|temperature|sourceFileId|sourcePage.
func renderMetric(m *models.Metric) string {
	page := ""
	if m.SourcePage != nil {
		page = strconv.Itoa(*m.SourcePage)
	}
	return strings.Join([]string{
		m.MetricType,
		m.Position,
		formatFloat(m.Value),
		m.Units,
		formatFloat(m.Temperature),
		m.SourceFileID,
		page,
	}, "|")
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
