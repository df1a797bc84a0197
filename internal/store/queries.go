package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/inov8tr/ecolab/internal/models"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// queries implements Queries on top of a querier.
type queries struct {
	q      querier
	driver Driver
}

func (q *queries) rebind(query string) string { return rebind(q.driver, query) }

func (q *queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.q.ExecContext(ctx, q.rebind(query), args...)
}

func (q *queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.q.QueryContext(ctx, q.rebind(query), args...)
}

func (q *queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.q.QueryRowContext(ctx, q.rebind(query), args...)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %w: %s", kind, ErrNotFound, id)
}

// parseDecimal normalizes a decimal column read as text into a float.
// Postgres NUMERIC and SQLite REAL both arrive here as strings.
func parseDecimal(ns sql.NullString) *float64 {
	if !ns.Valid || strings.TrimSpace(ns.String) == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(ns.String), 64)
	if err != nil {
		return nil
	}
	return &f
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func nullInt(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}

// nullJSON stores empty raw JSON as NULL.
func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// --- Binder tests ---

const binderTestColumns = `id, name, test_name, status, lifecycle_status, pg_high, pg_low, batch_id, binder_source, test_purpose, material_description, test_standard, created_at, updated_at`

func scanBinderTest(row scanner) (*models.BinderTest, error) {
	t := &models.BinderTest{}
	var status, lifecycle string
	var pgHigh, pgLow sql.NullString
	if err := row.Scan(&t.ID, &t.Name, &t.TestName, &status, &lifecycle, &pgHigh, &pgLow,
		&t.BatchID, &t.BinderSource, &t.TestPurpose, &t.MaterialDescription, &t.TestStandard,
		&t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Status = models.LifecycleStatus(status)
	t.Lifecycle = models.LifecycleStatus(lifecycle)
	t.PGHigh = parseDecimal(pgHigh)
	t.PGLow = parseDecimal(pgLow)
	return t, nil
}

func (q *queries) CreateBinderTest(ctx context.Context, t *models.BinderTest) error {
	if t.ID == "" {
		t.ID = NewID()
	}
	if t.Status == "" {
		t.Status = models.LifecycleStatusPendingReview
	}
	if t.Lifecycle == "" {
		t.Lifecycle = models.LifecycleStatusPendingReview
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := q.exec(ctx,
		`INSERT INTO binder_tests (`+binderTestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.TestName, string(t.Status), string(t.Lifecycle), t.PGHigh, t.PGLow,
		t.BatchID, t.BinderSource, t.TestPurpose, t.MaterialDescription, t.TestStandard,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create binder test: %w", err)
	}
	return nil
}

func (q *queries) GetBinderTest(ctx context.Context, id string) (*models.BinderTest, error) {
	t, err := scanBinderTest(q.queryRow(ctx, `SELECT `+binderTestColumns+` FROM binder_tests WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("binder test", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get binder test: %w", err)
	}
	return t, nil
}

func (q *queries) ListBinderTests(ctx context.Context, filter BinderTestListFilter) ([]*models.BinderTest, error) {
	query := `SELECT ` + binderTestColumns + ` FROM binder_tests`
	var conditions []string
	var args []any

	if filter.Query != "" {
		like := "%" + strings.ToLower(filter.Query) + "%"
		conditions = append(conditions, "(LOWER(name) LIKE ? OR LOWER(test_name) LIKE ?)")
		args = append(args, like, like)
	}
	// Archived tests are hidden unless explicitly requested.
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	} else {
		conditions = append(conditions, "status <> ?")
		args = append(args, string(models.LifecycleStatusArchived))
	}

	query += " WHERE " + strings.Join(conditions, " AND ") + " ORDER BY created_at DESC, id DESC"

	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list binder tests: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tests []*models.BinderTest
	for rows.Next() {
		t, err := scanBinderTest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan binder test: %w", err)
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

func (q *queries) UpdateBinderTestStatus(ctx context.Context, id string, status, lifecycle models.LifecycleStatus) error {
	result, err := q.exec(ctx,
		`UPDATE binder_tests SET status = ?, lifecycle_status = ?, updated_at = ? WHERE id = ?`,
		string(status), string(lifecycle), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update binder test status: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return notFound("binder test", id)
	}
	return nil
}

// --- Data files ---

func scanDataFile(row scanner) (*models.DataFile, error) {
	f := &models.DataFile{}
	if err := row.Scan(&f.ID, &f.BinderTestID, &f.FileURL, &f.FileType, &f.Label, &f.CreatedAt); err != nil {
		return nil, err
	}
	return f, nil
}

func (q *queries) CreateDataFile(ctx context.Context, f *models.DataFile) error {
	if f.ID == "" {
		f.ID = NewID()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	_, err := q.exec(ctx,
		`INSERT INTO data_files (id, binder_test_id, file_url, file_type, label, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, f.BinderTestID, f.FileURL, f.FileType, f.Label, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create data file: %w", err)
	}
	return nil
}

func (q *queries) ListDataFiles(ctx context.Context, binderTestID string) ([]*models.DataFile, error) {
	rows, err := q.query(ctx,
		`SELECT id, binder_test_id, file_url, file_type, label, created_at
		FROM data_files WHERE binder_test_id = ? ORDER BY created_at ASC, id ASC`, binderTestID)
	if err != nil {
		return nil, fmt.Errorf("list data files: %w", err)
	}
	return collectDataFiles(rows)
}

func (q *queries) GetDataFiles(ctx context.Context, ids []string) ([]*models.DataFile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := q.query(ctx,
		`SELECT id, binder_test_id, file_url, file_type, label, created_at
		FROM data_files WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("get data files: %w", err)
	}
	return collectDataFiles(rows)
}

func collectDataFiles(rows *sql.Rows) ([]*models.DataFile, error) {
	defer func() { _ = rows.Close() }()
	var files []*models.DataFile
	for rows.Next() {
		f, err := scanDataFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan data file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// --- Parse runs ---

const parseRunColumns = `id, binder_test_id, input_file_ids, input_files_hash, parser_version, status, started_at, completed_at, error_message`

func scanParseRun(row scanner) (*models.ParseRun, error) {
	run := &models.ParseRun{}
	var fileIDs, status string
	var completedAt sql.NullTime
	if err := row.Scan(&run.ID, &run.BinderTestID, &fileIDs, &run.InputFilesHash, &run.ParserVersion,
		&status, &run.StartedAt, &completedAt, &run.ErrorMessage); err != nil {
		return nil, err
	}
	run.Status = models.ParseRunStatus(status)
	run.CompletedAt = nullTime(completedAt)
	if fileIDs != "" {
		if err := json.Unmarshal([]byte(fileIDs), &run.InputFileIDs); err != nil {
			return nil, fmt.Errorf("decode input file ids: %w", err)
		}
	}
	return run, nil
}

func (q *queries) CreateParseRun(ctx context.Context, run *models.ParseRun) error {
	if run.ID == "" {
		run.ID = NewID()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	fileIDs, err := json.Marshal(run.InputFileIDs)
	if err != nil {
		return fmt.Errorf("encode input file ids: %w", err)
	}
	_, err = q.exec(ctx,
		`INSERT INTO parse_runs (`+parseRunColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.BinderTestID, string(fileIDs), run.InputFilesHash, run.ParserVersion,
		string(run.Status), run.StartedAt, run.CompletedAt, run.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("create parse run: %w", err)
	}
	return nil
}

func (q *queries) GetParseRun(ctx context.Context, id string) (*models.ParseRun, error) {
	run, err := scanParseRun(q.queryRow(ctx, `SELECT `+parseRunColumns+` FROM parse_runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("parse run", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get parse run: %w", err)
	}
	return run, nil
}

// FinishParseRun stamps the terminal status of a run. A run whose STARTED row
// was never committed is inserted so the outcome is always recorded.
func (q *queries) FinishParseRun(ctx context.Context, run *models.ParseRun) error {
	if run.CompletedAt == nil {
		now := time.Now().UTC()
		run.CompletedAt = &now
	}
	result, err := q.exec(ctx,
		`UPDATE parse_runs SET status = ?, completed_at = ?, error_message = ? WHERE id = ?`,
		string(run.Status), run.CompletedAt, run.ErrorMessage, run.ID,
	)
	if err != nil {
		return fmt.Errorf("finish parse run: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return q.CreateParseRun(ctx, run)
	}
	return nil
}

func (q *queries) LatestCompletedParseRun(ctx context.Context, binderTestID string) (*models.ParseRun, error) {
	run, err := scanParseRun(q.queryRow(ctx,
		`SELECT `+parseRunColumns+` FROM parse_runs
		WHERE binder_test_id = ? AND status = ?
		ORDER BY started_at DESC, id DESC LIMIT 1`,
		binderTestID, string(models.ParseRunStatusCompleted)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("completed parse run for binder test", binderTestID)
	}
	if err != nil {
		return nil, fmt.Errorf("latest completed parse run: %w", err)
	}
	return run, nil
}

// --- Metrics ---

const metricColumns = `id, binder_test_id, parse_run_id, metric_type, metric_name, position, value, units, temperature, frequency, source_file_id, source_page, confidence, is_user_confirmed, confirmed_by_user_id, confirmed_by_role, confirmed_at, created_at, updated_at`

func scanMetric(row scanner) (*models.Metric, error) {
	m := &models.Metric{}
	var value, temperature, frequency, confidence sql.NullString
	var sourcePage sql.NullInt64
	var confirmedAt sql.NullTime
	if err := row.Scan(&m.ID, &m.BinderTestID, &m.ParseRunID, &m.MetricType, &m.MetricName, &m.Position,
		&value, &m.Units, &temperature, &frequency, &m.SourceFileID, &sourcePage, &confidence,
		&m.IsUserConfirmed, &m.ConfirmedByUserID, &m.ConfirmedByRole, &confirmedAt,
		&m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Value = parseDecimal(value)
	m.Temperature = parseDecimal(temperature)
	m.Frequency = parseDecimal(frequency)
	m.Confidence = parseDecimal(confidence)
	m.SourcePage = nullInt(sourcePage)
	m.ConfirmedAt = nullTime(confirmedAt)
	return m, nil
}

func (q *queries) InsertMetric(ctx context.Context, m *models.Metric) error {
	if m.ID == "" {
		m.ID = NewID()
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	_, err := q.exec(ctx,
		`INSERT INTO metrics (`+metricColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.BinderTestID, m.ParseRunID, m.MetricType, m.MetricName, m.Position,
		m.Value, m.Units, m.Temperature, m.Frequency, m.SourceFileID, m.SourcePage, m.Confidence,
		m.IsUserConfirmed, m.ConfirmedByUserID, m.ConfirmedByRole, m.ConfirmedAt,
		m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert metric: %w", err)
	}
	return nil
}

func (q *queries) GetMetric(ctx context.Context, binderTestID, id string) (*models.Metric, error) {
	m, err := scanMetric(q.queryRow(ctx,
		`SELECT `+metricColumns+` FROM metrics WHERE binder_test_id = ? AND id = ?`, binderTestID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("metric", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get metric: %w", err)
	}
	return m, nil
}

func (q *queries) ListMetrics(ctx context.Context, binderTestID string) ([]*models.Metric, error) {
	return q.listMetrics(ctx, `SELECT `+metricColumns+` FROM metrics
		WHERE binder_test_id = ? ORDER BY created_at ASC, id ASC`, binderTestID)
}

func (q *queries) ListConfirmedMetrics(ctx context.Context, binderTestID string) ([]*models.Metric, error) {
	return q.listMetrics(ctx, `SELECT `+metricColumns+` FROM metrics
		WHERE binder_test_id = ? AND is_user_confirmed = ? ORDER BY created_at ASC, id ASC`, binderTestID, true)
}

func (q *queries) listMetrics(ctx context.Context, query string, args ...any) ([]*models.Metric, error) {
	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var metrics []*models.Metric
	for rows.Next() {
		m, err := scanMetric(rows)
		if err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

func (q *queries) DeleteUnconfirmedMetrics(ctx context.Context, binderTestID string) (int64, error) {
	result, err := q.exec(ctx,
		`DELETE FROM metrics WHERE binder_test_id = ? AND is_user_confirmed = ?`, binderTestID, false)
	if err != nil {
		return 0, fmt.Errorf("delete unconfirmed metrics: %w", err)
	}
	return result.RowsAffected()
}

func (q *queries) ConfirmMetrics(ctx context.Context, binderTestID string, actor models.Actor, at time.Time) (int64, error) {
	result, err := q.exec(ctx,
		`UPDATE metrics
		SET is_user_confirmed = ?, confirmed_by_user_id = ?, confirmed_by_role = ?, confirmed_at = ?, updated_at = ?
		WHERE binder_test_id = ? AND is_user_confirmed = ?`,
		true, actor.UserID, actor.Role, at, at, binderTestID, false,
	)
	if err != nil {
		return 0, fmt.Errorf("confirm metrics: %w", err)
	}
	return result.RowsAffected()
}

func (q *queries) UpdateMetricPosition(ctx context.Context, id, position string) error {
	result, err := q.exec(ctx,
		`UPDATE metrics SET position = ?, updated_at = ? WHERE id = ?`, position, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update metric position: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return notFound("metric", id)
	}
	return nil
}

// --- Summaries ---

const summaryColumns = `id, binder_test_id, version, durable_id, status, created_at, created_by_user_id, created_by_role, derived_from_metrics_hash, summary_json, supersedes_summary_id`

func scanSummary(row scanner) (*models.Summary, error) {
	s := &models.Summary{}
	var status, payload string
	if err := row.Scan(&s.ID, &s.BinderTestID, &s.Version, &s.DurableID, &status, &s.CreatedAt,
		&s.CreatedByUserID, &s.CreatedByRole, &s.DerivedFromMetricsHash, &payload, &s.SupersedesSummaryID); err != nil {
		return nil, err
	}
	s.Status = models.SummaryStatus(status)
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &s.Payload); err != nil {
			return nil, fmt.Errorf("decode summary payload: %w", err)
		}
	}
	return s, nil
}

func (q *queries) NextSummaryVersion(ctx context.Context, binderTestID string) (int, error) {
	var next int
	err := q.queryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM summaries WHERE binder_test_id = ?`, binderTestID,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next summary version: %w", err)
	}
	return next, nil
}

func (q *queries) LatestSummary(ctx context.Context, binderTestID string) (*models.Summary, error) {
	s, err := scanSummary(q.queryRow(ctx,
		`SELECT `+summaryColumns+` FROM summaries WHERE binder_test_id = ? ORDER BY version DESC LIMIT 1`, binderTestID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("summary for binder test", binderTestID)
	}
	if err != nil {
		return nil, fmt.Errorf("latest summary: %w", err)
	}
	return s, nil
}

func (q *queries) InsertSummary(ctx context.Context, s *models.Summary) error {
	if s.ID == "" {
		s.ID = NewID()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(s.Payload)
	if err != nil {
		return fmt.Errorf("encode summary payload: %w", err)
	}
	_, err = q.exec(ctx,
		`INSERT INTO summaries (`+summaryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.BinderTestID, s.Version, s.DurableID, string(s.Status), s.CreatedAt,
		s.CreatedByUserID, s.CreatedByRole, s.DerivedFromMetricsHash, string(payload), s.SupersedesSummaryID,
	)
	if err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}
	return nil
}

func (q *queries) UpdateSummaryStatus(ctx context.Context, id string, status models.SummaryStatus) error {
	result, err := q.exec(ctx, `UPDATE summaries SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update summary status: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return notFound("summary", id)
	}
	return nil
}

func (q *queries) GetSummary(ctx context.Context, binderTestID string, version int) (*models.Summary, error) {
	s, err := scanSummary(q.queryRow(ctx,
		`SELECT `+summaryColumns+` FROM summaries WHERE binder_test_id = ? AND version = ?`, binderTestID, version))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("summary", fmt.Sprintf("%s v%d", binderTestID, version))
	}
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}
	return s, nil
}

func (q *queries) ListSummaries(ctx context.Context, binderTestID string) ([]*models.Summary, error) {
	rows, err := q.query(ctx,
		`SELECT `+summaryColumns+` FROM summaries WHERE binder_test_id = ? ORDER BY version DESC`, binderTestID)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []*models.Summary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// --- Peer review ---

const peerCommentColumns = `id, binder_test_id, summary_version, comment_type, comment_text, created_by_user_id, created_by_role, created_at, resolved, resolved_by_user_id, resolved_at`

func scanPeerComment(row scanner) (*models.PeerComment, error) {
	c := &models.PeerComment{}
	var version sql.NullInt64
	var resolvedAt sql.NullTime
	if err := row.Scan(&c.ID, &c.BinderTestID, &version, &c.CommentType, &c.CommentText,
		&c.CreatedByUserID, &c.CreatedByRole, &c.CreatedAt, &c.Resolved, &c.ResolvedByUserID, &resolvedAt); err != nil {
		return nil, err
	}
	c.SummaryVersion = nullInt(version)
	c.ResolvedAt = nullTime(resolvedAt)
	return c, nil
}

func (q *queries) InsertPeerComment(ctx context.Context, c *models.PeerComment) error {
	if c.ID == "" {
		c.ID = NewID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := q.exec(ctx,
		`INSERT INTO peer_comments (`+peerCommentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.BinderTestID, c.SummaryVersion, c.CommentType, c.CommentText,
		c.CreatedByUserID, c.CreatedByRole, c.CreatedAt, c.Resolved, c.ResolvedByUserID, c.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("insert peer comment: %w", err)
	}
	return nil
}

func (q *queries) GetPeerComment(ctx context.Context, binderTestID, id string) (*models.PeerComment, error) {
	c, err := scanPeerComment(q.queryRow(ctx,
		`SELECT `+peerCommentColumns+` FROM peer_comments WHERE binder_test_id = ? AND id = ?`, binderTestID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("peer comment", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get peer comment: %w", err)
	}
	return c, nil
}

func (q *queries) ResolvePeerComment(ctx context.Context, id, resolvedBy string, at time.Time) error {
	result, err := q.exec(ctx,
		`UPDATE peer_comments SET resolved = ?, resolved_by_user_id = ?, resolved_at = ? WHERE id = ?`,
		true, resolvedBy, at, id)
	if err != nil {
		return fmt.Errorf("resolve peer comment: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return notFound("peer comment", id)
	}
	return nil
}

func (q *queries) ListPeerComments(ctx context.Context, binderTestID string, version *int) ([]*models.PeerComment, error) {
	query := `SELECT ` + peerCommentColumns + ` FROM peer_comments WHERE binder_test_id = ?`
	args := []any{binderTestID}
	if version != nil {
		query += " AND summary_version = ?"
		args = append(args, *version)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list peer comments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var comments []*models.PeerComment
	for rows.Next() {
		c, err := scanPeerComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan peer comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (q *queries) InsertPeerReviewDecision(ctx context.Context, d *models.PeerReviewDecision) error {
	if d.ID == "" {
		d.ID = NewID()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	_, err := q.exec(ctx,
		`INSERT INTO peer_review_decisions (id, binder_test_id, summary_version, decision, decision_notes, reviewer_user_id, reviewer_role, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.BinderTestID, d.SummaryVersion, d.Decision, d.DecisionNotes, d.ReviewerUserID, d.ReviewerRole, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert peer review decision: %w", err)
	}
	return nil
}

func (q *queries) ListPeerReviewDecisions(ctx context.Context, binderTestID string, version int) ([]*models.PeerReviewDecision, error) {
	rows, err := q.query(ctx,
		`SELECT id, binder_test_id, summary_version, decision, decision_notes, reviewer_user_id, reviewer_role, created_at
		FROM peer_review_decisions WHERE binder_test_id = ? AND summary_version = ?
		ORDER BY created_at DESC, id DESC`, binderTestID, version)
	if err != nil {
		return nil, fmt.Errorf("list peer review decisions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var decisions []*models.PeerReviewDecision
	for rows.Next() {
		d := &models.PeerReviewDecision{}
		if err := rows.Scan(&d.ID, &d.BinderTestID, &d.SummaryVersion, &d.Decision, &d.DecisionNotes,
			&d.ReviewerUserID, &d.ReviewerRole, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan peer review decision: %w", err)
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

// --- Audit ledger ---

func (q *queries) AppendAuditEvent(ctx context.Context, e *models.AuditEvent) error {
	if e.EventType == "" {
		return fmt.Errorf("append audit event: empty event type")
	}
	if e.ID == "" {
		e.ID = NewID()
	}
	if e.PerformedAt.IsZero() {
		e.PerformedAt = time.Now().UTC()
	}
	_, err := q.exec(ctx,
		`INSERT INTO audit_events (id, binder_test_id, event_type, entity_type, entity_id, performed_by_user_id, performed_by_role, performed_at, before_json, after_json, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.BinderTestID, e.EventType, e.EntityType, e.EntityID, e.PerformedByUserID, e.PerformedByRole,
		e.PerformedAt, nullJSON(e.Before), nullJSON(e.After), e.Notes,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (q *queries) ListAuditEvents(ctx context.Context, binderTestID string) ([]*models.AuditEvent, error) {
	rows, err := q.query(ctx,
		`SELECT id, binder_test_id, event_type, entity_type, entity_id, performed_by_user_id, performed_by_role, performed_at, before_json, after_json, notes
		FROM audit_events WHERE binder_test_id = ?
		ORDER BY performed_at DESC, id DESC`, binderTestID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []*models.AuditEvent
	for rows.Next() {
		e := &models.AuditEvent{}
		var before, after sql.NullString
		if err := rows.Scan(&e.ID, &e.BinderTestID, &e.EventType, &e.EntityType, &e.EntityID,
			&e.PerformedByUserID, &e.PerformedByRole, &e.PerformedAt, &before, &after, &e.Notes); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if before.Valid {
			e.Before = json.RawMessage(before.String)
		}
		if after.Valid {
			e.After = json.RawMessage(after.String)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
