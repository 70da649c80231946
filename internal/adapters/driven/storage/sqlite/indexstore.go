package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driven"
)

// indexStore implements driven.IndexStore.
type indexStore struct {
	store *Store
}

var _ driven.IndexStore = (*indexStore)(nil)

const runColumns = `id, study_dir, status, info, started_at, finished_at, total, processed, failed, error`

// CreateRun stores a new run.
func (s *indexStore) CreateRun(ctx context.Context, run domain.IndexRun) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required: %w", domain.ErrInvalidInput)
	}
	infoJSON, err := json.Marshal(run.Info)
	if err != nil {
		return fmt.Errorf("marshalling study info: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.StudyDir, string(run.Status), string(infoJSON),
		formatTime(run.StartedAt), formatTime(run.FinishedAt),
		run.Total, run.Processed, run.Failed, run.Error)
	if err != nil {
		if exists, _ := s.runExists(ctx, run.ID); exists {
			return fmt.Errorf("run %s already exists: %w", run.ID, domain.ErrInvalidInput)
		}
		return fmt.Errorf("creating run: %w", err)
	}
	return nil
}

// AppendFile stores one file row with its measurements and report entries
// in a single transaction and advances the run counters.
func (s *indexStore) AppendFile(ctx context.Context, runID string, result driven.FileResult) error {
	row := result.Row
	deviceJSON, err := json.Marshal(row.Device)
	if err != nil {
		return fmt.Errorf("marshalling device: %w", err)
	}
	waveformsJSON, err := json.Marshal(row.Waveforms)
	if err != nil {
		return fmt.Errorf("marshalling waveforms: %w", err)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	failed := boolToInt(row.Failed)
	res, err := tx.ExecContext(ctx, `
		UPDATE runs SET processed = processed + 1, failed = failed + ? WHERE id = ?
	`, failed, runID)
	if err != nil {
		return fmt.Errorf("updating run counters: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO files (run_id, seq, study_dir, xml_path, zip_path, study_id, subject_id, uuid,
			egdtc, egdtc_stop, timepoint_ref, device, waveforms, failed, error, warnings, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, row.Seq, row.Origin.StudyDir, row.Origin.XMLPath, row.Origin.ZipPath,
		row.StudyID, row.SubjectID, row.UUID, row.EGDTC, row.EGDTCStop, row.TimepointRef,
		string(deviceJSON), string(waveformsJSON), failed, row.Error, row.Warnings, row.Errors)
	if err != nil {
		return fmt.Errorf("inserting file %s: %w", row.Origin.Location(), err)
	}

	if len(result.Records) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO intervals (run_id, seq, ordinal, uuid, subject_id, kind, waveform, lead, lead_name,
				beat, start_ms, end_ms, duration, valid, fallback)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing interval insert: %w", err)
		}
		defer stmt.Close()

		for i, r := range result.Records {
			if _, err := stmt.ExecContext(ctx, runID, row.Seq, i, r.UUID, r.SubjectID,
				string(r.Kind), string(r.Waveform), r.Lead, r.LeadName, r.Beat,
				r.StartMS, r.EndMS, r.Duration, boolToInt(r.Valid), boolToInt(r.Fallback)); err != nil {
				return fmt.Errorf("inserting interval: %w", err)
			}
		}
	}

	if len(result.Report) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO report_entries (run_id, seq, ordinal, severity, code, module, path, message)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing report insert: %w", err)
		}
		defer stmt.Close()

		for i, e := range result.Report {
			if _, err := stmt.ExecContext(ctx, runID, row.Seq, i, int(e.Severity),
				string(e.Code), e.Module, e.Path, e.Message); err != nil {
				return fmt.Errorf("inserting report entry: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing file: %w", err)
	}
	return nil
}

// FinishRun stores the final run state with its summaries and statistics.
func (s *indexStore) FinishRun(ctx context.Context, run domain.IndexRun, summaries []domain.StudySummary, stats domain.StudyStats) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshalling stats: %w", err)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, `
		UPDATE runs SET status = ?, finished_at = ?, total = ?, processed = ?, failed = ?, error = ?, stats = ?
		WHERE id = ?
	`, string(run.Status), formatTime(run.FinishedAt), run.Total, run.Processed, run.Failed,
		run.Error, string(statsJSON), run.ID)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM summaries WHERE run_id = ?", run.ID); err != nil {
		return fmt.Errorf("clearing summaries: %w", err)
	}
	for i, sum := range summaries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO summaries (run_id, ordinal, kind, count, invalid_count, mean, median, stddev)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, i, string(sum.Kind), sum.Count, sum.InvalidCount,
			nullFloat(sum.Mean), nullFloat(sum.Median), nullFloat(sum.Stddev)); err != nil {
			return fmt.Errorf("inserting summary: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}
	return nil
}

// GetRun returns a run by ID.
func (s *indexStore) GetRun(ctx context.Context, runID string) (*domain.IndexRun, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	return scanRun(row)
}

// LatestRun returns the most recently created run.
func (s *indexStore) LatestRun(ctx context.Context) (*domain.IndexRun, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY rowid DESC LIMIT 1`)
	return scanRun(row)
}

// ListRuns returns runs, newest first.
func (s *indexStore) ListRuns(ctx context.Context) ([]domain.IndexRun, error) {
	rows, err := s.store.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.IndexRun //nolint:prealloc // size unknown from query
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// ListFiles returns the rows of a run in discovery order.
func (s *indexStore) ListFiles(ctx context.Context, runID string, filter driven.FileFilter) ([]domain.CohortRow, error) {
	if err := s.requireRun(ctx, runID); err != nil {
		return nil, err
	}

	query := `
		SELECT seq, study_dir, xml_path, zip_path, study_id, subject_id, uuid, egdtc, egdtc_stop,
			timepoint_ref, device, waveforms, failed, error, warnings, errors
		FROM files WHERE run_id = ?`
	args := []any{runID}
	if filter.FailedOnly {
		query += " AND failed = 1"
	}
	query += " ORDER BY seq"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	var out []domain.CohortRow
	for rows.Next() {
		var r domain.CohortRow
		var deviceJSON, waveformsJSON string
		var failed int
		if err := rows.Scan(&r.Seq, &r.Origin.StudyDir, &r.Origin.XMLPath, &r.Origin.ZipPath,
			&r.StudyID, &r.SubjectID, &r.UUID, &r.EGDTC, &r.EGDTCStop, &r.TimepointRef,
			&deviceJSON, &waveformsJSON, &failed, &r.Error, &r.Warnings, &r.Errors); err != nil {
			return nil, fmt.Errorf("scanning file: %w", err)
		}
		r.Failed = failed != 0
		if err := json.Unmarshal([]byte(deviceJSON), &r.Device); err != nil {
			return nil, fmt.Errorf("unmarshaling device: %w", err)
		}
		if err := json.Unmarshal([]byte(waveformsJSON), &r.Waveforms); err != nil {
			return nil, fmt.Errorf("unmarshaling waveforms: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating files: %w", err)
	}
	return out, nil
}

// ListIntervals returns the stored measurements of a run in file order.
func (s *indexStore) ListIntervals(ctx context.Context, runID string) ([]domain.IntervalRecord, error) {
	if err := s.requireRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT f.study_dir, f.xml_path, f.zip_path, i.uuid, i.subject_id, i.kind, i.waveform,
			i.lead, i.lead_name, i.beat, i.start_ms, i.end_ms, i.duration, i.valid, i.fallback
		FROM intervals i
		JOIN files f ON f.run_id = i.run_id AND f.seq = i.seq
		WHERE i.run_id = ?
		ORDER BY i.seq, i.ordinal
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying intervals: %w", err)
	}
	defer rows.Close()

	var out []domain.IntervalRecord
	for rows.Next() {
		var r domain.IntervalRecord
		var kind, waveform string
		var valid, fallback int
		if err := rows.Scan(&r.Origin.StudyDir, &r.Origin.XMLPath, &r.Origin.ZipPath,
			&r.UUID, &r.SubjectID, &kind, &waveform, &r.Lead, &r.LeadName, &r.Beat,
			&r.StartMS, &r.EndMS, &r.Duration, &valid, &fallback); err != nil {
			return nil, fmt.Errorf("scanning interval: %w", err)
		}
		r.Kind = domain.IntervalKind(kind)
		r.Waveform = domain.WaveformKind(waveform)
		r.Valid = valid != 0
		r.Fallback = fallback != 0
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating intervals: %w", err)
	}
	return out, nil
}

// ListReport returns the parse report entries of one file.
func (s *indexStore) ListReport(ctx context.Context, runID string, origin domain.Origin) ([]domain.ReportEntry, error) {
	var seq int
	err := s.store.db.QueryRowContext(ctx, `
		SELECT seq FROM files WHERE run_id = ? AND study_dir = ? AND xml_path = ? AND zip_path = ?
	`, runID, origin.StudyDir, origin.XMLPath, origin.ZipPath).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up file: %w", err)
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT severity, code, module, path, message
		FROM report_entries WHERE run_id = ? AND seq = ?
		ORDER BY ordinal
	`, runID, seq)
	if err != nil {
		return nil, fmt.Errorf("querying report: %w", err)
	}
	defer rows.Close()

	var out []domain.ReportEntry
	for rows.Next() {
		var e domain.ReportEntry
		var severity int
		var code string
		if err := rows.Scan(&severity, &code, &e.Module, &e.Path, &e.Message); err != nil {
			return nil, fmt.Errorf("scanning report entry: %w", err)
		}
		e.Severity = domain.Severity(severity)
		e.Code = domain.IssueCode(code)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating report: %w", err)
	}
	return out, nil
}

// GetSummary returns summaries and statistics. Stats is nil until the run
// is finished.
func (s *indexStore) GetSummary(ctx context.Context, runID string) ([]domain.StudySummary, *domain.StudyStats, error) {
	var statsJSON sql.NullString
	err := s.store.db.QueryRowContext(ctx, "SELECT stats FROM runs WHERE id = ?", runID).Scan(&statsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("querying run stats: %w", err)
	}

	var stats *domain.StudyStats
	if statsJSON.Valid {
		stats = &domain.StudyStats{}
		if err := json.Unmarshal([]byte(statsJSON.String), stats); err != nil {
			return nil, nil, fmt.Errorf("unmarshaling stats: %w", err)
		}
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT kind, count, invalid_count, mean, median, stddev
		FROM summaries WHERE run_id = ?
		ORDER BY ordinal
	`, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("querying summaries: %w", err)
	}
	defer rows.Close()

	var summaries []domain.StudySummary
	for rows.Next() {
		var sum domain.StudySummary
		var kind string
		var mean, median, stddev sql.NullFloat64
		if err := rows.Scan(&kind, &sum.Count, &sum.InvalidCount, &mean, &median, &stddev); err != nil {
			return nil, nil, fmt.Errorf("scanning summary: %w", err)
		}
		sum.Kind = domain.IntervalKind(kind)
		sum.Mean = floatPtr(mean)
		sum.Median = floatPtr(median)
		sum.Stddev = floatPtr(stddev)
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating summaries: %w", err)
	}
	return summaries, stats, nil
}

// Close releases the database connection.
func (s *indexStore) Close() error {
	return s.store.Close()
}

func (s *indexStore) runExists(ctx context.Context, runID string) (bool, error) {
	var n int
	if err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs WHERE id = ?", runID).Scan(&n); err != nil {
		return false, fmt.Errorf("checking run: %w", err)
	}
	return n > 0, nil
}

func (s *indexStore) requireRun(ctx context.Context, runID string) error {
	exists, err := s.runExists(ctx, runID)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.IndexRun, error) {
	var run domain.IndexRun
	var status, infoJSON string
	var startedAt, finishedAt sql.NullString
	if err := row.Scan(&run.ID, &run.StudyDir, &status, &infoJSON, &startedAt, &finishedAt,
		&run.Total, &run.Processed, &run.Failed, &run.Error); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	run.Status = domain.RunStatus(status)

	if err := json.Unmarshal([]byte(infoJSON), &run.Info); err != nil {
		return nil, fmt.Errorf("unmarshaling study info: %w", err)
	}

	var err error
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if run.FinishedAt, err = parseTime(finishedAt); err != nil {
		return nil, err
	}
	return &run, nil
}
