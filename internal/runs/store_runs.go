package runs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// NewRun enqueues an audio file for transcription. The run token, used as the
// artifact filename prefix, is derived from the creation time and the row id
// so concurrent submissions never collide.
func (s *Store) NewRun(ctx context.Context, audioPath string) (*Run, error) {
	audioPath = strings.TrimSpace(audioPath)
	if audioPath == "" {
		return nil, errors.New("audio path is required")
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO runs (audio_path, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		audioPath,
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	token := fmt.Sprintf("transcript_%d_%d", now.Unix(), id)
	if err := s.execWithoutResultRetry(ctx, `UPDATE runs SET token = ? WHERE id = ?`, token, id); err != nil {
		return nil, fmt.Errorf("assign token: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a run by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// GetByToken fetches a run by its artifact token.
func (s *Store) GetByToken(ctx context.Context, token string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE token = ?`, token)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run by token: %w", err)
	}
	return run, nil
}

// FindByAudioPath returns the most recent run for an audio file.
func (s *Store) FindByAudioPath(ctx context.Context, audioPath string) (*Run, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+runColumns+` FROM runs WHERE audio_path = ? ORDER BY id DESC LIMIT 1`,
		audioPath,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by audio path: %w", err)
	}
	return run, nil
}

// Update persists changes to an existing run.
func (s *Store) Update(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run is nil")
	}
	run.UpdatedAt = time.Now().UTC()

	err := s.execWithoutResultRetry(
		ctx,
		`UPDATE runs SET
            token = ?, audio_path = ?, status = ?, model = ?, device = ?,
            compute_type = ?, task = ?, language = ?, diarized = ?,
            segment_count = ?, duration_seconds = ?, error_message = ?,
            log_path = ?, updated_at = ?, started_at = ?, finished_at = ?
         WHERE id = ?`,
		nullableString(run.Token),
		run.AudioPath,
		run.Status,
		nullableString(run.Model),
		nullableString(run.Device),
		nullableString(run.ComputeType),
		nullableString(run.Task),
		nullableString(run.Language),
		boolToInt(run.Diarized),
		run.SegmentCount,
		run.DurationSeconds,
		nullableString(run.ErrorMessage),
		nullableString(run.LogPath),
		run.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(run.StartedAt),
		nullableTime(run.FinishedAt),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// RunsByStatus returns runs matching a single status in submission order.
func (s *Store) RunsByStatus(ctx context.Context, status Status) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs WHERE status = ? ORDER BY created_at`, status)
	if err != nil {
		return nil, fmt.Errorf("query by status: %w", err)
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// List returns runs filtered by status set (or all runs when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Run, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + runColumns + ` FROM runs`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// NextPending returns the oldest run awaiting processing.
func (s *Store) NextPending(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+runColumns+` FROM runs WHERE status = ? ORDER BY created_at LIMIT 1`,
		StatusPending,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// Remove deletes a run and, via cascade, its artifacts.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// AddArtifacts records exported documents for a run.
func (s *Store) AddArtifacts(ctx context.Context, runID int64, artifacts []Artifact) error {
	if len(artifacts) == 0 {
		return nil
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	for _, artifact := range artifacts {
		if err := s.execWithoutResultRetry(
			ctx,
			`INSERT INTO artifacts (run_id, format, path, created_at) VALUES (?, ?, ?, ?)`,
			runID,
			artifact.Format,
			artifact.Path,
			timestamp,
		); err != nil {
			return fmt.Errorf("insert artifact %s: %w", artifact.Format, err)
		}
	}
	return nil
}

// ArtifactsForRun returns a run's exported documents in insertion order.
func (s *Store) ArtifactsForRun(ctx context.Context, runID int64) ([]*Artifact, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, run_id, format, path, created_at FROM artifacts WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	var out []*Artifact
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, artifact)
	}
	return out, rows.Err()
}
