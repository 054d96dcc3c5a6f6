package runs

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

const runColumns = "id, token, audio_path, status, model, device, compute_type, task, language, diarized, segment_count, duration_seconds, error_message, log_path, created_at, updated_at, started_at, finished_at"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id           int64
		token        sql.NullString
		audioPath    sql.NullString
		statusStr    string
		model        sql.NullString
		device       sql.NullString
		computeType  sql.NullString
		task         sql.NullString
		language     sql.NullString
		diarized     sql.NullInt64
		segmentCount sql.NullInt64
		duration     sql.NullFloat64
		errorMessage sql.NullString
		logPath      sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		startedRaw   sql.NullString
		finishedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&token,
		&audioPath,
		&statusStr,
		&model,
		&device,
		&computeType,
		&task,
		&language,
		&diarized,
		&segmentCount,
		&duration,
		&errorMessage,
		&logPath,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	run := &Run{
		ID:              id,
		Token:           token.String,
		AudioPath:       audioPath.String,
		Status:          Status(statusStr),
		Model:           model.String,
		Device:          device.String,
		ComputeType:     computeType.String,
		Task:            task.String,
		Language:        language.String,
		SegmentCount:    int(segmentCount.Int64),
		DurationSeconds: duration.Float64,
		ErrorMessage:    errorMessage.String,
		LogPath:         logPath.String,
	}
	if diarized.Valid {
		run.Diarized = diarized.Int64 != 0
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		run.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		run.UpdatedAt = updated
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			run.StartedAt = &started
		}
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return run, nil
}

func scanArtifact(scanner interface{ Scan(dest ...any) error }) (*Artifact, error) {
	var (
		id         int64
		runID      int64
		format     string
		path       string
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&id, &runID, &format, &path, &createdRaw); err != nil {
		return nil, err
	}
	artifact := &Artifact{ID: id, RunID: runID, Format: format, Path: path}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		artifact.CreatedAt = created
	}
	return artifact, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
