package api

import (
	"time"

	"scribe/internal/runs"
)

// FromRun converts a run record to its API representation.
func FromRun(run *runs.Run) Run {
	if run == nil {
		return Run{}
	}

	dto := Run{
		ID:              run.ID,
		Token:           run.Token,
		AudioPath:       run.AudioPath,
		Status:          string(run.Status),
		Model:           run.Model,
		Device:          run.Device,
		ComputeType:     run.ComputeType,
		Task:            run.Task,
		Language:        run.Language,
		Diarized:        run.Diarized,
		SegmentCount:    run.SegmentCount,
		DurationSeconds: run.DurationSeconds,
		ErrorMessage:    run.ErrorMessage,
		LogPath:         run.LogPath,
		CreatedAt:       FormatTime(run.CreatedAt),
		UpdatedAt:       FormatTime(run.UpdatedAt),
	}
	if run.StartedAt != nil {
		dto.StartedAt = FormatTime(*run.StartedAt)
	}
	if run.FinishedAt != nil {
		dto.FinishedAt = FormatTime(*run.FinishedAt)
	}
	return dto
}

// FromRuns converts a slice of run records into API DTOs.
func FromRuns(records []*runs.Run) []Run {
	if len(records) == 0 {
		return nil
	}
	out := make([]Run, 0, len(records))
	for _, record := range records {
		out = append(out, FromRun(record))
	}
	return out
}

// FromArtifacts converts artifact records into API DTOs.
func FromArtifacts(records []*runs.Artifact) []Artifact {
	if len(records) == 0 {
		return nil
	}
	out := make([]Artifact, 0, len(records))
	for _, record := range records {
		out = append(out, Artifact{
			Format:    record.Format,
			Path:      record.Path,
			CreatedAt: FormatTime(record.CreatedAt),
		})
	}
	return out
}

// FromHealthSummary converts aggregated run counts to the API payload shape.
func FromHealthSummary(summary runs.HealthSummary) RunCounts {
	return RunCounts{
		Total:      summary.Total,
		Pending:    summary.Pending,
		Processing: summary.Processing,
		Completed:  summary.Completed,
		Failed:     summary.Failed,
	}
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
