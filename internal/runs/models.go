package runs

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a transcription run.
type Status string

const (
	StatusPending      Status = "pending"
	StatusTranscribing Status = "transcribing"
	StatusAligning     Status = "aligning"
	StatusDiarizing    Status = "diarizing"
	StatusExporting    Status = "exporting"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// DaemonStopReason is the error message set when runs are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusTranscribing,
	StatusAligning,
	StatusDiarizing,
	StatusExporting,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusTranscribing: {},
	StatusAligning:     {},
	StatusDiarizing:    {},
	StatusExporting:    {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus validates a user-supplied status string.
func ParseStatus(raw string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := statusSet[status]
	return status, ok
}

// IsProcessing reports whether the status marks a run currently owned by a worker.
func (s Status) IsProcessing() bool {
	_, ok := processingStatuses[s]
	return ok
}

// HealthSummary describes aggregated run counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Completed  int
}

// DatabaseHealth captures diagnostic information about the runs database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	IntegrityCheck   bool
	TotalRuns        int
	Error            string
}

// Run represents a transcription run persisted in SQLite.
type Run struct {
	ID              int64
	Token           string
	AudioPath       string
	Status          Status
	Model           string
	Device          string
	ComputeType     string
	Task            string
	Language        string
	Diarized        bool
	SegmentCount    int
	DurationSeconds float64
	ErrorMessage    string
	LogPath         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	StartedAt       *time.Time
	FinishedAt      *time.Time
}

// Artifact records one exported document belonging to a run.
type Artifact struct {
	ID        int64
	RunID     int64
	Format    string
	Path      string
	CreatedAt time.Time
}

// SetFailed marks the run failed with the given message.
func (r *Run) SetFailed(message string) {
	r.Status = StatusFailed
	r.ErrorMessage = message
}

// IsProcessing reports whether the run is currently owned by a worker.
func (r *Run) IsProcessing() bool {
	return r.Status.IsProcessing()
}
