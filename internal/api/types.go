package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Run describes a transcription run in a transport-friendly format.
type Run struct {
	ID              int64      `json:"id"`
	Token           string     `json:"token"`
	AudioPath       string     `json:"audioPath"`
	Status          string     `json:"status"`
	Model           string     `json:"model,omitempty"`
	Device          string     `json:"device,omitempty"`
	ComputeType     string     `json:"computeType,omitempty"`
	Task            string     `json:"task,omitempty"`
	Language        string     `json:"language,omitempty"`
	Diarized        bool       `json:"diarized"`
	SegmentCount    int        `json:"segmentCount"`
	DurationSeconds float64    `json:"durationSeconds,omitempty"`
	ErrorMessage    string     `json:"errorMessage,omitempty"`
	LogPath         string     `json:"logPath,omitempty"`
	CreatedAt       string     `json:"createdAt,omitempty"`
	UpdatedAt       string     `json:"updatedAt,omitempty"`
	StartedAt       string     `json:"startedAt,omitempty"`
	FinishedAt      string     `json:"finishedAt,omitempty"`
	Artifacts       []Artifact `json:"artifacts,omitempty"`
}

// Artifact records one exported document belonging to a run.
type Artifact struct {
	Format    string `json:"format"`
	Path      string `json:"path"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// RunCounts aggregates run totals per key lifecycle states.
type RunCounts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// HealthResponse aggregates daemon runtime information for API consumers.
type HealthResponse struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	Runs         RunCounts          `json:"runs"`
	DBPath       string             `json:"dbPath"`
	LockFilePath string             `json:"lockFilePath"`
	Dependencies []DependencyStatus `json:"dependencies,omitempty"`
}

// RunListResponse wraps a collection of runs for API responses.
type RunListResponse struct {
	Runs []Run `json:"runs"`
}

// RunResponse wraps a single run.
type RunResponse struct {
	Run Run `json:"run"`
}
