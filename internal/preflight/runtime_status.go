package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"scribe/internal/config"
)

// CheckHuggingFaceFromConfig evaluates Hugging Face status from config and
// connectivity. Disabled diarization is reported as passing so status output
// does not flag features the operator turned off.
func CheckHuggingFaceFromConfig(cfg *config.Config) Result {
	const name = "Hugging Face token"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.Diarization.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	if strings.TrimSpace(cfg.Diarization.HFToken) == "" {
		return Result{Name: name, Detail: "Missing token"}
	}
	return CheckHuggingFace(context.Background(), "", cfg.Diarization.HFToken)
}

// CacheProbe reports the current WhisperX model cache snapshot.
type CacheProbe struct {
	Present bool
	Path    string
	Entries int
}

// ProbeModelCache inspects the Hugging Face hub cache the engine downloads
// models into. A missing cache is not an error; it means the first run will
// download models.
func ProbeModelCache() CacheProbe {
	home, err := os.UserHomeDir()
	if err != nil {
		return CacheProbe{}
	}
	hub := filepath.Join(home, ".cache", "huggingface", "hub")
	entries, err := os.ReadDir(hub)
	if err != nil {
		return CacheProbe{Path: hub}
	}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), "models--") {
			count++
		}
	}
	return CacheProbe{Present: true, Path: hub, Entries: count}
}

// Detail renders a display-friendly summary for status UIs.
func (p CacheProbe) Detail() string {
	if !p.Present {
		return "No model cache yet (models download on first run)"
	}
	if p.Entries == 1 {
		return fmt.Sprintf("1 cached model in %s", p.Path)
	}
	return fmt.Sprintf("%d cached models in %s", p.Entries, p.Path)
}
