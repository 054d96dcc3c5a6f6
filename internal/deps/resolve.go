package deps

import (
	"os/exec"
	"strings"
)

// ResolveFFprobePath returns the ffprobe command to execute. The configured
// override wins; PATH resolution is attempted so status output can show the
// absolute location, but an unresolved name is returned as-is and surfaces
// as a failed check instead of an empty command.
func ResolveFFprobePath(configured string) string {
	return resolve(configured, "ffprobe")
}

// ResolveUVXPath returns the uvx command used to launch the transcription
// engine, preferring the configured override.
func ResolveUVXPath(configured string) string {
	return resolve(configured, "uvx")
}

func resolve(configured, fallback string) string {
	candidate := strings.TrimSpace(configured)
	if candidate == "" {
		candidate = fallback
	}
	if resolved, err := exec.LookPath(candidate); err == nil {
		return resolved
	}
	return candidate
}
