package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDoctorAllChecksPass(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	requireContains(t, out, "Directories")
	requireContains(t, out, "Dependencies")
	requireContains(t, out, "Hugging Face token")
	requireContains(t, out, "Model cache")
	requireContains(t, out, "All checks passed")
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no color codes when writing to a buffer: %q", out)
	}
}

func TestDoctorReportsDisabledDiarizationAsInfo(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	requireContains(t, out, "[INFO] Disabled")
}

func TestDoctorReportsMissingDependencies(t *testing.T) {
	env := setupCLITestEnv(t)

	emptyPath := filepath.Join(env.baseDir, "empty-path")
	if err := os.MkdirAll(emptyPath, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	t.Setenv("PATH", emptyPath)

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err == nil {
		t.Fatal("expected doctor to fail without binaries")
	}
	requireContains(t, err.Error(), "checks failed")
	requireContains(t, out, "[ERROR]")
	requireContains(t, out, "[WARN]")
}
