package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchShutsDownOnContextCancel(t *testing.T) {
	env := setupCLITestEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, _, err := runCLIContext(ctx, t, []string{"watch"}, env.configPath)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	if _, err := os.Stat(filepath.Join(env.cfg.Paths.LogDir, "scribe.log")); err != nil {
		t.Fatalf("expected scribe.log pointer: %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.LogDir, "scribe.pid")); !os.IsNotExist(err) {
		t.Fatalf("expected pid file removed, got %v", err)
	}
}
