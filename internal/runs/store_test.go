package runs_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"scribe/internal/runs"
	"scribe/internal/testsupport"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	run, err := store.NewRun(ctx, "/audio/interview.wav")
	if err != nil {
		t.Fatalf("NewRun failed: %v", err)
	}
	if run.ID == 0 {
		t.Fatal("expected run ID to be assigned")
	}
	if !strings.HasPrefix(run.Token, "transcript_") {
		t.Fatalf("unexpected token %q", run.Token)
	}
	if !strings.HasSuffix(run.Token, fmt.Sprintf("_%d", run.ID)) {
		t.Fatalf("token %q should end with row id %d", run.Token, run.ID)
	}
	if run.Status != runs.StatusPending {
		t.Fatalf("expected pending status, got %s", run.Status)
	}

	fetched, err := store.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.AudioPath != "/audio/interview.wav" {
		t.Fatalf("unexpected fetched run: %#v", fetched)
	}

	byToken, err := store.GetByToken(ctx, run.Token)
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}
	if byToken == nil || byToken.ID != run.ID {
		t.Fatalf("expected to find run by token, got %#v", byToken)
	}

	missing, err := store.GetByID(ctx, run.ID+100)
	if err != nil {
		t.Fatalf("GetByID for missing run failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing run, got %#v", missing)
	}
}

func TestNewRunRequiresAudioPath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.NewRun(context.Background(), "   "); err == nil {
		t.Fatal("expected error when audio path missing")
	}
}

func TestUpdatePersistsFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	run := testsupport.NewRun(t, store, "/audio/meeting.flac")

	started := time.Now().UTC().Add(-time.Minute)
	finished := time.Now().UTC()
	run.Status = runs.StatusCompleted
	run.Model = "medium"
	run.Device = "cpu"
	run.ComputeType = "float16"
	run.Task = "transcribe"
	run.Language = "en"
	run.Diarized = true
	run.SegmentCount = 42
	run.DurationSeconds = 1834.5
	run.LogPath = "/logs/tools/run-1.log"
	run.StartedAt = &started
	run.FinishedAt = &finished
	if err := store.Update(ctx, run); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != runs.StatusCompleted {
		t.Fatalf("expected completed, got %s", fetched.Status)
	}
	if fetched.Model != "medium" || fetched.Language != "en" || !fetched.Diarized {
		t.Fatalf("unexpected fields: %#v", fetched)
	}
	if fetched.SegmentCount != 42 || fetched.DurationSeconds != 1834.5 {
		t.Fatalf("unexpected counters: %#v", fetched)
	}
	if fetched.StartedAt == nil || fetched.FinishedAt == nil {
		t.Fatal("expected started/finished timestamps to persist")
	}
	if !fetched.StartedAt.Equal(started) {
		t.Fatalf("expected started %v, got %v", started, fetched.StartedAt)
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	stuck := []runs.Status{
		runs.StatusTranscribing,
		runs.StatusAligning,
		runs.StatusDiarizing,
		runs.StatusExporting,
	}
	var ids []int64
	for i, status := range stuck {
		run := testsupport.NewRun(t, store, fmt.Sprintf("/audio/stuck-%d.wav", i))
		run.Status = status
		run.ErrorMessage = "left over"
		if err := store.Update(ctx, run); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		ids = append(ids, run.ID)
	}
	done := testsupport.NewRun(t, store, "/audio/done.wav")
	done.Status = runs.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	count, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if int(count) != len(stuck) {
		t.Fatalf("expected %d runs reset, got %d", len(stuck), count)
	}

	for _, id := range ids {
		updated, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if updated.Status != runs.StatusPending {
			t.Fatalf("run %d: expected pending, got %s", id, updated.Status)
		}
		if updated.ErrorMessage != "" {
			t.Fatalf("run %d: expected error message cleared", id)
		}
	}

	untouched, err := store.GetByID(ctx, done.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if untouched.Status != runs.StatusCompleted {
		t.Fatalf("completed run should be untouched, got %s", untouched.Status)
	}
}

func TestNextPendingReturnsOldest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewRun(t, store, "/audio/first.wav")
	second := testsupport.NewRun(t, store, "/audio/second.wav")

	next, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("expected run %d, got %#v", first.ID, next)
	}

	first.Status = runs.StatusTranscribing
	if err := store.Update(ctx, first); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	next, err = store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if next == nil || next.ID != second.ID {
		t.Fatalf("expected run %d, got %#v", second.ID, next)
	}

	second.Status = runs.StatusCompleted
	if err := store.Update(ctx, second); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	next, err = store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if next != nil {
		t.Fatalf("expected no pending run, got %#v", next)
	}
}

func TestArtifactsFollowRunLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	run := testsupport.NewRun(t, store, "/audio/lecture.mp3")

	artifacts := []runs.Artifact{
		{Format: "json", Path: "/out/lecture.json"},
		{Format: "txt", Path: "/out/lecture.txt"},
		{Format: "srt", Path: "/out/lecture.srt"},
		{Format: "vtt", Path: "/out/lecture.vtt"},
	}
	if err := store.AddArtifacts(ctx, run.ID, artifacts); err != nil {
		t.Fatalf("AddArtifacts failed: %v", err)
	}

	stored, err := store.ArtifactsForRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("ArtifactsForRun failed: %v", err)
	}
	if len(stored) != len(artifacts) {
		t.Fatalf("expected %d artifacts, got %d", len(artifacts), len(stored))
	}
	for i, artifact := range stored {
		if artifact.Format != artifacts[i].Format || artifact.Path != artifacts[i].Path {
			t.Fatalf("artifact %d mismatch: %#v", i, artifact)
		}
		if artifact.RunID != run.ID {
			t.Fatalf("artifact %d has run id %d, want %d", i, artifact.RunID, run.ID)
		}
	}

	removed, err := store.Remove(ctx, run.ID)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !removed {
		t.Fatal("expected run to be removed")
	}

	orphaned, err := store.ArtifactsForRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("ArtifactsForRun failed: %v", err)
	}
	if len(orphaned) != 0 {
		t.Fatalf("expected cascade delete, got %d artifacts", len(orphaned))
	}
}

func TestRetryFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	failed := testsupport.NewRun(t, store, "/audio/failed.wav")
	failed.SetFailed("model load failed")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	completed := testsupport.NewRun(t, store, "/audio/ok.wav")
	completed.Status = runs.StatusCompleted
	if err := store.Update(ctx, completed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	count, err := store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 run retried, got %d", count)
	}

	retried, err := store.GetByID(ctx, failed.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if retried.Status != runs.StatusPending || retried.ErrorMessage != "" {
		t.Fatalf("unexpected retried run: %#v", retried)
	}
}

func TestRetryFailedSelectsIDs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a := testsupport.NewRun(t, store, "/audio/a.wav")
	a.SetFailed("boom")
	if err := store.Update(ctx, a); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	b := testsupport.NewRun(t, store, "/audio/b.wav")
	b.SetFailed("boom")
	if err := store.Update(ctx, b); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	count, err := store.RetryFailed(ctx, b.ID)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 run retried, got %d", count)
	}

	stillFailed, err := store.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stillFailed.Status != runs.StatusFailed {
		t.Fatalf("expected run %d to stay failed, got %s", a.ID, stillFailed.Status)
	}
}

func TestStatsAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewRun(t, store, "/audio/one.wav")

	working := testsupport.NewRun(t, store, "/audio/two.wav")
	working.Status = runs.StatusAligning
	if err := store.Update(ctx, working); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	broken := testsupport.NewRun(t, store, "/audio/three.wav")
	broken.SetFailed("diarization failed")
	if err := store.Update(ctx, broken); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	expected := runs.HealthSummary{Total: 3, Pending: 1, Processing: 1, Failed: 1}
	if health != expected {
		t.Fatalf("unexpected health: %#v", health)
	}

	dbHealth, err := store.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !dbHealth.DatabaseExists || !dbHealth.DatabaseReadable || !dbHealth.TableExists {
		t.Fatalf("unexpected database health: %#v", dbHealth)
	}
	if !dbHealth.IntegrityCheck || dbHealth.TotalRuns != 3 {
		t.Fatalf("unexpected database health: %#v", dbHealth)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := runs.ParseStatus(" Completed "); !ok || status != runs.StatusCompleted {
		t.Fatalf("unexpected parse result: %v %v", status, ok)
	}
	if _, ok := runs.ParseStatus("unknown"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}
