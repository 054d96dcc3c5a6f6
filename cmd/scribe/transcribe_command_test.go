package main

import (
	"os"
	"path/filepath"
	"testing"

	"scribe/internal/testsupport"
)

func TestTranscribeRejectsMissingFile(t *testing.T) {
	env := setupCLITestEnv(t)

	missing := filepath.Join(env.baseDir, "ghost.wav")
	_, _, err := runCLI(t, []string{"transcribe", missing}, env.configPath)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	requireContains(t, err.Error(), "file does not exist")
}

func TestTranscribeRejectsUnsupportedExtension(t *testing.T) {
	env := setupCLITestEnv(t)

	notes := filepath.Join(env.baseDir, "notes.txt")
	if err := os.WriteFile(notes, []byte("plain text"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	_, _, err := runCLI(t, []string{"transcribe", notes}, env.configPath)
	if err == nil {
		t.Fatal("expected error for unsupported extension")
	}
	requireContains(t, err.Error(), `unsupported file extension ".txt"`)
}

func TestTranscribeRejectsDirectory(t *testing.T) {
	env := setupCLITestEnv(t)

	dir := filepath.Join(env.baseDir, "album.wav")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	_, _, err := runCLI(t, []string{"transcribe", dir}, env.configPath)
	if err == nil {
		t.Fatal("expected error for directory argument")
	}
	requireContains(t, err.Error(), "is a directory")
}

func TestTranscribeValidatesSpeakerBounds(t *testing.T) {
	env := setupCLITestEnv(t)

	wav := filepath.Join(env.baseDir, "talk.wav")
	testsupport.WriteWAV(t, wav, 1)

	_, _, err := runCLI(t, []string{"transcribe", "--diarize", "--min-speakers", "three", wav}, env.configPath)
	if err == nil {
		t.Fatal("expected speaker bound validation error")
	}
	requireContains(t, err.Error(), "min_speakers must be a positive integer")
}
