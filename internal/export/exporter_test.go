package export_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scribe/internal/export"
	"scribe/internal/logging"
	"scribe/internal/transcript"
)

func TestExportWritesAllFourArtifacts(t *testing.T) {
	dir := t.TempDir()
	exporter := export.New(dir, logging.NewNop())
	doc := &transcript.Document{
		Segments: []transcript.Segment{
			{Start: 1.5, End: 3.75, Text: "hello world"},
		},
		Language: "en",
	}

	display, artifacts, err := exporter.Export(doc, "transcript_1700000000_1", false)
	if err != nil {
		t.Fatalf("Export returned error: %v", err)
	}
	if len(artifacts) != 4 {
		t.Fatalf("expected 4 artifacts, got %d", len(artifacts))
	}

	formats := map[string]string{}
	for _, artifact := range artifacts {
		formats[artifact.Format] = artifact.Path
		if !strings.Contains(filepath.Base(artifact.Path), "transcript_1700000000_1") {
			t.Fatalf("artifact %q missing run token", artifact.Path)
		}
		if _, err := os.Stat(artifact.Path); err != nil {
			t.Fatalf("artifact %q not on disk: %v", artifact.Path, err)
		}
	}
	for _, format := range []string{"json", "txt", "srt", "vtt"} {
		if formats[format] == "" {
			t.Fatalf("missing %s artifact in %v", format, artifacts)
		}
	}

	txt, err := os.ReadFile(formats["txt"])
	if err != nil {
		t.Fatalf("read txt: %v", err)
	}
	if string(txt) != "hello world\n" {
		t.Fatalf("unexpected txt content: %q", txt)
	}
	if display != string(txt) {
		t.Fatalf("display %q differs from persisted txt %q", display, txt)
	}

	srt, err := os.ReadFile(formats["srt"])
	if err != nil {
		t.Fatalf("read srt: %v", err)
	}
	wantSRT := "1\n00:00:01,500 --> 00:00:03,750\nhello world\n\n"
	if string(srt) != wantSRT {
		t.Fatalf("unexpected srt content: %q want %q", srt, wantSRT)
	}

	vtt, err := os.ReadFile(formats["vtt"])
	if err != nil {
		t.Fatalf("read vtt: %v", err)
	}
	wantVTT := "WEBVTT\n\n00:01.500 --> 00:03.750\nhello world\n\n"
	if string(vtt) != wantVTT {
		t.Fatalf("unexpected vtt content: %q want %q", vtt, wantVTT)
	}
}

func TestExportSpeakerPrefixesWhenDiarized(t *testing.T) {
	dir := t.TempDir()
	exporter := export.New(dir, logging.NewNop())
	doc := &transcript.Document{
		Segments: []transcript.Segment{
			{Start: 0, End: 2, Text: " hello ", Speaker: "SPEAKER_00"},
			{Start: 2, End: 4, Text: "unlabeled gap"},
		},
	}

	display, _, err := exporter.Export(doc, "run1", true)
	if err != nil {
		t.Fatalf("Export returned error: %v", err)
	}
	if display != "[SPEAKER_00]: hello\nunlabeled gap\n" {
		t.Fatalf("unexpected display text: %q", display)
	}

	srt, err := os.ReadFile(filepath.Join(dir, "run1.srt"))
	if err != nil {
		t.Fatalf("read srt: %v", err)
	}
	if !strings.Contains(string(srt), "[SPEAKER_00]: hello") {
		t.Fatalf("expected speaker prefix in srt, got %q", srt)
	}

	// Same document exported without the diarized flag keeps labels out of
	// the text even though segments carry them.
	display, _, err = exporter.Export(doc, "run2", false)
	if err != nil {
		t.Fatalf("Export returned error: %v", err)
	}
	if strings.Contains(display, "SPEAKER_00") {
		t.Fatalf("expected no speaker prefix, got %q", display)
	}
}

func TestExportSanitizesArrowInCueText(t *testing.T) {
	dir := t.TempDir()
	exporter := export.New(dir, logging.NewNop())
	doc := &transcript.Document{
		Segments: []transcript.Segment{
			{Start: 0, End: 1, Text: "a --> b"},
		},
	}

	_, _, err := exporter.Export(doc, "arrows", false)
	if err != nil {
		t.Fatalf("Export returned error: %v", err)
	}

	for _, name := range []string{"arrows.srt", "arrows.vtt"} {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		for _, line := range strings.Split(string(content), "\n") {
			if strings.Contains(line, "-->") && !strings.Contains(line, ":") {
				t.Fatalf("cue text line in %s still contains -->: %q", name, line)
			}
		}
		if !strings.Contains(string(content), "a -> b") {
			t.Fatalf("expected sanitized text in %s, got %q", name, content)
		}
	}
}

func TestExportJSONPreservesNonASCIIAndFieldOrder(t *testing.T) {
	dir := t.TempDir()
	exporter := export.New(dir, logging.NewNop())
	doc := &transcript.Document{
		Segments: []transcript.Segment{
			{Start: 0, End: 1, Text: "héllo wörld 你好"},
		},
		Language: "fr",
	}

	_, artifacts, err := exporter.Export(doc, "unicode", false)
	if err != nil {
		t.Fatalf("Export returned error: %v", err)
	}

	var jsonPath string
	for _, artifact := range artifacts {
		if artifact.Format == "json" {
			jsonPath = artifact.Path
		}
	}
	content, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, "héllo wörld 你好") {
		t.Fatalf("expected raw non-ASCII text, got %q", text)
	}
	if strings.Contains(text, `\u`) {
		t.Fatalf("expected no unicode escapes, got %q", text)
	}
	if strings.Index(text, `"segments"`) > strings.Index(text, `"language"`) {
		t.Fatalf("expected segments before language, got %q", text)
	}
	if strings.Index(text, `"start"`) > strings.Index(text, `"end"`) {
		t.Fatalf("expected start before end, got %q", text)
	}
}

func TestExportRejectsEmptyToken(t *testing.T) {
	exporter := export.New(t.TempDir(), logging.NewNop())
	if _, _, err := exporter.Export(&transcript.Document{}, "  ", false); err == nil {
		t.Fatal("expected error for empty run token")
	}
}
