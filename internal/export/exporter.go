package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/transcript"
)

// Artifact is one file written for a run.
type Artifact struct {
	Format string `json:"format"`
	Path   string `json:"path"`
}

// Exporter writes transcript documents to the output directory in the four
// supported formats.
type Exporter struct {
	dir    string
	logger *slog.Logger
}

// New returns an Exporter rooted at dir.
func New(dir string, logger *slog.Logger) *Exporter {
	return &Exporter{dir: dir, logger: logging.NewComponentLogger(logger, "export")}
}

// Export persists the document as JSON, plain text, SRT, and VTT files named
// after runToken, then reads the plain-text file back and returns its exact
// contents as the display transcript. Speaker prefixes appear only when
// diarized is set and the segment carries a label.
func (e *Exporter) Export(doc *transcript.Document, runToken string, diarized bool) (string, []Artifact, error) {
	if doc == nil {
		return "", nil, services.Wrap(services.ErrConfiguration, "export", "document", "nil document", nil)
	}
	runToken = strings.TrimSpace(runToken)
	if runToken == "" {
		return "", nil, services.Wrap(services.ErrConfiguration, "export", "document", "empty run token", nil)
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", nil, services.Wrap(services.ErrIO, "export", "prepare output dir", e.dir, err)
	}

	artifacts := make([]Artifact, 0, 4)

	jsonPath := filepath.Join(e.dir, runToken+".json")
	if err := e.writeJSON(jsonPath, doc); err != nil {
		return "", nil, err
	}
	artifacts = append(artifacts, Artifact{Format: "json", Path: jsonPath})

	txtPath := filepath.Join(e.dir, runToken+".txt")
	if err := e.writeText(txtPath, doc, diarized); err != nil {
		return "", nil, err
	}
	artifacts = append(artifacts, Artifact{Format: "txt", Path: txtPath})

	srtPath := filepath.Join(e.dir, runToken+".srt")
	if err := e.writeSRT(srtPath, doc, diarized); err != nil {
		return "", nil, err
	}
	artifacts = append(artifacts, Artifact{Format: "srt", Path: srtPath})

	vttPath := filepath.Join(e.dir, runToken+".vtt")
	if err := e.writeVTT(vttPath, doc, diarized); err != nil {
		return "", nil, err
	}
	artifacts = append(artifacts, Artifact{Format: "vtt", Path: vttPath})

	display, err := os.ReadFile(txtPath)
	if err != nil {
		return "", nil, services.Wrap(services.ErrIO, "export", "read display text", txtPath, err)
	}

	e.logger.Debug("artifacts written",
		logging.String("token", runToken),
		logging.Int("count", len(artifacts)),
	)
	return string(display), artifacts, nil
}

func (e *Exporter) writeJSON(path string, doc *transcript.Document) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return services.Wrap(services.ErrIO, "export", "encode json", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return services.Wrap(services.ErrIO, "export", "write json", path, err)
	}
	return nil
}

func (e *Exporter) writeText(path string, doc *transcript.Document, diarized bool) error {
	var b strings.Builder
	for _, seg := range doc.Segments {
		if diarized && seg.Speaker != "" {
			fmt.Fprintf(&b, "[%s]: %s\n", seg.Speaker, strings.TrimSpace(seg.Text))
		} else {
			fmt.Fprintf(&b, "%s\n", strings.TrimSpace(seg.Text))
		}
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return services.Wrap(services.ErrIO, "export", "write txt", path, err)
	}
	return nil
}

func (e *Exporter) writeSRT(path string, doc *transcript.Document, diarized bool) error {
	var b strings.Builder
	for i, seg := range doc.Segments {
		start, err := FormatTimestamp(seg.Start, true, ",")
		if err != nil {
			return err
		}
		end, err := FormatTimestamp(seg.End, true, ",")
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, start, end, cueText(seg, diarized))
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return services.Wrap(services.ErrIO, "export", "write srt", path, err)
	}
	return nil
}

func (e *Exporter) writeVTT(path string, doc *transcript.Document, diarized bool) error {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, seg := range doc.Segments {
		start, err := FormatTimestamp(seg.Start, false, ".")
		if err != nil {
			return err
		}
		end, err := FormatTimestamp(seg.End, false, ".")
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "%s --> %s\n%s\n\n", start, end, cueText(seg, diarized))
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return services.Wrap(services.ErrIO, "export", "write vtt", path, err)
	}
	return nil
}

// cueText trims the segment text and defuses any literal "-->" so the cue
// cannot break timing-line parsing, then applies the speaker prefix.
func cueText(seg transcript.Segment, diarized bool) string {
	text := strings.ReplaceAll(strings.TrimSpace(seg.Text), "-->", "->")
	if diarized && seg.Speaker != "" {
		text = fmt.Sprintf("[%s]: %s", seg.Speaker, text)
	}
	return text
}
