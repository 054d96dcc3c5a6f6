package whisperx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"

	"scribe/internal/pipeline"
	"scribe/internal/transcript"
)

func TestNewProviderAppliesDefaults(t *testing.T) {
	provider := NewProvider(Config{}, nil)
	if provider.cfg.UVX != UVXCommand {
		t.Fatalf("expected default uvx binary %q, got %q", UVXCommand, provider.cfg.UVX)
	}
	if provider.cfg.Device != CPUDevice {
		t.Fatalf("expected default device %q, got %q", CPUDevice, provider.cfg.Device)
	}
}

func TestWorkerArgsCPUUsesPypiIndex(t *testing.T) {
	provider := NewProvider(Config{}, nil)
	args := provider.workerArgs(CPUDevice, asrDriver, `{"model":"small"}`)

	if args[0] != "--index-url" || args[1] != PypiIndexURL {
		t.Fatalf("expected pypi index first, got %v", args[:2])
	}
	if findArg(args, "--extra-index-url") != -1 {
		t.Fatalf("cpu install should not need an extra index, got %v", args)
	}
	assertDriverInvocation(t, args, asrDriver, `{"model":"small"}`)
}

func TestWorkerArgsCUDAPrependsTorchIndex(t *testing.T) {
	provider := NewProvider(Config{}, nil)
	args := provider.workerArgs(CUDADevice, asrDriver, `{"model":"small"}`)

	if args[0] != "--index-url" || args[1] != CUDAIndexURL {
		t.Fatalf("expected torch wheel index first, got %v", args[:2])
	}
	if args[2] != "--extra-index-url" || args[3] != PypiIndexURL {
		t.Fatalf("expected pypi as extra index, got %v", args[2:4])
	}
	assertDriverInvocation(t, args, asrDriver, `{"model":"small"}`)
}

func assertDriverInvocation(t *testing.T, args []string, driver, spec string) {
	t.Helper()
	idx := findArg(args, "--from")
	if idx == -1 || idx+1 >= len(args) || args[idx+1] != PackageSpec {
		t.Fatalf("expected --from %s, got %v", PackageSpec, args)
	}
	if findArg(args, "python") == -1 || findArg(args, "-c") == -1 {
		t.Fatalf("expected python -c invocation, got %v", args)
	}
	if args[len(args)-2] != driver {
		t.Fatalf("expected driver script as second-to-last arg")
	}
	if args[len(args)-1] != spec {
		t.Fatalf("expected spec json as last arg, got %q", args[len(args)-1])
	}
}

func TestLoadPassesModelSpecToWorker(t *testing.T) {
	captured := captureWorkerArgs(t, "asr")

	provider := NewProvider(Config{
		Device:    CPUDevice,
		VADMethod: "pyannote",
		VADOnset:  0.5,
		VADOffset: 0.363,
	}, nil)
	model, err := provider.Load(context.Background(), pipeline.ModelKey{
		Model:       "medium",
		Device:      CPUDevice,
		ComputeType: "float16",
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	defer model.Close()

	spec := decodeSpec(t, *captured)
	if spec["model"] != "medium" || spec["device"] != CPUDevice || spec["compute_type"] != "float16" {
		t.Fatalf("unexpected model spec %v", spec)
	}
	if spec["vad_method"] != "pyannote" {
		t.Fatalf("expected vad method in spec, got %v", spec)
	}
	if spec["vad_onset"] != 0.5 || spec["vad_offset"] != 0.363 {
		t.Fatalf("expected vad thresholds in spec, got %v", spec)
	}
	driver := (*captured)[len(*captured)-2]
	if !strings.Contains(driver, "load_model") || strings.Contains(driver, "load_align_model") {
		t.Fatal("expected the transcription driver script")
	}
}

func TestLoadAlignerPassesLanguageAndOverride(t *testing.T) {
	captured := captureWorkerArgs(t, "align")

	provider := NewProvider(Config{Device: CPUDevice}, nil)
	aligner, err := provider.LoadAligner(context.Background(), "de", "custom/wav2vec2-de")
	if err != nil {
		t.Fatalf("LoadAligner returned error: %v", err)
	}
	defer aligner.Close()

	spec := decodeSpec(t, *captured)
	if spec["language"] != "de" {
		t.Fatalf("expected language de in spec, got %v", spec)
	}
	if spec["align_model"] != "custom/wav2vec2-de" {
		t.Fatalf("expected align model override in spec, got %v", spec)
	}
	if spec["device"] != CPUDevice {
		t.Fatalf("expected device in spec, got %v", spec)
	}
}

func TestLoadAlignerOmitsEmptyOverride(t *testing.T) {
	captured := captureWorkerArgs(t, "align")

	provider := NewProvider(Config{Device: CPUDevice}, nil)
	aligner, err := provider.LoadAligner(context.Background(), "en", "")
	if err != nil {
		t.Fatalf("LoadAligner returned error: %v", err)
	}
	defer aligner.Close()

	spec := decodeSpec(t, *captured)
	if _, present := spec["align_model"]; present {
		t.Fatalf("expected empty override to be omitted, got %v", spec)
	}
}

func TestLoadDiarizerPassesToken(t *testing.T) {
	captured := captureWorkerArgs(t, "diarize")

	provider := NewProvider(Config{Device: CPUDevice, HFToken: "hf_secret"}, nil)
	diarizer, err := provider.LoadDiarizer(context.Background())
	if err != nil {
		t.Fatalf("LoadDiarizer returned error: %v", err)
	}
	defer diarizer.Close()

	spec := decodeSpec(t, *captured)
	if spec["hf_token"] != "hf_secret" {
		t.Fatalf("expected hf token in spec, got %v", spec)
	}
}

func TestTranscribeParsesSegments(t *testing.T) {
	setHelperCommand(t, "asr")

	provider := NewProvider(Config{}, nil)
	model, err := provider.Load(context.Background(), pipeline.ModelKey{Model: "small", Device: CPUDevice, ComputeType: "int8"})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	defer model.Close()

	result, err := model.Transcribe(context.Background(), pipeline.TranscribeRequest{
		AudioPath: "/tmp/interview.wav",
		Language:  "de",
		BatchSize: 16,
		ChunkSize: 30,
	})
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if result.Language != "de" {
		t.Fatalf("expected requested language echoed back, got %q", result.Language)
	}
	if result.Document == nil || len(result.Document.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %+v", result.Document)
	}
	first := result.Document.Segments[0]
	if first.Start != 0 || first.End != 2.5 || first.Text != " hello there" {
		t.Fatalf("unexpected first segment %+v", first)
	}
}

func TestTranscribeReportsDetectedLanguage(t *testing.T) {
	setHelperCommand(t, "asr")

	provider := NewProvider(Config{}, nil)
	model, err := provider.Load(context.Background(), pipeline.ModelKey{Model: "small", Device: CPUDevice, ComputeType: "int8"})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	defer model.Close()

	result, err := model.Transcribe(context.Background(), pipeline.TranscribeRequest{AudioPath: "/tmp/interview.wav"})
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if result.Language != "ja" {
		t.Fatalf("expected detected language, got %q", result.Language)
	}
	if result.Document.Language != "ja" {
		t.Fatalf("expected document language set, got %q", result.Document.Language)
	}
}

func TestAlignAttachesWords(t *testing.T) {
	setHelperCommand(t, "align")

	provider := NewProvider(Config{}, nil)
	aligner, err := provider.LoadAligner(context.Background(), "en", "")
	if err != nil {
		t.Fatalf("LoadAligner returned error: %v", err)
	}
	defer aligner.Close()

	doc := &transcript.Document{
		Language: "en",
		Segments: []transcript.Segment{
			{Start: 0, End: 2, Text: " one"},
			{Start: 2, End: 4, Text: " two"},
		},
	}
	aligned, err := aligner.Align(context.Background(), pipeline.AlignRequest{
		Document:  doc,
		AudioPath: "/tmp/interview.wav",
	})
	if err != nil {
		t.Fatalf("Align returned error: %v", err)
	}
	if len(aligned.Segments) != 2 {
		t.Fatalf("expected 2 aligned segments, got %d", len(aligned.Segments))
	}
	if aligned.Language != "en" {
		t.Fatalf("expected language carried over, got %q", aligned.Language)
	}
	for i, segment := range aligned.Segments {
		if len(segment.Words) != 1 {
			t.Fatalf("segment %d: expected words attached, got %+v", i, segment)
		}
		if segment.Words[0].Word != fmt.Sprintf("w%d", i) {
			t.Fatalf("segment %d: unexpected word %q", i, segment.Words[0].Word)
		}
	}
}

func TestAlignRequiresDocument(t *testing.T) {
	setHelperCommand(t, "align")

	provider := NewProvider(Config{}, nil)
	aligner, err := provider.LoadAligner(context.Background(), "en", "")
	if err != nil {
		t.Fatalf("LoadAligner returned error: %v", err)
	}
	defer aligner.Close()

	if _, err := aligner.Align(context.Background(), pipeline.AlignRequest{AudioPath: "/tmp/in.wav"}); err == nil {
		t.Fatal("expected error for missing document")
	}
}

func TestDiarizePassesBoundsAndParsesTurns(t *testing.T) {
	setHelperCommand(t, "diarize")

	provider := NewProvider(Config{HFToken: "hf_secret"}, nil)
	diarizer, err := provider.LoadDiarizer(context.Background())
	if err != nil {
		t.Fatalf("LoadDiarizer returned error: %v", err)
	}
	defer diarizer.Close()

	turns, err := diarizer.Diarize(context.Background(), pipeline.DiarizeRequest{
		AudioPath:   "/tmp/interview.wav",
		MinSpeakers: 2,
		MaxSpeakers: 4,
	})
	if err != nil {
		t.Fatalf("Diarize returned error: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected min speaker bound to reach the worker, got %d turns", len(turns))
	}
	if turns[0].Speaker != "SPEAKER_00" || turns[1].Speaker != "SPEAKER_01" {
		t.Fatalf("unexpected turns %+v", turns)
	}
}

// captureWorkerArgs swaps commandContext for one that records the uvx
// arguments before handing off to the helper process in the given mode.
func captureWorkerArgs(t *testing.T, mode string) *[]string {
	t.Helper()
	var captured []string
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		captured = append([]string(nil), args...)
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", fmt.Sprintf("WHISPERX_HELPER_MODE=%s", mode))
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
	return &captured
}

func decodeSpec(t *testing.T, args []string) map[string]any {
	t.Helper()
	if len(args) == 0 {
		t.Fatal("expected worker arguments to be captured")
	}
	var spec map[string]any
	if err := json.Unmarshal([]byte(args[len(args)-1]), &spec); err != nil {
		t.Fatalf("spec argument is not valid json: %v", err)
	}
	return spec
}
