package whisperx

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"scribe/internal/pipeline"
	"scribe/internal/transcript"
)

func TestWorkerIgnoresNoiseLines(t *testing.T) {
	setHelperCommand(t, "noisy")

	provider := NewProvider(Config{}, nil)
	model, err := provider.Load(context.Background(), pipeline.ModelKey{Model: "small", Device: CPUDevice, ComputeType: "int8"})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	defer model.Close()

	result, err := model.Transcribe(context.Background(), pipeline.TranscribeRequest{AudioPath: "/tmp/in.wav"})
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if len(result.Document.Segments) != 1 {
		t.Fatalf("expected 1 segment through the noise, got %d", len(result.Document.Segments))
	}
}

func TestWorkerSurfacesRequestError(t *testing.T) {
	setHelperCommand(t, "request-error")

	provider := NewProvider(Config{}, nil)
	model, err := provider.Load(context.Background(), pipeline.ModelKey{Model: "small", Device: CPUDevice, ComputeType: "int8"})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	defer model.Close()

	_, err = model.Transcribe(context.Background(), pipeline.TranscribeRequest{AudioPath: "/tmp/in.wav"})
	if err == nil {
		t.Fatal("expected worker error to surface")
	}
	if !strings.Contains(err.Error(), "CUDA out of memory") {
		t.Fatalf("expected worker message in error, got %v", err)
	}
	if !strings.Contains(err.Error(), "asr worker") {
		t.Fatalf("expected worker role in error, got %v", err)
	}
}

func TestWorkerExitBeforeReadyFailsLoad(t *testing.T) {
	setHelperCommand(t, "exit-early")

	provider := NewProvider(Config{}, nil)
	_, err := provider.Load(context.Background(), pipeline.ModelKey{Model: "small", Device: CPUDevice, ComputeType: "int8"})
	if err == nil {
		t.Fatal("expected load failure when worker exits before ready")
	}
	if !strings.Contains(err.Error(), "before ready") {
		t.Fatalf("expected ready-handshake error, got %v", err)
	}
	if !strings.Contains(err.Error(), "exit status 3") {
		t.Fatalf("expected exit status in error, got %v", err)
	}
}

func TestWorkerStartupHonorsContext(t *testing.T) {
	setHelperCommand(t, "silent")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	provider := NewProvider(Config{}, nil)
	_, err := provider.Load(ctx, pipeline.ModelKey{Model: "small", Device: CPUDevice, ComputeType: "int8"})
	if err == nil {
		t.Fatal("expected load to give up on a silent worker")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestWorkerRejectsRequestsAfterClose(t *testing.T) {
	setHelperCommand(t, "asr")

	provider := NewProvider(Config{}, nil)
	model, err := provider.Load(context.Background(), pipeline.ModelKey{Model: "small", Device: CPUDevice, ComputeType: "int8"})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if err := model.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	if _, err := model.Transcribe(context.Background(), pipeline.TranscribeRequest{AudioPath: "/tmp/in.wav"}); err == nil {
		t.Fatal("expected error after close")
	} else if !strings.Contains(err.Error(), "closed") {
		t.Fatalf("expected closed error, got %v", err)
	}
}

func TestWorkerCloseIsIdempotent(t *testing.T) {
	setHelperCommand(t, "asr")

	provider := NewProvider(Config{}, nil)
	model, err := provider.Load(context.Background(), pipeline.ModelKey{Model: "small", Device: CPUDevice, ComputeType: "int8"})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if err := model.Close(); err != nil {
		t.Fatalf("first Close returned error: %v", err)
	}
	if err := model.Close(); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}
}

func setHelperCommand(t *testing.T, mode string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", fmt.Sprintf("WHISPERX_HELPER_MODE=%s", mode))
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
}

// TestHelperProcess stands in for a WhisperX worker subprocess. It speaks the
// ready handshake and one response line per request line until stdin closes.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	switch os.Getenv("WHISPERX_HELPER_MODE") {
	case "asr":
		fmt.Println(`{"event":"ready"}`)
		helperServe(func(line []byte) string {
			var req asrRequest
			if err := json.Unmarshal(line, &req); err != nil {
				return `{"ok":false,"error":"bad request"}`
			}
			language := req.Language
			if language == "" {
				language = "ja"
			}
			result, _ := json.Marshal(asrResult{
				Segments: []transcript.Segment{
					{Start: 0, End: 2.5, Text: " hello there"},
					{Start: 2.5, End: 4, Text: " general"},
				},
				Language: language,
			})
			return fmt.Sprintf(`{"ok":true,"result":%s}`, result)
		})
	case "align":
		fmt.Println(`{"event":"ready"}`)
		helperServe(func(line []byte) string {
			var req alignRequest
			if err := json.Unmarshal(line, &req); err != nil {
				return `{"ok":false,"error":"bad request"}`
			}
			segments := req.Segments
			for i := range segments {
				segments[i].Words = []transcript.Word{
					{Word: fmt.Sprintf("w%d", i), Start: segments[i].Start, End: segments[i].End, Score: 0.95},
				}
			}
			result, _ := json.Marshal(alignResult{Segments: segments})
			return fmt.Sprintf(`{"ok":true,"result":%s}`, result)
		})
	case "diarize":
		fmt.Println(`{"event":"ready"}`)
		helperServe(func(line []byte) string {
			var req diarizeRequest
			if err := json.Unmarshal(line, &req); err != nil {
				return `{"ok":false,"error":"bad request"}`
			}
			count := req.MinSpeakers
			if count <= 0 {
				count = 1
			}
			turns := make([]transcript.SpeakerTurn, count)
			for i := range turns {
				turns[i] = transcript.SpeakerTurn{
					Start:   float64(i),
					End:     float64(i + 1),
					Speaker: fmt.Sprintf("SPEAKER_%02d", i),
				}
			}
			result, _ := json.Marshal(diarizeResult{Turns: turns})
			return fmt.Sprintf(`{"ok":true,"result":%s}`, result)
		})
	case "request-error":
		fmt.Println(`{"event":"ready"}`)
		helperServe(func([]byte) string {
			return `{"ok":false,"error":"CUDA out of memory"}`
		})
	case "noisy":
		fmt.Println("Installed 142 packages in 3.21s")
		fmt.Println("")
		fmt.Println(`{"event":"ready"}`)
		helperServe(func([]byte) string {
			fmt.Println("UserWarning: torchaudio backend dispatch is deprecated")
			return `{"ok":true,"result":{"segments":[{"start":0,"end":1,"text":" hi"}],"language":"en"}}`
		})
	case "exit-early":
		fmt.Fprintln(os.Stderr, "ModuleNotFoundError: No module named 'whisperx'")
		os.Exit(3)
	case "silent":
		_, _ = io.Copy(io.Discard, os.Stdin)
		os.Exit(0)
	default:
		os.Exit(0)
	}
}

func helperServe(respond func(line []byte) string) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, scanBufferInitial), scanBufferMax)
	for scanner.Scan() {
		fmt.Println(respond(scanner.Bytes()))
	}
	os.Exit(0)
}

func findArg(args []string, target string) int {
	for i, arg := range args {
		if arg == target {
			return i
		}
	}
	return -1
}
