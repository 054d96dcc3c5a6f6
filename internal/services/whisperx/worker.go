package whisperx

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"scribe/internal/logging"
)

var commandContext = exec.CommandContext

const (
	// Alignment payloads for long recordings run to many megabytes.
	scanBufferInitial = 64 * 1024
	scanBufferMax     = 32 * 1024 * 1024

	shutdownGrace = 5 * time.Second
)

// envelope is one protocol line from a worker. Event lines carry Event;
// response lines carry OK plus Result or Error.
type envelope struct {
	Event  string          `json:"event"`
	OK     bool            `json:"ok"`
	Error  string          `json:"error"`
	Result json.RawMessage `json:"result"`
}

// worker is one persistent inference subprocess. Requests are serialized by
// the callers (the model cache and the per-stage loaders hand out one
// capability instance at a time), but the mutex keeps misuse safe.
type worker struct {
	role    string
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	lines   chan envelope
	logFile *os.File
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool

	waitMu  sync.Mutex
	waitErr error
	waited  bool
}

// startWorker launches the subprocess and blocks until its model reports
// ready or ctx expires. Worker lifetime is decoupled from ctx: a loaded
// model keeps serving requests until Close.
func startWorker(ctx context.Context, binary string, args []string, role, logPath string, logger *slog.Logger) (*worker, error) {
	cmd := commandContext(context.Background(), binary, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking
	// WhisperX/pyannote checkpoint loading. Force legacy behavior.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		env := cmd.Env
		if env == nil {
			env = os.Environ()
		}
		cmd.Env = append(env, "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	var logFile *os.File
	if logPath != "" {
		if mkErr := os.MkdirAll(filepath.Dir(logPath), 0o755); mkErr == nil {
			logFile, _ = os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		}
	}
	if logFile != nil {
		cmd.Stderr = logFile
	} else {
		cmd.Stderr = io.Discard
	}

	if err := cmd.Start(); err != nil {
		if logFile != nil {
			_ = logFile.Close()
		}
		return nil, fmt.Errorf("start %s worker: %w", role, err)
	}

	w := &worker{
		role:    role,
		cmd:     cmd,
		stdin:   stdin,
		lines:   make(chan envelope, 8),
		logFile: logFile,
		logger:  logger,
	}
	go w.readLoop(stdout)

	if err := w.awaitReady(ctx); err != nil {
		_ = w.Close()
		return nil, err
	}
	w.logger.Info("worker ready", logging.String("role", role))
	return w, nil
}

func (w *worker) readLoop(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, scanBufferInitial), scanBufferMax)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var env envelope
		if err := json.Unmarshal(line, &env); err != nil {
			w.logger.Debug("worker noise",
				logging.String("role", w.role),
				logging.String("line", truncateLine(line)),
			)
			continue
		}
		w.lines <- env
	}
	if err := scanner.Err(); err != nil {
		w.logger.Debug("worker stream error", logging.String("role", w.role), logging.Error(err))
	}

	w.waitMu.Lock()
	w.waitErr = w.cmd.Wait()
	w.waited = true
	w.waitMu.Unlock()
	close(w.lines)
}

func (w *worker) awaitReady(ctx context.Context) error {
	for {
		select {
		case env, ok := <-w.lines:
			if !ok {
				return fmt.Errorf("%s worker exited before ready: %w", w.role, w.exitError())
			}
			if env.Event == "ready" {
				return nil
			}
		case <-ctx.Done():
			return fmt.Errorf("%s worker startup: %w", w.role, ctx.Err())
		}
	}
}

// call sends one request line and returns the matching response result.
// Cancellation kills the worker because the in-flight inference cannot be
// recalled.
func (w *worker) call(ctx context.Context, request any) (json.RawMessage, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, fmt.Errorf("%s worker is closed", w.role)
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	payload = append(payload, '\n')
	if _, err := w.stdin.Write(payload); err != nil {
		return nil, fmt.Errorf("write %s request: %w", w.role, err)
	}

	for {
		select {
		case env, ok := <-w.lines:
			if !ok {
				w.closed = true
				return nil, fmt.Errorf("%s worker exited: %w", w.role, w.exitError())
			}
			if env.Event != "" {
				continue
			}
			if !env.OK {
				message := env.Error
				if message == "" {
					message = "unspecified failure"
				}
				return nil, fmt.Errorf("%s worker: %s", w.role, message)
			}
			return env.Result, nil
		case <-ctx.Done():
			w.closed = true
			w.kill()
			return nil, ctx.Err()
		}
	}
}

// Close asks the worker to exit by closing stdin, then kills it if it
// overstays the grace period.
func (w *worker) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.drain()
		w.finishClose()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	_ = w.stdin.Close()

	timer := time.NewTimer(shutdownGrace)
	defer timer.Stop()
	for {
		select {
		case _, ok := <-w.lines:
			if !ok {
				w.finishClose()
				return nil
			}
		case <-timer.C:
			w.kill()
			w.drain()
			w.finishClose()
			return nil
		}
	}
}

func (w *worker) drain() {
	for range w.lines {
	}
}

func (w *worker) finishClose() {
	if w.logFile != nil {
		_ = w.logFile.Close()
		w.logFile = nil
	}
}

func (w *worker) kill() {
	if w.cmd != nil && w.cmd.Process != nil {
		_ = w.cmd.Process.Kill()
	}
}

func (w *worker) exitError() error {
	w.waitMu.Lock()
	defer w.waitMu.Unlock()
	if w.waited && w.waitErr != nil {
		return w.waitErr
	}
	return errors.New("unexpected exit")
}

func truncateLine(line []byte) string {
	const limit = 200
	if len(line) <= limit {
		return string(line)
	}
	return string(line[:limit]) + "..."
}
