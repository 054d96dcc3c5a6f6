package daemon

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/runs"
)

// audioExtensions lists the containers accepted from the incoming
// directory. Anything ffmpeg can decode is a candidate; files without an
// audio stream are rejected later by the probe.
var audioExtensions = map[string]struct{}{
	".wav":  {},
	".mp3":  {},
	".m4a":  {},
	".flac": {},
	".ogg":  {},
	".opus": {},
	".aac":  {},
	".wma":  {},
	".webm": {},
	".mp4":  {},
	".mkv":  {},
	".mov":  {},
}

// watcher ingests audio files from the incoming directory. Filesystem
// events feed a settle tracker so a file is enqueued only after its size
// has stopped changing; periodic rescans pick up files that predate the
// watch or whose events were missed.
type watcher struct {
	cfg    *config.Config
	store  *runs.Store
	logger *slog.Logger

	settle  time.Duration
	rescan  time.Duration
	pending map[string]*pendingFile
}

type pendingFile struct {
	size       int64
	lastChange time.Time
}

func newWatcher(cfg *config.Config, store *runs.Store, logger *slog.Logger) *watcher {
	settle := time.Duration(cfg.Workflow.FileSettleSeconds) * time.Second
	if settle <= 0 {
		settle = 2 * time.Second
	}
	rescan := time.Duration(cfg.Workflow.PollInterval) * time.Second
	if rescan <= 0 {
		rescan = 5 * time.Second
	}
	return &watcher{
		cfg:     cfg,
		store:   store,
		logger:  logging.NewComponentLogger(logger, "watcher"),
		settle:  settle,
		rescan:  rescan,
		pending: make(map[string]*pendingFile),
	}
}

// run watches the incoming directory until the context is canceled.
func (w *watcher) run(ctx context.Context) {
	var events <-chan fsnotify.Event
	var errs <-chan error

	notify, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Error("failed to create filesystem watcher, relying on rescans", logging.Error(err))
	} else {
		defer notify.Close()
		if addErr := notify.Add(w.cfg.Paths.IncomingDir); addErr != nil {
			w.logger.Error("failed to watch incoming directory, relying on rescans", logging.Error(addErr))
		}
		events = notify.Events
		errs = notify.Errors
	}

	w.scanIncoming(ctx)

	settleTick := time.NewTicker(w.settleCheckInterval())
	defer settleTick.Stop()
	rescanTick := time.NewTicker(w.rescan)
	defer rescanTick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.track(event.Name)
			}
		case watchErr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.logger.Warn("filesystem watcher error", logging.Error(watchErr))
		case <-settleTick.C:
			w.flushSettled(ctx)
		case <-rescanTick.C:
			w.scanIncoming(ctx)
		}
	}
}

// settleCheckInterval keeps the settle sweep responsive without hammering
// stat on slow copies.
func (w *watcher) settleCheckInterval() time.Duration {
	interval := w.settle / 2
	if interval < 500*time.Millisecond {
		interval = 500 * time.Millisecond
	}
	return interval
}

// track registers filesystem activity on a candidate file. Every event
// resets the settle clock.
func (w *watcher) track(path string) {
	if !isAudioCandidate(path) {
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	w.pending[path] = &pendingFile{size: info.Size(), lastChange: time.Now()}
}

// scanIncoming sweeps the incoming directory for candidate files the
// watcher has no record of, including anything present before startup.
func (w *watcher) scanIncoming(ctx context.Context) {
	entries, err := os.ReadDir(w.cfg.Paths.IncomingDir)
	if err != nil {
		w.logger.Warn("failed to scan incoming directory", logging.Error(err))
		return
	}
	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.cfg.Paths.IncomingDir, entry.Name())
		if !isAudioCandidate(path) {
			continue
		}
		if _, ok := w.pending[path]; ok {
			continue
		}
		known, err := w.store.FindByAudioPath(ctx, path)
		if err != nil {
			w.logger.Warn("failed to check run history",
				logging.String(logging.FieldAudio, path),
				logging.Error(err),
			)
			continue
		}
		if known != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		w.pending[path] = &pendingFile{size: info.Size(), lastChange: time.Now()}
	}
}

// flushSettled enqueues pending files whose size has been stable for the
// settle window.
func (w *watcher) flushSettled(ctx context.Context) {
	now := time.Now()
	for path, entry := range w.pending {
		info, err := os.Stat(path)
		if err != nil {
			delete(w.pending, path)
			continue
		}
		if info.Size() != entry.size {
			entry.size = info.Size()
			entry.lastChange = now
			continue
		}
		if now.Sub(entry.lastChange) < w.settle {
			continue
		}
		delete(w.pending, path)
		w.enqueue(ctx, path)
	}
}

func (w *watcher) enqueue(ctx context.Context, path string) {
	existing, err := w.store.FindByAudioPath(ctx, path)
	if err != nil {
		w.logger.Warn("failed to check run history",
			logging.String(logging.FieldAudio, path),
			logging.Error(err),
		)
		return
	}
	if existing != nil {
		w.logger.Debug("audio file already enqueued", logging.String(logging.FieldAudio, path))
		return
	}
	run, err := w.store.NewRun(ctx, path)
	if err != nil {
		w.logger.Error("failed to enqueue audio file",
			logging.String(logging.FieldAudio, path),
			logging.Error(err),
		)
		return
	}
	w.logger.Info("audio file queued",
		logging.Int64(logging.FieldRunID, run.ID),
		logging.String(logging.FieldAudio, path),
	)
}

// isAudioCandidate filters by extension; hidden files are skipped.
func isAudioCandidate(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	_, ok := audioExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// IsAudioFile reports whether path carries an extension the pipeline
// accepts. Shared with the CLI so manual submissions and the watcher
// agree on what counts as audio.
func IsAudioFile(path string) bool {
	return isAudioCandidate(path)
}
