package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/pipeline"
	"scribe/internal/preflight"
	"scribe/internal/runner"
	"scribe/internal/runs"
)

// Daemon coordinates the watcher and worker goroutines and enforces
// single-instance execution.
type Daemon struct {
	cfg     *config.Config
	store   *runs.Store
	runner  *runner.Runner
	logger  *slog.Logger
	logPath string

	lockPath string
	lock     *flock.Flock
	apiSrv   *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Queue        runs.HealthSummary
	DBPath       string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies. logPath names the
// session log file recorded on every run the daemon processes; it may be
// empty.
func New(cfg *config.Config, store *runs.Store, r *runner.Runner, logger *slog.Logger, logPath string) (*Daemon, error) {
	if cfg == nil || store == nil || r == nil {
		return nil, errors.New("daemon requires config, store, and runner")
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		store:    store,
		runner:   r,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		logPath:  logPath,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock, verifies preflight checks, recovers
// runs orphaned by a previous crash, and launches the watcher and worker
// loops.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another scribe daemon instance is already running")
	}

	if err := d.runPreflight(ctx); err != nil {
		_ = d.lock.Unlock()
		return err
	}

	reset, err := d.store.ResetStuckProcessing(ctx)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("reset stuck runs: %w", err)
	}
	if reset > 0 {
		d.logger.Info("requeued interrupted runs", logging.Int64("count", reset))
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	apiSrv, err := newAPIServer(d.cfg, d, d.logger)
	if err == nil && apiSrv != nil {
		err = apiSrv.start(runCtx)
	}
	if err != nil {
		cancel()
		d.cancel = nil
		_ = d.lock.Unlock()
		return err
	}
	d.apiSrv = apiSrv

	watch := newWatcher(d.cfg, d.store, d.logger)
	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		watch.run(runCtx)
	}()
	go func() {
		defer d.wg.Done()
		d.workLoop(runCtx)
	}()

	d.running.Store(true)
	d.logger.Info("scribe daemon started",
		logging.String("incoming", d.cfg.Paths.IncomingDir),
		logging.String("lock", d.lockPath),
	)
	return nil
}

// Stop halts background processing, marks the interrupted run failed, and
// releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	d.apiSrv.stop()
	d.apiSrv = nil
	d.failInterrupted()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("scribe daemon stopped")
}

// Close releases resources held by the daemon. The run store is owned by
// the caller and stays open.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Running reports whether the daemon loops are active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// LogPath returns the session log file path.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// APIAddress returns the bound status API address, or empty when the API
// is disabled or the daemon is stopped.
func (d *Daemon) APIAddress() string {
	return d.apiSrv.address()
}

// Status returns current daemon runtime information.
func (d *Daemon) Status(ctx context.Context) (Status, error) {
	health, err := d.store.Health(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("queue health: %w", err)
	}
	return Status{
		Running:      d.running.Load(),
		Queue:        health,
		DBPath:       d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
	}, nil
}

// workLoop drains pending runs serially until the context is canceled.
func (d *Daemon) workLoop(ctx context.Context) {
	poll := time.Duration(d.cfg.Workflow.PollInterval) * time.Second
	if poll <= 0 {
		poll = 5 * time.Second
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		run, err := d.store.NextPending(ctx)
		if err != nil {
			d.logger.Error("failed to fetch next pending run", logging.Error(err))
			if !sleepOrDone(ctx, poll) {
				return
			}
			continue
		}
		if run == nil {
			if !sleepOrDone(ctx, poll) {
				return
			}
			continue
		}

		run.LogPath = d.logPath
		if _, err := d.runner.Execute(ctx, run, pipeline.FromConfig(d.cfg)); err != nil && errors.Is(err, context.Canceled) {
			return
		}
	}
}

// runPreflight verifies directories, credentials, and required binaries.
// Any hard failure blocks daemon startup.
func (d *Daemon) runPreflight(ctx context.Context) error {
	var failures []string
	for _, result := range preflight.RunAll(ctx, d.cfg) {
		if result.Passed {
			d.logger.Info("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
			continue
		}
		d.logger.Error("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
		)
		failures = append(failures, fmt.Sprintf("%s: %s", result.Name, result.Detail))
	}

	for _, status := range preflight.CheckSystemDeps(ctx, d.cfg) {
		if status.Available {
			continue
		}
		if status.Optional {
			d.logger.Warn("optional dependency unavailable",
				logging.String("dependency", status.Name),
				logging.String("detail", status.Detail),
			)
			continue
		}
		d.logger.Error("required dependency unavailable",
			logging.String("dependency", status.Name),
			logging.String("detail", status.Detail),
		)
		failures = append(failures, fmt.Sprintf("%s: %s", status.Name, status.Detail))
	}

	if len(failures) > 0 {
		return fmt.Errorf("preflight checks failed: %s", strings.Join(failures, "; "))
	}
	return nil
}

// failInterrupted marks runs still in a processing status as failed with
// the daemon stop reason. Crash recovery at startup is handled separately
// by the stuck-run reset; a graceful stop leaves an explicit record.
func (d *Daemon) failInterrupted() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, status := range runs.AllStatuses() {
		if !status.IsProcessing() {
			continue
		}
		list, err := d.store.RunsByStatus(ctx, status)
		if err != nil {
			d.logger.Warn("failed to enumerate interrupted runs", logging.Error(err))
			continue
		}
		for _, run := range list {
			run.SetFailed(runs.DaemonStopReason)
			now := time.Now().UTC()
			run.FinishedAt = &now
			if err := d.store.Update(ctx, run); err != nil {
				d.logger.Warn("failed to mark interrupted run",
					logging.Int64(logging.FieldRunID, run.ID),
					logging.Error(err),
				)
				continue
			}
			d.logger.Info("marked interrupted run as failed",
				logging.Int64(logging.FieldRunID, run.ID),
				logging.String(logging.FieldAudio, run.AudioPath),
			)
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
