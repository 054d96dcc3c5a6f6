package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"scribe/internal/config"
	"scribe/internal/daemon"
	"scribe/internal/export"
	"scribe/internal/logging"
	"scribe/internal/notifications"
	"scribe/internal/pipeline"
	"scribe/internal/preflight"
	"scribe/internal/runner"
	"scribe/internal/runs"
	"scribe/internal/services/whisperx"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the incoming directory and transcribe continuously",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatchProcess(cmd.Context(), ctx)
		},
	}
}

func runWatchProcess(cmdCtx context.Context, ctx *commandContext) error {
	if ctx == nil {
		return fmt.Errorf("command context is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sessionID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("scribe-%s.log", sessionID))
	logger, err := logging.New(logging.Options{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update scribe.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "scribe-*.log", Exclude: []string{logPath}},
		logging.RetentionTarget{Dir: cfg.ToolLogDir(), Pattern: "*.log"},
	)

	pidPath := filepath.Join(cfg.Paths.LogDir, "scribe.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	logDependencySnapshot(signalCtx, cfg, logger)

	store, err := runs.Open(cfg)
	if err != nil {
		logger.Error("open run store", logging.Error(err))
		return err
	}
	defer store.Close()

	provider := whisperx.NewProvider(whisperx.FromConfig(cfg), logger)
	cache := pipeline.NewCache(provider, logger)
	defer func() {
		if err := cache.Close(); err != nil {
			logger.Warn("close model cache", logging.Error(err))
		}
	}()

	orch := pipeline.New(cache, provider, provider, logger)
	exporter := export.New(cfg.Paths.OutputDir, logger)
	notifier := notifications.NewService(cfg)
	r := runner.New(cfg, store, orch, exporter, notifier, logger)

	d, err := daemon.New(cfg, store, r, logger, logPath)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	if addr := d.APIAddress(); addr != "" {
		logger.Info("status API listening", logging.String("address", addr))
	}

	<-signalCtx.Done()
	logger.Info("scribe daemon shutting down")
	d.Stop()
	return nil
}

// logDependencySnapshot records tool availability at startup so a session
// log always opens with the environment it ran under.
func logDependencySnapshot(ctx context.Context, cfg *config.Config, logger *slog.Logger) {
	for _, status := range preflight.CheckSystemDeps(ctx, cfg) {
		attrs := []any{
			logging.String("name", status.Name),
			logging.Bool("available", status.Available),
		}
		if status.Detail != "" {
			attrs = append(attrs, logging.String("detail", status.Detail))
		}
		switch {
		case status.Available:
			logger.Info("dependency detected", attrs...)
		case status.Optional:
			logger.Warn("optional dependency missing", attrs...)
		default:
			logger.Warn("required dependency missing", attrs...)
		}
	}
}

// ensureCurrentLogPointer keeps scribe.log pointing at the newest session
// log. Falls back to a hard link on filesystems without symlink support.
func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "scribe.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
