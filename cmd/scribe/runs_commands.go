package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"scribe/internal/api"
	"scribe/internal/config"
	"scribe/internal/runs"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect and manage transcription runs",
	}

	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	runsCmd.AddCommand(newRunsStatusCommand(ctx))
	runsCmd.AddCommand(newRunsRetryCommand(ctx))
	runsCmd.AddCommand(newRunsClearCommand(ctx))
	runsCmd.AddCommand(newRunsResetCommand(ctx))
	runsCmd.AddCommand(newRunsHealthCommand(ctx))

	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var statusFilters []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatusFilters(statusFilters)
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *runs.Store) error {
				svc := api.NewRunService(store)
				dtos, err := svc.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, api.RunListResponse{Runs: dtos})
				}
				if len(dtos) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(dtos))
				for _, run := range dtos {
					rows = append(rows, []string{
						strconv.FormatInt(run.ID, 10),
						filepath.Base(run.AudioPath),
						run.Status,
						run.Model,
						strconv.Itoa(run.SegmentCount),
						run.CreatedAt,
					})
				}
				table := renderTable([]tableColumn{
					{title: "ID", right: true},
					{title: "Audio"},
					{title: "Status"},
					{title: "Model"},
					{title: "Segments", right: true},
					{title: "Created"},
				}, rows)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statusFilters, "status", "s", nil, "Filter by run status (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func parseStatusFilters(raw []string) ([]runs.Status, error) {
	statuses := make([]runs.Status, 0, len(raw))
	for _, value := range raw {
		status, ok := runs.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", value)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run with its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run id %q", args[0])
			}
			return ctx.withStore(func(cfg *config.Config, store *runs.Store) error {
				svc := api.NewRunService(store)
				dto, err := svc.Describe(cmd.Context(), id)
				if err != nil {
					return err
				}
				if dto == nil {
					return fmt.Errorf("run %d not found", id)
				}
				if asJSON {
					return writeJSON(cmd, api.RunResponse{Run: *dto})
				}
				printRunDetails(cmd, dto)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of text")
	return cmd
}

func printRunDetails(cmd *cobra.Command, run *api.Run) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run #%d (%s)\n", run.ID, run.Token)
	writeField := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(out, "  %-14s %s\n", label+":", value)
	}
	writeField("Audio", run.AudioPath)
	writeField("Status", run.Status)
	writeField("Model", run.Model)
	writeField("Device", run.Device)
	writeField("Compute type", run.ComputeType)
	writeField("Task", run.Task)
	writeField("Language", run.Language)
	writeField("Diarized", yesNo(run.Diarized))
	writeField("Segments", strconv.Itoa(run.SegmentCount))
	if run.DurationSeconds > 0 {
		writeField("Duration", fmt.Sprintf("%.1fs", run.DurationSeconds))
	}
	writeField("Created", run.CreatedAt)
	writeField("Started", run.StartedAt)
	writeField("Finished", run.FinishedAt)
	writeField("Error", run.ErrorMessage)
	writeField("Log", run.LogPath)

	if len(run.Artifacts) > 0 {
		rows := make([][]string, 0, len(run.Artifacts))
		for _, artifact := range run.Artifacts {
			rows = append(rows, []string{strings.ToUpper(artifact.Format), artifact.Path})
		}
		fmt.Fprintln(out, renderTable([]tableColumn{{title: "Format"}, {title: "Path"}}, rows))
	}
}

func newRunsStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show run counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *runs.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(stats))
				for _, status := range runs.AllStatuses() {
					count := stats[status]
					if count == 0 {
						continue
					}
					rows = append(rows, []string{string(status), strconv.Itoa(count)})
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
					return nil
				}
				table := renderTable([]tableColumn{
					{title: "Status"},
					{title: "Count", right: true},
				}, rows)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newRunsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [run-id...]",
		Short: "Reset failed runs to pending",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid run id %q", arg)
				}
				ids = append(ids, id)
			}

			return ctx.withStore(func(cfg *config.Config, store *runs.Store) error {
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					updated, err := store.RetryFailed(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Retried %d failed runs\n", updated)
					return nil
				}

				for _, id := range ids {
					run, err := store.GetByID(cmd.Context(), id)
					if err != nil {
						return err
					}
					if run == nil {
						fmt.Fprintf(out, "Run %d not found\n", id)
						continue
					}
					if run.Status != runs.StatusFailed {
						fmt.Fprintf(out, "Run %d is not in failed state\n", id)
						continue
					}
					updated, err := store.RetryFailed(cmd.Context(), id)
					if err != nil {
						return err
					}
					if updated > 0 {
						fmt.Fprintf(out, "Run %d reset for retry\n", id)
					} else {
						fmt.Fprintf(out, "Run %d is not in failed state\n", id)
					}
				}
				return nil
			})
		},
	}
}

func newRunsClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove run records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			return ctx.withStore(func(cfg *config.Config, store *runs.Store) error {
				out := cmd.OutOrStdout()
				switch {
				case clearCompleted:
					removed, err := store.ClearCompleted(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d completed runs\n", removed)
				case clearFailed:
					removed, err := store.ClearFailed(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d failed runs\n", removed)
				default:
					removed, err := store.Clear(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d runs\n", removed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only completed runs")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed runs")
	return cmd
}

func newRunsResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-stuck",
		Short: "Return in-flight runs to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *runs.Store) error {
				updated, err := store.ResetStuckProcessing(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d runs\n", updated)
				return nil
			})
		},
	}
}

func newRunsHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check run database health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *runs.Store) error {
				health, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database path: %s\n", health.DBPath)
				fmt.Fprintf(out, "Database exists: %s\n", yesNo(health.DatabaseExists))
				fmt.Fprintf(out, "Database readable: %s\n", yesNo(health.DatabaseReadable))
				fmt.Fprintf(out, "Runs table present: %s\n", yesNo(health.TableExists))
				fmt.Fprintf(out, "Integrity check: %s\n", yesNo(health.IntegrityCheck))
				fmt.Fprintf(out, "Total runs: %d\n", health.TotalRuns)
				if health.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", health.Error)
				}
				return nil
			})
		},
	}
}
