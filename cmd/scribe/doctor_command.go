package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scribe/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the transcription environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			var failures int

			section := func(title string) {
				for _, line := range renderSectionHeader(title, colorize) {
					fmt.Fprintln(out, line)
				}
			}

			section("Directories")
			for _, dir := range []struct {
				label string
				path  string
			}{
				{label: "Incoming", path: cfg.Paths.IncomingDir},
				{label: "Output", path: cfg.Paths.OutputDir},
				{label: "Work", path: cfg.Paths.WorkDir},
				{label: "Logs", path: cfg.Paths.LogDir},
			} {
				result := preflight.CheckDirectoryAccess(dir.label, dir.path)
				kind := statusOK
				if !result.Passed {
					kind = statusError
					failures++
				}
				fmt.Fprintln(out, renderStatusLine(dir.label, kind, result.Detail, colorize))
			}

			fmt.Fprintln(out)
			section("Services")
			hf := preflight.CheckHuggingFaceFromConfig(cfg)
			switch {
			case hf.Passed && strings.EqualFold(strings.TrimSpace(hf.Detail), "Disabled"):
				fmt.Fprintln(out, renderStatusLine(hf.Name, statusInfo, hf.Detail, colorize))
			case hf.Passed:
				fmt.Fprintln(out, renderStatusLine(hf.Name, statusOK, hf.Detail, colorize))
			default:
				failures++
				fmt.Fprintln(out, renderStatusLine(hf.Name, statusError, hf.Detail, colorize))
			}
			if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
				fmt.Fprintln(out, renderStatusLine("Notifications", statusOK, "Configured", colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Notifications", statusWarn, "Not configured", colorize))
			}

			fmt.Fprintln(out)
			section("Models")
			cache := preflight.ProbeModelCache()
			cacheKind := statusInfo
			if cache.Present {
				cacheKind = statusOK
			}
			fmt.Fprintln(out, renderStatusLine("Model cache", cacheKind, cache.Detail(), colorize))

			fmt.Fprintln(out)
			section("Dependencies")
			for _, status := range preflight.CheckSystemDeps(cmd.Context(), cfg) {
				var kind statusKind
				switch {
				case status.Available:
					kind = statusOK
				case status.Optional:
					kind = statusWarn
				default:
					kind = statusError
					failures++
				}
				detail := status.Detail
				if detail == "" {
					detail = status.Description
				}
				fmt.Fprintln(out, renderStatusLine(status.Name, kind, detail, colorize))
			}

			fmt.Fprintln(out)
			if failures > 0 {
				return fmt.Errorf("%d checks failed", failures)
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
}
