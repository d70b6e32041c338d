package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"carton/internal/ingest"
	"carton/internal/movelog"
	"carton/internal/mover"
	"carton/internal/preflight"
)

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var (
		replaceFlag    bool
		sidecarsFlag   bool
		allowSkipsFlag bool
		jsonFlag       bool
	)

	cmd := &cobra.Command{
		Use:   "build <manifest.csv> <output-root>",
		Short: "Build the container tree and move files into place",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			manifestPath, err := expandArg(args[0])
			if err != nil {
				return err
			}
			outputRoot, err := expandArg(args[1])
			if err != nil {
				return err
			}

			if err := preflight.Err(preflight.RunBuild(manifestPath, outputRoot)); err != nil {
				return err
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			replace := cfg.ReplaceOnConflict()
			if cmd.Flags().Changed("replace") {
				replace = replaceFlag
			}
			sidecars := cfg.Build.Sidecars
			if cmd.Flags().Changed("sidecars") {
				sidecars = sidecarsFlag
			}

			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			store := ctx.openStore(logger)
			if store != nil {
				defer store.Close()
			}

			container, err := ctx.newContainer(manifestPath, outputRoot, logger, store, replace, sidecars)
			if err != nil {
				return err
			}
			report, err := container.Build(cmd.Context())
			if err != nil {
				return err
			}

			if jsonFlag {
				if err := writeJSON(cmd, buildReportJSON(report)); err != nil {
					return err
				}
			} else {
				printBuildReport(cmd, report)
			}
			if skipped := report.Skipped(); skipped > 0 && !allowSkipsFlag {
				return fmt.Errorf("skipped %d %s", skipped, plural(skipped, "entry", "entries"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&replaceFlag, "replace", false, "Move files over occupied destinations instead of skipping them")
	cmd.Flags().BoolVar(&sidecarsFlag, "sidecars", false, "Write OPEX metadata sidecars for placed files and folders")
	cmd.Flags().BoolVar(&allowSkipsFlag, "allow-skips", false, "Exit zero even when entries were skipped")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit the build report as JSON")
	return cmd
}

func printBuildReport(cmd *cobra.Command, report *ingest.Report) {
	out := cmd.OutOrStdout()

	statusLine(out, statusOK, "Built container at %s", report.Root.OutputPath)
	fmt.Fprintf(out, "Created %d %s, moved %d %s\n",
		report.DirsCreated, plural(report.DirsCreated, "directory", "directories"),
		report.FilesMoved, plural(report.FilesMoved, "file", "files"))
	if report.Sidecars > 0 {
		fmt.Fprintf(out, "Wrote %d %s\n", report.Sidecars, plural(report.Sidecars, "sidecar", "sidecars"))
	}
	fmt.Fprintf(out, "Move log: %s\n", report.LogPath)

	if report.Skipped() > 0 {
		statusLine(cmd.ErrOrStderr(), statusWarn, "Skipped %d %s:",
			report.Skipped(), plural(report.Skipped(), "entry", "entries"))
		fmt.Fprintln(cmd.ErrOrStderr(), renderTable(
			[]string{"PATH", "REASON"},
			moveFaultRows(report.Faults),
		))
	}
}

func buildReportJSON(report *ingest.Report) map[string]any {
	return map[string]any{
		"output_root":  report.Root.OutputPath,
		"dirs_created": report.DirsCreated,
		"files_moved":  report.FilesMoved,
		"sidecars":     report.Sidecars,
		"log_path":     report.LogPath,
		"skipped":      moveFaultsJSON(report.Faults),
	}
}

func moveFaultRows(faults []mover.Fault) [][]string {
	rows := make([][]string, 0, len(faults))
	for _, fault := range faults {
		rows = append(rows, []string{fault.Node.OutputPath, fault.Err.Error()})
	}
	return rows
}

func moveFaultsJSON(faults []mover.Fault) []map[string]string {
	items := make([]map[string]string, 0, len(faults))
	for _, fault := range faults {
		items = append(items, map[string]string{
			"path":   fault.Node.OutputPath,
			"reason": fault.Err.Error(),
		})
	}
	return items
}

func undoFaultRows(faults []movelog.Fault) [][]string {
	rows := make([][]string, 0, len(faults))
	for _, fault := range faults {
		rows = append(rows, []string{fault.Record.SourcePath, fault.Err.Error()})
	}
	return rows
}

func undoFaultsJSON(faults []movelog.Fault) []map[string]string {
	items := make([]map[string]string, 0, len(faults))
	for _, fault := range faults {
		items = append(items, map[string]string{
			"path":   fault.Record.SourcePath,
			"reason": fault.Err.Error(),
		})
	}
	return items
}
