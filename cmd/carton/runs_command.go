package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"carton/internal/history"
)

const runTimeLayout = "2006-01-02 15:04:05"

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var (
		limitFlag int
		jsonFlag  bool
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded build and undo passes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			store := ctx.openStore(logger)
			if store == nil {
				return errors.New("run ledger unavailable")
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limitFlag)
			if err != nil {
				return err
			}

			if jsonFlag {
				return writeJSON(cmd, runsJSON(runs))
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No recorded runs")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "KIND", "STATUS", "MOVED", "SKIPPED", "STARTED", "DURATION", "OUTPUT ROOT"},
				runRows(runs),
				0, 3, 4,
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limitFlag, "limit", 20, "Maximum runs to list (0 for all)")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit runs as JSON")
	return cmd
}

func runRows(runs []*history.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			strconv.FormatInt(run.ID, 10),
			string(run.Kind),
			string(run.Status),
			strconv.Itoa(run.Moved),
			strconv.Itoa(run.Skipped),
			run.StartedAt.Local().Format(runTimeLayout),
			runDuration(run),
			run.OutputRoot,
		})
	}
	return rows
}

func runDuration(run *history.Run) string {
	if !run.Finished() {
		return "running"
	}
	return run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}

func runsJSON(runs []*history.Run) []map[string]any {
	items := make([]map[string]any, 0, len(runs))
	for _, run := range runs {
		item := map[string]any{
			"id":          run.ID,
			"token":       run.Token,
			"kind":        string(run.Kind),
			"status":      string(run.Status),
			"moved":       run.Moved,
			"skipped":     run.Skipped,
			"output_root": run.OutputRoot,
			"log_path":    run.LogPath,
			"started_at":  run.StartedAt.Format(time.RFC3339),
		}
		if run.ManifestPath != "" {
			item["manifest_path"] = run.ManifestPath
		}
		if run.Finished() {
			item["finished_at"] = run.FinishedAt.Format(time.RFC3339)
		}
		if run.ErrorMessage != "" {
			item["error"] = run.ErrorMessage
		}
		items = append(items, item)
	}
	return items
}
