package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"carton/internal/history"
	"carton/internal/ingest"
	"carton/internal/movelog"
	"carton/internal/preflight"
)

func newUndoCommand(ctx *commandContext) *cobra.Command {
	var (
		rootFlag string
		lastFlag bool
		jsonFlag bool
	)

	cmd := &cobra.Command{
		Use:   "undo [moves.csv]",
		Short: "Replay a move log so files return to their sources",
		Long: "Replay a move log newest first so every recorded file returns to where it " +
			"came from. Point it at a moves.csv directly, at a container root with --root, " +
			"or at the most recent recorded build with --last.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			store := ctx.openStore(logger)
			if store != nil {
				defer store.Close()
			}

			logPath, err := resolveUndoLog(cmd.Context(), args, rootFlag, lastFlag, store)
			if err != nil {
				return err
			}
			if err := preflight.Err(preflight.RunUndo(logPath)); err != nil {
				return err
			}

			opts := []ingest.Option{ingest.WithLogger(logger)}
			if store != nil {
				opts = append(opts, ingest.WithHistory(store))
			}
			report, err := ingest.UndoLog(cmd.Context(), logPath, opts...)
			if err != nil {
				return err
			}

			if jsonFlag {
				if err := writeJSON(cmd, map[string]any{
					"log_path": logPath,
					"restored": report.Restored,
					"skipped":  report.Skipped,
					"faults":   undoFaultsJSON(report.Faults),
				}); err != nil {
					return err
				}
			} else {
				printUndoReport(cmd, logPath, report)
			}
			if n := len(report.Faults); n > 0 {
				return fmt.Errorf("could not restore %d %s", n, plural(n, "file", "files"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&rootFlag, "root", "", "Container root holding the move log")
	cmd.Flags().BoolVar(&lastFlag, "last", false, "Undo the most recent recorded build")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit the undo report as JSON")
	return cmd
}

// resolveUndoLog picks the move log from, in order of preference, an
// explicit path argument, a container root, or the run ledger.
func resolveUndoLog(ctx context.Context, args []string, rootFlag string, lastFlag bool, store *history.Store) (string, error) {
	switch {
	case len(args) == 1:
		return expandArg(args[0])
	case rootFlag != "":
		root, err := expandArg(rootFlag)
		if err != nil {
			return "", err
		}
		return filepath.Join(root, movelog.FileName), nil
	case lastFlag:
		if store == nil {
			return "", errors.New("run ledger unavailable; pass the move log path instead")
		}
		run, err := store.LastBuild(ctx)
		if err != nil {
			return "", err
		}
		if run == nil || run.LogPath == "" {
			return "", errors.New("no recorded builds to undo")
		}
		return run.LogPath, nil
	default:
		return "", errors.New("provide a move log path, --root, or --last")
	}
}

func printUndoReport(cmd *cobra.Command, logPath string, report *movelog.UndoReport) {
	out := cmd.OutOrStdout()

	statusLine(out, statusOK, "Replayed %s", logPath)
	fmt.Fprintf(out, "Restored %d %s", report.Restored, plural(report.Restored, "file", "files"))
	if report.Skipped > 0 {
		fmt.Fprintf(out, ", %d already gone from the container", report.Skipped)
	}
	fmt.Fprintln(out)

	if len(report.Faults) > 0 {
		statusLine(cmd.ErrOrStderr(), statusWarn, "Could not restore %d %s:",
			len(report.Faults), plural(len(report.Faults), "file", "files"))
		fmt.Fprintln(cmd.ErrOrStderr(), renderTable(
			[]string{"SOURCE", "REASON"},
			undoFaultRows(report.Faults),
		))
	}
}
