package movelog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"carton/internal/fileutil"
	"carton/internal/logging"
)

// UndoReport summarizes one undo pass.
type UndoReport struct {
	Restored int
	Skipped  int
	Faults   []Fault
}

// Fault records a restore that could not be completed.
type Fault struct {
	Record Record
	Err    error
}

// Clean reports whether every record either restored or was already gone.
func (r *UndoReport) Clean() bool { return len(r.Faults) == 0 }

// Undo restores every logged move, newest first, using nothing but the log
// file at logPath. It is safe to run from a fresh process after the build
// has exited, and safe to run twice: records whose destination is already
// gone are skipped with a warning. A record whose original location is now
// occupied fails with ErrRestoreConflict in the report while the remaining
// records continue. The error return is reserved for an unreadable log or a
// cancelled context; per-record problems never abort the pass.
func Undo(ctx context.Context, logPath string, logger *slog.Logger) (*UndoReport, error) {
	log := logging.NewComponentLogger(logger, "movelog")

	records, err := Read(logPath)
	if err != nil {
		return nil, err
	}

	report := &UndoReport{}
	for i := len(records) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		rec := records[i]

		if _, err := os.Lstat(rec.DestinationPath); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				log.Warn("destination already gone, skipping restore",
					logging.String("destination", rec.DestinationPath),
					logging.String("source", rec.SourcePath))
				report.Skipped++
				continue
			}
			report.Faults = append(report.Faults, Fault{Record: rec, Err: fmt.Errorf("inspect destination: %w", err)})
			continue
		}

		if _, err := os.Lstat(rec.SourcePath); err == nil {
			report.Faults = append(report.Faults, Fault{
				Record: rec,
				Err:    fmt.Errorf("%w: %s is already occupied", ErrRestoreConflict, rec.SourcePath),
			})
			log.Warn("original location occupied, leaving file in container",
				logging.String("source", rec.SourcePath),
				logging.String("destination", rec.DestinationPath))
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			report.Faults = append(report.Faults, Fault{Record: rec, Err: fmt.Errorf("inspect original location: %w", err)})
			continue
		}

		if err := fileutil.MoveFile(rec.DestinationPath, rec.SourcePath); err != nil {
			report.Faults = append(report.Faults, Fault{Record: rec, Err: fmt.Errorf("restore file: %w", err)})
			continue
		}
		report.Restored++
		log.Info("restored file",
			logging.String("source", rec.SourcePath),
			logging.String("destination", rec.DestinationPath))
	}

	log.Info("undo complete",
		logging.Int("restored", report.Restored),
		logging.Int("skipped", report.Skipped),
		logging.Int("faults", len(report.Faults)))
	return report, nil
}
