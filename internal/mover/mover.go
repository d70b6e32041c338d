package mover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"carton/internal/container"
	"carton/internal/fileutil"
	"carton/internal/logging"
	"carton/internal/movelog"
)

var (
	// ErrMissingSource reports a file entry whose source path does not exist.
	ErrMissingSource = errors.New("missing source file")
	// ErrDestinationConflict reports an already occupied destination path.
	ErrDestinationConflict = errors.New("destination already exists")
	// ErrPathConflict reports a directory path occupied by a non-directory.
	ErrPathConflict = errors.New("path conflict")
)

// Fault is one entry that could not be completed, with the reason.
type Fault struct {
	Node *container.Node
	Err  error
}

// Report summarizes an execute pass. Faults hold every entry that was
// skipped, in encounter order; Moved holds the file nodes that now live at
// their output paths.
type Report struct {
	DirsCreated int
	FilesMoved  int
	Faults      []Fault
	Moved       []*container.Node
}

// Clean reports whether every entry completed.
func (r *Report) Clean() bool { return len(r.Faults) == 0 }

// Skipped returns the number of entries that did not complete.
func (r *Report) Skipped() int { return len(r.Faults) }

// Executor walks a container tree and performs its moves.
type Executor struct {
	log     *movelog.Writer
	logger  *slog.Logger
	replace bool
}

// New constructs an executor that appends to log. When replace is true an
// occupied file destination is overwritten instead of reported as a
// conflict; the logged record still carries the incoming source path, since
// the prior occupant's own record, if any, already captured its provenance.
func New(log *movelog.Writer, replace bool, logger *slog.Logger) *Executor {
	return &Executor{
		log:     log,
		logger:  logging.NewComponentLogger(logger, "mover"),
		replace: replace,
	}
}

// Execute creates the directory structure under root.OutputPath and moves
// every file into place. Per-entry problems are collected in the report; the
// error return is reserved for a cancelled context, an unusable output root,
// and move-log write failures. A log write failure reverts the move it could
// not record and aborts, so the log never understates what happened on disk.
func (e *Executor) Execute(ctx context.Context, root *container.Node) (*Report, error) {
	report := &Report{}

	if err := e.ensureDir(root.OutputPath, report, nil); err != nil {
		return report, fmt.Errorf("prepare output root: %w", err)
	}

	for _, child := range root.Children {
		if err := e.walk(ctx, child, report); err != nil {
			return report, err
		}
	}

	e.logger.Info("container build complete",
		logging.Int("dirs_created", report.DirsCreated),
		logging.Int("files_moved", report.FilesMoved),
		logging.Int("skipped", report.Skipped()))
	return report, nil
}

func (e *Executor) walk(ctx context.Context, node *container.Node, report *Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if node.Folder() {
		if err := e.ensureDir(node.OutputPath, report, node); err != nil {
			report.Faults = append(report.Faults, Fault{Node: node, Err: err})
			e.logger.Warn("skipping folder and its contents",
				logging.String("path", node.OutputPath),
				logging.Error(err))
			skipSubtree(node, report)
			return nil
		}
		for _, child := range node.Children {
			if err := e.walk(ctx, child, report); err != nil {
				return err
			}
		}
		return nil
	}

	return e.moveFile(node, report)
}

// ensureDir makes path a directory, tolerating an existing one. node is nil
// for the output root, which only affects accounting.
func (e *Executor) ensureDir(path string, report *Report, node *container.Node) error {
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		return fmt.Errorf("%w: %s is not a directory", ErrPathConflict, path)
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
		if node != nil {
			report.DirsCreated++
			e.logger.Debug("created directory", logging.String("path", path))
		}
		return nil
	default:
		return fmt.Errorf("inspect directory: %w", err)
	}
}

// skipSubtree records a fault for every descendant of a folder that could
// not be created, so skipped entries are reported rather than silently
// dropped.
func skipSubtree(node *container.Node, report *Report) {
	for _, child := range node.Children {
		report.Faults = append(report.Faults, Fault{
			Node: child,
			Err:  fmt.Errorf("%w: parent directory unavailable", ErrPathConflict),
		})
		if child.Folder() {
			skipSubtree(child, report)
		}
	}
}

func (e *Executor) moveFile(node *container.Node, report *Report) error {
	info, err := os.Stat(node.SourcePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			report.Faults = append(report.Faults, Fault{
				Node: node,
				Err:  fmt.Errorf("%w: %s", ErrMissingSource, node.SourcePath),
			})
			e.logger.Warn("source file missing, skipping entry",
				logging.String("source", node.SourcePath),
				logging.String("destination", node.OutputPath))
			return nil
		}
		report.Faults = append(report.Faults, Fault{Node: node, Err: fmt.Errorf("inspect source: %w", err)})
		return nil
	}
	if info.IsDir() {
		report.Faults = append(report.Faults, Fault{
			Node: node,
			Err:  fmt.Errorf("%w: %s is a directory, not a file", ErrMissingSource, node.SourcePath),
		})
		return nil
	}

	if occupant, err := os.Lstat(node.OutputPath); err == nil {
		if occupant.IsDir() || !e.replace {
			report.Faults = append(report.Faults, Fault{
				Node: node,
				Err:  fmt.Errorf("%w: %s", ErrDestinationConflict, node.OutputPath),
			})
			e.logger.Warn("destination occupied, skipping entry",
				logging.String("source", node.SourcePath),
				logging.String("destination", node.OutputPath))
			return nil
		}
		e.logger.Info("replacing existing destination",
			logging.String("destination", node.OutputPath))
	} else if !errors.Is(err, os.ErrNotExist) {
		report.Faults = append(report.Faults, Fault{Node: node, Err: fmt.Errorf("inspect destination: %w", err)})
		return nil
	}

	if err := fileutil.MoveFile(node.SourcePath, node.OutputPath); err != nil {
		report.Faults = append(report.Faults, Fault{Node: node, Err: fmt.Errorf("move file: %w", err)})
		e.logger.Warn("move failed, skipping entry",
			logging.String("source", node.SourcePath),
			logging.String("destination", node.OutputPath),
			logging.Error(err))
		return nil
	}

	record := movelog.Record{
		SourcePath:      node.SourcePath,
		DestinationPath: node.OutputPath,
		Timestamp:       time.Now().UTC(),
	}
	if err := e.log.Append(record); err != nil {
		// The move is real but unrecorded; put the file back rather than
		// leave a relocation undo can never see.
		if revertErr := fileutil.MoveFile(node.OutputPath, node.SourcePath); revertErr != nil {
			e.logger.Error("failed to revert unrecorded move",
				logging.String("source", node.SourcePath),
				logging.String("destination", node.OutputPath),
				logging.Error(revertErr))
		}
		return fmt.Errorf("record move: %w", err)
	}

	report.FilesMoved++
	report.Moved = append(report.Moved, node)
	e.logger.Info("moved file",
		logging.String("source", node.SourcePath),
		logging.String("destination", node.OutputPath))
	return nil
}
