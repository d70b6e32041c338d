package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"carton/internal/container"
	"carton/internal/history"
	"carton/internal/logging"
	"carton/internal/manifest"
	"carton/internal/movelog"
	"carton/internal/mover"
	"carton/internal/opex"
)

// LockFileName is the lock file carton holds at the output root while a
// build or undo pass runs.
const LockFileName = "carton.lock"

// Container orchestrates one manifest-driven output tree.
type Container struct {
	manifestPath string
	outputRoot   string

	logger   *slog.Logger
	columns  manifest.Columns
	replace  bool
	sidecars *opex.Writer
	store    *history.Store
}

// Option configures a Container.
type Option func(*Container)

// WithLogger attaches a logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithColumns overrides the manifest column bindings.
func WithColumns(cols manifest.Columns) Option {
	return func(c *Container) {
		c.columns = cols
	}
}

// WithReplace makes Build move files over occupied destinations instead of
// skipping them.
func WithReplace(replace bool) Option {
	return func(c *Container) {
		c.replace = replace
	}
}

// WithSidecars makes Build write OPEX metadata sidecars for everything it
// places.
func WithSidecars(writer *opex.Writer) Option {
	return func(c *Container) {
		c.sidecars = writer
	}
}

// WithHistory records each pass in the given run ledger. Recording failures
// are logged and otherwise ignored.
func WithHistory(store *history.Store) Option {
	return func(c *Container) {
		c.store = store
	}
}

// New constructs a container for the manifest at manifestPath whose tree
// materializes under outputRoot.
func New(manifestPath, outputRoot string, opts ...Option) (*Container, error) {
	if strings.TrimSpace(manifestPath) == "" {
		return nil, errors.New("manifest path must be set")
	}
	if strings.TrimSpace(outputRoot) == "" {
		return nil, errors.New("output root must be set")
	}

	c := &Container{
		manifestPath: filepath.Clean(manifestPath),
		outputRoot:   filepath.Clean(outputRoot),
		logger:       logging.NewNop(),
		columns:      manifest.DefaultColumns(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ManifestPath returns the manifest location the container was built from.
func (c *Container) ManifestPath() string { return c.manifestPath }

// OutputRoot returns the directory the container tree materializes under.
func (c *Container) OutputRoot() string { return c.outputRoot }

// LogPath returns the container's move log location.
func (c *Container) LogPath() string {
	return filepath.Join(c.outputRoot, movelog.FileName)
}

// Report summarizes one build pass.
type Report struct {
	Root        *container.Node
	LogPath     string
	DirsCreated int
	FilesMoved  int
	Sidecars    int
	Faults      []mover.Fault
}

// Clean reports whether every manifest entry completed.
func (r *Report) Clean() bool { return len(r.Faults) == 0 }

// Skipped returns the number of entries that did not complete.
func (r *Report) Skipped() int { return len(r.Faults) }

// Plan parses the manifest and assembles the container tree without touching
// the filesystem. The returned root carries final names and output paths, so
// callers can preview exactly what Build would do.
func (c *Container) Plan(ctx context.Context) (*container.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := manifest.Parse(c.manifestPath, c.columns)
	if err != nil {
		return nil, err
	}
	return container.Build(entries, c.outputRoot)
}

// Build materializes the container: folders first, then file moves, then
// sidecars when enabled. Entries that cannot complete are skipped and
// reported; the error return means the pass aborted. A manifest that fails
// validation aborts before the output root is created or locked.
func (c *Container) Build(ctx context.Context) (*Report, error) {
	logger := logging.NewComponentLogger(c.logger, "ingest")

	root, err := c.Plan(ctx)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(c.outputRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create output root: %w", err)
	}
	unlock, err := c.acquireLock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	run := c.recordStart(ctx, logger, history.KindBuild, c.LogPath())

	writer, err := movelog.NewWriter(c.LogPath())
	if err != nil {
		c.recordFinish(ctx, logger, run, history.StatusFailed, 0, 0, err)
		return nil, err
	}

	moveReport, moveErr := mover.New(writer, c.replace, c.logger).Execute(ctx, root)
	if closeErr := writer.Close(); closeErr != nil {
		logger.Warn("close move log", logging.Error(closeErr))
	}

	report := &Report{
		Root:        root,
		LogPath:     c.LogPath(),
		DirsCreated: moveReport.DirsCreated,
		FilesMoved:  moveReport.FilesMoved,
		Faults:      moveReport.Faults,
	}
	if moveErr != nil {
		c.recordFinish(ctx, logger, run, history.StatusFailed, report.FilesMoved, report.Skipped(), moveErr)
		return report, moveErr
	}

	if c.sidecars != nil {
		c.writeSidecars(root, moveReport, report, logger)
	}

	c.recordFinish(ctx, logger, run, buildStatus(report), report.FilesMoved, report.Skipped(), nil)
	logger.Info("container pass finished",
		logging.String("output_root", c.outputRoot),
		logging.Int("dirs_created", report.DirsCreated),
		logging.Int("files_moved", report.FilesMoved),
		logging.Int("skipped", report.Skipped()))
	return report, nil
}

// writeSidecars generates OPEX sidecars for every file that moved and every
// folder that exists on disk. Failures are reported as faults, never as a
// failed pass: the files already sit in place and the log already records
// them.
func (c *Container) writeSidecars(root *container.Node, moveReport *mover.Report, report *Report, logger *slog.Logger) {
	for _, node := range moveReport.Moved {
		if _, err := c.sidecars.WriteFileSidecar(node); err != nil {
			report.Faults = append(report.Faults, mover.Fault{Node: node, Err: fmt.Errorf("write sidecar: %w", err)})
			logger.Warn("file sidecar failed",
				logging.String("path", node.OutputPath),
				logging.Error(err))
			continue
		}
		report.Sidecars++
	}

	// Folder manifests list child sidecars, so they are written after every
	// file sidecar has settled.
	_ = root.Walk(func(node *container.Node) error {
		if node == root || !node.Folder() {
			return nil
		}
		if info, err := os.Stat(node.OutputPath); err != nil || !info.IsDir() {
			return nil
		}
		if _, err := c.sidecars.WriteFolderSidecar(node); err != nil {
			report.Faults = append(report.Faults, mover.Fault{Node: node, Err: fmt.Errorf("write sidecar: %w", err)})
			logger.Warn("folder sidecar failed",
				logging.String("path", node.OutputPath),
				logging.Error(err))
			return nil
		}
		report.Sidecars++
		return nil
	})
}

// Undo replays this container's move log newest first, returning files to
// their recorded sources.
func (c *Container) Undo(ctx context.Context) (*movelog.UndoReport, error) {
	return c.undoLog(ctx, c.LogPath())
}

// UndoLog replays an arbitrary move log without needing the manifest that
// produced it. The lock is taken beside the log so a concurrent build of the
// same container waits its turn.
func UndoLog(ctx context.Context, logPath string, opts ...Option) (*movelog.UndoReport, error) {
	if strings.TrimSpace(logPath) == "" {
		return nil, errors.New("move log path must be set")
	}
	logPath = filepath.Clean(logPath)

	c := &Container{
		outputRoot: filepath.Dir(logPath),
		logger:     logging.NewNop(),
		columns:    manifest.DefaultColumns(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c.undoLog(ctx, logPath)
}

func (c *Container) undoLog(ctx context.Context, logPath string) (*movelog.UndoReport, error) {
	logger := logging.NewComponentLogger(c.logger, "ingest")

	unlock, err := c.acquireLock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	run := c.recordStart(ctx, logger, history.KindUndo, logPath)

	report, err := movelog.Undo(ctx, logPath, c.logger)
	if err != nil {
		moved, skipped := 0, 0
		if report != nil {
			moved = report.Restored
			skipped = report.Skipped + len(report.Faults)
		}
		c.recordFinish(ctx, logger, run, history.StatusFailed, moved, skipped, err)
		return report, err
	}

	c.recordFinish(ctx, logger, run, undoStatus(report), report.Restored, report.Skipped+len(report.Faults), nil)
	return report, nil
}

// acquireLock takes the per-container lock without blocking. A held lock
// means another carton process is mid-pass on the same output root.
func (c *Container) acquireLock() (func(), error) {
	lock := flock.New(filepath.Join(c.outputRoot, LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire container lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another carton pass is already running for %s", c.outputRoot)
	}
	return func() { _ = lock.Unlock() }, nil
}

func (c *Container) recordStart(ctx context.Context, logger *slog.Logger, kind history.Kind, logPath string) *history.Run {
	if c.store == nil {
		return nil
	}
	manifestPath := c.manifestPath
	if kind == history.KindUndo {
		manifestPath = ""
	}
	run, err := c.store.RecordStart(ctx, kind, manifestPath, c.outputRoot, logPath)
	if err != nil {
		logger.Warn("run ledger unavailable", logging.Error(err))
		return nil
	}
	return run
}

func (c *Container) recordFinish(ctx context.Context, logger *slog.Logger, run *history.Run, status history.Status, moved, skipped int, passErr error) {
	if c.store == nil || run == nil {
		return
	}
	if err := c.store.RecordFinish(ctx, run, status, moved, skipped, passErr); err != nil {
		logger.Warn("run ledger update failed", logging.Error(err))
	}
}

func buildStatus(report *Report) history.Status {
	if report.Clean() {
		return history.StatusSucceeded
	}
	return history.StatusPartial
}

func undoStatus(report *movelog.UndoReport) history.Status {
	if report.Clean() {
		return history.StatusSucceeded
	}
	return history.StatusPartial
}
