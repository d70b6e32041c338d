package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DefaultFileName is the ledger database name inside the log directory.
const DefaultFileName = "runs.db"

// Store manages run persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database at path, creating
// parent directories as needed.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("ledger path must be set")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordStart inserts a running row for a pass that is about to mutate the
// filesystem and returns it with its token and id populated.
func (s *Store) RecordStart(ctx context.Context, kind Kind, manifestPath, outputRoot, logPath string) (*Run, error) {
	if _, ok := kindSet[kind]; !ok {
		return nil, fmt.Errorf("unknown run kind %q", kind)
	}

	run := &Run{
		Token:        uuid.NewString(),
		Kind:         kind,
		ManifestPath: manifestPath,
		OutputRoot:   outputRoot,
		LogPath:      logPath,
		Status:       StatusRunning,
		StartedAt:    time.Now().UTC(),
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (token, kind, manifest_path, output_root, log_path, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.Token, string(run.Kind), run.ManifestPath, run.OutputRoot, run.LogPath,
		string(run.Status), run.StartedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("record run start: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read run id: %w", err)
	}
	run.ID = id
	return run, nil
}

// RecordFinish closes out a run with its final status and counters. The run
// argument is updated in place on success.
func (s *Store) RecordFinish(ctx context.Context, run *Run, status Status, moved, skipped int, runErr error) error {
	if run == nil {
		return errors.New("nil run")
	}
	if _, ok := statusSet[status]; !ok {
		return fmt.Errorf("unknown run status %q", status)
	}

	message := ""
	if runErr != nil {
		message = runErr.Error()
	}
	finished := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, moved = ?, skipped = ?, error_message = ?, finished_at = ?
		WHERE id = ?`,
		string(status), moved, skipped, nullableString(message),
		finished.Format(time.RFC3339Nano), run.ID,
	)
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}

	run.Status = status
	run.Moved = moved
	run.Skipped = skipped
	run.ErrorMessage = message
	run.FinishedAt = finished
	return nil
}

// List returns recorded runs newest first. A limit of zero or less returns
// every run.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY id DESC"
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := make([]*Run, 0, 16)
	for rows.Next() {
		run, scanErr := scanRun(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan run: %w", scanErr)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LastBuild returns the most recent build run, or nil when none has been
// recorded yet.
func (s *Store) LastBuild(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE kind = ? ORDER BY id DESC LIMIT 1",
		string(KindBuild),
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load last build: %w", err)
	}
	return run, nil
}

const runColumns = "id, token, kind, manifest_path, output_root, log_path, status, moved, skipped, error_message, started_at, finished_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(scanner rowScanner) (*Run, error) {
	var (
		run        Run
		kind       string
		status     string
		errMsg     sql.NullString
		startedAt  string
		finishedAt sql.NullString
	)
	if err := scanner.Scan(
		&run.ID, &run.Token, &kind, &run.ManifestPath, &run.OutputRoot, &run.LogPath,
		&status, &run.Moved, &run.Skipped, &errMsg, &startedAt, &finishedAt,
	); err != nil {
		return nil, err
	}

	run.Kind = Kind(kind)
	run.Status = Status(status)
	if errMsg.Valid {
		run.ErrorMessage = errMsg.String
	}
	run.StartedAt = parseTimeString(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = parseTimeString(finishedAt.String)
	}
	return &run, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) time.Time {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, trimmed); err == nil {
		return ts
	}
	if ts, err := time.Parse("2006-01-02 15:04:05", trimmed); err == nil {
		return ts
	}
	return time.Time{}
}
