package mover_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"carton/internal/container"
	"carton/internal/logging"
	"carton/internal/manifest"
	"carton/internal/movelog"
	"carton/internal/mover"
)

type fixture struct {
	out    string
	root   *container.Node
	writer *movelog.Writer
}

// newFixture builds a tree from entries and prepares the output root with an
// open move log, mirroring the orchestrator's setup order.
func newFixture(t *testing.T, entries []manifest.Entry) *fixture {
	t.Helper()
	out := filepath.Join(t.TempDir(), "out")
	if err := os.MkdirAll(out, 0o755); err != nil {
		t.Fatal(err)
	}

	root, err := container.Build(entries, out)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	writer, err := movelog.NewWriter(filepath.Join(out, movelog.FileName))
	if err != nil {
		t.Fatalf("NewWriter returned error: %v", err)
	}
	t.Cleanup(func() { _ = writer.Close() })

	return &fixture{out: out, root: root, writer: writer}
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func folder(id, parent, name string) manifest.Entry {
	return manifest.Entry{ID: id, ParentID: parent, Kind: manifest.KindFolder, Name: name}
}

func file(id, parent, name, source string) manifest.Entry {
	return manifest.Entry{ID: id, ParentID: parent, Kind: manifest.KindFile, Name: name, SourcePath: source}
}

func TestExecuteBuildsTreeAndLogsMoves(t *testing.T) {
	srcDir := t.TempDir()
	photo := writeSource(t, srcDir, "a.jpg", "photo bytes")
	letter := writeSource(t, srcDir, "b.txt", "letter bytes")

	fx := newFixture(t, []manifest.Entry{
		folder("1", "", "Box 1"),
		file("2", "1", "photo.jpg", photo),
		folder("3", "1", "Letters"),
		file("4", "3", "jan.txt", letter),
	})

	report, err := mover.New(fx.writer, false, logging.NewNop()).Execute(context.Background(), fx.root)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !report.Clean() {
		t.Fatalf("expected clean report, got faults: %+v", report.Faults)
	}
	if report.DirsCreated != 2 || report.FilesMoved != 2 {
		t.Fatalf("unexpected counts: %+v", report)
	}

	moved := filepath.Join(fx.out, "Box 1", "photo.jpg")
	got, err := os.ReadFile(moved)
	if err != nil {
		t.Fatalf("moved file missing: %v", err)
	}
	if string(got) != "photo bytes" {
		t.Fatalf("moved content mismatch: %q", got)
	}
	if _, err := os.Stat(photo); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("source should be gone after move, stat err = %v", err)
	}

	records, err := movelog.Read(fx.writer.Path())
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 log records, got %d", len(records))
	}
	if records[0].SourcePath != photo || records[0].DestinationPath != moved {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if records[0].Timestamp.IsZero() {
		t.Fatal("record timestamp should be set")
	}
}

func TestExecuteMissingSourceSkipsEntryOnly(t *testing.T) {
	srcDir := t.TempDir()
	present := writeSource(t, srcDir, "present.txt", "here")
	absent := filepath.Join(srcDir, "absent.txt")

	fx := newFixture(t, []manifest.Entry{
		folder("1", "", "Box"),
		file("2", "1", "absent.txt", absent),
		file("3", "1", "present.txt", present),
	})

	report, err := mover.New(fx.writer, false, logging.NewNop()).Execute(context.Background(), fx.root)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if report.FilesMoved != 1 || report.Skipped() != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if !errors.Is(report.Faults[0].Err, mover.ErrMissingSource) {
		t.Fatalf("expected ErrMissingSource, got %v", report.Faults[0].Err)
	}
	if _, err := os.Stat(filepath.Join(fx.out, "Box", "present.txt")); err != nil {
		t.Fatalf("present file should still move: %v", err)
	}

	records, err := movelog.Read(fx.writer.Path())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("skipped entry must not be logged, got %d records", len(records))
	}
}

func TestExecuteDestinationConflict(t *testing.T) {
	srcDir := t.TempDir()
	src := writeSource(t, srcDir, "new.txt", "incoming")

	fx := newFixture(t, []manifest.Entry{
		folder("1", "", "Box"),
		file("2", "1", "doc.txt", src),
	})

	// Occupy the destination before the build runs.
	if err := os.MkdirAll(filepath.Join(fx.out, "Box"), 0o755); err != nil {
		t.Fatal(err)
	}
	occupied := filepath.Join(fx.out, "Box", "doc.txt")
	if err := os.WriteFile(occupied, []byte("occupant"), 0o644); err != nil {
		t.Fatal(err)
	}

	report, err := mover.New(fx.writer, false, logging.NewNop()).Execute(context.Background(), fx.root)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if report.FilesMoved != 0 || len(report.Faults) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if !errors.Is(report.Faults[0].Err, mover.ErrDestinationConflict) {
		t.Fatalf("expected ErrDestinationConflict, got %v", report.Faults[0].Err)
	}

	got, err := os.ReadFile(occupied)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "occupant" {
		t.Fatalf("occupant must be untouched, got %q", got)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source must remain in place on conflict: %v", err)
	}
}

func TestExecuteReplaceModeOverwrites(t *testing.T) {
	srcDir := t.TempDir()
	src := writeSource(t, srcDir, "new.txt", "incoming")

	fx := newFixture(t, []manifest.Entry{
		folder("1", "", "Box"),
		file("2", "1", "doc.txt", src),
	})

	if err := os.MkdirAll(filepath.Join(fx.out, "Box"), 0o755); err != nil {
		t.Fatal(err)
	}
	occupied := filepath.Join(fx.out, "Box", "doc.txt")
	if err := os.WriteFile(occupied, []byte("occupant"), 0o644); err != nil {
		t.Fatal(err)
	}

	report, err := mover.New(fx.writer, true, logging.NewNop()).Execute(context.Background(), fx.root)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if report.FilesMoved != 1 || !report.Clean() {
		t.Fatalf("unexpected report: %+v", report)
	}

	got, err := os.ReadFile(occupied)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "incoming" {
		t.Fatalf("destination should be replaced, got %q", got)
	}

	records, err := movelog.Read(fx.writer.Path())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].SourcePath != src {
		t.Fatalf("replacement must log the incoming source path: %+v", records)
	}
}

func TestExecuteReplaceModeWillNotReplaceDirectory(t *testing.T) {
	srcDir := t.TempDir()
	src := writeSource(t, srcDir, "new.txt", "incoming")

	fx := newFixture(t, []manifest.Entry{
		file("1", "", "doc.txt", src),
	})

	if err := os.MkdirAll(filepath.Join(fx.out, "doc.txt"), 0o755); err != nil {
		t.Fatal(err)
	}

	report, err := mover.New(fx.writer, true, logging.NewNop()).Execute(context.Background(), fx.root)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(report.Faults) != 1 || !errors.Is(report.Faults[0].Err, mover.ErrDestinationConflict) {
		t.Fatalf("expected ErrDestinationConflict for directory occupant, got %+v", report)
	}
}

func TestExecutePathConflictSkipsSubtree(t *testing.T) {
	srcDir := t.TempDir()
	inside := writeSource(t, srcDir, "inside.txt", "in")
	outside := writeSource(t, srcDir, "outside.txt", "out")

	fx := newFixture(t, []manifest.Entry{
		folder("1", "", "Blocked"),
		file("2", "1", "inside.txt", inside),
		folder("3", "", "Open"),
		file("4", "3", "outside.txt", outside),
	})

	// A regular file occupies the folder's path.
	if err := os.WriteFile(filepath.Join(fx.out, "Blocked"), []byte("squatter"), 0o644); err != nil {
		t.Fatal(err)
	}

	report, err := mover.New(fx.writer, false, logging.NewNop()).Execute(context.Background(), fx.root)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if report.FilesMoved != 1 {
		t.Fatalf("sibling subtree should still complete: %+v", report)
	}
	if len(report.Faults) != 2 {
		t.Fatalf("expected folder fault plus skipped child, got %+v", report.Faults)
	}
	for _, fault := range report.Faults {
		if !errors.Is(fault.Err, mover.ErrPathConflict) {
			t.Fatalf("expected ErrPathConflict, got %v", fault.Err)
		}
	}
	if _, err := os.Stat(inside); err != nil {
		t.Fatalf("blocked child's source must stay put: %v", err)
	}
	if _, err := os.Stat(filepath.Join(fx.out, "Open", "outside.txt")); err != nil {
		t.Fatalf("open subtree should be built: %v", err)
	}
}

func TestExecuteToleratesExistingDirectories(t *testing.T) {
	srcDir := t.TempDir()
	src := writeSource(t, srcDir, "doc.txt", "data")

	fx := newFixture(t, []manifest.Entry{
		folder("1", "", "Box"),
		file("2", "1", "doc.txt", src),
	})

	if err := os.MkdirAll(filepath.Join(fx.out, "Box"), 0o755); err != nil {
		t.Fatal(err)
	}

	report, err := mover.New(fx.writer, false, logging.NewNop()).Execute(context.Background(), fx.root)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !report.Clean() {
		t.Fatalf("existing directory should be tolerated: %+v", report.Faults)
	}
	if report.DirsCreated != 0 {
		t.Fatalf("pre-existing directory must not count as created: %+v", report)
	}
}

func TestExecuteHonorsCancelledContext(t *testing.T) {
	srcDir := t.TempDir()
	src := writeSource(t, srcDir, "doc.txt", "data")

	fx := newFixture(t, []manifest.Entry{
		folder("1", "", "Box"),
		file("2", "1", "doc.txt", src),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mover.New(fx.writer, false, logging.NewNop()).Execute(ctx, fx.root)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("no moves should happen after cancellation: %v", err)
	}
}

func TestExecuteRevertsMoveWhenLogWriteFails(t *testing.T) {
	srcDir := t.TempDir()
	src := writeSource(t, srcDir, "doc.txt", "data")

	fx := newFixture(t, []manifest.Entry{
		file("1", "", "doc.txt", src),
	})

	// Closing the writer makes the next append fail.
	if err := fx.writer.Close(); err != nil {
		t.Fatal(err)
	}

	_, err := mover.New(fx.writer, false, logging.NewNop()).Execute(context.Background(), fx.root)
	if err == nil {
		t.Fatal("expected error when the move log cannot be written")
	}

	if _, statErr := os.Stat(src); statErr != nil {
		t.Fatalf("unrecorded move should be reverted: %v", statErr)
	}
	if _, statErr := os.Stat(filepath.Join(fx.out, "doc.txt")); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("destination should be empty after revert, stat err = %v", statErr)
	}
}
