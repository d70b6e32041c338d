package movelog_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"carton/internal/movelog"
)

func TestWriterCreatesHeaderAndAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), movelog.FileName)

	w, err := movelog.NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter returned error: %v", err)
	}

	stamp := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	if err := w.Append(movelog.Record{
		SourcePath:      "/tmp/a.jpg",
		DestinationPath: "/out/Box1/photo.jpg",
		Timestamp:       stamp,
	}); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 record, got %d lines: %q", len(lines), content)
	}
	if lines[0] != "source_path,destination_path,timestamp" {
		t.Fatalf("unexpected header line %q", lines[0])
	}
	if lines[1] != "/tmp/a.jpg,/out/Box1/photo.jpg,2026-03-14T09:26:53Z" {
		t.Fatalf("unexpected record line %q", lines[1])
	}
}

func TestWriterAppendIsDurableBeforeClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), movelog.FileName)

	w, err := movelog.NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter returned error: %v", err)
	}
	// No Close: simulates a build that crashed after this move.
	if err := w.Append(movelog.Record{
		SourcePath:      "/tmp/a.jpg",
		DestinationPath: "/out/a.jpg",
		Timestamp:       time.Now(),
	}); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}

	records, err := movelog.Read(path)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 durable record, got %d", len(records))
	}
}

func TestWriterReopenAppendsWithoutSecondHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), movelog.FileName)

	w, err := movelog.NewWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Append(movelog.Record{SourcePath: "/tmp/a", DestinationPath: "/out/a", Timestamp: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	w, err = movelog.NewWriter(path)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	if err := w.Append(movelog.Record{SourcePath: "/tmp/b", DestinationPath: "/out/b", Timestamp: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	records, err := movelog.Read(path)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records after reopen, got %d", len(records))
	}
	if records[1].SourcePath != "/tmp/b" {
		t.Fatalf("append order broken: %+v", records)
	}
}

func TestWriterRefusesForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), movelog.FileName)
	if err := os.WriteFile(path, []byte("these,are,not\nthe,right,columns\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := movelog.NewWriter(path); err == nil {
		t.Fatal("expected error appending to a file with a foreign header")
	}
}

func TestWriterRefusesDirectory(t *testing.T) {
	if _, err := movelog.NewWriter(t.TempDir()); err == nil {
		t.Fatal("expected error for directory path")
	}
}

func TestReadValidation(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		if _, err := movelog.Read(filepath.Join(dir, "absent.csv")); err == nil {
			t.Fatal("expected error for missing log")
		}
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.csv")
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := movelog.Read(path); err == nil {
			t.Fatal("expected error for empty log")
		}
	})

	t.Run("wrong header", func(t *testing.T) {
		path := filepath.Join(dir, "wrong.csv")
		if err := os.WriteFile(path, []byte("a,b,c\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := movelog.Read(path); err == nil {
			t.Fatal("expected error for wrong header")
		}
	})

	t.Run("blank path", func(t *testing.T) {
		path := filepath.Join(dir, "blank.csv")
		data := "source_path,destination_path,timestamp\n,/out/a,2026-01-01T00:00:00Z\n"
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := movelog.Read(path); err == nil {
			t.Fatal("expected error for record missing a path")
		}
	})

	t.Run("unparseable timestamp tolerated", func(t *testing.T) {
		path := filepath.Join(dir, "stamp.csv")
		data := "source_path,destination_path,timestamp\n/tmp/a,/out/a,yesterday\n"
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
		records, err := movelog.Read(path)
		if err != nil {
			t.Fatalf("Read returned error: %v", err)
		}
		if !records[0].Timestamp.IsZero() {
			t.Fatalf("expected zero timestamp, got %v", records[0].Timestamp)
		}
	})
}
