package movelog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// FileName is the deterministic log name written at the container root.
const FileName = "moves.csv"

// ErrRestoreConflict reports an undo record whose original location is now
// occupied by something else.
var ErrRestoreConflict = errors.New("restore conflict")

// header is the moves.csv schema. Order and spelling are load-bearing:
// external tooling reads this file.
var header = []string{"source_path", "destination_path", "timestamp"}

// Record is one executed move.
type Record struct {
	SourcePath      string
	DestinationPath string
	Timestamp       time.Time
}

// Writer appends records to a moves.csv, creating it with a header row when
// new. Every Append flushes and syncs before returning, so the log on disk
// always covers every move that has completed.
type Writer struct {
	path string
	file *os.File
	csv  *csv.Writer
}

// NewWriter opens the log at path for appending. An existing non-empty file
// must carry the expected header; anything else is refused rather than
// silently extended.
func NewWriter(path string) (*Writer, error) {
	existing, err := fileHasContent(path)
	if err != nil {
		return nil, fmt.Errorf("inspect move log: %w", err)
	}
	if existing {
		if err := validateHeader(path); err != nil {
			return nil, err
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open move log: %w", err)
	}

	w := &Writer{path: path, file: file, csv: csv.NewWriter(file)}
	if !existing {
		if err := w.csv.Write(header); err != nil {
			file.Close()
			return nil, fmt.Errorf("write move log header: %w", err)
		}
		if err := w.flush(); err != nil {
			file.Close()
			return nil, err
		}
	}
	return w, nil
}

// Path returns the location the writer appends to.
func (w *Writer) Path() string { return w.path }

// Append writes one record and forces it to disk.
func (w *Writer) Append(rec Record) error {
	row := []string{
		rec.SourcePath,
		rec.DestinationPath,
		rec.Timestamp.UTC().Format(time.RFC3339),
	}
	if err := w.csv.Write(row); err != nil {
		return fmt.Errorf("append move record: %w", err)
	}
	return w.flush()
}

func (w *Writer) flush() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("flush move log: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("sync move log: %w", err)
	}
	return nil
}

// Close releases the underlying file.
func (w *Writer) Close() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

func fileHasContent(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if info.IsDir() {
		return false, fmt.Errorf("%s is a directory", path)
	}
	return info.Size() > 0, nil
}

func validateHeader(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open move log: %w", err)
	}
	defer file.Close()

	first, err := csv.NewReader(file).Read()
	if err != nil {
		return fmt.Errorf("read move log header: %w", err)
	}
	if !headerMatches(first) {
		return fmt.Errorf("move log %s has unexpected header %v", path, first)
	}
	return nil
}

func headerMatches(row []string) bool {
	if len(row) != len(header) {
		return false
	}
	for i, cell := range row {
		if !strings.EqualFold(strings.TrimSpace(cell), header[i]) {
			return false
		}
	}
	return true
}

// Read parses the log at path. Records keep file order, which is append
// order and therefore chronological. Empty paths fail: a record that cannot
// name both ends of its move is unusable for undo. Timestamps are best
// effort, so a stamp that fails to parse is kept as zero rather than
// blocking the restorable records around it.
func Read(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open move log: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	first, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("move log %s is empty", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read move log: %w", err)
	}
	if !headerMatches(first) {
		return nil, fmt.Errorf("move log %s has unexpected header %v", path, first)
	}

	var records []Record
	row := 1
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			return nil, fmt.Errorf("read move log row %d: %w", row, err)
		}

		rec := Record{
			SourcePath:      strings.TrimSpace(fields[0]),
			DestinationPath: strings.TrimSpace(fields[1]),
		}
		if rec.SourcePath == "" || rec.DestinationPath == "" {
			return nil, fmt.Errorf("move log row %d is missing a path", row)
		}
		if ts, parseErr := time.Parse(time.RFC3339, strings.TrimSpace(fields[2])); parseErr == nil {
			rec.Timestamp = ts
		}
		records = append(records, rec)
	}
	return records, nil
}
