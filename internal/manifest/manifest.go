package manifest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	// ErrFormat reports a structurally invalid manifest: missing columns,
	// unknown kinds, or rows without required values.
	ErrFormat = errors.New("invalid manifest")
	// ErrReference reports a parent_id that does not resolve to a declared
	// folder entry.
	ErrReference = errors.New("unresolved manifest reference")
)

// Kind identifies the two variants a manifest row can declare.
type Kind string

const (
	KindFolder Kind = "folder"
	KindFile   Kind = "file"
)

// Entry is one validated manifest row. Row is the 1-based data row position
// (header excluded), kept for error reporting and nothing else.
type Entry struct {
	ID          string
	ParentID    string
	Kind        Kind
	Name        string
	SourcePath  string
	Title       string
	Description string
	Row         int
}

// Root reports whether the entry sits directly under the container root.
func (e Entry) Root() bool { return e.ParentID == "" }

// Columns maps logical manifest fields to CSV header names. Title and
// Description are optional descriptive fields; all others are required to
// appear in the header.
type Columns struct {
	ID          string
	ParentID    string
	Kind        string
	Name        string
	SourcePath  string
	Title       string
	Description string
}

// DefaultColumns returns the canonical header names.
func DefaultColumns() Columns {
	return Columns{
		ID:          "id",
		ParentID:    "parent_id",
		Kind:        "kind",
		Name:        "name",
		SourcePath:  "source_path",
		Title:       "title",
		Description: "description",
	}
}

func (c Columns) orDefaults() Columns {
	def := DefaultColumns()
	if strings.TrimSpace(c.ID) == "" {
		c.ID = def.ID
	}
	if strings.TrimSpace(c.ParentID) == "" {
		c.ParentID = def.ParentID
	}
	if strings.TrimSpace(c.Kind) == "" {
		c.Kind = def.Kind
	}
	if strings.TrimSpace(c.Name) == "" {
		c.Name = def.Name
	}
	if strings.TrimSpace(c.SourcePath) == "" {
		c.SourcePath = def.SourcePath
	}
	if strings.TrimSpace(c.Title) == "" {
		c.Title = def.Title
	}
	if strings.TrimSpace(c.Description) == "" {
		c.Description = def.Description
	}
	return c
}

// rootSentinels are parent_id values that mean "attach to the container root".
var rootSentinels = map[string]struct{}{
	"": {}, "-": {}, "0": {},
}

// Parse reads and validates the manifest at path.
func Parse(path string, cols Columns) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer file.Close()
	return ParseReader(file, cols)
}

// ParseReader reads and validates manifest rows from r. The returned slice
// preserves file order. Structural problems fail with ErrFormat; a parent_id
// that never resolves to a folder entry fails with ErrReference. Forward
// references are legal, so reference checking happens after the whole file
// has been read.
func ParseReader(r io.Reader, cols Columns) ([]Entry, error) {
	cols = cols.orDefaults()

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header row", ErrFormat)
		}
		return nil, fmt.Errorf("%w: read header: %w", ErrFormat, err)
	}
	if len(header) > 0 {
		// Spreadsheet exports routinely lead with a UTF-8 BOM.
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	idx, err := resolveColumns(header, cols)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	row := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrFormat, row, err)
		}

		entry, err := entryFromRecord(record, idx, row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := checkReferences(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// columnIndex holds the header positions of each logical field. Optional
// fields use -1 when absent.
type columnIndex struct {
	id, parent, kind, name, source int
	title, description             int
}

func resolveColumns(header []string, cols Columns) (columnIndex, error) {
	find := func(name string) int {
		for i, cell := range header {
			if strings.EqualFold(strings.TrimSpace(cell), name) {
				return i
			}
		}
		return -1
	}

	idx := columnIndex{
		id:          find(cols.ID),
		parent:      find(cols.ParentID),
		kind:        find(cols.Kind),
		name:        find(cols.Name),
		source:      find(cols.SourcePath),
		title:       find(cols.Title),
		description: find(cols.Description),
	}

	for _, required := range []struct {
		pos  int
		name string
	}{
		{idx.id, cols.ID},
		{idx.parent, cols.ParentID},
		{idx.kind, cols.Kind},
		{idx.name, cols.Name},
		{idx.source, cols.SourcePath},
	} {
		if required.pos < 0 {
			return columnIndex{}, fmt.Errorf("%w: header is missing required column %q", ErrFormat, required.name)
		}
	}
	return idx, nil
}

func entryFromRecord(record []string, idx columnIndex, row int) (Entry, error) {
	field := func(pos int) string {
		if pos < 0 || pos >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[pos])
	}

	entry := Entry{
		ID:          field(idx.id),
		ParentID:    field(idx.parent),
		Name:        field(idx.name),
		SourcePath:  field(idx.source),
		Title:       field(idx.title),
		Description: field(idx.description),
		Row:         row,
	}

	if entry.ID == "" {
		return Entry{}, fmt.Errorf("%w: row %d: id must not be empty", ErrFormat, row)
	}
	if entry.Name == "" {
		return Entry{}, fmt.Errorf("%w: row %d: name must not be empty", ErrFormat, row)
	}

	switch kind := strings.ToLower(field(idx.kind)); kind {
	case string(KindFolder):
		entry.Kind = KindFolder
		// Spreadsheet fill-down leaves stray source paths on folder rows.
		entry.SourcePath = ""
	case string(KindFile):
		entry.Kind = KindFile
		if entry.SourcePath == "" {
			return Entry{}, fmt.Errorf("%w: row %d: file entry %q requires a source path", ErrFormat, row, entry.ID)
		}
	case "":
		return Entry{}, fmt.Errorf("%w: row %d: kind must not be empty", ErrFormat, row)
	default:
		return Entry{}, fmt.Errorf("%w: row %d: unknown kind %q (expected folder or file)", ErrFormat, row, kind)
	}

	if _, isRoot := rootSentinels[entry.ParentID]; isRoot {
		entry.ParentID = ""
	}
	return entry, nil
}

// checkReferences verifies every non-root parent_id resolves to a folder
// entry somewhere in the manifest. Duplicate ids are the tree builder's
// problem; here the first declaration of an id wins.
func checkReferences(entries []Entry) error {
	kinds := make(map[string]Kind, len(entries))
	for _, entry := range entries {
		if _, ok := kinds[entry.ID]; !ok {
			kinds[entry.ID] = entry.Kind
		}
	}

	for _, entry := range entries {
		if entry.Root() {
			continue
		}
		kind, ok := kinds[entry.ParentID]
		if !ok {
			return fmt.Errorf("%w: row %d: parent_id %q does not match any entry", ErrReference, entry.Row, entry.ParentID)
		}
		if kind != KindFolder {
			return fmt.Errorf("%w: row %d: parent_id %q refers to a file entry", ErrReference, entry.Row, entry.ParentID)
		}
	}
	return nil
}
