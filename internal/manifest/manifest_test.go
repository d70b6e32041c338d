package manifest_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"carton/internal/manifest"
)

func parseString(t *testing.T, csv string) ([]manifest.Entry, error) {
	t.Helper()
	return manifest.ParseReader(strings.NewReader(csv), manifest.DefaultColumns())
}

func TestParseReaderBuildsEntriesInFileOrder(t *testing.T) {
	entries, err := parseString(t, strings.Join([]string{
		"id,parent_id,kind,name,source_path",
		"1,-,folder,Box 1,",
		"2,1,file,photo.jpg,/tmp/a.jpg",
		"3,1,folder,Letters,",
	}, "\n"))
	if err != nil {
		t.Fatalf("ParseReader returned error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	root := entries[0]
	if root.ID != "1" || root.Kind != manifest.KindFolder || !root.Root() {
		t.Fatalf("unexpected root entry: %+v", root)
	}
	file := entries[1]
	if file.Kind != manifest.KindFile || file.ParentID != "1" || file.SourcePath != "/tmp/a.jpg" {
		t.Fatalf("unexpected file entry: %+v", file)
	}
	if entries[2].Name != "Letters" {
		t.Fatalf("order not preserved: %+v", entries[2])
	}
}

func TestParseReaderToleratesForwardReferences(t *testing.T) {
	entries, err := parseString(t, strings.Join([]string{
		"id,parent_id,kind,name,source_path",
		"2,1,file,photo.jpg,/tmp/a.jpg",
		"1,-,folder,Box 1,",
	}, "\n"))
	if err != nil {
		t.Fatalf("forward reference should parse, got: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ParentID != "1" {
		t.Fatalf("expected child first, got %+v", entries[0])
	}
}

func TestParseReaderNormalizesRootSentinels(t *testing.T) {
	entries, err := parseString(t, strings.Join([]string{
		"id,parent_id,kind,name,source_path",
		"1,,folder,A,",
		"2,-,folder,B,",
		"3,0,folder,C,",
	}, "\n"))
	if err != nil {
		t.Fatalf("ParseReader returned error: %v", err)
	}
	for _, entry := range entries {
		if !entry.Root() {
			t.Fatalf("entry %s should be root, parent %q", entry.ID, entry.ParentID)
		}
	}
}

func TestParseReaderMissingColumn(t *testing.T) {
	_, err := parseString(t, strings.Join([]string{
		"id,parent_id,name,source_path",
		"1,-,Box 1,",
	}, "\n"))
	if !errors.Is(err, manifest.ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
	if !strings.Contains(err.Error(), "kind") {
		t.Fatalf("error should name the missing column, got %v", err)
	}
}

func TestParseReaderUnknownKind(t *testing.T) {
	_, err := parseString(t, strings.Join([]string{
		"id,parent_id,kind,name,source_path",
		"1,-,bundle,Box 1,",
	}, "\n"))
	if !errors.Is(err, manifest.ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
}

func TestParseReaderFileRequiresSourcePath(t *testing.T) {
	_, err := parseString(t, strings.Join([]string{
		"id,parent_id,kind,name,source_path",
		"1,-,folder,Box 1,",
		"2,1,file,photo.jpg,",
	}, "\n"))
	if !errors.Is(err, manifest.ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
	if !strings.Contains(err.Error(), "row 2") {
		t.Fatalf("error should carry the row number, got %v", err)
	}
}

func TestParseReaderRejectsBlankIDAndName(t *testing.T) {
	if _, err := parseString(t, "id,parent_id,kind,name,source_path\n,,folder,Box,\n"); !errors.Is(err, manifest.ErrFormat) {
		t.Fatalf("blank id: expected ErrFormat, got %v", err)
	}
	if _, err := parseString(t, "id,parent_id,kind,name,source_path\n1,,folder,,\n"); !errors.Is(err, manifest.ErrFormat) {
		t.Fatalf("blank name: expected ErrFormat, got %v", err)
	}
}

func TestParseReaderUnresolvedParent(t *testing.T) {
	_, err := parseString(t, strings.Join([]string{
		"id,parent_id,kind,name,source_path",
		"1,-,folder,Box 1,",
		"2,99,file,photo.jpg,/tmp/a.jpg",
	}, "\n"))
	if !errors.Is(err, manifest.ErrReference) {
		t.Fatalf("expected ErrReference, got %v", err)
	}
}

func TestParseReaderParentMustBeFolder(t *testing.T) {
	_, err := parseString(t, strings.Join([]string{
		"id,parent_id,kind,name,source_path",
		"1,-,file,root.jpg,/tmp/root.jpg",
		"2,1,file,photo.jpg,/tmp/a.jpg",
	}, "\n"))
	if !errors.Is(err, manifest.ErrReference) {
		t.Fatalf("expected ErrReference, got %v", err)
	}
	if !strings.Contains(err.Error(), "file entry") {
		t.Fatalf("error should explain the parent is a file, got %v", err)
	}
}

func TestParseReaderStripsHeaderBOM(t *testing.T) {
	entries, err := parseString(t, "\uFEFFid,parent_id,kind,name,source_path\n1,-,folder,Box 1,\n")
	if err != nil {
		t.Fatalf("BOM header should parse, got: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "1" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestParseReaderClearsFolderSourcePath(t *testing.T) {
	entries, err := parseString(t, strings.Join([]string{
		"id,parent_id,kind,name,source_path",
		"1,-,folder,Box 1,/tmp/filled-down.jpg",
	}, "\n"))
	if err != nil {
		t.Fatalf("ParseReader returned error: %v", err)
	}
	if entries[0].SourcePath != "" {
		t.Fatalf("folder source path should be cleared, got %q", entries[0].SourcePath)
	}
}

func TestParseReaderOptionalDescriptiveColumns(t *testing.T) {
	entries, err := parseString(t, strings.Join([]string{
		"id,parent_id,kind,name,source_path,title,description",
		"1,-,folder,Box 1,,Box One,Correspondence 1900-1910",
	}, "\n"))
	if err != nil {
		t.Fatalf("ParseReader returned error: %v", err)
	}
	if entries[0].Title != "Box One" || entries[0].Description != "Correspondence 1900-1910" {
		t.Fatalf("descriptive fields not captured: %+v", entries[0])
	}

	entries, err = parseString(t, "id,parent_id,kind,name,source_path\n1,-,folder,Box 1,\n")
	if err != nil {
		t.Fatalf("ParseReader returned error: %v", err)
	}
	if entries[0].Title != "" || entries[0].Description != "" {
		t.Fatalf("absent descriptive columns should stay empty: %+v", entries[0])
	}
}

func TestParseReaderCustomColumns(t *testing.T) {
	cols := manifest.Columns{
		ID:         "Ref",
		ParentID:   "Parent Ref",
		Kind:       "Type",
		Name:       "Label",
		SourcePath: "File Location",
	}
	entries, err := manifest.ParseReader(strings.NewReader(strings.Join([]string{
		"Ref,Parent Ref,Type,Label,File Location",
		"a,-,Folder,Box 1,",
		"b,a,FILE,photo.jpg,/tmp/a.jpg",
	}, "\n")), cols)
	if err != nil {
		t.Fatalf("ParseReader returned error: %v", err)
	}
	if entries[0].Kind != manifest.KindFolder || entries[1].Kind != manifest.KindFile {
		t.Fatalf("kinds should match case-insensitively: %+v", entries)
	}
}

func TestParseReaderInconsistentFieldCount(t *testing.T) {
	_, err := parseString(t, strings.Join([]string{
		"id,parent_id,kind,name,source_path",
		"1,-,folder",
	}, "\n"))
	if !errors.Is(err, manifest.ErrFormat) {
		t.Fatalf("expected ErrFormat for short row, got %v", err)
	}
}

func TestParseReaderEmptyInput(t *testing.T) {
	_, err := parseString(t, "")
	if !errors.Is(err, manifest.ErrFormat) {
		t.Fatalf("expected ErrFormat for empty input, got %v", err)
	}
}

func TestParseReaderHeaderOnly(t *testing.T) {
	entries, err := parseString(t, "id,parent_id,kind,name,source_path\n")
	if err != nil {
		t.Fatalf("header-only manifest should parse, got: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

func TestParseReadsFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.csv")
	data := "id,parent_id,kind,name,source_path\n1,-,folder,Box 1,\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := manifest.Parse(path, manifest.DefaultColumns())
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	if _, err := manifest.Parse(filepath.Join(t.TempDir(), "absent.csv"), manifest.DefaultColumns()); err == nil {
		t.Fatal("expected error for missing manifest file")
	}
}
