// Package manifest parses the flat CSV describing a container's hierarchy.
//
// A manifest row declares either a folder or a file, each with a unique id
// and a parent_id pointing at the folder it belongs under. Rows may appear in
// any order; a child is allowed to reference a parent declared later in the
// file. Parse validates row structure and reference integrity up front and
// hands downstream components a strictly typed entry sequence, so the tree
// builder and mover never see a malformed row.
//
// Column names are a configuration concern: institutions exporting manifests
// from collection-management systems rarely agree on headers, so Parse takes
// a Columns mapping and matches header cells case-insensitively.
package manifest
