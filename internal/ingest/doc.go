// Package ingest drives a full container pass: manifest in, directory tree
// and move log out.
//
// Container ties the parsing, tree-building, move, and sidecar stages
// together behind two operations. Build materializes the manifest under the
// output root, skipping entries it cannot complete and reporting them.
// Undo replays the container's move log newest first so sources land back
// where they started. A file lock at the output root keeps concurrent passes
// over the same container from interleaving, and every pass is recorded in
// the run ledger when one is attached.
//
// Validation problems (malformed rows, duplicate ids, unresolved or cyclic
// parents) surface before any filesystem mutation, so a rejected manifest
// leaves the output root untouched.
package ingest
