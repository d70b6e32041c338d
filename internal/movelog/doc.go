// Package movelog persists one record per successful file move and replays
// them to restore original locations.
//
// The log lives at the root of the built container as moves.csv with columns
// source_path, destination_path, timestamp. Its schema is a compatibility
// contract: undo must work from nothing but this file, in a fresh process,
// long after the build that wrote it has exited. The writer appends and
// syncs after every record so a crash mid-build still leaves a log of
// everything moved so far.
//
// Undo walks records newest-first. A destination that no longer exists is
// skipped with a warning; a source position now occupied by something else
// is reported as a conflict for that record only. Both policies keep a
// partially disturbed container restorable instead of failing the whole
// pass. Undo is not itself undoable; rebuilding from the manifest is the
// recovery path.
package movelog
