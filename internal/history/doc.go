// Package history keeps a SQLite ledger of build and undo runs.
//
// One row per run records what was asked for, where the container and its
// move log landed, and how the pass finished. The ledger powers the runs
// listing and lets undo locate the most recent build's log without the user
// supplying a path. History is advisory: the core pipeline works without the
// store, and recording failures are logged and swallowed rather than allowed
// to fail a build whose files have already moved.
package history
