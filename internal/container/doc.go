// Package container turns a validated manifest into the in-memory tree the
// mover executes.
//
// Build is a two-pass arena construction: the first pass indexes every entry
// by id, the second links each node under its resolved parent in manifest
// order, so children may reference parents declared later in the file. Output
// paths are computed top-down during linking with a collision-safe naming
// policy; sibling name clashes are disambiguated with a numeric suffix rather
// than silently dropped. The tree is read-only once Build returns.
package container
