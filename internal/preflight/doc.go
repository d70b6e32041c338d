// Package preflight provides readiness checks for the filesystem paths a
// container pass depends on.
//
// The CLI runs these before build and undo so permission problems and typoed
// paths surface as one readable report instead of a half-finished pass.
// Checks never mutate anything; creating directories stays the build's job.
package preflight
