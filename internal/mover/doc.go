// Package mover materializes a container tree on disk by creating its
// directories and relocating each referenced source file into place.
//
// The walk is depth-first with folders handled before their children, so a
// directory always exists before files land in it. Execution is partial-
// failure tolerant: a missing source, an occupied destination, or a path
// conflict is recorded against that entry and the walk continues, giving the
// caller maximal progress plus a complete account of what was skipped. Every
// successful move is appended to the move log and forced to disk before the
// next move starts.
//
// Moves use rename semantics with a verified copy fallback for cross-device
// destinations, the same primitive the undo engine replays in reverse.
package mover
