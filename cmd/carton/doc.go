// Package main hosts the carton CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into container
// passes: building an output tree from a manifest, previewing the tree
// without touching disk, replaying a move log, and inspecting the run
// ledger. It centralizes configuration resolution and structured logging
// setup so subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
