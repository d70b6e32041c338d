// Package opex writes OPEX sidecar metadata next to container content.
//
// Ingest platforms that speak the Open Preservation Exchange format pick up
// one <name>.opex file per asset and per folder. A file sidecar carries the
// asset's SHA-256 fixity, its original source filename, and any descriptive
// title or description the manifest supplied; a folder sidecar additionally
// lists the folder's on-disk contents so the platform can verify the
// transfer is complete. Sidecar generation runs after the move pass and is
// never allowed to fail a build.
package opex
