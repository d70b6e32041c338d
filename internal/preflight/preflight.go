package preflight

import (
	"fmt"
	"strings"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunBuild executes the checks a build pass depends on: a readable manifest
// and an output root that exists or can be created.
func RunBuild(manifestPath, outputRoot string) []Result {
	return []Result{
		CheckManifestFile("Manifest", manifestPath),
		CheckOutputRoot("Output root", outputRoot),
	}
}

// RunUndo executes the checks an undo pass depends on: a readable move log
// in a writable directory.
func RunUndo(logPath string) []Result {
	return []Result{
		CheckManifestFile("Move log", logPath),
		CheckOutputRoot("Container root", parentDir(logPath)),
	}
}

// Err folds failed results into a single error, or nil when everything
// passed.
func Err(results []Result) error {
	var failed []string
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", strings.ToLower(result.Name), result.Detail))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("preflight failed: %s", strings.Join(failed, "; "))
}
