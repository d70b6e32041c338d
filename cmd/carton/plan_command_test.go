package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"carton/internal/testsupport"
)

func TestPlanPreviewsWithoutMutating(t *testing.T) {
	env := setupCLITestEnv(t)

	src := filepath.Join(env.baseDir, "sources", "scan.tif")
	testsupport.WriteSource(t, src, "tiff")
	manifest := testsupport.WriteManifest(t, env.baseDir,
		"1,,folder,Folder A,,,",
		"2,1,file,scan.tif,"+src+",,",
	)
	outRoot := filepath.Join(env.baseDir, "out")

	out, _, err := runCLI(t, []string{"plan", manifest, outRoot}, env.configPath)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	requireContains(t, out, "Planned 1 folder and 1 file under "+outRoot)
	requireContains(t, out, "Folder A")
	requireContains(t, out, "scan.tif")

	if _, err := os.Stat(outRoot); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("plan must not create the output root, stat: %v", err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("plan must leave sources in place: %v", err)
	}
}

func TestPlanJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	src := filepath.Join(env.baseDir, "sources", "scan.tif")
	testsupport.WriteSource(t, src, "tiff")
	manifest := testsupport.WriteManifest(t, env.baseDir,
		"1,,folder,Folder A,,,",
		"2,1,file,scan.tif,"+src+",,",
	)
	outRoot := filepath.Join(env.baseDir, "out")

	out, _, err := runCLI(t, []string{"plan", manifest, outRoot, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("plan --json: %v", err)
	}

	var payload struct {
		OutputRoot string `json:"output_root"`
		Folders    int    `json:"folders"`
		Files      int    `json:"files"`
		Nodes      []struct {
			Path   string `json:"path"`
			Kind   string `json:"kind"`
			Source string `json:"source"`
		} `json:"nodes"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if payload.Folders != 1 || payload.Files != 1 {
		t.Fatalf("expected 1 folder and 1 file, got %d/%d", payload.Folders, payload.Files)
	}
	if len(payload.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(payload.Nodes))
	}
	want := filepath.Join(outRoot, "Folder A", "scan.tif")
	found := false
	for _, node := range payload.Nodes {
		if node.Path == want && node.Kind == "file" && node.Source == src {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected node for %s in %+v", want, payload.Nodes)
	}
}

func TestPlanRejectsBadManifest(t *testing.T) {
	env := setupCLITestEnv(t)

	manifest := testsupport.WriteManifest(t, env.baseDir,
		"1,,file,a.txt,/tmp/a.txt,,",
		"1,,file,b.txt,/tmp/b.txt,,",
	)

	_, _, err := runCLI(t, []string{"plan", manifest, filepath.Join(env.baseDir, "out")}, env.configPath)
	if err == nil {
		t.Fatal("expected duplicate id error")
	}
	requireContains(t, err.Error(), "duplicate")
}
