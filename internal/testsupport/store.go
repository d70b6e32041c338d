package testsupport

import (
	"path/filepath"
	"testing"

	"carton/internal/config"
	"carton/internal/history"
)

// MustOpenStore opens a history.Store under the config's log directory and
// registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(filepath.Join(cfg.Paths.LogDir, history.DefaultFileName))
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
