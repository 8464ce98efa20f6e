package testsupport

import (
	"testing"

	"modforge/internal/catalog"
	"modforge/internal/config"
)

// MustOpenCatalog opens a scan catalog against the test config and closes it
// when the test finishes.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}
