package testsupport

import (
	"testing"

	"dupefinder/internal/config"
	"dupefinder/internal/settings"
)

// MustOpenSettings opens a settings.Store for tests and registers cleanup.
func MustOpenSettings(t testing.TB, cfg *config.Config) *settings.Store {
	t.Helper()

	store, err := settings.Open(cfg)
	if err != nil {
		t.Fatalf("settings.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
