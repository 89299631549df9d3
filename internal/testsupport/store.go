package testsupport

import (
	"testing"

	"clapper/internal/config"
	"clapper/internal/ledger"
	"clapper/internal/script"
)

// MustOpenLedger opens the render history store for tests and registers
// cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// ParseScript parses source with a quiet parser.
func ParseScript(t testing.TB, source string) *script.Document {
	t.Helper()

	return script.NewParser(nil).ParseString(source)
}
