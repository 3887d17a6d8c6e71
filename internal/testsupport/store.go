package testsupport

import (
	"context"
	"testing"

	"plexmover/internal/config"
	"plexmover/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// MustCreateEntry inserts a catalog entry for tests.
func MustCreateEntry(t testing.TB, st *store.Store, entry store.Entry) *store.Entry {
	t.Helper()

	if err := st.CreateEntry(context.Background(), &entry); err != nil {
		t.Fatalf("store.CreateEntry: %v", err)
	}
	return &entry
}

// MustAppendHistory appends a ledger record for tests.
func MustAppendHistory(t testing.TB, st *store.Store, name string, status store.HistoryStatus, dest string) {
	t.Helper()

	rec := &store.HistoryRecord{TorrentName: name, Status: status, DestPath: dest}
	if err := st.AppendHistory(context.Background(), rec); err != nil {
		t.Fatalf("store.AppendHistory: %v", err)
	}
}
