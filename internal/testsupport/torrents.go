package testsupport

import (
	"context"
	"strings"
	"sync"

	"plexmover/internal/torrent"
)

// FakeTorrents is an in-memory torrent.Client.
type FakeTorrents struct {
	mu    sync.Mutex
	items []torrent.Item
	// Err, when set, is returned from every call.
	Err error
}

// NewFakeTorrents seeds a fake client with items.
func NewFakeTorrents(items ...torrent.Item) *FakeTorrents {
	return &FakeTorrents{items: append([]torrent.Item(nil), items...)}
}

// Set replaces the reported items.
func (f *FakeTorrents) Set(items ...torrent.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append([]torrent.Item(nil), items...)
}

// ListItems implements torrent.Client.
func (f *FakeTorrents) ListItems(context.Context) ([]torrent.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return append([]torrent.Item(nil), f.items...), nil
}

// GetItem implements torrent.Client.
func (f *FakeTorrents) GetItem(_ context.Context, hash string) (*torrent.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	for _, item := range f.items {
		if strings.EqualFold(item.Hash, hash) {
			cp := item
			return &cp, nil
		}
	}
	return nil, nil
}
