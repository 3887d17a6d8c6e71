package torrent

import (
	"context"
	"errors"
	"testing"

	qbt "github.com/autobrr/go-qbittorrent"

	"plexmover/internal/services"
)

type fakeAPI struct {
	logins    int
	loginErr  error
	calls     int
	failFirst bool
	torrents  []qbt.Torrent
	lastOpts  qbt.TorrentFilterOptions
}

func (f *fakeAPI) LoginCtx(context.Context) error {
	f.logins++
	return f.loginErr
}

func (f *fakeAPI) GetTorrentsCtx(_ context.Context, opts qbt.TorrentFilterOptions) ([]qbt.Torrent, error) {
	f.calls++
	f.lastOpts = opts
	if f.failFirst && f.calls == 1 {
		return nil, errors.New("403 forbidden")
	}
	if len(opts.Hashes) == 0 {
		return f.torrents, nil
	}
	var out []qbt.Torrent
	for _, t := range f.torrents {
		for _, h := range opts.Hashes {
			if t.Hash == h {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func sampleTorrents() []qbt.Torrent {
	return []qbt.Torrent{
		{
			Hash:        "aaa",
			Name:        "Heat (1995)",
			State:       qbt.TorrentStateUploading,
			Size:        1024,
			ContentPath: "/downloads/Heat (1995)",
			Tags:        "rss-movies, hd",
			Category:    "movies",
			Progress:    1,
		},
		{Hash: "bbb", Name: "Alien (1979)", State: qbt.TorrentStateDownloading, Progress: 0.4},
	}
}

func TestListItemsLogsInLazilyAndConverts(t *testing.T) {
	api := &fakeAPI{torrents: sampleTorrents()}
	client := newWithAPI(api, nil)

	items, err := client.ListItems(context.Background())
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if api.logins != 1 {
		t.Fatalf("expected one login, got %d", api.logins)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	heat := items[0]
	if heat.State != "uploading" || heat.Tags != "rss-movies, hd" || heat.ContentPath != "/downloads/Heat (1995)" || heat.Size != 1024 {
		t.Fatalf("unexpected conversion: %#v", heat)
	}

	if _, err := client.ListItems(context.Background()); err != nil {
		t.Fatalf("second ListItems: %v", err)
	}
	if api.logins != 1 {
		t.Fatalf("expected session reuse, got %d logins", api.logins)
	}
}

func TestGetItemFiltersByHash(t *testing.T) {
	api := &fakeAPI{torrents: sampleTorrents()}
	client := newWithAPI(api, nil)

	item, err := client.GetItem(context.Background(), "bbb")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if item == nil || item.Name != "Alien (1979)" {
		t.Fatalf("unexpected item: %#v", item)
	}
	if len(api.lastOpts.Hashes) != 1 || api.lastOpts.Hashes[0] != "bbb" {
		t.Fatalf("expected hash filter, got %#v", api.lastOpts)
	}

	missing, err := client.GetItem(context.Background(), "zzz")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for unknown hash, got %#v, %v", missing, err)
	}
	blank, err := client.GetItem(context.Background(), "  ")
	if err != nil || blank != nil {
		t.Fatalf("expected nil for blank hash, got %#v, %v", blank, err)
	}
}

func TestReauthenticatesAfterFailure(t *testing.T) {
	api := &fakeAPI{torrents: sampleTorrents(), failFirst: true}
	client := newWithAPI(api, nil)

	items, err := client.ListItems(context.Background())
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 2 || api.logins != 2 || api.calls != 2 {
		t.Fatalf("expected relogin and retry, logins=%d calls=%d", api.logins, api.calls)
	}
}

func TestLoginFailureIsExternal(t *testing.T) {
	api := &fakeAPI{loginErr: errors.New("bad credentials")}
	client := newWithAPI(api, nil)

	_, err := client.ListItems(context.Background())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if api.calls != 0 {
		t.Fatal("torrent list must not be requested without a session")
	}
}
