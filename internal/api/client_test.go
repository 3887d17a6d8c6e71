package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"plexmover/internal/config"
)

func newTestClient(t *testing.T, token string, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, token, time.Second)
}

func TestNewClientAddsScheme(t *testing.T) {
	c := NewClient(" 127.0.0.1:7488/ ", "", 0)
	if c.baseURL != "http://127.0.0.1:7488" {
		t.Fatalf("baseURL = %q", c.baseURL)
	}
	if c.http.Timeout != 30*time.Second {
		t.Fatalf("timeout = %s, want 30s default", c.http.Timeout)
	}
	c = NewClient("https://movies.example", "", time.Second)
	if c.baseURL != "https://movies.example" {
		t.Fatalf("baseURL = %q", c.baseURL)
	}
}

func TestClientFromConfigRequiresBind(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.APIBind = ""
	if _, err := ClientFromConfig(&cfg); err == nil {
		t.Fatal("expected an error without api_bind")
	}
	if _, err := ClientFromConfig(nil); err == nil {
		t.Fatal("expected an error for a nil config")
	}
}

func TestClientSendsTokenAndDecodes(t *testing.T) {
	client := newTestClient(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/api/movies" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(MoviesResponse{Movies: []MovieView{{PosterURL: "/posters/x.jpg"}}})
	})

	movies, err := client.Movies(context.Background())
	if err != nil {
		t.Fatalf("Movies: %v", err)
	}
	if len(movies) != 1 || movies[0].PosterURL != "/posters/x.jpg" {
		t.Fatalf("unexpected movies %#v", movies)
	}
}

func TestClientStatusErrorCarriesMessage(t *testing.T) {
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status":"error","message":"Torrent not found"}`))
	})

	_, err := client.Move(context.Background(), "abc")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %T %v", err, err)
	}
	if statusErr.Code != http.StatusNotFound || statusErr.Error() != "Torrent not found" {
		t.Fatalf("unexpected error %#v", statusErr)
	}
}

func TestClientStatusErrorFallsBackToStatusText(t *testing.T) {
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := client.Trigger(context.Background())
	if err == nil || !strings.Contains(err.Error(), "500 Internal Server Error") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestClientEscapesHashAndEncodesBodies(t *testing.T) {
	var gotPath, gotQuery string
	var gotBody map[string]any
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotQuery = r.URL.RawQuery
		gotBody = nil
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
		}
		_, _ = w.Write([]byte(`{"success":true,"message":"ok"}`))
	})
	ctx := context.Background()

	if _, err := client.Delete(ctx, "a b", true); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if gotPath != "/api/movie/a%20b" || gotQuery != "ignore=true" {
		t.Fatalf("path=%q query=%q", gotPath, gotQuery)
	}

	if _, err := client.AddWatchlist(ctx, "h1", 7); err != nil {
		t.Fatalf("AddWatchlist: %v", err)
	}
	if gotPath != "/api/watchlist/h1" || gotBody["days"] != float64(7) {
		t.Fatalf("path=%q body=%v", gotPath, gotBody)
	}

	if _, err := client.BatchCopy(ctx, []string{"x", "y"}); err != nil {
		t.Fatalf("BatchCopy: %v", err)
	}
	hashes, _ := gotBody["torrent_hashes"].([]any)
	if gotPath != "/api/movies/batch-copy" || len(hashes) != 2 {
		t.Fatalf("path=%q body=%v", gotPath, gotBody)
	}

	if _, err := client.TestTelegram(ctx, "tok", "42"); err != nil {
		t.Fatalf("TestTelegram: %v", err)
	}
	if gotPath != "/api/test_telegram" || gotBody["token"] != "tok" || gotBody["chat_id"] != "42" {
		t.Fatalf("path=%q body=%v", gotPath, gotBody)
	}
}
