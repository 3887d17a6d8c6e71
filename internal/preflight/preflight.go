package preflight

import (
	"context"
	"strings"

	"plexmover/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Loginer authenticates against the torrent client.
type Loginer interface {
	Login(ctx context.Context) error
}

// RunAll executes every applicable preflight check. client may be nil to skip
// the torrent client check.
func RunAll(ctx context.Context, cfg *config.Config, client Loginer) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Source directory", cfg.Paths.SourceDir, AccessRead),
		CheckDirectoryAccess("Library directory", cfg.Paths.LibraryDir, AccessReadWrite),
	}
	if client != nil {
		results = append(results, CheckTorrentClient(ctx, client))
	}
	if strings.TrimSpace(cfg.TMDB.APIKey) != "" {
		results = append(results, CheckTMDB(ctx, cfg.TMDB.BaseURL, cfg.TMDB.APIKey))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
