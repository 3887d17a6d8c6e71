package feeds

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"plexmover/internal/config"
	"plexmover/internal/services"
)

var tmdbLink = regexp.MustCompile(`themoviedb\.org/movie/(\d+)`)

// Entry is one item announced by a feed.
type Entry struct {
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Published time.Time `json:"published"`
	FeedName  string    `json:"feed_name"`
	TMDBID    int64     `json:"tmdb_id,omitempty"`
}

// Parse decodes an RSS or Atom document into entries attributed to feedName.
func Parse(r io.Reader, feedName string, now time.Time) ([]Entry, error) {
	parsed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "feeds", "parse", feedName, err)
	}
	return convert(parsed, feedName, now), nil
}

func convert(parsed *gofeed.Feed, feedName string, now time.Time) []Entry {
	entries := make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		entry := Entry{
			Title:    strings.TrimSpace(item.Title),
			Link:     strings.TrimSpace(item.Link),
			FeedName: feedName,
		}
		if entry.Title == "" {
			entry.Title = "Unknown"
		}
		switch {
		case item.PublishedParsed != nil:
			entry.Published = *item.PublishedParsed
		case item.UpdatedParsed != nil:
			entry.Published = *item.UpdatedParsed
		default:
			entry.Published = now
		}
		entry.TMDBID = extractTMDBID(item.Description, item.Content)
		entries = append(entries, entry)
	}
	return entries
}

func extractTMDBID(texts ...string) int64 {
	for _, text := range texts {
		match := tmdbLink.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		if id, err := strconv.ParseInt(match[1], 10, 64); err == nil {
			return id
		}
	}
	return 0
}

// Fetcher downloads and parses feeds.
type Fetcher struct {
	parser *gofeed.Parser
	now    func() time.Time
}

// NewFetcher builds a Fetcher with the given request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	parser.UserAgent = "plexmover"
	return &Fetcher{parser: parser, now: time.Now}
}

// Fetch downloads one feed.
func (f *Fetcher) Fetch(ctx context.Context, feed config.Feed) ([]Entry, error) {
	url := strings.TrimSpace(feed.URL)
	if url == "" {
		return nil, services.Wrap(services.ErrConfiguration, "feeds", "fetch", "feed "+feed.Name+" has no url", nil)
	}
	parsed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "feeds", "fetch", feed.Name, err)
	}
	name := feed.Name
	if strings.TrimSpace(name) == "" {
		name = "Unknown"
	}
	return convert(parsed, name, f.now()), nil
}

// Probe fetches a feed URL and reports its title and entry count. An empty
// feed is an error.
func (f *Fetcher) Probe(ctx context.Context, url string) (title string, count int, err error) {
	parsed, err := f.parser.ParseURLWithContext(strings.TrimSpace(url), ctx)
	if err != nil {
		return "", 0, services.Wrap(services.ErrExternalTool, "feeds", "probe", url, err)
	}
	if len(parsed.Items) == 0 {
		return parsed.Title, 0, services.Wrap(services.ErrValidation, "feeds", "probe", "RSS feed is empty or invalid", nil)
	}
	return parsed.Title, len(parsed.Items), nil
}
