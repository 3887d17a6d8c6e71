package metadata

import (
	"context"
	"fmt"

	"plexmover/internal/store"
)

const (
	maxCast = 10
	maxCrew = 10

	posterSize   = "w500"
	backdropSize = "w1280"
	profileSize  = "w185"
)

var keyCrewJobs = map[string]struct{}{
	"Director":   {},
	"Writer":     {},
	"Screenplay": {},
	"Producer":   {},
}

// Record is the folded metadata for one movie.
type Record struct {
	TMDBID       int64
	Title        string
	Year         string
	Overview     string
	Runtime      int
	Genres       []string
	PosterPath   string
	BackdropPath string
	VoteAverage  float64
	VoteCount    int
	Cast         []store.Credit
	Crew         []store.Credit
	IMDbID       string
}

// Lookup searches by title and year and folds the first match with its
// credits and external ids. A search without results returns nil, nil.
func (c *Client) Lookup(ctx context.Context, title, year string) (*Record, error) {
	resp, err := c.SearchMovie(ctx, title, year)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return c.LookupByID(ctx, resp.Results[0].ID)
}

// LookupByID folds details, credits and external ids for a TMDB movie.
func (c *Client) LookupByID(ctx context.Context, movieID int64) (*Record, error) {
	details, err := c.MovieDetails(ctx, movieID)
	if err != nil {
		return nil, err
	}
	credits, err := c.MovieCredits(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("credits for %d: %w", movieID, err)
	}
	external, err := c.MovieExternalIDs(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("external ids for %d: %w", movieID, err)
	}

	record := &Record{
		TMDBID:       details.ID,
		Title:        details.Title,
		Year:         releaseYear(details.ReleaseDate),
		Overview:     details.Overview,
		Runtime:      details.Runtime,
		PosterPath:   details.PosterPath,
		BackdropPath: details.BackdropPath,
		VoteAverage:  details.VoteAverage,
		VoteCount:    details.VoteCount,
		IMDbID:       external.IMDbID,
	}
	if record.TMDBID == 0 {
		record.TMDBID = movieID
	}
	for _, genre := range details.Genres {
		record.Genres = append(record.Genres, genre.Name)
	}
	record.Cast = c.topCast(credits.Cast)
	record.Crew = c.keyCrew(credits.Crew)
	return record, nil
}

func (c *Client) topCast(cast []CastMember) []store.Credit {
	out := make([]store.Credit, 0, min(len(cast), maxCast))
	for _, person := range cast {
		if len(out) == maxCast {
			break
		}
		out = append(out, store.Credit{Name: person.Name, Role: person.Character, ProfilePath: c.imageURL(profileSize, person.ProfilePath)})
	}
	return out
}

// keyCrew keeps directors, writers and producers, one credit per name.
func (c *Client) keyCrew(crew []CrewMember) []store.Credit {
	seen := make(map[string]struct{})
	var out []store.Credit
	for _, person := range crew {
		if _, ok := keyCrewJobs[person.Job]; !ok {
			continue
		}
		if _, dup := seen[person.Name]; dup {
			continue
		}
		seen[person.Name] = struct{}{}
		out = append(out, store.Credit{Name: person.Name, Role: person.Job, ProfilePath: c.imageURL(profileSize, person.ProfilePath)})
		if len(out) == maxCrew {
			break
		}
	}
	return out
}

func (c *Client) imageURL(size, path string) string {
	if path == "" {
		return ""
	}
	return c.imageBaseURL + "/" + size + path
}

func releaseYear(date string) string {
	if len(date) >= 4 {
		return date[:4]
	}
	return ""
}
