package api

import (
	"strings"

	"plexmover/internal/copyengine"
	"plexmover/internal/store"
)

// FromEntry converts a catalog entry to its API representation. A running
// copy overrides the stored status.
func FromEntry(entry store.Entry, job *copyengine.Job) MovieView {
	view := MovieView{
		Entry:       entry,
		PosterURL:   posterURL(entry.PosterPath),
		BackdropURL: posterURL(entry.BackdropPath),
	}
	if job != nil {
		cp := *job
		view.CopyProgress = &cp
		if cp.Status == copyengine.JobCopying {
			view.Status = store.StatusCopying
		}
	}
	return view
}

// FromEntries converts entries, looking up copy progress by hash.
func FromEntries(entries []store.Entry, jobs map[string]copyengine.Job) []MovieView {
	views := make([]MovieView, 0, len(entries))
	for _, entry := range entries {
		var job *copyengine.Job
		if j, ok := jobs[entry.Hash]; ok {
			job = &j
		}
		views = append(views, FromEntry(entry, job))
	}
	return views
}

func posterURL(name string) string {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return ""
	case strings.HasPrefix(name, "http://"), strings.HasPrefix(name, "https://"), strings.HasPrefix(name, "/"):
		return name
	default:
		return PosterPrefix + name
	}
}
