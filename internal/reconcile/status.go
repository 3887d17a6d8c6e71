package reconcile

import (
	"path/filepath"
	"strings"

	"plexmover/internal/store"
	"plexmover/internal/textutil"
	"plexmover/internal/torrent"
)

var queuedDownloadStates = map[string]struct{}{
	"metaDL":     {},
	"allocating": {},
	"queuedDL":   {},
}

var activeDownloadStates = map[string]struct{}{
	"downloading": {},
	"forcedDL":    {},
	"forceDL":     {},
	"stalledDL":   {},
	"pausedDL":    {},
	"stoppedDL":   {},
}

var seedingStates = map[string]struct{}{
	"uploading":          {},
	"pausedUP":           {},
	"stoppedUP":          {},
	"queuedUP":           {},
	"stalledUP":          {},
	"forcedUP":           {},
	"completed":          {},
	"checkingUP":         {},
	"checkingDL":         {},
	"checkingResumeData": {},
	"moving":             {},
}

var clientErrorStates = map[string]struct{}{
	"error":        {},
	"missingFiles": {},
}

// IsDownloading reports whether the remote state means bytes are still
// arriving (or queued to arrive).
func IsDownloading(state string) bool {
	if _, ok := queuedDownloadStates[state]; ok {
		return true
	}
	_, ok := activeDownloadStates[state]
	return ok
}

// Input bundles everything DeriveStatus looks at.
type Input struct {
	Item torrent.Item
	// Last is the newest history record for Item.Name, nil when none exists.
	Last *store.HistoryRecord
	// Copying is true while a copy job for Item.Hash is in the copying state.
	Copying    bool
	LibraryDir string
	// Exists probes the destination; nil treats every destination as present.
	Exists func(path string) bool
}

// DeriveStatus resolves the display status. Precedence: active copy, remote
// download state, newest history record, remote seeding/error state.
func DeriveStatus(in Input) store.Status {
	if in.Copying {
		return store.StatusCopying
	}

	state := in.Item.State
	if _, ok := queuedDownloadStates[state]; ok {
		return store.StatusNew
	}
	if _, ok := activeDownloadStates[state]; ok {
		return store.StatusDownloading
	}

	if in.Last != nil {
		switch in.Last.Status {
		case store.HistorySuccess:
			return verifyDestination(in, store.StatusMoved)
		case store.HistoryManual:
			return verifyDestination(in, store.StatusMovedManually)
		case store.HistoryError:
			return store.StatusError
		case store.HistorySkipped:
			return store.StatusSkipped
		}
	}

	if _, ok := seedingStates[state]; ok {
		return store.StatusPending
	}
	if _, ok := clientErrorStates[state]; ok {
		return store.StatusError
	}
	return store.StatusPending
}

func verifyDestination(in Input, tentative store.Status) store.Status {
	dest, ok := ExpectedDestination(in.Item, in.Last, in.LibraryDir)
	if !ok || in.Exists == nil {
		return tentative
	}
	if !in.Exists(dest) {
		return store.StatusMissing
	}
	return tentative
}

// ExpectedDestination returns where a moved item should live. A recorded
// destination wins; otherwise the library folder is rebuilt from the content
// path's "Title (Year)" basename. ok is false when neither is available.
func ExpectedDestination(item torrent.Item, last *store.HistoryRecord, libraryDir string) (string, bool) {
	if last != nil {
		if dest := strings.TrimSpace(last.DestPath); dest != "" {
			return dest, true
		}
	}
	if strings.TrimSpace(libraryDir) == "" {
		return "", false
	}
	base := textutil.ContentBaseName(item.ContentPath)
	title, year, ok := textutil.ParseTitleYear(base, true)
	if !ok {
		return "", false
	}
	return filepath.Join(libraryDir, textutil.FolderName(title, year)), true
}
