package notifications

import (
	"fmt"
	"strings"
)

// Event identifies a catalog milestone.
type Event string

const (
	EventNewMovie         Event = "new_movie"
	EventDownloadComplete Event = "download_complete"
	EventMoved            Event = "moved"
	EventTest             Event = "test"
)

// Payload carries event fields. Known keys: title, year, destination.
type Payload map[string]any

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// displayTitle renders "Title (Year)", tolerating a missing year.
func (p Payload) displayTitle() string {
	title := p.text("title")
	if title == "" {
		title = "Unknown"
	}
	if year := p.text("year"); year != "" {
		return fmt.Sprintf("%s (%s)", title, year)
	}
	return title
}
