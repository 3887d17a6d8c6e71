package torrent

import (
	qbt "github.com/autobrr/go-qbittorrent"
)

// Item is one torrent as reported by the client on the latest poll.
type Item struct {
	Hash        string  `json:"hash"`
	Name        string  `json:"name"`
	State       string  `json:"state"`
	Size        int64   `json:"size"`
	ContentPath string  `json:"content_path"`
	Tags        string  `json:"tags"`
	Category    string  `json:"category"`
	Progress    float64 `json:"progress"`
}

// FromQBT converts a qBittorrent torrent record.
func FromQBT(t qbt.Torrent) Item {
	return Item{
		Hash:        t.Hash,
		Name:        t.Name,
		State:       string(t.State),
		Size:        t.Size,
		ContentPath: t.ContentPath,
		Tags:        t.Tags,
		Category:    t.Category,
		Progress:    t.Progress,
	}
}
