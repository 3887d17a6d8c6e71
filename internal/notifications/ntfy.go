package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type ntfyNotifier struct {
	endpoint string
	client   *http.Client
}

type ntfyMessage struct {
	title    string
	message  string
	tags     []string
	priority string
}

func (n *ntfyNotifier) name() string { return "ntfy" }

func (n *ntfyNotifier) format(event Event, payload Payload) (ntfyMessage, bool) {
	switch event {
	case EventNewMovie:
		return ntfyMessage{
			title:   "Plexmover - New Movie",
			message: fmt.Sprintf("🆕 New movie found: %s", payload.displayTitle()),
			tags:    []string{"plexmover", "catalog", "new"},
		}, true
	case EventDownloadComplete:
		return ntfyMessage{
			title:   "Plexmover - Download Complete",
			message: fmt.Sprintf("✅ Download complete: %s\nReady to move.", payload.displayTitle()),
			tags:    []string{"plexmover", "download", "completed"},
		}, true
	case EventMoved:
		message := fmt.Sprintf("🚀 Moved to library: %s", payload.displayTitle())
		if dest := payload.text("destination"); dest != "" {
			message = fmt.Sprintf("%s\n%s", message, dest)
		}
		return ntfyMessage{
			title:    "Plexmover - Library Updated",
			message:  message,
			tags:     []string{"plexmover", "library", "moved"},
			priority: "high",
		}, true
	case EventTest:
		return ntfyMessage{
			title:    "Plexmover - Test",
			message:  "🧪 Notification system test",
			tags:     []string{"plexmover", "test"},
			priority: "low",
		}, true
	default:
		return ntfyMessage{}, false
	}
}

func (n *ntfyNotifier) send(ctx context.Context, event Event, payload Payload) error {
	data, ok := n.format(event, payload)
	if !ok {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
