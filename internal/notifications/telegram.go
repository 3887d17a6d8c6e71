package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"plexmover/internal/config"
	"plexmover/internal/services"
)

type telegramNotifier struct {
	endpoint string
	chatID   string
	client   *http.Client
}

type telegramRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func newTelegram(baseURL, token, chatID string, client *http.Client) *telegramNotifier {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &telegramNotifier{
		endpoint: fmt.Sprintf("%s/bot%s/sendMessage", baseURL, token),
		chatID:   chatID,
		client:   client,
	}
}

func (t *telegramNotifier) name() string { return "telegram" }

func (t *telegramNotifier) format(event Event, payload Payload) (string, bool) {
	title := html.EscapeString(payload.displayTitle())
	switch event {
	case EventNewMovie:
		return fmt.Sprintf("🆕 <b>New Movie Found</b>\n\n🎬 %s\n📥 Added to the catalog.", title), true
	case EventDownloadComplete:
		return fmt.Sprintf("✅ <b>Download Complete</b>\n\n🎬 %s\n💾 Ready to move.", title), true
	case EventMoved:
		text := fmt.Sprintf("🚀 <b>Movie Moved to Library</b>\n\n🎬 %s", title)
		if dest := payload.text("destination"); dest != "" {
			text += "\n📂 " + html.EscapeString(dest)
		}
		return text, true
	case EventTest:
		return "🔔 <b>Plexmover Test Message</b>\n\nIf you are reading this, your Telegram configuration is correct!", true
	default:
		return "", false
	}
}

func (t *telegramNotifier) send(ctx context.Context, event Event, payload Payload) error {
	text, ok := t.format(event, payload)
	if !ok {
		return nil
	}
	body, err := json.Marshal(telegramRequest{ChatID: t.chatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return fmt.Errorf("encode telegram message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	var decoded telegramResponse
	_ = json.Unmarshal(raw, &decoded)
	if resp.StatusCode != http.StatusOK || !decoded.OK {
		description := strings.TrimSpace(decoded.Description)
		if description == "" {
			description = strings.TrimSpace(string(raw))
		}
		if description == "" {
			description = "unknown error"
		}
		return fmt.Errorf("telegram API error (%d): %s", resp.StatusCode, description)
	}
	return nil
}

// TestTelegram sends the test message with explicit credentials so operators
// can check them before saving. Blank values fall back to cfg.
func TestTelegram(ctx context.Context, cfg *config.Config, token, chatID string) error {
	baseURL := ""
	timeout := 10 * time.Second
	if cfg != nil {
		baseURL = cfg.Notifications.TelegramAPIBaseURL
		if token == "" {
			token = cfg.Notifications.TelegramBotToken
		}
		if chatID == "" {
			chatID = cfg.Notifications.TelegramChatID
		}
		if cfg.Notifications.RequestTimeout > 0 {
			timeout = time.Duration(cfg.Notifications.RequestTimeout) * time.Second
		}
	}
	token = strings.TrimSpace(token)
	chatID = strings.TrimSpace(chatID)
	if token == "" || chatID == "" {
		return services.Wrap(services.ErrValidation, "notifications", "test telegram", "missing token or chat id", nil)
	}
	n := newTelegram(baseURL, token, chatID, &http.Client{Timeout: timeout})
	return n.send(ctx, EventTest, nil)
}
