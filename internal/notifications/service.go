package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"plexmover/internal/config"
	"plexmover/internal/logging"
)

const userAgent = "plexmover/0.1.0"

// Service publishes catalog events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// notifier is one transport.
type notifier interface {
	name() string
	send(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a service for every configured transport. When none is
// configured a no-op implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	settings := cfg.Notifications
	timeout := time.Duration(settings.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	var notifiers []notifier
	if topic := strings.TrimSpace(settings.NtfyTopic); topic != "" {
		notifiers = append(notifiers, &ntfyNotifier{endpoint: topic, client: client})
	}
	if settings.TelegramBotToken != "" && settings.TelegramChatID != "" {
		notifiers = append(notifiers, newTelegram(settings.TelegramAPIBaseURL, settings.TelegramBotToken, settings.TelegramChatID, client))
	}
	if len(notifiers) == 0 {
		return noopService{}
	}

	return &multiService{
		notifiers: notifiers,
		enabled: map[Event]bool{
			EventNewMovie:         settings.OnNewMovie,
			EventDownloadComplete: settings.OnDownloadComplete,
			EventMoved:            settings.OnMove,
			EventTest:             true,
		},
	}
}

type multiService struct {
	notifiers []notifier
	enabled   map[Event]bool
}

func (m *multiService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !m.enabled[event] {
		return nil
	}
	var errs []error
	for _, n := range m.notifiers {
		if err := n.send(ctx, event, payload); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.name(), err))
		}
	}
	return errors.Join(errs...)
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

// PublishAsync delivers event on its own goroutine with a detached context.
// Failures are logged at warn and otherwise dropped.
func PublishAsync(svc Service, logger *slog.Logger, event Event, payload Payload) {
	if svc == nil {
		return
	}
	if _, ok := svc.(noopService); ok {
		return
	}
	logger = logging.NewComponentLogger(logger, "notifications")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := svc.Publish(ctx, event, payload); err != nil {
			logging.WarnWithContext(logger, "notification delivery failed", "notification_failed",
				logging.String("event", string(event)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check ntfy/telegram settings"),
				logging.String(logging.FieldImpact, "event not delivered"),
			)
		}
	}()
}
