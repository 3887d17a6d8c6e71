// Package notifications delivers catalog events via pluggable notifiers.
//
// ntfy (topic URL) and the Telegram Bot API are supported; either, both, or
// neither may be configured. When nothing is configured NewService returns a
// no-op implementation. Event toggles in the [notifications] section suppress
// individual events before any HTTP call is made.
//
// Callers on the poll and copy paths use PublishAsync so a slow or failing
// transport never blocks catalog work.
package notifications
