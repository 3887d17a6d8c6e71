package dispatch

import (
	"context"
	"log/slog"

	"plexmover/internal/logging"
	"plexmover/internal/torrent"
)

// TriggerFunc starts a move for the given torrent hash.
type TriggerFunc func(ctx context.Context, hash string) error

// Dispatcher applies Match to completed torrents and fires the trigger.
type Dispatcher struct {
	rules   []Rule
	manual  Manual
	trigger TriggerFunc
	logger  *slog.Logger
}

// New constructs a Dispatcher.
func New(rules []Rule, manual Manual, trigger TriggerFunc, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		rules:   append([]Rule(nil), rules...),
		manual:  manual,
		trigger: trigger,
		logger:  logging.NewComponentLogger(logger, "dispatch"),
	}
}

// OnCompleted handles one download-completed edge. The trigger runs at most
// once and its failure is logged, never returned, so the rest of the poll
// batch proceeds.
func (d *Dispatcher) OnCompleted(ctx context.Context, item torrent.Item) Decision {
	decision := Match(item.Tags, d.rules, d.manual)
	logger := d.logger.With(
		logging.String(logging.FieldHash, item.Hash),
		logging.String("torrent", item.Name),
		logging.String("tags", item.Tags),
		logging.String("reason", string(decision.Reason)),
	)
	if decision.Rule != "" {
		logger = logger.With(logging.String("rule", decision.Rule))
	}
	if !decision.Copy {
		logger.Debug("auto-copy not applicable")
		return decision
	}
	if d.trigger == nil {
		logger.Warn("auto-copy matched but no trigger configured")
		return decision
	}

	logger.Info("auto-copy triggered", logging.String(logging.FieldEventType, "auto_copy"))
	if err := d.trigger(ctx, item.Hash); err != nil {
		logging.WarnWithContext(logger, "auto-copy failed", "auto_copy_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "move the item manually from the catalog"),
			logging.String(logging.FieldImpact, "item stays pending"),
		)
	}
	return decision
}
