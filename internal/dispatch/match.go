package dispatch

import (
	"strings"

	"plexmover/internal/config"
)

// DefaultManualSearchTag is applied to torrents added from a manual search.
const DefaultManualSearchTag = "manual-search-autocopy"

// Rule maps a torrent tag to the auto-copy switch of one feed.
type Rule struct {
	Name     string
	Label    string
	AutoCopy bool
}

// Manual is the global manual-search rule consulted when no feed rule copied.
type Manual struct {
	Tag      string
	AutoCopy bool
}

// Reason explains a Decision.
type Reason string

const (
	ReasonRule         Reason = "rule"
	ReasonRuleDisabled Reason = "rule_disabled"
	ReasonManualSearch Reason = "manual_search"
	ReasonNoMatch      Reason = "no_match"
)

// Decision is the outcome of Match.
type Decision struct {
	Copy   bool
	Reason Reason
	// Rule names the feed rule whose label matched, if any.
	Rule string
}

// RulesFromConfig builds the rule list in feed order plus the manual rule.
func RulesFromConfig(cfg *config.Config) ([]Rule, Manual) {
	if cfg == nil {
		return nil, Manual{Tag: DefaultManualSearchTag}
	}
	rules := make([]Rule, 0, len(cfg.Feeds))
	for _, feed := range cfg.Feeds {
		rules = append(rules, Rule{Name: feed.Name, Label: feed.Label, AutoCopy: feed.AutoCopy})
	}
	tag := strings.TrimSpace(cfg.AutoMatch.ManualSearchTag)
	if tag == "" {
		tag = DefaultManualSearchTag
	}
	return rules, Manual{Tag: tag, AutoCopy: cfg.AutoMatch.AutoCopyManualSearch}
}

// Match evaluates tags against rules. The first rule whose non-empty label is
// contained in tags ends the walk; a matching rule with auto-copy disabled
// still falls through to the manual-search check.
func Match(tags string, rules []Rule, manual Manual) Decision {
	decision := Decision{Reason: ReasonNoMatch}
	for _, rule := range rules {
		if rule.Label == "" || !strings.Contains(tags, rule.Label) {
			continue
		}
		if rule.AutoCopy {
			return Decision{Copy: true, Reason: ReasonRule, Rule: rule.Name}
		}
		decision = Decision{Reason: ReasonRuleDisabled, Rule: rule.Name}
		break
	}
	if manual.AutoCopy && manual.Tag != "" && strings.Contains(tags, manual.Tag) {
		return Decision{Copy: true, Reason: ReasonManualSearch, Rule: decision.Rule}
	}
	return decision
}
