package dispatch

import (
	"testing"

	"plexmover/internal/config"
)

func TestMatch(t *testing.T) {
	rules := []Rule{
		{Name: "yts", Label: "yts", AutoCopy: true},
		{Name: "hd", Label: "hd-feed", AutoCopy: false},
		{Name: "blank", Label: "", AutoCopy: true},
	}
	manualOn := Manual{Tag: DefaultManualSearchTag, AutoCopy: true}
	manualOff := Manual{Tag: DefaultManualSearchTag}

	tests := []struct {
		name   string
		tags   string
		manual Manual
		want   Decision
	}{
		{"rule copy", "movies,yts", manualOff, Decision{Copy: true, Reason: ReasonRule, Rule: "yts"}},
		{"substring", "yts-extra", manualOff, Decision{Copy: true, Reason: ReasonRule, Rule: "yts"}},
		{"first match wins", "hd-feed,yts", manualOff, Decision{Copy: true, Reason: ReasonRule, Rule: "yts"}},
		{"disabled rule stops walk", "hd-feed", manualOff, Decision{Reason: ReasonRuleDisabled, Rule: "hd"}},
		{"disabled rule then manual", "hd-feed,manual-search-autocopy", manualOn, Decision{Copy: true, Reason: ReasonManualSearch, Rule: "hd"}},
		{"manual only", "manual-search-autocopy", manualOn, Decision{Copy: true, Reason: ReasonManualSearch}},
		{"manual flag off", "manual-search-autocopy", manualOff, Decision{Reason: ReasonNoMatch}},
		{"empty label never matches", "", manualOn, Decision{Reason: ReasonNoMatch}},
		{"no match", "other", manualOn, Decision{Reason: ReasonNoMatch}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.tags, rules, tt.manual); got != tt.want {
				t.Fatalf("Match(%q) = %#v, want %#v", tt.tags, got, tt.want)
			}
		})
	}
}

func TestRulesFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Feeds = []config.Feed{
		{Name: "a", Label: "la", AutoCopy: true},
		{Name: "b", Label: "lb"},
	}
	cfg.AutoMatch.ManualSearchTag = ""
	cfg.AutoMatch.AutoCopyManualSearch = true

	rules, manual := RulesFromConfig(&cfg)
	if len(rules) != 2 || rules[0].Name != "a" || rules[1].Label != "lb" || !rules[0].AutoCopy {
		t.Fatalf("unexpected rules %#v", rules)
	}
	if manual.Tag != DefaultManualSearchTag || !manual.AutoCopy {
		t.Fatalf("unexpected manual rule %#v", manual)
	}
}
