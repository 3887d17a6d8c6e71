package main

import (
	"strings"
	"testing"

	"plexmover/internal/copyengine"
	"plexmover/internal/store"
)

func TestRenderStatusLine(t *testing.T) {
	line := renderStatusLine("Workflow", statusOK, "Running", false)
	if !strings.Contains(line, "Workflow:") || !strings.Contains(line, "[OK] Running") {
		t.Fatalf("unexpected line %q", line)
	}
	colored := renderStatusLine("Workflow", statusError, "down", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected red line, got %q", colored)
	}
}

func TestFormatHelpers(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{formatSize(512), "512 B"},
		{formatSize(1536), "1.5 KiB"},
		{formatSize(3 << 30), "3.0 GiB"},
		{formatPercent(0.256), "25.6%"},
		{shortHash("0123456789abcdef"), "0123456789ab"},
		{shortHash("abc"), "abc"},
		{colorStatus(store.StatusMoved, false), "moved"},
		{formatCopy(copyengine.Job{Status: copyengine.JobCopying, Percent: 42, SpeedMBps: 9.5}), "42.0% @ 9.5 MB/s"},
		{formatCopy(copyengine.Job{Status: copyengine.JobDone}), "done"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"only"}}, nil)
	if !strings.Contains(out, "only") || !strings.Contains(out, "A") {
		t.Fatalf("unexpected table %q", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty output without headers")
	}
}
