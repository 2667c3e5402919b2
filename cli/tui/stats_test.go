package tui

import (
	"strings"
	"testing"

	"github.com/embedstyle/stylehost/metrics"
)

func TestRenderStatsStatic_Metrics(t *testing.T) {
	snap := metrics.Snapshot{
		CompilesStarted:   5,
		CompilesSucceeded: 4,
		CompilesFailed:    1,
		Telemetry:         "strict",
		Archive:           "fs",
	}

	out := RenderStatsStatic("stats_metrics", snap)
	if !strings.Contains(out, "Host Metrics") {
		t.Errorf("expected title in output, got: %s", out)
	}
	if !strings.Contains(out, "strict") || !strings.Contains(out, "fs") {
		t.Errorf("expected dimension labels in output, got: %s", out)
	}
}

func TestRenderStatsStatic_WrongDataType(t *testing.T) {
	out := RenderStatsStatic("stats_metrics", "not a snapshot")
	if !strings.Contains(out, "Invalid data type") {
		t.Errorf("expected invalid-type message, got: %s", out)
	}
}

func TestRenderStatsStatic_UnknownViewType(t *testing.T) {
	out := RenderStatsStatic("stats_unknown", nil)
	if !strings.Contains(out, "Unknown view type") {
		t.Errorf("expected unknown-view message, got: %s", out)
	}
}
