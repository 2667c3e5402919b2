package telemetry_test

import (
	"errors"
	"testing"

	"github.com/embedstyle/stylehost/telemetry"
)

func TestStrictPolicy_WritesImmediately(t *testing.T) {
	sink := &stubSink{}
	pol := telemetry.NewStrictPolicy(sink)

	if err := pol.Record(t.Context(), terminalEvent("success")); err != nil {
		t.Fatalf("Record: %v", err)
	}

	if sink.eventsWritten != 1 {
		t.Errorf("eventsWritten = %d, want 1 (no buffering)", sink.eventsWritten)
	}
	if sink.batches != 1 {
		t.Errorf("batches = %d, want 1", sink.batches)
	}

	stats := pol.Stats()
	if stats.EventsPersisted != 1 {
		t.Errorf("EventsPersisted = %d, want 1", stats.EventsPersisted)
	}
}

func TestStrictPolicy_SinkErrorSurfacesAndCounts(t *testing.T) {
	sink := &stubSink{errOnWrite: errors.New("sink down")}
	pol := telemetry.NewStrictPolicy(sink)

	err := pol.Record(t.Context(), terminalEvent("success"))
	if err == nil {
		t.Fatal("expected sink error to surface")
	}

	stats := pol.Stats()
	if stats.Errors != 1 {
		t.Errorf("Errors = %d, want 1", stats.Errors)
	}
	if stats.EventsPersisted != 0 {
		t.Errorf("EventsPersisted = %d, want 0", stats.EventsPersisted)
	}
}

func TestStrictPolicy_CloseClosesSink(t *testing.T) {
	sink := &stubSink{}
	pol := telemetry.NewStrictPolicy(sink)

	if err := pol.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !sink.closed {
		t.Error("expected Close to close the sink")
	}
}
