package telemetry_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/embedstyle/stylehost/telemetry"
)

// stubSink is a test sink that accepts writes without persisting,
// tracking batch shape for assertions.
type stubSink struct {
	mu            sync.Mutex
	eventsWritten int64
	batches       int64
	closed        bool
	errOnWrite    error
}

func (s *stubSink) WriteEvents(_ context.Context, events []*telemetry.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errOnWrite != nil {
		return s.errOnWrite
	}
	s.batches++
	s.eventsWritten += int64(len(events))
	return nil
}

func (s *stubSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func mustNewBufferedPolicy(t *testing.T, sink telemetry.Sink, config telemetry.BufferedConfig) *telemetry.BufferedPolicy {
	t.Helper()
	pol, err := telemetry.NewBufferedPolicy(sink, config)
	if err != nil {
		t.Fatalf("NewBufferedPolicy: %v", err)
	}
	return pol
}

func logEvent(msg string) *telemetry.Event {
	return &telemetry.Event{Type: telemetry.EventTypeLog, Message: msg}
}

func terminalEvent(outcome string) *telemetry.Event {
	return &telemetry.Event{Type: telemetry.EventTypeTerminal, Outcome: outcome}
}

func TestBufferedPolicy_BuffersEvents(t *testing.T) {
	sink := &stubSink{}
	pol := mustNewBufferedPolicy(t, sink, telemetry.BufferedConfig{MaxBufferEvents: 10})

	for i := 0; i < 3; i++ {
		if err := pol.Record(t.Context(), terminalEvent("success")); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	if sink.eventsWritten != 0 {
		t.Errorf("expected 0 events written before flush, got %d", sink.eventsWritten)
	}

	stats := pol.Stats()
	if stats.TotalEvents != 3 {
		t.Errorf("TotalEvents = %d, want 3", stats.TotalEvents)
	}
	if stats.EventsPersisted != 0 {
		t.Errorf("EventsPersisted = %d, want 0 before flush", stats.EventsPersisted)
	}
}

func TestBufferedPolicy_FlushWritesBatch(t *testing.T) {
	sink := &stubSink{}
	pol := mustNewBufferedPolicy(t, sink, telemetry.BufferedConfig{MaxBufferEvents: 10})

	for i := 0; i < 5; i++ {
		_ = pol.Record(t.Context(), terminalEvent("success"))
	}

	if err := pol.Flush(t.Context()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if sink.eventsWritten != 5 {
		t.Errorf("eventsWritten = %d, want 5", sink.eventsWritten)
	}
	if sink.batches != 1 {
		t.Errorf("batches = %d, want 1 (single batch, not 5)", sink.batches)
	}

	stats := pol.Stats()
	if stats.EventsPersisted != 5 {
		t.Errorf("EventsPersisted = %d, want 5", stats.EventsPersisted)
	}
	if stats.FlushCount != 1 {
		t.Errorf("FlushCount = %d, want 1", stats.FlushCount)
	}
}

func TestBufferedPolicy_DropsLogEventWhenFull(t *testing.T) {
	sink := &stubSink{}
	pol := mustNewBufferedPolicy(t, sink, telemetry.BufferedConfig{MaxBufferEvents: 3})

	for i := 0; i < 3; i++ {
		if err := pol.Record(t.Context(), terminalEvent("success")); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	if err := pol.Record(t.Context(), logEvent("warn: deprecated")); err != nil {
		t.Fatalf("Record: %v", err)
	}

	stats := pol.Stats()
	if stats.EventsDropped != 1 {
		t.Errorf("EventsDropped = %d, want 1", stats.EventsDropped)
	}
}

func TestBufferedPolicy_EvictsOldestDroppableForNonDroppable(t *testing.T) {
	sink := &stubSink{}
	pol := mustNewBufferedPolicy(t, sink, telemetry.BufferedConfig{MaxBufferEvents: 2})

	if err := pol.Record(t.Context(), logEvent("first log")); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := pol.Record(t.Context(), terminalEvent("success")); err != nil {
		t.Fatalf("Record: %v", err)
	}

	// Buffer is full (2/2); the next non-droppable event must evict the
	// buffered log line rather than fail.
	if err := pol.Record(t.Context(), terminalEvent("compile_error")); err != nil {
		t.Fatalf("Record should evict, not fail: %v", err)
	}

	stats := pol.Stats()
	if stats.EventsDropped != 1 {
		t.Errorf("EventsDropped = %d, want 1 (the evicted log line)", stats.EventsDropped)
	}
}

func TestBufferedPolicy_ErrBufferFullWhenNoDroppableToEvict(t *testing.T) {
	sink := &stubSink{}
	pol := mustNewBufferedPolicy(t, sink, telemetry.BufferedConfig{MaxBufferEvents: 1})

	if err := pol.Record(t.Context(), terminalEvent("success")); err != nil {
		t.Fatalf("Record: %v", err)
	}

	err := pol.Record(t.Context(), terminalEvent("aborted"))
	if !errors.Is(err, telemetry.ErrBufferFull) {
		t.Errorf("expected ErrBufferFull, got %v", err)
	}
}

func TestBufferedPolicy_FlushFailureKeepsBuffer(t *testing.T) {
	sink := &stubSink{errOnWrite: errors.New("sink down")}
	pol := mustNewBufferedPolicy(t, sink, telemetry.BufferedConfig{MaxBufferEvents: 10})

	_ = pol.Record(t.Context(), terminalEvent("success"))

	if err := pol.Flush(t.Context()); err == nil {
		t.Fatal("expected flush error")
	}

	stats := pol.Stats()
	if stats.TotalEvents != 1 {
		t.Errorf("TotalEvents = %d, want 1 (buffer preserved on flush failure)", stats.TotalEvents)
	}
	if stats.EventsPersisted != 0 {
		t.Errorf("EventsPersisted = %d, want 0", stats.EventsPersisted)
	}
}

func TestNewBufferedPolicy_RejectsEmptyConfig(t *testing.T) {
	_, err := telemetry.NewBufferedPolicy(&stubSink{}, telemetry.BufferedConfig{})
	if !errors.Is(err, telemetry.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestBufferedPolicy_CloseFlushesAndClosesSink(t *testing.T) {
	sink := &stubSink{}
	pol := mustNewBufferedPolicy(t, sink, telemetry.BufferedConfig{MaxBufferEvents: 10})
	_ = pol.Record(t.Context(), terminalEvent("success"))

	if err := pol.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if sink.eventsWritten != 1 {
		t.Errorf("expected Close to flush, eventsWritten = %d", sink.eventsWritten)
	}
	if !sink.closed {
		t.Error("expected Close to close the sink")
	}
}
