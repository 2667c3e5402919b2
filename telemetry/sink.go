package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// WriterSink persists events as newline-delimited JSON to an underlying
// writer. Safe for concurrent use.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
	enc *json.Encoder
}

// NewWriterSink creates a sink writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w, enc: json.NewEncoder(w)}
}

// WriteEvents writes each event as one JSON line, in order.
func (s *WriterSink) WriteEvents(_ context.Context, events []*Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		if err := s.enc.Encode(e); err != nil {
			return fmt.Errorf("telemetry: write event: %w", err)
		}
	}
	return nil
}

// Close is a no-op: WriterSink does not own w's lifecycle.
func (s *WriterSink) Close() error { return nil }

// NopSink discards every event. Used where telemetry is enabled in shape
// but the caller has no durable destination configured.
type NopSink struct{}

func (NopSink) WriteEvents(context.Context, []*Event) error { return nil }
func (NopSink) Close() error                                { return nil }

var (
	_ Sink = (*WriterSink)(nil)
	_ Sink = NopSink{}
)
