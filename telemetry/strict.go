package telemetry

import (
	"context"
	"sync"
)

// StrictPolicy writes every event synchronously and never drops.
//
//   - No buffering: each event is written immediately.
//   - No drops: every event is persisted.
//   - Backpressure: the caller blocks on sink latency.
//   - Sink errors are recorded in Stats but never propagated back into the
//     compile that produced the event.
type StrictPolicy struct {
	sink Sink

	mu    sync.Mutex
	stats Stats
}

// NewStrictPolicy creates a strict policy writing to the given sink.
func NewStrictPolicy(sink Sink) *StrictPolicy {
	return &StrictPolicy{sink: sink}
}

// Record writes the event immediately to the sink (a batch of one).
func (p *StrictPolicy) Record(ctx context.Context, event *Event) error {
	p.mu.Lock()
	p.stats.TotalEvents++
	p.mu.Unlock()

	if err := p.sink.WriteEvents(ctx, []*Event{event}); err != nil {
		p.mu.Lock()
		p.stats.Errors++
		p.mu.Unlock()
		return err
	}

	p.mu.Lock()
	p.stats.EventsPersisted++
	p.mu.Unlock()
	return nil
}

// Flush is a no-op for strict policy: nothing is buffered.
func (p *StrictPolicy) Flush(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.FlushCount++
	return nil
}

// Close closes the underlying sink.
func (p *StrictPolicy) Close() error {
	return p.sink.Close()
}

// Stats returns an atomic snapshot of policy metrics.
func (p *StrictPolicy) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

var _ Policy = (*StrictPolicy)(nil)
