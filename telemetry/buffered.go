package telemetry

import (
	"context"
	"errors"
	"sync"

	"github.com/embedstyle/stylehost/log"
)

// BufferedConfig configures a BufferedPolicy.
type BufferedConfig struct {
	// MaxBufferEvents is the maximum number of events to buffer. Zero
	// means no limit (use MaxBufferBytes instead).
	MaxBufferEvents int
	// MaxBufferBytes is the estimated maximum buffer size in bytes. Zero
	// means no limit. At least one of the two limits must be set.
	MaxBufferBytes int64
	// Logger receives drop/overflow/flush-failure diagnostics. Optional.
	Logger *log.Logger
}

// DefaultBufferedConfig returns sensible defaults for buffered telemetry.
func DefaultBufferedConfig() BufferedConfig {
	return BufferedConfig{
		MaxBufferEvents: 1000,
		MaxBufferBytes:  1 * 1024 * 1024,
	}
}

// ErrBufferFull is returned when the buffer is full and the incoming
// event is non-droppable.
var ErrBufferFull = errors.New("telemetry: buffer full: cannot accept non-droppable event")

// ErrInvalidConfig is returned when BufferedConfig sets neither limit.
var ErrInvalidConfig = errors.New("telemetry: invalid config: at least one of MaxBufferEvents or MaxBufferBytes must be set")

// BufferedPolicy implements buffered telemetry with drop rules.
//
//   - Bounded buffer with explicit limits.
//   - May drop EventTypeLog; must not drop terminal outcomes or protocol
//     errors.
//   - Batches writes on Flush.
//
// The reference stack's buffered policy carries three flush modes to
// order artifact-chunk commits against event commits in an append-only
// dataset. This domain has no chunked-artifact analog — only one event
// stream — so a single at-least-once flush mode is carried: on failure
// every buffered event is kept intact so a retry never loses data, at the
// cost of possible duplicate writes.
type BufferedPolicy struct {
	sink   Sink
	config BufferedConfig
	logger *log.Logger

	mu          sync.Mutex // guards buffer state only
	buffer      []*Event
	bufferBytes int64
	stats       *statsRecorder
}

// NewBufferedPolicy creates a buffered policy. Returns an error if config
// sets neither buffer limit.
func NewBufferedPolicy(sink Sink, config BufferedConfig) (*BufferedPolicy, error) {
	if config.MaxBufferEvents <= 0 && config.MaxBufferBytes <= 0 {
		return nil, ErrInvalidConfig
	}
	return &BufferedPolicy{
		sink:   sink,
		config: config,
		logger: config.Logger,
		buffer: make([]*Event, 0, max(config.MaxBufferEvents, 100)),
		stats:  newStatsRecorder(),
	}, nil
}

// Record buffers event, applying drop rules if the buffer is full.
//
// Drop strategy when full:
//   - If the incoming event is droppable: drop it, record in stats.
//   - If non-droppable and the buffer has droppable events: evict the
//     oldest droppable event to make room.
//   - If non-droppable and no droppable events exist: return ErrBufferFull.
func (p *BufferedPolicy) Record(_ context.Context, event *Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.incTotalEventsLocked()
	size := estimateEventSize(event)

	if p.hasRoom(size) {
		p.append(event, size)
		return nil
	}

	if IsDroppable(event.Type) {
		p.stats.incDroppedLocked()
		p.logDrop(event, "buffer_full")
		return nil
	}

	if p.dropOldestDroppable() && p.hasRoom(size) {
		p.append(event, size)
		return nil
	}

	p.stats.incErrorsLocked()
	p.logOverflow(event)
	return ErrBufferFull
}

func (p *BufferedPolicy) append(event *Event, size int64) {
	p.buffer = append(p.buffer, event)
	p.bufferBytes += size
	p.stats.setBufferSizeLocked(p.bufferBytes)
}

func (p *BufferedPolicy) hasRoom(size int64) bool {
	if p.config.MaxBufferEvents > 0 && len(p.buffer) >= p.config.MaxBufferEvents {
		return false
	}
	if p.config.MaxBufferBytes > 0 && p.bufferBytes+size > p.config.MaxBufferBytes {
		return false
	}
	return true
}

// dropOldestDroppable evicts the oldest droppable event. Caller must hold
// p.mu. Returns whether an event was evicted.
func (p *BufferedPolicy) dropOldestDroppable() bool {
	for i, event := range p.buffer {
		if IsDroppable(event.Type) {
			size := estimateEventSize(event)
			p.buffer = append(p.buffer[:i], p.buffer[i+1:]...)
			p.bufferBytes -= size
			p.stats.setBufferSizeLocked(p.bufferBytes)
			p.stats.incDroppedLocked()
			p.logDrop(event, "evicted_for_non_droppable")
			return true
		}
	}
	return false
}

// Flush writes the entire buffer to the sink in one batch. On failure
// every buffered event is kept intact; on success the buffer is cleared.
func (p *BufferedPolicy) Flush(ctx context.Context) error {
	p.mu.Lock()
	p.stats.incFlushLocked()
	events := p.buffer
	p.mu.Unlock()

	if len(events) == 0 {
		return nil
	}

	if err := p.sink.WriteEvents(ctx, events); err != nil {
		p.mu.Lock()
		p.stats.incErrorsLocked()
		p.mu.Unlock()
		p.logFlushFailure(err)
		return err
	}

	p.mu.Lock()
	p.stats.incPersistedLocked(int64(len(events)))
	p.buffer = make([]*Event, 0, max(p.config.MaxBufferEvents, 100))
	p.bufferBytes = 0
	p.stats.setBufferSizeLocked(0)
	p.mu.Unlock()
	return nil
}

// Close flushes remaining data best-effort and closes the sink.
func (p *BufferedPolicy) Close() error {
	_ = p.Flush(context.Background())
	return p.sink.Close()
}

// Stats returns an atomic snapshot: the buffer mutex is held while
// reading, so the counters and buffer size are captured from one point
// in time.
func (p *BufferedPolicy) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats.snapshotLocked(p.bufferBytes)
}

func estimateEventSize(event *Event) int64 {
	return int64(64 + len(event.Message) + len(event.Outcome))
}

func (p *BufferedPolicy) logDrop(event *Event, reason string) {
	if p.logger == nil {
		return
	}
	p.logger.Warn("telemetry event dropped", map[string]any{
		"event_type": string(event.Type),
		"reason":     reason,
	})
}

func (p *BufferedPolicy) logOverflow(event *Event) {
	if p.logger == nil {
		return
	}
	p.logger.Error("telemetry buffer overflow", map[string]any{
		"event_type": string(event.Type),
	})
}

func (p *BufferedPolicy) logFlushFailure(err error) {
	if p.logger == nil {
		return
	}
	p.logger.Error("telemetry flush failed", map[string]any{
		"error": err.Error(),
	})
}

var _ Policy = (*BufferedPolicy)(nil)
