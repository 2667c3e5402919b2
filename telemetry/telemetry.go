// Package telemetry implements the ingestion policy for the host's
// diagnostic event stream: compiler log callbacks, protocol errors, and
// each compilation's terminal outcome. A policy controls whether that
// stream is written synchronously or buffered and batched, and which
// events it is allowed to drop under pressure.
//
// Telemetry is diagnostic, not part of the compile result: a policy
// failure is recorded in its own Stats and never turns a successful
// compile into a failed one.
package telemetry

import (
	"context"
	"sync"
)

// EventType discriminates what an Event carries.
type EventType string

const (
	// EventTypeLog is a best-effort diagnostic emitted mid-compile by the
	// compiler's warn/debug callbacks. Droppable under buffer pressure.
	EventTypeLog EventType = "log"
	// EventTypeTerminal is one compilation's terminal outcome (success,
	// compile error, or abort). Never dropped.
	EventTypeTerminal EventType = "terminal"
	// EventTypeProtocolError is an unassociated protocol failure that
	// aborted every live session on a channel. Never dropped.
	EventTypeProtocolError EventType = "protocol_error"
)

// droppableTypes narrows the reference stack's drop-eligibility table to
// this domain's event kinds: only best-effort log lines may be dropped.
var droppableTypes = map[EventType]bool{
	EventTypeLog: true,
}

// IsDroppable reports whether t may be dropped under buffer pressure.
func IsDroppable(t EventType) bool { return droppableTypes[t] }

// Event is one unit of telemetry handed to a Policy.
type Event struct {
	CompilationID uint32
	Type          EventType
	Message       string
	// Outcome is set on EventTypeTerminal: "success", "compile_error", or
	// "aborted".
	Outcome string
}

// Sink persists batches of events. Implementations may write to a file, a
// message queue, or discard entirely for testing.
type Sink interface {
	WriteEvents(ctx context.Context, events []*Event) error
	Close() error
}

// Policy controls buffering and drop behavior for the telemetry stream.
type Policy interface {
	// Record handles one event. May drop droppable event types under
	// buffer pressure; must not drop the rest.
	Record(ctx context.Context, event *Event) error
	// Flush writes any buffered data. Called on host close.
	Flush(ctx context.Context) error
	// Close flushes and releases policy resources.
	Close() error
	// Stats returns an atomic snapshot of policy metrics.
	Stats() Stats
}

// Stats mirrors the reference stack's policy observability shape, trimmed
// to the counters this domain's event stream needs (no artifact-chunk
// analog exists here).
type Stats struct {
	TotalEvents     int64
	EventsPersisted int64
	EventsDropped   int64
	BufferSize      int64
	FlushCount      int64
	Errors          int64
}

type statsRecorder struct {
	mu    sync.Mutex
	stats Stats
}

func newStatsRecorder() *statsRecorder { return &statsRecorder{} }

func (r *statsRecorder) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Locked methods: caller must hold BufferedPolicy.mu, matching the buffer
// state and stats counters atomically.

func (r *statsRecorder) incTotalEventsLocked()      { r.stats.TotalEvents++ }
func (r *statsRecorder) incPersistedLocked(n int64) { r.stats.EventsPersisted += n }
func (r *statsRecorder) incDroppedLocked()          { r.stats.EventsDropped++ }
func (r *statsRecorder) incErrorsLocked()           { r.stats.Errors++ }
func (r *statsRecorder) incFlushLocked()            { r.stats.FlushCount++ }
func (r *statsRecorder) setBufferSizeLocked(n int64) { r.stats.BufferSize = n }

func (r *statsRecorder) snapshotLocked(bufferSize int64) Stats {
	s := r.stats
	s.BufferSize = bufferSize
	return s
}
