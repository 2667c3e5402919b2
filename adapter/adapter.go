// Package adapter defines the event-bus adapter boundary for publishing
// compile completion notifications to downstream systems.
//
// The host owns adapter lifecycle; callers provide configuration only.
package adapter

import "context"

// CompileCompletedEvent is the payload published when one compilation
// finishes, successfully or not.
type CompileCompletedEvent struct {
	CompilationID uint32 `json:"compilation_id"`
	EventType     string `json:"event_type"` // always "compile_completed"
	Source        string `json:"source"`     // the compile entry's data or path, truncated
	Outcome       string `json:"outcome"`    // success, compile_error, aborted
	ErrorMessage  string `json:"error_message,omitempty"`
	LoadedURLs    int    `json:"loaded_urls"`
	Timestamp     string `json:"timestamp"` // ISO 8601
	DurationMs    int64  `json:"duration_ms"`
}

// Adapter publishes compile completion events to a downstream system.
// Implementations must be safe for single-use per compilation.
type Adapter interface {
	// Publish sends a compile completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *CompileCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}
