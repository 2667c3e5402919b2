package session

import (
	"fmt"

	"github.com/embedstyle/stylehost/wire"
)

// CompileError is the compiler's reported compilation failure, surfaced to
// the caller of Compile.
type CompileError struct {
	Message    string
	Span       *wire.SourceSpan
	StackTrace string
}

func (e *CompileError) Error() string {
	if e.Span != nil {
		return fmt.Sprintf("compile error at %s:%d:%d: %s", e.Span.URL, e.Span.StartLine, e.Span.StartColumn, e.Message)
	}
	return fmt.Sprintf("compile error: %s", e.Message)
}

// HostError is a host-side precondition failure: an ambiguous importer, a
// malformed callback return, a missing absolute URL. Raised synchronously
// from the compile call, never sent over the wire as a protocol message.
type HostError struct {
	Message string
}

func (e *HostError) Error() string {
	return fmt.Sprintf("host error: %s", e.Message)
}

// ProtocolError signals a protocol invariant violation: decode failure, an
// unknown compilation id, an unsolicited response. Aborts the session that
// received it and, when it carries the sentinel unassociated id, aborts
// every live session on the channel.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s", e.Message)
}

// Aborted is the terminal state of a session that never reached a compile
// response: the subprocess died, the channel closed, or a protocol error
// fired for every live session.
type Aborted struct {
	Reason error
}

func (e *Aborted) Error() string {
	return fmt.Sprintf("compilation aborted: %v", e.Reason)
}

func (e *Aborted) Unwrap() error { return e.Reason }

// ErrClosed is returned by Compile once the owning host has been closed.
var ErrClosed = fmt.Errorf("session: host closed")
