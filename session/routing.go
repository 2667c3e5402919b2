package session

import (
	"fmt"

	"github.com/embedstyle/stylehost/wire"
)

// Notify implements dispatch.Observer. It is called from the subprocess
// channel's read loop (directly, for this session's own compilation id) or
// from the dispatcher's fallback broadcast (for protocol/transport errors
// and stray unrouted traffic). Per the routing rules: a message carrying a
// foreign compilation id is ignored; the sentinel protocol-error id aborts
// this session along with every other live session; everything else is
// dispatched by sub-message kind.
func (s *Session) Notify(msg *wire.Outbound, err error) {
	if err != nil {
		s.terminal.set(nil, &Aborted{Reason: err})
		return
	}
	if msg == nil {
		return
	}
	if msg.CompilationID == wire.ProtocolErrorID {
		message := "unassociated protocol error"
		if msg.ProtocolError != nil {
			message = msg.ProtocolError.Message
		}
		s.terminal.set(nil, &Aborted{Reason: &ProtocolError{Message: message}})
		return
	}
	if msg.CompilationID != s.id {
		return
	}

	switch msg.Kind {
	case wire.OutboundCompileResponse:
		s.handleCompileResponse(msg.CompileResponse)
	case wire.OutboundLogEvent:
		s.handleLogEvent(msg.LogEvent)
	case wire.OutboundFunctionCallRequest:
		s.dispatchCallback(func() { s.handleFunctionCall(msg.ID, msg.FunctionCallRequest) })
	case wire.OutboundCanonicalizeRequest:
		s.dispatchCallback(func() { s.handleCanonicalize(msg.ID, msg.CanonicalizeRequest) })
	case wire.OutboundImportRequest:
		s.dispatchCallback(func() { s.handleImport(msg.ID, msg.ImportRequest) })
	case wire.OutboundFileImportRequest:
		s.dispatchCallback(func() { s.handleFileImport(msg.ID, msg.FileImportRequest) })
	default:
		s.terminal.set(nil, &ProtocolError{Message: fmt.Sprintf("unsolicited message kind %q", msg.Kind)})
	}
}

func (s *Session) handleCompileResponse(resp *wire.CompileResponse) {
	if resp == nil {
		s.terminal.set(nil, &ProtocolError{Message: "compile response missing payload"})
		return
	}
	switch {
	case resp.Success != nil:
		s.terminal.set(&Result{
			CSS:        resp.Success.CSS,
			SourceMap:  resp.Success.SourceMap,
			LoadedURLs: resp.Success.LoadedURLs,
		}, nil)
	case resp.Failure != nil:
		s.terminal.set(nil, &CompileError{
			Message:    resp.Failure.Message,
			Span:       resp.Failure.Span,
			StackTrace: resp.Failure.StackTrace,
		})
	default:
		s.terminal.set(nil, &ProtocolError{Message: "compile response carries neither success nor failure"})
	}
}

func (s *Session) handleLogEvent(ev *wire.LogEvent) {
	if ev == nil {
		return
	}
	switch ev.Level {
	case wire.LogWarn:
		s.logger.Warn(ev.Message, nil)
	default:
		s.logger.Debug(ev.Message, nil)
	}
	s.hostLog.Debug("compiler log event", map[string]any{
		"level":   string(ev.Level),
		"message": ev.Message,
		"span":    fmtSpan(ev.Span),
	})
}
