// Package session implements one compilation: allocating a compilation id,
// sending the compile request, routing every inbound-to-the-host message
// for that id, dispatching callback requests to application code, and
// resolving a single-assignment terminal result.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/embedstyle/stylehost/callback"
	"github.com/embedstyle/stylehost/dispatch"
	"github.com/embedstyle/stylehost/log"
	"github.com/embedstyle/stylehost/metrics"
	"github.com/embedstyle/stylehost/wire"
)

// Sender is the subset of subprocess.Channel a session needs: encoding and
// writing one inbound envelope. Defined here, not imported from
// subprocess, so tests can supply a fake without spinning up a real
// child process.
type Sender interface {
	Send(*wire.Inbound) error
}

// Request describes one compile job: an entry to compile, output options,
// and the callback surface available to the compiler for this compilation.
type Request struct {
	Entry                   wire.CompileEntry
	Style                   string
	SourceMap               bool
	SourceMapIncludeSources bool
	Charset                 bool
	QuietDeps               bool
	Verbose                 bool
	AlertASCII              bool
	AlertColor              bool
	LoadPaths               []string

	Functions *callback.FunctionTable
	Importers *callback.ImporterTable
	Logger    callback.Logger
}

// Result is a successful compile's output.
type Result struct {
	CSS        string
	SourceMap  string
	LoadedURLs []string
}

// maxConcurrentCallbacks bounds how many callback goroutines one session
// may run at once. Sized generously above any realistic compile's
// in-flight callback fan-out; it exists to cap a pathological compile,
// not to throttle ordinary ones.
const maxConcurrentCallbacks = 32

// Session runs one compilation against a shared subprocess channel.
type Session struct {
	id        uint32
	sender    Sender
	disp      *dispatch.Dispatcher
	req       *Request
	canon     *callback.CanonicalizeCache
	logger    callback.Logger
	hostLog   *log.Logger
	collector *metrics.Collector

	terminal *terminalSlot

	callbackSem chan struct{}
	callbackWG  sync.WaitGroup

	finishOnce sync.Once
	fallback   dispatch.FallbackToken
}

// New constructs a session for compilation id, which the caller (the host
// façade) must have already allocated from a strictly increasing counter.
func New(id uint32, sender Sender, disp *dispatch.Dispatcher, req *Request, hostLog *log.Logger, collector *metrics.Collector) *Session {
	logger := req.Logger
	if logger == nil {
		logger = callback.NopLogger{}
	}
	return &Session{
		id:          id,
		sender:      sender,
		disp:        disp,
		req:         req,
		canon:       callback.NewCanonicalizeCache(),
		logger:      logger,
		hostLog:     hostLog.WithCompilation(id),
		collector:   collector,
		terminal:    newTerminalSlot(),
		callbackSem: make(chan struct{}, maxConcurrentCallbacks),
	}
}

// dispatchCallback runs fn on a fresh goroutine, gated by the session's
// bounded callback semaphore: the goroutine is spawned immediately (so
// Notify's caller, the dispatcher's read loop, never blocks), but fn
// itself only runs once a pool slot is free, capping how many callback
// handlers execute concurrently per session.
func (s *Session) dispatchCallback(fn func()) {
	s.callbackWG.Add(1)
	go func() {
		defer s.callbackWG.Done()
		s.callbackSem <- struct{}{}
		defer func() { <-s.callbackSem }()
		fn()
	}()
}

// Run registers the session, sends the compile request, and blocks until
// a terminal result is available or ctx is canceled. Cancellation does not
// abort the in-flight compile on the subprocess side (there is no per-
// request cancellation in the embedded protocol); it only stops this call
// from waiting, per the documented "no per-request timeouts" policy.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	s.disp.Register(s.id, s)
	s.fallback = s.disp.RegisterFallback(s)
	s.collector.IncCompileStarted()

	entrypointID := s.req.Importers.Entrypoint
	var entrypointPtr *uint32
	if entrypointID != 0 {
		entrypointPtr = &entrypointID
	}

	envelope := &wire.Inbound{
		Kind:          wire.InboundCompileRequest,
		CompilationID: s.id,
		CompileRequest: &wire.CompileRequest{
			Entry:                   s.req.Entry,
			Style:                   s.req.Style,
			SourceMap:               s.req.SourceMap,
			SourceMapIncludeSources: s.req.SourceMapIncludeSources,
			Charset:                 s.req.Charset,
			QuietDeps:               s.req.QuietDeps,
			Verbose:                 s.req.Verbose,
			AlertAscii:              s.req.AlertASCII,
			AlertColor:              s.req.AlertColor,
			LoadPaths:               s.req.LoadPaths,
			ImporterIDs:             s.req.Importers.List,
			EntrypointImporterID:    entrypointPtr,
			FunctionSignatures:      s.req.Functions.Signatures(),
		},
	}

	if err := s.sender.Send(envelope); err != nil {
		s.finish()
		s.collector.IncCompileAborted()
		return nil, &Aborted{Reason: err}
	}

	select {
	case <-s.terminal.done:
	case <-ctx.Done():
		s.terminal.set(nil, ctx.Err())
	}

	result, err := s.terminal.wait()
	s.finish()

	switch {
	case err == nil:
		s.collector.IncCompileSucceeded()
	case isAborted(err):
		s.collector.IncCompileAborted()
	default:
		s.collector.IncCompileFailed()
	}

	return result, err
}

func isAborted(err error) bool {
	_, ok := err.(*Aborted)
	return ok
}

// finish deregisters the session from both the direct route and the
// fallback broadcast set. Guarded by sync.Once since Run's two exit paths
// (terminal resolved, context canceled) both reach it.
func (s *Session) finish() {
	s.finishOnce.Do(func() {
		s.disp.Deregister(s.id)
		s.disp.DeregisterFallback(s.fallback)
	})
}

func fmtSpan(span *wire.SourceSpan) string {
	if span == nil {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", span.URL, span.StartLine, span.StartColumn)
}
