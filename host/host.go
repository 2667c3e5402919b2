// Package host is the application-facing façade over one compiler
// subprocess: it owns the channel for the process lifetime, allocates
// compilation ids, runs sessions against the shared channel, and wires
// each session's terminal outcome into the optional telemetry policy,
// metrics collector, archive store, and completion adapters. None of
// those four concerns are visible to session/dispatch/subprocess/wire;
// they are assembled here, around the core, not inside it.
package host

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/embedstyle/stylehost/adapter"
	"github.com/embedstyle/stylehost/archive"
	"github.com/embedstyle/stylehost/dispatch"
	"github.com/embedstyle/stylehost/launcher"
	"github.com/embedstyle/stylehost/log"
	"github.com/embedstyle/stylehost/metrics"
	"github.com/embedstyle/stylehost/session"
	"github.com/embedstyle/stylehost/subprocess"
	"github.com/embedstyle/stylehost/telemetry"
	"github.com/embedstyle/stylehost/wire"
)

// CloseGracePeriod is how long Close waits for callback goroutines still
// running against the subprocess to finish before the channel is torn
// down out from under them. Chosen to bound worst-case Close latency
// while giving the common case — a synchronous function call doing
// string/number arithmetic — time to return normally.
const CloseGracePeriod = 2 * time.Second

// Config configures a Host's subprocess launch and optional ambient
// components. Only Resolved and Codec are required.
type Config struct {
	// Resolved is the verified compiler executable (see launcher.Resolve).
	Resolved *launcher.Resolved
	// Args are additional arguments passed to the compiler binary.
	Args []string
	// Codec encodes inbound and decodes outbound envelopes.
	Codec wire.Codec
	// Logger receives structured diagnostics. Defaults to log.New() if nil.
	Logger *log.Logger

	// Telemetry, if non-nil, records a Terminal event for every session's
	// outcome. Channel-level failures are not recorded as separate events.
	Telemetry telemetry.Policy
	// Archive, if non-nil, persists a durable record of every compile
	// outcome. Archive writes are best-effort: a failure is logged and
	// counted, never returned from Compile.
	Archive archive.Store
	// Adapters are notified, best-effort, of every compile outcome after
	// the archive write (if any) completes.
	Adapters []adapter.Adapter
}

// Host owns one compiler subprocess channel for its entire lifetime.
type Host struct {
	channel    *subprocess.Channel
	dispatcher *dispatch.Dispatcher
	logger     *log.Logger
	collector  *metrics.Collector

	telemetry telemetry.Policy
	archive   archive.Store
	adapters  []adapter.Adapter

	nextID uint32
	closed atomic.Bool
}

// New starts the compiler subprocess and returns a ready Host. The
// channel is created eagerly: there is no lazy first-compile launch.
func New(ctx context.Context, cfg Config) (*Host, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New()
	}

	telemetryDim := "none"
	if cfg.Telemetry != nil {
		telemetryDim = telemetryDimension(cfg.Telemetry)
	}
	archiveDim := "none"
	if cfg.Archive != nil {
		archiveDim = archiveDimension(cfg.Archive)
	}
	collector := metrics.NewCollector(telemetryDim, archiveDim)

	disp := dispatch.New()

	channel, err := subprocess.Start(ctx, subprocess.Config{
		CompilerPath: cfg.Resolved.Path,
		Args:         cfg.Args,
		Codec:        cfg.Codec,
		Dispatcher:   disp,
		Logger:       logger,
		Collector:    collector,
	})
	if err != nil {
		return nil, err
	}

	return &Host{
		channel:    channel,
		dispatcher: disp,
		logger:     logger,
		collector:  collector,
		telemetry:  cfg.Telemetry,
		archive:    cfg.Archive,
		adapters:   cfg.Adapters,
	}, nil
}

// Compile runs one compilation to completion: allocates a strictly
// increasing compilation id, runs a session against the shared channel,
// and wires the terminal outcome into telemetry, archive, and completion
// adapters before returning. Fails with a *wire.TransportClosed if the
// host has already been closed.
func (h *Host) Compile(ctx context.Context, req *session.Request) (*session.Result, error) {
	if h.closed.Load() {
		return nil, &wire.TransportClosed{During: "closed", Err: session.ErrClosed}
	}

	id := atomic.AddUint32(&h.nextID, 1)
	start := time.Now()

	sess := session.New(id, h.channel, h.dispatcher, req, h.logger, h.collector)
	result, err := sess.Run(ctx)

	h.recordOutcome(ctx, id, req, result, err, time.Since(start))

	return result, err
}

// Close aborts every live session, then sleeps for the full
// CloseGracePeriod so callback goroutines dispatched against them can
// finish on their own, then tears down the subprocess channel
// unconditionally. The sleep does not end early when the callbacks finish
// sooner. Idempotent.
// Compile calls issued after Close returns TransportClosed.
func (h *Host) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}

	h.dispatcher.Notify(nil, &wire.TransportClosed{During: "closed", Err: session.ErrClosed})
	time.Sleep(CloseGracePeriod)

	if err := h.channel.Close(); err != nil {
		return err
	}
	if h.telemetry != nil {
		_ = h.telemetry.Close()
	}
	if h.archive != nil {
		_ = h.archive.Close()
	}
	for _, a := range h.adapters {
		_ = a.Close()
	}
	return nil
}

// Metrics returns a point-in-time snapshot of accumulated metrics.
func (h *Host) Metrics() metrics.Snapshot {
	return h.collector.Snapshot()
}

// recordOutcome wires one compilation's terminal outcome into telemetry,
// the archive store, and completion adapters. Every step is best-effort:
// a failure here is logged and counted, never surfaced from Compile,
// since these are ambient concerns layered around the compile result,
// not part of it.
func (h *Host) recordOutcome(ctx context.Context, id uint32, req *session.Request, result *session.Result, compileErr error, duration time.Duration) {
	outcome, errMessage := classifyOutcome(compileErr)
	source := sourceLabel(req.Entry)
	loadedURLs := 0
	if result != nil {
		loadedURLs = len(result.LoadedURLs)
	}

	if h.telemetry != nil {
		event := &telemetry.Event{
			CompilationID: id,
			Type:          telemetry.EventTypeTerminal,
			Outcome:       outcome,
			Message:       errMessage,
		}
		if err := h.telemetry.Record(ctx, event); err != nil {
			h.logger.Warn("telemetry record failed", map[string]any{"compilation_id": id, "error": err.Error()})
		}
	}

	if h.archive != nil {
		record := &archive.Record{
			CompilationID: id,
			Source:        source,
			Day:           time.Now().UTC().Format("2006-01-02"),
			Outcome:       outcome,
			ErrorMessage:  errMessage,
			Timestamp:     time.Now().UTC().Format(time.RFC3339),
		}
		if result != nil {
			record.CSS = result.CSS
			record.SourceMap = result.SourceMap
			record.LoadedURLs = result.LoadedURLs
		}
		if err := h.archive.Put(ctx, record); err != nil {
			h.collector.IncArchiveWriteFailure()
			h.logger.Warn("archive write failed", map[string]any{"compilation_id": id, "error": err.Error()})
		} else {
			h.collector.IncArchiveWriteSuccess()
		}
	}

	if len(h.adapters) > 0 {
		event := &adapter.CompileCompletedEvent{
			CompilationID: id,
			EventType:     "compile_completed",
			Source:        source,
			Outcome:       outcome,
			ErrorMessage:  errMessage,
			LoadedURLs:    loadedURLs,
			Timestamp:     time.Now().UTC().Format(time.RFC3339),
			DurationMs:    duration.Milliseconds(),
		}
		for _, a := range h.adapters {
			if err := a.Publish(ctx, event); err != nil {
				h.logger.Warn("adapter publish failed", map[string]any{"compilation_id": id, "error": err.Error()})
			}
		}
	}
}

// classifyOutcome maps a Compile result into the outcome vocabulary
// shared by telemetry, archive, and adapters: "success", "compile_error",
// or "aborted".
func classifyOutcome(err error) (outcome, message string) {
	if err == nil {
		return "success", ""
	}
	var compileErr *session.CompileError
	if errors.As(err, &compileErr) {
		return "compile_error", compileErr.Error()
	}
	return "aborted", err.Error()
}

// sourceLabel derives a short human-readable identifier for a compile
// entry, truncated so it is safe to use as a Hive partition value and a
// log/event field.
func sourceLabel(entry wire.CompileEntry) string {
	var s string
	switch {
	case entry.Path != nil:
		s = *entry.Path
	case entry.URL != "":
		s = entry.URL
	case entry.Data != nil:
		s = "<inline>"
	default:
		s = "<unknown>"
	}
	const maxLen = 200
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}

func telemetryDimension(p telemetry.Policy) string {
	switch p.(type) {
	case *telemetry.StrictPolicy:
		return "strict"
	case *telemetry.BufferedPolicy:
		return "buffered"
	default:
		return "custom"
	}
}

func archiveDimension(s archive.Store) string {
	switch s.(type) {
	case *archive.FSStore:
		return "fs"
	case *archive.S3Store:
		return "s3"
	default:
		return "custom"
	}
}
