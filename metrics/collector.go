// Package metrics provides per-host metrics collection.
//
// The Collector accumulates counters across every compilation run through
// one host instance. It is a leaf package with no internal dependencies.
// Telemetry policy stats enter the collector only through
// AbsorbTelemetryStats rather than being recorded live, avoiding double-counting between the session's own
// per-callback bookkeeping and the telemetry sink's drop accounting.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all metrics. Returned by
// Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Compilation lifecycle
	CompilesStarted  int64
	CompilesSucceeded int64
	CompilesFailed   int64
	CompilesAborted  int64

	// Callback dispatch, by kind
	FunctionCalls        int64
	CanonicalizeRequests int64
	ImportRequests       int64
	FileImportRequests   int64
	LogEvents            int64

	// Transport / protocol
	ProtocolErrors  int64
	TransportErrors int64

	// Telemetry (absorbed from telemetry.Stats at session completion)
	TelemetryEventsReceived  int64
	TelemetryEventsPersisted int64
	TelemetryEventsDropped   int64

	// Archive
	ArchiveWriteSuccess int64
	ArchiveWriteFailure int64

	// Dimensions (informational, set at construction)
	Telemetry string
	Archive   string
}

// Collector accumulates metrics across a host instance's lifetime.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe,
// so a host constructed without metrics enabled can pass a nil *Collector
// everywhere without a stream of nil checks at call sites.
type Collector struct {
	mu sync.Mutex

	compilesStarted   int64
	compilesSucceeded int64
	compilesFailed    int64
	compilesAborted   int64

	functionCalls        int64
	canonicalizeRequests int64
	importRequests       int64
	fileImportRequests   int64
	logEvents            int64

	protocolErrors  int64
	transportErrors int64

	telemetryEventsReceived  int64
	telemetryEventsPersisted int64
	telemetryEventsDropped   int64

	archiveWriteSuccess int64
	archiveWriteFailure int64

	telemetry string
	archive   string
}

// NewCollector creates a Collector with dimension labels describing which
// telemetry policy and archive backend this host was constructed with.
func NewCollector(telemetry, archive string) *Collector {
	return &Collector{telemetry: telemetry, archive: archive}
}

// --- Compilation lifecycle ---

func (c *Collector) IncCompileStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.compilesStarted++
	c.mu.Unlock()
}

func (c *Collector) IncCompileSucceeded() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.compilesSucceeded++
	c.mu.Unlock()
}

func (c *Collector) IncCompileFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.compilesFailed++
	c.mu.Unlock()
}

func (c *Collector) IncCompileAborted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.compilesAborted++
	c.mu.Unlock()
}

// --- Callback dispatch ---

func (c *Collector) IncFunctionCall() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.functionCalls++
	c.mu.Unlock()
}

func (c *Collector) IncCanonicalizeRequest() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.canonicalizeRequests++
	c.mu.Unlock()
}

func (c *Collector) IncImportRequest() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.importRequests++
	c.mu.Unlock()
}

func (c *Collector) IncFileImportRequest() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.fileImportRequests++
	c.mu.Unlock()
}

func (c *Collector) IncLogEvent() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.logEvents++
	c.mu.Unlock()
}

// --- Transport / protocol ---

func (c *Collector) IncProtocolError() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.protocolErrors++
	c.mu.Unlock()
}

func (c *Collector) IncTransportError() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.transportErrors++
	c.mu.Unlock()
}

// --- Archive ---

func (c *Collector) IncArchiveWriteSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.archiveWriteSuccess++
	c.mu.Unlock()
}

func (c *Collector) IncArchiveWriteFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.archiveWriteFailure++
	c.mu.Unlock()
}

// --- Telemetry (absorbed from telemetry.Stats) ---

// AbsorbTelemetryStats adds counters from a telemetry policy's Stats to
// the collector's running totals; each call adds to what earlier calls
// added.
func (c *Collector) AbsorbTelemetryStats(received, persisted, dropped int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.telemetryEventsReceived += received
	c.telemetryEventsPersisted += persisted
	c.telemetryEventsDropped += dropped
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		CompilesStarted:   c.compilesStarted,
		CompilesSucceeded: c.compilesSucceeded,
		CompilesFailed:    c.compilesFailed,
		CompilesAborted:   c.compilesAborted,

		FunctionCalls:        c.functionCalls,
		CanonicalizeRequests: c.canonicalizeRequests,
		ImportRequests:       c.importRequests,
		FileImportRequests:   c.fileImportRequests,
		LogEvents:            c.logEvents,

		ProtocolErrors:  c.protocolErrors,
		TransportErrors: c.transportErrors,

		TelemetryEventsReceived:  c.telemetryEventsReceived,
		TelemetryEventsPersisted: c.telemetryEventsPersisted,
		TelemetryEventsDropped:   c.telemetryEventsDropped,

		ArchiveWriteSuccess: c.archiveWriteSuccess,
		ArchiveWriteFailure: c.archiveWriteFailure,

		Telemetry: c.telemetry,
		Archive:   c.archive,
	}
}
