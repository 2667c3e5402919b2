// Package dispatch routes decoded outbound envelopes from the subprocess
// channel's read loop to the compilation session that owns them, with a
// fallback broadcast path for protocol errors unassociated with any
// compilation.
//
// This replaces a plain observer-broadcast shape with a routing table keyed
// by compilation id: lookups are O(1) instead of scanning every live
// session, and a session's own traffic never reaches an unrelated session.
package dispatch

import (
	"sync"

	"github.com/embedstyle/stylehost/wire"
)

// Observer receives messages routed to one compilation, plus fallback
// protocol errors if it has also registered as a fallback recipient.
// Observers must be non-blocking: long work must be offloaded by the
// observer itself, since Notify is called while iterating a snapshot.
type Observer interface {
	Notify(msg *wire.Outbound, err error)
}

// Dispatcher is the routing table. Zero value is not usable; use New.
type Dispatcher struct {
	mu        sync.Mutex
	routes    map[uint32]Observer
	fallback  map[uint32]Observer
	fallbackN uint32
}

// New creates an empty Dispatcher.
func New() *Dispatcher {
	return &Dispatcher{
		routes:   make(map[uint32]Observer),
		fallback: make(map[uint32]Observer),
	}
}

// Register installs obs as the routing target for compilationID.
// Registering twice for the same id replaces the previous observer; use
// Deregister with the same id to remove it.
func (d *Dispatcher) Register(compilationID uint32, obs Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.routes[compilationID] = obs
}

// Deregister removes the routing entry for compilationID, if present.
func (d *Dispatcher) Deregister(compilationID uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.routes, compilationID)
}

// FallbackToken identifies one fallback registration for deregistration.
type FallbackToken uint32

// RegisterFallback adds obs to the set that receives unassociated protocol
// errors (and, per the failure-of-one-affects-all rule, every live session
// must be registered here in addition to its own route). Returns a token
// for DeregisterFallback.
func (d *Dispatcher) RegisterFallback(obs Observer) FallbackToken {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fallbackN++
	tok := FallbackToken(d.fallbackN)
	d.fallback[uint32(tok)] = obs
	return tok
}

// DeregisterFallback removes a fallback registration by its token.
func (d *Dispatcher) DeregisterFallback(tok FallbackToken) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.fallback, uint32(tok))
}

// Notify routes msg (or a transport-fatal err, with msg nil) to the session
// owning its compilation id. A nil msg with a non-nil err, or a msg whose
// CompilationID is wire.ProtocolErrorID, is delivered to every fallback
// observer instead — this is how a transport failure or an unassociated
// protocol error reaches every live session.
//
// The routing lookup happens under the mutex; delivery itself happens on a
// snapshot taken after the mutex is released, so an observer may safely
// re-enter Register/Deregister from within Notify.
func (d *Dispatcher) Notify(msg *wire.Outbound, err error) {
	if err != nil || msg == nil || msg.CompilationID == wire.ProtocolErrorID {
		d.notifyFallback(msg, err)
		return
	}

	d.mu.Lock()
	obs, ok := d.routes[msg.CompilationID]
	d.mu.Unlock()

	if !ok {
		// No session is listening for this compilation id (already
		// resolved, or the compiler sent traffic for an id it was never
		// issued). There is no session left to fail, so fall back to
		// broadcast rather than silently drop it.
		d.notifyFallback(msg, err)
		return
	}

	obs.Notify(msg, nil)
}

func (d *Dispatcher) notifyFallback(msg *wire.Outbound, err error) {
	d.mu.Lock()
	snapshot := make([]Observer, 0, len(d.fallback))
	for _, obs := range d.fallback {
		snapshot = append(snapshot, obs)
	}
	d.mu.Unlock()

	for _, obs := range snapshot {
		obs.Notify(msg, err)
	}
}
