package callback

import (
	"fmt"
	"strings"
	"sync"

	"github.com/embedstyle/stylehost/value"
)

// Function is a custom function callback: given decoded arguments, produce
// a result value or an error. Errors returned here are never propagated as
// Go errors across the wire boundary; the session serializes them into an
// error response that the compiler turns into a CompileError at the call
// site.
type Function func(args []value.Value) (value.Value, error)

// ImportResult is what Importer.Load returns for a successful lookup.
type ImportResult struct {
	Contents     string
	Syntax       string // one of "scss", "indented", "css"
	SourceMapURL string // empty if none
}

// Importer resolves and loads stylesheet URLs referenced by @use, @forward,
// @import, and meta.load-css.
type Importer interface {
	// Canonicalize returns the absolute canonical URL for url, or ("", nil)
	// to defer to the next importer/load path.
	Canonicalize(url string, fromImport bool) (string, error)
	// Load returns the contents behind a canonical URL previously returned
	// by Canonicalize, or (nil, nil) if not found.
	Load(canonicalURL string) (*ImportResult, error)
}

// FileImporter resolves URLs directly to filesystem locations.
type FileImporter interface {
	// FindFileURL returns an absolute file: URL, or ("", nil) if not found.
	FindFileURL(url string, fromImport bool) (string, error)
}

// Logger receives best-effort diagnostic callbacks from the compiler.
type Logger interface {
	Warn(message string, span *value.Value)
	Debug(message string, span *value.Value)
}

// NopLogger discards every log callback.
type NopLogger struct{}

func (NopLogger) Warn(string, *value.Value)  {}
func (NopLogger) Debug(string, *value.Value) {}

// FunctionTable is the two-phase-registered set of custom functions for one
// compilation, keyed by dash-normalized canonical name.
type FunctionTable struct {
	byName map[string]registeredFunction
	byID   map[uint32]registeredFunction
	nextID uint32
}

type registeredFunction struct {
	id  uint32
	sig *Signature
	fn  Function
}

// NewFunctionTable creates an empty function table.
func NewFunctionTable() *FunctionTable {
	return &FunctionTable{
		byName: make(map[string]registeredFunction),
		byID:   make(map[uint32]registeredFunction),
	}
}

// Register parses sigRaw eagerly and adds fn under its canonical name.
// Returns a HostError-worthy error immediately for an invalid signature,
// rather than deferring the failure to call time.
func (t *FunctionTable) Register(sigRaw string, fn Function) error {
	sig, err := ParseSignature(sigRaw)
	if err != nil {
		return err
	}
	t.nextID++
	rf := registeredFunction{id: t.nextID, sig: sig, fn: fn}
	t.byName[sig.CanonicalName] = rf
	t.byID[rf.id] = rf
	return nil
}

// Lookup finds a function by its wire id, falling back to a dash-normalized
// name lookup when no function is registered under id (the compiler may
// reference a function by signature alone on its first call). name may be
// a bare name or a full signature; only the part before '(' is compared.
func (t *FunctionTable) Lookup(id uint32, name string) (Function, *Signature, bool) {
	if rf, ok := t.byID[id]; ok {
		return rf.fn, rf.sig, true
	}
	if open := strings.IndexByte(name, '('); open >= 0 {
		name = name[:open]
	}
	if rf, ok := t.byName[Normalize(name)]; ok {
		return rf.fn, rf.sig, true
	}
	return nil, nil, false
}

// Signatures returns every registered signature's original spelling, in
// registration order by id, for inclusion in the compile request.
func (t *FunctionTable) Signatures() []string {
	out := make([]string, 0, len(t.byID))
	for id := uint32(1); id <= t.nextID; id++ {
		if rf, ok := t.byID[id]; ok {
			out = append(out, rf.sig.Raw)
		}
	}
	return out
}

// ImporterKind distinguishes a full Importer from a FileImporter for
// registration-time ambiguity checking.
type ImporterKind int

const (
	ImporterKindURL ImporterKind = iota
	ImporterKindFile
)

// ImporterEntry is one registered importer or file importer, assigned an id
// in a session-local namespace distinct across the importer list and the
// per-entrypoint slot (per the open-question resolution in SPEC_FULL.md:
// the same Importer value placed in both slots still gets two distinct ids).
type ImporterEntry struct {
	ID   uint32
	Kind ImporterKind
	URL  Importer
	File FileImporter
}

// ImporterTable holds every importer and file importer registered for one
// compilation: the ordered importer list, the optional per-entrypoint
// importer, and a flat id-indexed lookup for dispatching compiler requests.
type ImporterTable struct {
	entries []*ImporterEntry
	byID    map[uint32]*ImporterEntry
	nextID  uint32

	// Entrypoint is the per-entrypoint importer's id, or 0 if none was
	// supplied. It takes precedence over List for relative URLs but is a
	// distinct id from any matching entry in List.
	Entrypoint uint32
	List       []uint32
}

// NewImporterTable creates an empty importer table.
func NewImporterTable() *ImporterTable {
	return &ImporterTable{byID: make(map[uint32]*ImporterEntry)}
}

// RegisterImporter adds a URL importer to the ordered importer list.
func (t *ImporterTable) RegisterImporter(imp Importer) (uint32, error) {
	return t.register(ImporterKindURL, imp, nil, true)
}

// RegisterFileImporter adds a file importer to the ordered importer list.
func (t *ImporterTable) RegisterFileImporter(fi FileImporter) (uint32, error) {
	return t.register(ImporterKindFile, nil, fi, true)
}

// RegisterEntrypointImporter sets the per-entrypoint importer slot.
// Rejects an object that implements both Importer and FileImporter per the
// spec's "ambiguous callback object" registration rule.
func (t *ImporterTable) RegisterEntrypointImporter(imp Importer) (uint32, error) {
	id, err := t.register(ImporterKindURL, imp, nil, false)
	if err != nil {
		return 0, err
	}
	t.Entrypoint = id
	return id, nil
}

func (t *ImporterTable) register(kind ImporterKind, imp Importer, fi FileImporter, addToList bool) (uint32, error) {
	_, impIsFile := imp.(FileImporter)
	_, fiIsURL := fi.(Importer)
	if impIsFile || fiIsURL {
		return 0, fmt.Errorf("callback: importer provides both canonicalize/load and find_file_url, which is ambiguous")
	}
	t.nextID++
	entry := &ImporterEntry{ID: t.nextID, Kind: kind, URL: imp, File: fi}
	t.entries = append(t.entries, entry)
	t.byID[entry.ID] = entry
	if addToList {
		t.List = append(t.List, entry.ID)
	}
	return entry.ID, nil
}

// Lookup returns the entry registered under id.
func (t *ImporterTable) Lookup(id uint32) (*ImporterEntry, bool) {
	e, ok := t.byID[id]
	return e, ok
}

// CanonicalizeCache memoizes canonicalize results per (importer id, url)
// for the lifetime of a session, so a repeated @import of the same URL
// calls Canonicalize at most once (testable property 6). Safe for
// concurrent use: several callback requests for the same URL may be in
// flight on independent goroutines at once.
type CanonicalizeCache struct {
	mu      sync.Mutex
	entries map[cacheKey]string
}

type cacheKey struct {
	importerID uint32
	url        string
}

// NewCanonicalizeCache creates an empty cache.
func NewCanonicalizeCache() *CanonicalizeCache {
	return &CanonicalizeCache{entries: make(map[cacheKey]string)}
}

// Get returns a previously cached canonical URL, if any.
func (c *CanonicalizeCache) Get(importerID uint32, url string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[cacheKey{importerID, url}]
	return v, ok
}

// Put records a canonicalize result for future Get calls.
func (c *CanonicalizeCache) Put(importerID uint32, url, canonical string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{importerID, url}] = canonical
}
