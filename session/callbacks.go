package session

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/embedstyle/stylehost/callback"
	"github.com/embedstyle/stylehost/value"
	"github.com/embedstyle/stylehost/wire"
)

// Each handle* method runs on its own goroutine, gated by the session's
// bounded callback semaphore (see dispatchCallback), so the dispatcher
// never blocks waiting for callback code and a pathological compile
// cannot spawn unbounded goroutines. Responses are written back through
// the channel's write mutex, so a slow callback only delays its own
// response frame, never another callback's.

func (s *Session) handleFunctionCall(id uint32, req *wire.FunctionCallRequest) {
	if req == nil {
		s.respondFunctionCallError(id, "function call request missing payload")
		return
	}

	fn, _, ok := s.req.Functions.Lookup(req.FunctionID, req.Signature)
	if !ok {
		s.respondFunctionCallError(id, fmt.Sprintf("no registered function for signature %q", req.Signature))
		return
	}

	result, err := func() (v value.Value, callErr error) {
		defer func() {
			if r := recover(); r != nil {
				callErr = fmt.Errorf("%v", r)
			}
		}()
		return fn(req.Arguments)
	}()

	if err != nil {
		s.respondFunctionCallError(id, err.Error())
		return
	}

	s.collector.IncFunctionCall()
	_ = s.sender.Send(&wire.Inbound{
		Kind:          wire.InboundFunctionCallResponse,
		CompilationID: s.id,
		ID:            id,
		FunctionCallResponse: &wire.FunctionCallResponse{
			Result: &result,
		},
	})
}

func (s *Session) respondFunctionCallError(id uint32, message string) {
	_ = s.sender.Send(&wire.Inbound{
		Kind:          wire.InboundFunctionCallResponse,
		CompilationID: s.id,
		ID:            id,
		FunctionCallResponse: &wire.FunctionCallResponse{
			Error: &message,
		},
	})
}

func (s *Session) handleCanonicalize(id uint32, req *wire.CanonicalizeRequest) {
	if req == nil {
		s.respondCanonicalizeError(id, "canonicalize request missing payload")
		return
	}

	s.collector.IncCanonicalizeRequest()

	if cached, ok := s.canon.Get(req.ImporterID, req.URL); ok {
		canonicalURL := cached
		s.sendCanonicalizeResponse(id, &canonicalURL, nil)
		return
	}

	entry, ok := s.req.Importers.Lookup(req.ImporterID)
	if !ok || entry.URL == nil {
		s.respondCanonicalizeError(id, fmt.Sprintf("no registered importer for id %d", req.ImporterID))
		return
	}

	canonical, err := func() (result string, callErr error) {
		defer func() {
			if r := recover(); r != nil {
				callErr = fmt.Errorf("%v", r)
			}
		}()
		return entry.URL.Canonicalize(req.URL, req.FromImport)
	}()

	if err != nil {
		s.respondCanonicalizeError(id, err.Error())
		return
	}
	if canonical == "" {
		s.sendCanonicalizeResponse(id, nil, nil)
		return
	}
	if !isAbsoluteURL(canonical) {
		s.respondCanonicalizeError(id, "the importer must return an absolute URL")
		return
	}

	s.canon.Put(req.ImporterID, req.URL, canonical)
	s.sendCanonicalizeResponse(id, &canonical, nil)
}

func (s *Session) sendCanonicalizeResponse(id uint32, canonicalURL *string, callErr *string) {
	_ = s.sender.Send(&wire.Inbound{
		Kind:          wire.InboundCanonicalizeResponse,
		CompilationID: s.id,
		ID:            id,
		CanonicalizeResponse: &wire.CanonicalizeResponse{
			URL:   canonicalURL,
			Error: callErr,
		},
	})
}

func (s *Session) respondCanonicalizeError(id uint32, message string) {
	s.sendCanonicalizeResponse(id, nil, &message)
}

func (s *Session) handleImport(id uint32, req *wire.ImportRequest) {
	if req == nil {
		s.respondImportError(id, "import request missing payload")
		return
	}

	s.collector.IncImportRequest()

	entry, ok := s.req.Importers.Lookup(req.ImporterID)
	if !ok || entry.URL == nil {
		s.respondImportError(id, fmt.Sprintf("no registered importer for id %d", req.ImporterID))
		return
	}

	loaded, err := func() (r *callback.ImportResult, callErr error) {
		defer func() {
			if rec := recover(); rec != nil {
				callErr = fmt.Errorf("%v", rec)
			}
		}()
		return entry.URL.Load(req.URL)
	}()

	if err != nil {
		s.respondImportError(id, err.Error())
		return
	}
	if loaded == nil {
		_ = s.sender.Send(&wire.Inbound{
			Kind:          wire.InboundImportResponse,
			CompilationID: s.id,
			ID:            id,
			ImportResponse: &wire.ImportResponse{},
		})
		return
	}

	var sourceMapURL *string
	if loaded.SourceMapURL != "" {
		if !isAbsoluteURL(loaded.SourceMapURL) {
			s.respondImportError(id, "source_map_url must be an absolute URL")
			return
		}
		sourceMapURL = &loaded.SourceMapURL
	}

	contents := loaded.Contents
	_ = s.sender.Send(&wire.Inbound{
		Kind:          wire.InboundImportResponse,
		CompilationID: s.id,
		ID:            id,
		ImportResponse: &wire.ImportResponse{
			Contents:     &contents,
			Syntax:       loaded.Syntax,
			SourceMapURL: sourceMapURL,
		},
	})
}

func (s *Session) respondImportError(id uint32, message string) {
	_ = s.sender.Send(&wire.Inbound{
		Kind:          wire.InboundImportResponse,
		CompilationID: s.id,
		ID:            id,
		ImportResponse: &wire.ImportResponse{Error: &message},
	})
}

func (s *Session) handleFileImport(id uint32, req *wire.FileImportRequest) {
	if req == nil {
		s.respondFileImportError(id, "file import request missing payload")
		return
	}

	s.collector.IncFileImportRequest()

	entry, ok := s.req.Importers.Lookup(req.ImporterID)
	if !ok || entry.File == nil {
		s.respondFileImportError(id, fmt.Sprintf("no registered file importer for id %d", req.ImporterID))
		return
	}

	fileURL, err := func() (result string, callErr error) {
		defer func() {
			if r := recover(); r != nil {
				callErr = fmt.Errorf("%v", r)
			}
		}()
		return entry.File.FindFileURL(req.URL, req.FromImport)
	}()

	if err != nil {
		s.respondFileImportError(id, err.Error())
		return
	}
	if fileURL == "" {
		_ = s.sender.Send(&wire.Inbound{
			Kind:          wire.InboundFileImportResponse,
			CompilationID: s.id,
			ID:            id,
			FileImportResponse: &wire.FileImportResponse{},
		})
		return
	}
	if !strings.HasPrefix(fileURL, "file:") {
		s.respondFileImportError(id, fmt.Sprintf("find_file_url must return a file: URL, got %q", fileURL))
		return
	}

	_ = s.sender.Send(&wire.Inbound{
		Kind:          wire.InboundFileImportResponse,
		CompilationID: s.id,
		ID:            id,
		FileImportResponse: &wire.FileImportResponse{FileURL: &fileURL},
	})
}

func (s *Session) respondFileImportError(id uint32, message string) {
	_ = s.sender.Send(&wire.Inbound{
		Kind:          wire.InboundFileImportResponse,
		CompilationID: s.id,
		ID:            id,
		FileImportResponse: &wire.FileImportResponse{Error: &message},
	})
}

// isAbsoluteURL reports whether raw parses as a URL with a non-empty
// scheme, the host boundary's definition of "absolute" for canonicalize
// and source-map-url results.
func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.IsAbs()
}
