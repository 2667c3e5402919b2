package wire

import "github.com/embedstyle/stylehost/value"

// ProtocolErrorID is the reserved compilation id denoting a protocol error
// that is not associated with any particular compilation.
const ProtocolErrorID uint32 = 1<<32 - 1

// InboundKind discriminates the sub-message an Inbound envelope carries.
type InboundKind string

const (
	InboundCompileRequest        InboundKind = "compile_request"
	InboundCanonicalizeResponse  InboundKind = "canonicalize_response"
	InboundImportResponse        InboundKind = "import_response"
	InboundFileImportResponse    InboundKind = "file_import_response"
	InboundFunctionCallResponse  InboundKind = "function_call_response"
	InboundVersionRequest        InboundKind = "version_request"
)

// Inbound is a host→compiler message: a tagged union over Kind.
type Inbound struct {
	Kind          InboundKind `msgpack:"type"`
	CompilationID uint32      `msgpack:"compilation_id,omitempty"`
	ID            uint32      `msgpack:"id,omitempty"`

	CompileRequest       *CompileRequest       `msgpack:"compile_request,omitempty"`
	CanonicalizeResponse *CanonicalizeResponse `msgpack:"canonicalize_response,omitempty"`
	ImportResponse       *ImportResponse       `msgpack:"import_response,omitempty"`
	FileImportResponse   *FileImportResponse   `msgpack:"file_import_response,omitempty"`
	FunctionCallResponse *FunctionCallResponse `msgpack:"function_call_response,omitempty"`
	VersionRequest       *VersionRequest       `msgpack:"version_request,omitempty"`
}

// OutboundKind discriminates the sub-message an Outbound envelope carries.
type OutboundKind string

const (
	OutboundCompileResponse    OutboundKind = "compile_response"
	OutboundCanonicalizeRequest OutboundKind = "canonicalize_request"
	OutboundImportRequest      OutboundKind = "import_request"
	OutboundFileImportRequest  OutboundKind = "file_import_request"
	OutboundFunctionCallRequest OutboundKind = "function_call_request"
	OutboundLogEvent           OutboundKind = "log_event"
	OutboundProtocolError      OutboundKind = "protocol_error"
	OutboundVersionResponse    OutboundKind = "version_response"
)

// Outbound is a compiler→host message: a tagged union over Kind.
type Outbound struct {
	Kind          OutboundKind `msgpack:"type"`
	CompilationID uint32       `msgpack:"compilation_id,omitempty"`
	ID            uint32       `msgpack:"id,omitempty"`

	CompileResponse     *CompileResponse     `msgpack:"compile_response,omitempty"`
	CanonicalizeRequest *CanonicalizeRequest `msgpack:"canonicalize_request,omitempty"`
	ImportRequest       *ImportRequest       `msgpack:"import_request,omitempty"`
	FileImportRequest   *FileImportRequest   `msgpack:"file_import_request,omitempty"`
	FunctionCallRequest *FunctionCallRequest `msgpack:"function_call_request,omitempty"`
	LogEvent            *LogEvent            `msgpack:"log_event,omitempty"`
	ProtocolError       *ProtocolError       `msgpack:"protocol_error,omitempty"`
	VersionResponse     *VersionResponse     `msgpack:"version_response,omitempty"`
}

// CompileEntry is either inline source (Data+Syntax+URL) or a file Path.
type CompileEntry struct {
	Data   *string `msgpack:"data,omitempty"`
	Path   *string `msgpack:"path,omitempty"`
	Syntax string  `msgpack:"syntax,omitempty"`
	URL    string  `msgpack:"url,omitempty"`
}

// CompileRequest describes one compile job sent to the compiler.
type CompileRequest struct {
	Entry                   CompileEntry `msgpack:"entry"`
	Style                   string       `msgpack:"style,omitempty"`
	SourceMap               bool         `msgpack:"source_map,omitempty"`
	SourceMapIncludeSources bool         `msgpack:"source_map_include_sources,omitempty"`
	Charset                 bool         `msgpack:"charset,omitempty"`
	QuietDeps               bool         `msgpack:"quiet_deps,omitempty"`
	Verbose                 bool         `msgpack:"verbose,omitempty"`
	AlertAscii              bool         `msgpack:"alert_ascii,omitempty"`
	AlertColor              bool         `msgpack:"alert_color,omitempty"`
	LoadPaths               []string     `msgpack:"load_paths,omitempty"`
	ImporterIDs             []uint32     `msgpack:"importer_ids,omitempty"`
	EntrypointImporterID    *uint32      `msgpack:"entrypoint_importer_id,omitempty"`
	FunctionSignatures      []string     `msgpack:"function_signatures,omitempty"`
}

// SourceSpan locates a diagnostic within a stylesheet source.
type SourceSpan struct {
	URL         string `msgpack:"url,omitempty"`
	StartLine   int    `msgpack:"start_line"`
	StartColumn int    `msgpack:"start_column"`
	EndLine     int    `msgpack:"end_line"`
	EndColumn   int    `msgpack:"end_column"`
}

// CompileSuccess is the successful terminal payload of a compile.
type CompileSuccess struct {
	CSS        string   `msgpack:"css"`
	SourceMap  string   `msgpack:"source_map,omitempty"`
	LoadedURLs []string `msgpack:"loaded_urls,omitempty"`
}

// CompileFailure is the failing terminal payload of a compile.
type CompileFailure struct {
	Message    string      `msgpack:"message"`
	Span       *SourceSpan `msgpack:"span,omitempty"`
	StackTrace string      `msgpack:"stack_trace,omitempty"`
}

// CompileResponse is the terminal outbound message for one compilation:
// exactly one of Success or Failure is set.
type CompileResponse struct {
	Success *CompileSuccess `msgpack:"success,omitempty"`
	Failure *CompileFailure `msgpack:"failure,omitempty"`
}

// CanonicalizeRequest asks the host to canonicalize an import URL.
type CanonicalizeRequest struct {
	ImporterID uint32 `msgpack:"importer_id"`
	URL        string `msgpack:"url"`
	FromImport bool   `msgpack:"from_import"`
}

// CanonicalizeResponse answers a CanonicalizeRequest. URL nil means "skip,
// defer to the next importer"; Error set means the importer callback failed.
type CanonicalizeResponse struct {
	URL   *string `msgpack:"url,omitempty"`
	Error *string `msgpack:"error,omitempty"`
}

// ImportRequest asks the host to load the contents behind a canonical URL.
type ImportRequest struct {
	ImporterID uint32 `msgpack:"importer_id"`
	URL        string `msgpack:"url"`
}

// ImportResponse answers an ImportRequest. Contents nil means "not found".
type ImportResponse struct {
	Contents     *string `msgpack:"contents,omitempty"`
	Syntax       string  `msgpack:"syntax,omitempty"`
	SourceMapURL *string `msgpack:"source_map_url,omitempty"`
	Error        *string `msgpack:"error,omitempty"`
}

// FileImportRequest asks the host to resolve a URL to a file: URL.
type FileImportRequest struct {
	ImporterID uint32 `msgpack:"importer_id"`
	URL        string `msgpack:"url"`
	FromImport bool   `msgpack:"from_import"`
}

// FileImportResponse answers a FileImportRequest.
type FileImportResponse struct {
	FileURL *string `msgpack:"file_url,omitempty"`
	Error   *string `msgpack:"error,omitempty"`
}

// FunctionCallRequest invokes a registered custom function.
type FunctionCallRequest struct {
	FunctionID uint32        `msgpack:"function_id"`
	Signature  string        `msgpack:"signature,omitempty"`
	Arguments  []value.Value `msgpack:"arguments"`
}

// FunctionCallResponse answers a FunctionCallRequest.
type FunctionCallResponse struct {
	Result *value.Value `msgpack:"result,omitempty"`
	Error  *string      `msgpack:"error,omitempty"`
}

// LogLevel classifies a LogEvent.
type LogLevel string

const (
	LogWarn  LogLevel = "warn"
	LogDebug LogLevel = "debug"
)

// LogEvent is a best-effort diagnostic the compiler emits during a compile.
type LogEvent struct {
	Level   LogLevel    `msgpack:"level"`
	Message string      `msgpack:"message"`
	Span    *SourceSpan `msgpack:"span,omitempty"`
}

// ProtocolError signals a protocol-level violation. When carried by an
// Outbound envelope whose CompilationID is ProtocolErrorID, it is fatal to
// every live session on the channel.
type ProtocolError struct {
	Message string `msgpack:"message"`
}

// VersionRequest asks the compiler to identify itself.
type VersionRequest struct{}

// VersionResponse identifies the compiler subprocess.
type VersionResponse struct {
	Name    string `msgpack:"name"`
	Version string `msgpack:"version"`
}
