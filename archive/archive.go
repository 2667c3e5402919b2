// Package archive persists a durable record of each compilation's
// terminal outcome outside the lifetime of the host process. It is
// entirely additive to the compile core: nothing in wire/subprocess/
// dispatch/session ever reads an archived record back.
package archive

import (
	"context"
	"fmt"
)

// Record is one compilation's archived outcome.
type Record struct {
	CompilationID uint32
	// Source identifies the compile entry (its data or path, truncated),
	// used as the first Hive partition component.
	Source string
	// Day is the UTC calendar day the compilation completed, formatted
	// "2006-01-02", the second partition component.
	Day string
	// Outcome is one of "success", "compile_error", "aborted".
	Outcome string

	CSS        string
	SourceMap  string
	LoadedURLs []string

	ErrorMessage string
	Timestamp    string // RFC 3339
}

// Key identifies one archived record for lookup.
type Key struct {
	Source        string
	Day           string
	Outcome       string
	CompilationID uint32
}

// Store persists and retrieves compile outcome records, Hive-partitioned
// by source/day/outcome.
type Store interface {
	Put(ctx context.Context, record *Record) error
	Get(ctx context.Context, key Key) (*Record, error)
	Close() error
}

// partitionPath builds the Hive-style "source=.../day=.../outcome=..."
// path prefix shared by both backends, so a record written by one and
// read by the other lands at the same logical location.
func partitionPath(source, day, outcome string) string {
	return fmt.Sprintf("source=%s/day=%s/outcome=%s", sanitize(source), day, outcome)
}

func objectName(compilationID uint32) string {
	return fmt.Sprintf("compilation_id=%d.json", compilationID)
}

// sanitize replaces path separators in a partition value so a source
// string containing "/" (a path-like entry) cannot escape its partition
// segment.
func sanitize(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '/' || r == '\\' {
			out = append(out, '_')
			continue
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return "_"
	}
	return string(out)
}
