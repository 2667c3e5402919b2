// Package callback implements the host-side callback surface: custom
// function signature parsing and dash normalization, and the registration
// tables (functions, importers, file importers, logger) a compilation
// session consults when the compiler asks it to run host code.
package callback

import (
	"fmt"
	"strings"
)

// Param is one formal parameter of a registered function signature.
type Param struct {
	Name       string
	HasDefault bool
	DefaultRaw string
}

// Signature is the two-phase-parsed form of a registered function
// signature, built once at registration time per the redesign note: this
// avoids ad-hoc string parsing at call time and makes registration errors
// eager rather than surfacing as a confusing call-time failure.
type Signature struct {
	// Raw preserves the original registration spelling, used in error
	// messages so a user sees exactly what they registered.
	Raw string
	// CanonicalName is Raw's name with '_' normalized to '-' for lookup.
	CanonicalName string
	Params        []Param
	RestParam     string // "" if the signature has no rest parameter
}

// Normalize maps '_' to '-' in an identifier for dash-normalized lookup.
// Lowercase identifier characters are left unchanged — normalization only
// treats underscore and hyphen as equivalent, not case.
func Normalize(name string) string {
	return strings.ReplaceAll(name, "_", "-")
}

// ParseSignature parses a registration string of the form "name(params)".
// Returns a HostError-worthy error for any of: a name that is empty,
// contains whitespace, or starts with anything other than a letter or '_'
// (e.g. "$foo()"); stray
// whitespace anywhere in the signature (e.g. "foo() " or "foo ()"); or a
// malformed parameter list.
func ParseSignature(raw string) (*Signature, error) {
	if strings.TrimSpace(raw) != raw {
		return nil, fmt.Errorf("callback: signature %q has leading or trailing whitespace", raw)
	}

	open := strings.IndexByte(raw, '(')
	if open < 0 || !strings.HasSuffix(raw, ")") {
		return nil, fmt.Errorf("callback: signature %q is not of the form name(params)", raw)
	}

	name := raw[:open]
	if name == "" {
		return nil, fmt.Errorf("callback: signature %q has an empty name", raw)
	}
	if strings.ContainsAny(name, " \t\n") {
		return nil, fmt.Errorf("callback: signature %q has whitespace before '('", raw)
	}
	if !isIdentStart(rune(name[0])) {
		return nil, fmt.Errorf("callback: signature %q has an invalid name %q", raw, name)
	}
	for _, r := range name {
		if !isIdentChar(r) {
			return nil, fmt.Errorf("callback: signature %q has an invalid name %q", raw, name)
		}
	}

	paramsRaw := raw[open+1 : len(raw)-1]
	params, rest, err := parseParams(paramsRaw)
	if err != nil {
		return nil, fmt.Errorf("callback: signature %q: %w", raw, err)
	}

	return &Signature{
		Raw:           raw,
		CanonicalName: Normalize(name),
		Params:        params,
		RestParam:     rest,
	}, nil
}

func parseParams(s string) ([]Param, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, "", nil
	}

	var params []Param
	var rest string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, "", fmt.Errorf("empty parameter in %q", s)
		}
		if !strings.HasPrefix(part, "$") {
			return nil, "", fmt.Errorf("parameter %q must start with '$'", part)
		}
		body := part[1:]

		if strings.HasSuffix(body, "...") {
			rest = strings.TrimSuffix(body, "...")
			if rest == "" {
				return nil, "", fmt.Errorf("rest parameter in %q has no name", part)
			}
			continue
		}

		if colon := strings.IndexByte(body, ':'); colon >= 0 {
			pname := strings.TrimSpace(body[:colon])
			def := strings.TrimSpace(body[colon+1:])
			if pname == "" {
				return nil, "", fmt.Errorf("parameter %q has no name", part)
			}
			params = append(params, Param{Name: pname, HasDefault: true, DefaultRaw: def})
			continue
		}

		if body == "" {
			return nil, "", fmt.Errorf("parameter %q has no name", part)
		}
		params = append(params, Param{Name: body})
	}

	return params, rest, nil
}

func isIdentStart(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
}

func isIdentChar(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9') || r == '-'
}
