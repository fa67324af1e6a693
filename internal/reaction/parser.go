package reaction

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Parsed is the structured payload extracted from one generation output.
type Parsed struct {
	Message  string
	Reaction Reaction
}

// Parse extracts a {message, reaction} payload from raw generation output,
// which may wrap the JSON in prose or a markdown code fence. It returns an
// error instead of guessing: a fabricated reaction would corrupt the
// simulation, so the retry/abort policy lives with the caller.
func Parse(raw string) (*Parsed, error) {
	body, ok := extractJSON(raw)
	if !ok {
		return nil, fmt.Errorf("no JSON object found in generation output")
	}

	var payload struct {
		Message  *string                    `json:"message"`
		Reaction map[string]json.RawMessage `json:"reaction"`
	}
	dec := json.NewDecoder(strings.NewReader(body))
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	if payload.Message == nil {
		return nil, fmt.Errorf("payload missing message field")
	}
	if payload.Reaction == nil {
		return nil, fmt.Errorf("payload missing reaction object")
	}

	// Closed set: every flag must be present and boolean, nothing extra.
	for key := range payload.Reaction {
		if !knownFlag(key) {
			return nil, fmt.Errorf("unknown reaction key %q", key)
		}
	}

	flags := make(map[string]bool, len(FlagNames))
	for _, name := range FlagNames {
		rawVal, ok := payload.Reaction[name]
		if !ok {
			return nil, fmt.Errorf("reaction missing flag %q", name)
		}
		var v bool
		if err := json.Unmarshal(rawVal, &v); err != nil {
			return nil, fmt.Errorf("reaction flag %q is not a boolean", name)
		}
		flags[name] = v
	}

	return &Parsed{
		Message: strings.TrimSpace(*payload.Message),
		Reaction: Reaction{
			TheyAddressedMyQuestion: flags["theyAddressedMyQuestion"],
			TheyUnderstoodMe:        flags["theyUnderstoodMe"],
			TheyFeltGenuine:         flags["theyFeltGenuine"],
			TheyDeflected:           flags["theyDeflected"],
			TheyRepeated:            flags["theyRepeated"],
			ThisWasNewInformation:   flags["thisWasNewInformation"],
			IWantToContinue:         flags["iWantToContinue"],
		},
	}, nil
}

// extractJSON pulls the first plausible JSON object out of free text. Tries
// the whole string, then a fenced code block, then a balanced-brace scan.
func extractJSON(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed)) {
		return trimmed, true
	}

	if fenced, ok := extractFenced(trimmed); ok {
		if json.Valid([]byte(fenced)) {
			return fenced, true
		}
	}

	if braced, ok := extractBraced(trimmed); ok {
		return braced, true
	}
	return "", false
}

func extractFenced(s string) (string, bool) {
	start := strings.Index(s, "```")
	if start < 0 {
		return "", false
	}
	rest := s[start+3:]
	// Skip an optional language tag on the fence line.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// extractBraced scans for the first balanced top-level object, respecting
// string literals and escapes.
func extractBraced(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				candidate := s[start : i+1]
				if json.Valid([]byte(candidate)) {
					return candidate, true
				}
				return "", false
			}
		}
	}
	return "", false
}

func knownFlag(name string) bool {
	for _, f := range FlagNames {
		if f == name {
			return true
		}
	}
	return false
}
