// Package jsonx recovers JSON payloads from unreliable LLM output. Models
// asked for "only JSON" still wrap it in markdown fences, prepend prose, or
// return a top-level array where an object was requested. Decode applies an
// ordered ladder of recovery strategies and fails with [ErrUnparsable] only
// when every strategy is exhausted:
//
//  1. strict parse of the whole response
//  2. parse after stripping markdown code fences
//  3. parse of the first balanced {...} region
//  4. parse of the first balanced [...] region
//
// Top-level arrays are wrapped into an object under the "items" key so
// callers always receive an object.
package jsonx

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnparsable is returned when no JSON object or array can be located in
// the input after all recovery strategies have been tried.
var ErrUnparsable = errors.New("jsonx: no JSON object or array found in response")

// itemsKey is the object key under which a top-level array is wrapped.
const itemsKey = "items"

// Decode extracts a JSON object from raw model output. A top-level array is
// wrapped as {"items": [...]}. The returned error wraps [ErrUnparsable] when
// recovery failed; callers can test with errors.Is.
func Decode(raw string) (map[string]any, error) {
	for _, candidate := range candidates(raw) {
		var obj map[string]any
		if err := json.Unmarshal([]byte(candidate), &obj); err == nil {
			return obj, nil
		}
		var arr []any
		if err := json.Unmarshal([]byte(candidate), &arr); err == nil {
			return map[string]any{itemsKey: arr}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnparsable, snippet(raw))
}

// Unmarshal extracts a JSON payload from raw model output and unmarshals it
// into v. Unlike Decode it does not wrap arrays — v dictates the shape.
func Unmarshal(raw string, v any) error {
	for _, candidate := range candidates(raw) {
		if err := json.Unmarshal([]byte(candidate), v); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnparsable, snippet(raw))
}

// candidates returns the ordered extraction attempts for raw. Each entry is
// a substring that a later json.Unmarshal may or may not accept; the ladder
// order is the recovery policy.
func candidates(raw string) []string {
	trimmed := strings.TrimSpace(raw)

	out := []string{trimmed}

	if stripped := stripFences(trimmed); stripped != trimmed {
		out = append(out, stripped)
	}
	if obj, ok := balanced(trimmed, '{', '}'); ok {
		out = append(out, obj)
	}
	if arr, ok := balanced(trimmed, '[', ']'); ok {
		out = append(out, arr)
	}

	return out
}

// stripFences removes a leading ```json / ``` fence and a trailing ``` fence.
func stripFences(s string) string {
	switch {
	case strings.HasPrefix(s, "```json"):
		s = s[len("```json"):]
	case strings.HasPrefix(s, "```"):
		s = s[len("```"):]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// balanced returns the first balanced open...close region of s, honouring
// JSON string literals and escape sequences so braces inside strings do not
// affect the depth count.
func balanced(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == open:
			depth++
		case !inString && c == close:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// snippet returns a short prefix of raw for error messages, so a failed
// parse is diagnosable without dumping an entire model response into logs.
func snippet(raw string) string {
	const max = 120
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) <= max {
		return trimmed
	}
	return trimmed[:max] + "..."
}
