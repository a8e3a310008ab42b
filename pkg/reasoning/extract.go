package reasoning

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractStage identifies which strategy recovered the JSON payload.
type ExtractStage string

const (
	StageDirect ExtractStage = "direct"
	StageFenced ExtractStage = "fenced"
	StageScan   ExtractStage = "scan"
)

// ExtractJSON recovers a JSON document from noisy reasoning output. Three
// strategies run in order, each with an explicit outcome: parse the text as
// is, parse the first fenced code block, then scan for the first balanced
// object or array. The stage that succeeded is returned alongside the raw
// document so callers can log how dirty the answer was.
func ExtractJSON(text string) (json.RawMessage, ExtractStage, error) {
	trimmed := strings.TrimSpace(text)

	if raw, ok := tryParse(trimmed); ok {
		return raw, StageDirect, nil
	}
	if block, ok := fencedBlock(trimmed); ok {
		if raw, ok := tryParse(block); ok {
			return raw, StageFenced, nil
		}
	}
	if candidate, ok := balancedScan(trimmed); ok {
		if raw, ok := tryParse(candidate); ok {
			return raw, StageScan, nil
		}
	}
	return nil, "", fmt.Errorf("no JSON document found in reasoning output")
}

func tryParse(s string) (json.RawMessage, bool) {
	if s == "" {
		return nil, false
	}
	var probe any
	if err := json.Unmarshal([]byte(s), &probe); err != nil {
		return nil, false
	}
	switch probe.(type) {
	case map[string]any, []any:
		return json.RawMessage(s), true
	}
	return nil, false
}

// fencedBlock returns the contents of the first ``` fence, tolerating a
// language tag on the opening line.
func fencedBlock(s string) (string, bool) {
	start := strings.Index(s, "```")
	if start < 0 {
		return "", false
	}
	rest := s[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		firstLine := strings.TrimSpace(rest[:nl])
		if len(firstLine) < 20 && !strings.ContainsAny(firstLine, "{[") {
			rest = rest[nl+1:]
		}
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return strings.TrimSpace(rest), true
	}
	return strings.TrimSpace(rest[:end]), true
}

// balancedScan finds the first balanced top-level object or array, honoring
// string literals and escapes.
func balancedScan(s string) (string, bool) {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", false
	}
	open := s[start]
	var close byte = '}'
	if open == '[' {
		close = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
