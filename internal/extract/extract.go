// Package extract recovers a single JSON value embedded in free-form model
// output that may be wrapped in prose, markdown fences, or other noise.
//
// Extraction is a heuristic substring scan, not a balanced-bracket parser:
// the slice runs from the earliest opening bracket of either kind to the
// latest closing bracket of either kind. Callers must treat any parsed
// result as unverified and validate its shape independently.
package extract

import (
	"encoding/json"
	"strings"
)

// Slice locates the JSON candidate substring in text. It returns false when
// no opening bracket of either kind is found, or no closing bracket of
// either kind is found.
func Slice(text string) (string, bool) {
	objStart := strings.Index(text, "{")
	arrStart := strings.Index(text, "[")

	start := -1
	switch {
	case objStart >= 0 && arrStart >= 0:
		start = min(objStart, arrStart)
	case objStart >= 0:
		start = objStart
	case arrStart >= 0:
		start = arrStart
	}
	if start < 0 {
		return "", false
	}

	end := max(strings.LastIndex(text, "}"), strings.LastIndex(text, "]"))
	if end < start {
		return "", false
	}

	return text[start : end+1], true
}

// Object extracts and parses a JSON object from text. Extraction failure is
// expected and non-fatal; callers should log the raw text on failure.
func Object(text string) (map[string]any, bool) {
	raw, ok := Slice(text)
	if !ok {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// Array extracts and parses a JSON array from text.
func Array(text string) ([]any, bool) {
	raw, ok := Slice(text)
	if !ok {
		return nil, false
	}
	var arr []any
	if err := json.Unmarshal([]byte(raw), &arr); err != nil {
		return nil, false
	}
	return arr, true
}
