package patch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var (
	// ErrMalformed means no JSON object could be recovered from the text.
	ErrMalformed = errors.New("patch: no JSON object in model output")
	// ErrEmpty means the object parsed but none of its keys may be applied.
	ErrEmpty = errors.New("patch: no applicable keys")
)

var (
	fenceRe      = regexp.MustCompile("(?i)```(?:json)?")
	quoteFixer   = strings.NewReplacer("\u201c", `"`, "\u201d", `"`, "\u2018", "'", "\u2019", "'")
	errNotObject = errors.New("not a JSON object")
)

// Raw is a JSON object as the model produced it, with its keys in the
// order they appeared.
type Raw struct {
	keys   []string
	values map[string]json.RawMessage
}

// Keys returns the object's keys in source order.
func (r Raw) Keys() []string { return append([]string(nil), r.keys...) }

// Get returns the raw value of key, matched exactly.
func (r Raw) Get(key string) (json.RawMessage, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Parse recovers a JSON object from model output that may be wrapped in code
// fences, surrounded by prose or written with typographic quotes.
func Parse(text string) (Raw, error) {
	text = strings.TrimPrefix(text, "\uFEFF")
	text = strings.TrimSpace(fenceRe.ReplaceAllString(text, ""))
	if text == "" {
		return Raw{}, ErrMalformed
	}
	if r, err := decodeObject(text); err == nil {
		return r, nil
	}

	text = quoteFixer.Replace(text)
	if r, err := decodeObject(text); err == nil {
		return r, nil
	}

	candidates := balancedObjects(text)
	for i := len(candidates) - 1; i >= 0; i-- {
		if r, err := decodeObject(candidates[i]); err == nil {
			return r, nil
		}
	}
	return Raw{}, ErrMalformed
}

// balancedObjects returns every balanced top-level {...} slice of s, ignoring
// braces inside string literals.
func balancedObjects(s string) []string {
	var out []string
	inStr, esc := false, false
	depth, start := 0, -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
			if depth == 0 && start != -1 {
				out = append(out, strings.TrimSpace(s[start:i+1]))
				start = -1
			}
		}
	}
	return out
}

// decodeObject parses s as exactly one JSON object, preserving key order.
func decodeObject(s string) (Raw, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	tok, err := dec.Token()
	if err != nil {
		return Raw{}, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return Raw{}, errNotObject
	}
	r := Raw{values: map[string]json.RawMessage{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Raw{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return Raw{}, fmt.Errorf("unexpected token %v", tok)
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return Raw{}, err
		}
		if _, dup := r.values[key]; !dup {
			r.keys = append(r.keys, key)
		}
		r.values[key] = v
	}
	if _, err := dec.Token(); err != nil {
		return Raw{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Raw{}, errors.New("trailing data after object")
	}
	return r, nil
}

// asString reports the string value of raw, if it is a JSON string.
func asString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
