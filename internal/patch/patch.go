// Package patch turns model output into document patches: key to value
// updates restricted to a template's allowed keys, plus an optional list of
// keys to delete.
package patch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/thywilljoshua/repot-ai/internal/template"
)

// Patch is a normalized set of field updates. Keys keep the order in which
// the model emitted them; Delete holds upper-cased keys to remove.
type Patch struct {
	order  []string
	values map[string]json.RawMessage
	Delete []string
}

// Keys returns the upsert keys in order.
func (p *Patch) Keys() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.order...)
}

// Value returns the raw JSON value for key.
func (p *Patch) Value(key string) (json.RawMessage, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p.values[strings.ToUpper(key)]
	return v, ok
}

// Set stores v (any JSON-encodable value) under key, replacing a previous
// value without changing the key's position.
func (p *Patch) Set(key string, v any) error {
	raw, ok := v.(json.RawMessage)
	if !ok {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("patch %s: %w", key, err)
		}
		raw = b
	}
	p.setRaw(strings.ToUpper(strings.TrimSpace(key)), raw)
	return nil
}

func (p *Patch) setRaw(key string, raw json.RawMessage) {
	if p.values == nil {
		p.values = map[string]json.RawMessage{}
	}
	if _, ok := p.values[key]; !ok {
		p.order = append(p.order, key)
	}
	p.values[key] = raw
}

// AddDelete appends keys to the delete list, keeping it upper-cased and unique.
func (p *Patch) AddDelete(keys ...string) {
	seen := map[string]bool{}
	for _, k := range p.Delete {
		seen[k] = true
	}
	for _, k := range keys {
		k = strings.ToUpper(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		p.Delete = append(p.Delete, k)
	}
}

// Empty reports whether the patch neither sets nor deletes anything.
func (p *Patch) Empty() bool {
	return p == nil || (len(p.order) == 0 && len(p.Delete) == 0)
}

// MarshalJSON writes the upserts in order followed by the DELETE list.
func (p Patch) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range p.order {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		b.Write(kb)
		b.WriteByte(':')
		b.Write(p.values[k])
	}
	if len(p.Delete) > 0 {
		if len(p.order) > 0 {
			b.WriteByte(',')
		}
		db, err := json.Marshal(p.Delete)
		if err != nil {
			return nil, err
		}
		b.WriteString(`"` + template.DeleteKey + `":`)
		b.Write(db)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// Normalize filters raw against allowed. A key survives when it is a table
// key (TABLE_ and a number) or is allowed; every other key is dropped. When exactly one
// key was expected and the model answered with a generic "content" field
// instead, that content is moved onto the expected key.
//
// ErrEmpty is returned when nothing applicable remains.
func Normalize(raw Raw, allowed *template.KeySet, expected []string) (*Patch, error) {
	out := &Patch{}

	if v, ok := raw.Get(template.DeleteKey); ok {
		var list []any
		if err := json.Unmarshal(v, &list); err == nil {
			for _, item := range list {
				k := strings.ToUpper(strings.TrimSpace(fmt.Sprint(item)))
				if item == nil || k == "" || !allowed.Accepts(k) {
					continue
				}
				out.AddDelete(k)
			}
		}
	}

	var exp []string
	for _, k := range expected {
		if k = strings.ToUpper(strings.TrimSpace(k)); k != "" {
			exp = append(exp, k)
		}
	}
	if len(exp) == 1 && !hasAny(raw, exp) {
		target := exp[0]
		content, ok := stringField(raw, "content")
		if !ok {
			content, ok = stringField(raw, "CONTENT")
		}
		if ok && content != "" && allowed.Has(target) {
			_ = out.Set(target, content)
		}
	}

	for _, k0 := range raw.Keys() {
		if k0 == template.DeleteKey {
			continue
		}
		k := strings.ToUpper(strings.TrimSpace(k0))
		if k == "" || !allowed.Accepts(k) {
			continue
		}
		v, _ := raw.Get(k0)
		out.setRaw(k, v)
	}

	if out.Empty() {
		return nil, ErrEmpty
	}
	return out, nil
}

// ParseAndNormalize runs Parse then Normalize.
func ParseAndNormalize(text string, allowed *template.KeySet, expected []string) (*Patch, error) {
	raw, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return Normalize(raw, allowed, expected)
}

func hasAny(raw Raw, keys []string) bool {
	for _, k := range keys {
		if _, ok := raw.Get(k); ok {
			return true
		}
		if _, ok := raw.Get(strings.ToLower(k)); ok {
			return true
		}
	}
	return false
}

func stringField(raw Raw, key string) (string, bool) {
	v, ok := raw.Get(key)
	if !ok {
		return "", false
	}
	return asString(v)
}

// Fields is the accumulated state of every key set so far.
type Fields map[string]json.RawMessage

// Merge returns a copy of f with p applied: upserts overwrite, deletes remove.
func (f Fields) Merge(p *Patch) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	if p == nil {
		return out
	}
	for _, k := range p.order {
		out[k] = p.values[k]
	}
	for _, k := range p.Delete {
		delete(out, k)
	}
	return out
}

// Text returns the value of key as display text: strings as-is, anything
// else as compact JSON.
func (f Fields) Text(key string) string {
	v, ok := f[strings.ToUpper(key)]
	if !ok {
		return ""
	}
	if s, ok := asString(v); ok {
		return s
	}
	return string(v)
}
