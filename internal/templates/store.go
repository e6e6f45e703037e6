// Package templates holds the keyword → canned reply catalogue.
package templates

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/memohai/kitchensink/internal/messaging"
)

// BaseURLPlaceholder is replaced by the public base URL at lookup time.
const BaseURLPlaceholder = "$BASE_URL"

//go:embed default.json
var defaultCatalogue []byte

// Vars maps placeholders (including their leading "$") to replacement values.
type Vars map[string]string

// BaseURL returns the variables for the standard base-URL placeholder.
func BaseURL(url string) Vars {
	return Vars{BaseURLPlaceholder: url}
}

// Store is an immutable lookup table. It is safe for concurrent use.
type Store struct {
	entries map[string][]json.RawMessage
	keys    []string
}

// Load reads a catalogue from path. JSON is expected unless the extension is
// .yaml or .yml. An empty path loads the built-in catalogue.
func Load(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return Parse(data)
	}
}

// Default returns the built-in catalogue. The embedded document is part of
// the binary, so failing to parse it is a programming error.
func Default() *Store {
	s, err := Parse(defaultCatalogue)
	if err != nil {
		panic(fmt.Sprintf("built-in templates: %v", err))
	}
	return s
}

// ParseYAML builds a store from a YAML document of the same shape as the JSON one.
func ParseYAML(data []byte) (*Store, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml templates: %w", err)
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert yaml templates: %w", err)
	}
	return Parse(encoded)
}

// Parse builds a store from a JSON object mapping keys to a payload or an
// array of payloads. Every payload must carry a string type and decode as a
// Messaging API message.
func Parse(data []byte) (*Store, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}
	s := &Store{
		entries: make(map[string][]json.RawMessage, len(doc)),
		keys:    make([]string, 0, len(doc)),
	}
	for key, value := range doc {
		payloads, err := normalizeEntry(value)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", key, err)
		}
		s.entries[key] = payloads
		s.keys = append(s.keys, key)
	}
	sort.Strings(s.keys)
	return s, nil
}

func normalizeEntry(value json.RawMessage) ([]json.RawMessage, error) {
	value = bytes.TrimSpace(value)
	if len(value) == 0 {
		return nil, fmt.Errorf("empty entry")
	}
	var items []json.RawMessage
	switch value[0] {
	case '{':
		items = []json.RawMessage{value}
	case '[':
		if err := json.Unmarshal(value, &items); err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, fmt.Errorf("entry has no payloads")
		}
	default:
		return nil, fmt.Errorf("entry must be an object or an array of objects")
	}
	out := make([]json.RawMessage, 0, len(items))
	for i, item := range items {
		msg, err := messaging.NewRawMessage(item)
		if err != nil {
			return nil, fmt.Errorf("payload %d: %w", i, err)
		}
		if _, err := messaging.ToSDKMessage(msg); err != nil {
			return nil, fmt.Errorf("payload %d: %w", i, err)
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, item); err != nil {
			return nil, fmt.Errorf("payload %d: %w", i, err)
		}
		out = append(out, buf.Bytes())
	}
	return out, nil
}

// Keys returns the trigger keywords in sorted order.
func (s *Store) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Has reports whether key is a trigger keyword. Matching is exact and case-sensitive.
func (s *Store) Has(key string) bool {
	_, ok := s.entries[key]
	return ok
}

// Resolve returns the payloads for key with placeholders substituted. The
// boolean is false when key is not in the catalogue.
func (s *Store) Resolve(key string, vars Vars) ([]messaging.Message, bool, error) {
	payloads, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	replacer, err := newReplacer(vars)
	if err != nil {
		return nil, true, err
	}
	out := make([]messaging.Message, 0, len(payloads))
	for _, payload := range payloads {
		resolved := []byte(replacer.Replace(string(payload)))
		msg, err := messaging.NewRawMessage(resolved)
		if err != nil {
			return nil, true, fmt.Errorf("template %q: %w", key, err)
		}
		out = append(out, msg)
	}
	return out, true, nil
}

// newReplacer substitutes longer placeholders first so that one name being
// a prefix of another never splits it. Values are JSON-string escaped.
func newReplacer(vars Vars) (*strings.Replacer, error) {
	names := make([]string, 0, len(vars))
	for name := range vars {
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) == len(names[j]) {
			return names[i] < names[j]
		}
		return len(names[i]) > len(names[j])
	})
	pairs := make([]string, 0, len(names)*2)
	for _, name := range names {
		quoted, err := json.Marshal(vars[name])
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, name, string(quoted[1:len(quoted)-1]))
	}
	return strings.NewReplacer(pairs...), nil
}
