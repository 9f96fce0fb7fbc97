// Package seed loads initial store state from YAML, TOML or JSON files.
//
// A seed document must be a mapping at its root. Keys become store keys and
// values are stored as decoded:
//
//	user: alice
//	cart:
//	  items: 3
//	  total: 12.5
//
// YAML integers decode as int; JSON numbers decode as float64.
package seed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/odvcencio/furry-keys/state"
)

// Format names a seed encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// ErrUnknownFormat reports a file extension with no decoder.
var ErrUnknownFormat = errors.New("unknown seed format")

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
}

// Load reads and parses the seed file at path.
func Load(path string) (map[string]any, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	values, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return values, nil
}

// Parse decodes a seed document. An empty document yields an empty map;
// a root that is not a mapping is a *state.ConfigurationError.
func Parse(data []byte, format Format) (map[string]any, error) {
	switch format {
	case FormatYAML:
		return parseYAML(data)
	case FormatTOML:
		values := make(map[string]any)
		if _, err := toml.Decode(string(data), &values); err != nil {
			return nil, err
		}
		return values, nil
	case FormatJSON:
		return parseJSON(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func parseYAML(data []byte) (map[string]any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return map[string]any{}, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &state.ConfigurationError{Reason: "seed root must be a mapping, got " + yamlKind(root)}
	}
	values := make(map[string]any)
	if err := root.Decode(&values); err != nil {
		return nil, err
	}
	return values, nil
}

func yamlKind(node *yaml.Node) string {
	switch node.Kind {
	case yaml.SequenceNode:
		return "a list"
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return "null"
		}
		return "a scalar"
	case yaml.AliasNode:
		return "an alias"
	default:
		return "an unsupported node"
	}
}

func parseJSON(data []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	values, ok := raw.(map[string]any)
	if !ok {
		return nil, &state.ConfigurationError{Reason: fmt.Sprintf("seed root must be an object, got %T", raw)}
	}
	return values, nil
}

// Change is one key whose value differs between two seeds.
type Change struct {
	Key     string
	Old     any
	New     any
	Removed bool
}

// Diff lists keys whose values differ from old to next, sorted by key.
// Values are compared structurally since every parse yields fresh values.
func Diff(old, next map[string]any) []Change {
	var changes []Change
	for key, value := range next {
		prev, ok := old[key]
		if ok && reflect.DeepEqual(prev, value) {
			continue
		}
		changes = append(changes, Change{Key: key, Old: prev, New: value})
	}
	for key, value := range old {
		if _, ok := next[key]; !ok {
			changes = append(changes, Change{Key: key, Old: value, Removed: true})
		}
	}
	slices.SortFunc(changes, func(a, b Change) int {
		return strings.Compare(a.Key, b.Key)
	})
	return changes
}

// Apply writes values in sorted key order.
func Apply(w state.Writer[string], values map[string]any) {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		w.Set(key, values[key])
	}
}

// ApplyChanges writes each change; removed keys are set to nil because
// store keys are never deleted.
func ApplyChanges(w state.Writer[string], changes []Change) {
	for _, c := range changes {
		w.Set(c.Key, c.New)
	}
}
