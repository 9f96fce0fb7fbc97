package render

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAML writes values as a YAML mapping with sorted keys.
func YAML(w io.Writer, values map[string]any) error {
	if values == nil {
		values = map[string]any{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(values); err != nil {
		return err
	}
	return enc.Close()
}
