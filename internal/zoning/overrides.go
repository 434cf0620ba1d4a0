package zoning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Overrides holds operator-maintained address -> zoning corrections that
// take precedence over whatever a source returns.
type Overrides map[string]string

// LoadOverrides reads a YAML file of "address: zoning" pairs. A missing
// file yields nil overrides, not an error; the file is optional.
func LoadOverrides(path string) (Overrides, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read overrides %s: %w", path, err)
	}

	var o Overrides
	if err := yaml.Unmarshal(raw, &o); err != nil {
		return nil, fmt.Errorf("failed to parse overrides %s: %w", path, err)
	}
	return o, nil
}

// Apply layers the overrides on top of a source mapping and returns the
// merged result. The input mapping is not modified.
func (o Overrides) Apply(mapping map[string]string) map[string]string {
	if len(o) == 0 {
		return mapping
	}

	out := make(map[string]string, len(mapping)+len(o))
	for k, v := range mapping {
		out[k] = v
	}
	for k, v := range o {
		out[k] = v
	}
	return out
}
