package trigger

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadTable reads a YAML trigger list from path. An empty path yields the
// default table. The file is a sequence so phrase order survives parsing:
//
//	- phrase: jankie
//	  responses:
//	    - WE'RE VIBING!
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trigger file: %w", err)
	}

	var triggers []Trigger
	if err := yaml.Unmarshal(data, &triggers); err != nil {
		return nil, fmt.Errorf("parse trigger file %s: %w", path, err)
	}

	table, err := NewTable(triggers)
	if err != nil {
		return nil, fmt.Errorf("trigger file %s: %w", path, err)
	}
	return table, nil
}
