// Package parser reads workflow definitions from their YAML notation
// into the compiled graph types. Parsing is purely structural; semantic
// validation happens at deploy time.
package parser

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/procflow/procflow/pkg/types"
)

// Parse decodes one workflow definition from YAML.
func Parse(data []byte) (*types.Workflow, error) {
	var wf types.Workflow
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&wf); err != nil {
		return nil, fmt.Errorf("cannot parse workflow: %w", err)
	}
	normalize(&wf.Scope)
	return &wf, nil
}

// ParseFile reads and decodes a workflow definition file.
func ParseFile(path string) (*types.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read workflow file: %w", err)
	}
	wf, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return wf, nil
}

// normalize fills in generated transition ids and recurses into nested
// scopes. A transition without an id gets "from->to", suffixed with an
// ordinal when that collides.
func normalize(s *types.Scope) {
	seen := make(map[string]int, len(s.Transitions))
	for _, t := range s.Transitions {
		if t.ID == "" {
			base := t.From + "->" + t.To
			t.ID = base
			if n := seen[base]; n > 0 {
				t.ID = fmt.Sprintf("%s#%d", base, n+1)
			}
			seen[base]++
		}
	}
	for _, a := range s.Activities {
		if a.NestedScope != nil {
			normalize(a.NestedScope)
		}
	}
}
