// Package variables loads the name to alternative-codes selection mapping
//
// The mapping is a flat YAML (or JSON) document:
//
//	age: [RIDAGEYR]
//	income: [INDFMINC, INDFMIN2]   # older code first
//	gender: RIAGENDR
//
// Document order is kept because it decides the column order of the resolved frame.
package variables

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"nhanes/internal/core/resolve"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type entry struct {
	Name  string   `validate:"required,max=64"`
	Codes []string `validate:"required,min=1,dive,required,max=32,alphanumunicode|containsrune=_"`
}

var (
	vOnce sync.Once
	v     *validator.Validate
)

func validate() *validator.Validate {
	vOnce.Do(func() { v = validator.New(validator.WithRequiredStructEnabled()) })
	return v
}

// Parse decodes a mapping document
func Parse(r io.Reader) ([]resolve.Variable, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("variables: read: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("variables: empty mapping")
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("variables: parse: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("variables: top level must be a mapping of name to codes")
	}
	m := doc.Content[0]

	seen := map[string]bool{}
	out := make([]resolve.Variable, 0, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		k, val := m.Content[i], m.Content[i+1]
		e := entry{Name: strings.TrimSpace(k.Value)}
		switch val.Kind {
		case yaml.ScalarNode:
			e.Codes = []string{val.Value}
		case yaml.SequenceNode:
			if err := val.Decode(&e.Codes); err != nil {
				return nil, fmt.Errorf("variables: %s (line %d): %w", e.Name, val.Line, err)
			}
		default:
			return nil, fmt.Errorf("variables: %s (line %d): codes must be a string or a list", e.Name, val.Line)
		}
		for j, c := range e.Codes {
			e.Codes[j] = strings.ToUpper(strings.TrimSpace(c))
		}
		if err := validate().Struct(e); err != nil {
			return nil, fmt.Errorf("variables: %s (line %d): %w", e.Name, k.Line, err)
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("variables: %s (line %d): duplicate name", e.Name, k.Line)
		}
		seen[e.Name] = true
		out = append(out, resolve.Variable{Name: e.Name, Codes: e.Codes})
	}
	return out, nil
}

// Load reads the mapping at path
func Load(path string) ([]resolve.Variable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("variables: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Codes returns every distinct code of vars in first-seen order
func Codes(vars []resolve.Variable) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range vars {
		for _, c := range v.Codes {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}
