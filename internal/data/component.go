package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/thirdroom/simcore/internal/core/shm"
)

// ComponentEntry is one component property as written in components.yaml.
type ComponentEntry struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`     // f32, u32, i32
	Elements int    `yaml:"elements"` // 0 or 1 = scalar
	Note     string `yaml:"note"`
}

type componentFile struct {
	Components []ComponentEntry `yaml:"components"`
}

// ComponentSchema is the ordered set of property stores laid out in shared
// memory for a session.
type ComponentSchema struct {
	fields []shm.Field
}

// LoadComponentSchema loads components.yaml.
func LoadComponentSchema(path string) (*ComponentSchema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read component schema: %w", err)
	}
	return ParseComponentSchema(raw)
}

func ParseComponentSchema(raw []byte) (*ComponentSchema, error) {
	var f componentFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse component schema: %w", err)
	}
	s := &ComponentSchema{fields: make([]shm.Field, 0, len(f.Components))}
	for i, e := range f.Components {
		if e.Name == "" {
			return nil, fmt.Errorf("component #%d: missing name", i)
		}
		kind, err := shm.ParseKind(e.Type)
		if err != nil {
			return nil, fmt.Errorf("component %q: %w", e.Name, err)
		}
		if e.Elements < 0 {
			return nil, fmt.Errorf("component %q: negative elements", e.Name)
		}
		elems := e.Elements
		if elems == 0 {
			elems = 1
		}
		s.fields = append(s.fields, shm.Field{Name: e.Name, Kind: kind, Elements: elems})
	}
	return s, nil
}

// DefaultComponentSchema is used when no schema file is configured.
func DefaultComponentSchema() *ComponentSchema {
	return &ComponentSchema{fields: []shm.Field{
		{Name: "position", Kind: shm.KindF32, Elements: 3},
		{Name: "velocity", Kind: shm.KindF32, Elements: 3},
		{Name: "quaternion", Kind: shm.KindF32, Elements: 4},
		{Name: "flags", Kind: shm.KindU32, Elements: 1},
	}}
}

// Fields returns a copy of the schema's fields in declaration order.
func (s *ComponentSchema) Fields() []shm.Field {
	out := make([]shm.Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Count returns the number of components.
func (s *ComponentSchema) Count() int {
	return len(s.fields)
}
