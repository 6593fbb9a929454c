package data

import (
	"testing"

	"github.com/thirdroom/simcore/internal/core/shm"
)

func TestParseComponentSchema(t *testing.T) {
	raw := []byte(`
components:
  - name: position
    type: f32
    elements: 3
  - name: team
    type: u32
`)
	s, err := ParseComponentSchema(raw)
	if err != nil {
		t.Fatal(err)
	}
	f := s.Fields()
	if s.Count() != 2 || f[0].Kind != shm.KindF32 || f[0].Elements != 3 || f[1].Elements != 1 {
		t.Fatalf("unexpected fields %+v", f)
	}
}

func TestParseComponentSchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"unknown type", "components:\n  - name: a\n    type: f64\n"},
		{"missing name", "components:\n  - type: u32\n"},
		{"negative elements", "components:\n  - name: a\n    type: u32\n    elements: -2\n"},
		{"bad yaml", "components: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseComponentSchema([]byte(tt.raw)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadShippedSchema(t *testing.T) {
	s, err := LoadComponentSchema("../../data/components.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if s.Count() == 0 {
		t.Fatal("shipped schema is empty")
	}
}
