package registry

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gofhir/fhir/r4"

	"github.com/phcore/validator/pkg/logger"
)

func TestParseMax(t *testing.T) {
	tests := []struct {
		in   string
		want Cardinality
	}{
		{"*", Unbounded},
		{"", Unbounded},
		{"0", Cardinality{Max: 0}},
		{"1", Cardinality{Max: 1}},
		{"12", Cardinality{Max: 12}},
		{"many", Unbounded},
		{"-1", Unbounded},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseMax(tt.in); got != tt.want {
				t.Errorf("ParseMax(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMalformedMaxIsLogged(t *testing.T) {
	var buf bytes.Buffer
	prev := logger.Default()
	logger.SetDefault(logger.New(&buf, logger.LevelWarn))
	t.Cleanup(func() { logger.SetDefault(prev) })

	path, bad, good := "Patient.name", "many", "2"
	e := convertElement(&r4.ElementDefinition{Path: &path, Max: &bad})
	if e.Max != Unbounded {
		t.Errorf("Max = %+v, want unbounded", e.Max)
	}
	if !strings.Contains(buf.String(), `malformed max \"many\"`) {
		t.Errorf("missing warning, log = %q", buf.String())
	}

	buf.Reset()
	e = convertElement(&r4.ElementDefinition{Path: &path, Max: &good})
	if e.Max != (Cardinality{Max: 2}) || buf.Len() != 0 {
		t.Errorf("Max = %+v, log = %q", e.Max, buf.String())
	}
}

func TestCardinalityExceeded(t *testing.T) {
	one := Cardinality{Max: 1}
	if one.Exceeded(1) {
		t.Error("1 occurrence should satisfy max 1")
	}
	if !one.Exceeded(2) {
		t.Error("2 occurrences should exceed max 1")
	}
	if Unbounded.Exceeded(1000) {
		t.Error("unbounded is never exceeded")
	}
	if one.String() != "1" || Unbounded.String() != "*" {
		t.Errorf("String() = %q / %q", one.String(), Unbounded.String())
	}
}

func TestExtensionURL(t *testing.T) {
	tests := []struct {
		name   string
		types  []TypeRef
		want   string
		wantOK bool
	}{
		{
			name:   "versioned",
			types:  []TypeRef{{Code: "Extension", Profile: []string{"http://x/religion|1.0"}}},
			want:   "http://x/religion",
			wantOK: true,
		},
		{
			name:   "first extension with a profile wins",
			types:  []TypeRef{{Code: "Extension"}, {Code: "Extension", Profile: []string{"http://x/a", "http://x/b"}}},
			want:   "http://x/a",
			wantOK: true,
		},
		{
			name:  "not an extension",
			types: []TypeRef{{Code: "Identifier", Profile: []string{"http://x/id"}}},
		},
		{
			name: "no types",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := ElementConstraint{Path: "Patient.extension", SliceName: "s", Types: tt.types}
			got, ok := e.ExtensionURL()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ExtensionURL() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestElementPaths(t *testing.T) {
	root := ElementConstraint{Path: "Patient"}
	if !root.IsRoot() || root.FieldPath() != "" {
		t.Errorf("root element: IsRoot=%v FieldPath=%q", root.IsRoot(), root.FieldPath())
	}
	nested := ElementConstraint{Path: "Patient.name.given"}
	if nested.IsRoot() || nested.FieldPath() != "name.given" {
		t.Errorf("nested element: IsRoot=%v FieldPath=%q", nested.IsRoot(), nested.FieldPath())
	}
}

func TestGroupByPath(t *testing.T) {
	groups := GroupByPath([]ElementConstraint{
		{Path: "Patient.b"},
		{Path: "Patient.a"},
		{Path: "Patient.b", SliceName: "x"},
	})
	if len(groups) != 2 || groups[0].Path != "Patient.b" || groups[1].Path != "Patient.a" {
		t.Fatalf("GroupByPath() = %+v", groups)
	}
	if len(groups[0].Elements) != 2 || !groups[0].HasSlices() {
		t.Errorf("first group = %+v", groups[0])
	}
}
