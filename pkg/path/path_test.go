package path

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, raw string) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc
}

const patient = `{
  "resourceType": "Patient",
  "id": "p1",
  "active": true,
  "deceasedBoolean": null,
  "name": [
    {"text": "no family here"},
    {"family": "Dela Cruz", "given": ["Juan"]},
    {"family": "Santos", "period": {"start": "2020"}}
  ],
  "maritalStatus": {"coding": [{"code": "M"}]},
  "extension": []
}`

func TestOf(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Kind
	}{
		{"nil", nil, Absent},
		{"string", "x", Scalar},
		{"number", 1.5, Scalar},
		{"bool", false, Scalar},
		{"slice", []any{1}, Sequence},
		{"map slice", []map[string]any{{"a": 1}}, Sequence},
		{"map", map[string]any{}, Mapping},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Of(tt.in).Kind())
		})
	}
}

func TestNodeAccessors(t *testing.T) {
	n := Of(map[string]any{"system": "phone", "rank": 1.0})

	fields, ok := n.Mapping()
	require.True(t, ok)
	assert.Len(t, fields, 2)

	s, ok := n.Field("system").Text()
	assert.True(t, ok)
	assert.Equal(t, "phone", s)

	_, ok = n.Field("rank").Text()
	assert.False(t, ok, "number is not text")

	assert.True(t, n.Field("missing").IsAbsent())
	assert.True(t, Of("x").Field("anything").IsAbsent())

	assert.Equal(t, 0, Of(nil).Len())
	assert.Equal(t, 1, Of("x").Len())
	assert.Equal(t, 3, Of([]any{1, 2, 3}).Len())
}

func TestFieldPath(t *testing.T) {
	assert.Equal(t, "extension", FieldPath("Patient.extension"))
	assert.Equal(t, "name.given", FieldPath("Patient.name.given"))
	assert.Equal(t, "", FieldPath("Patient"))
	assert.True(t, IsRoot("Patient"))
	assert.False(t, IsRoot("Patient.id"))
}

func TestExists(t *testing.T) {
	doc := mustDoc(t, patient)

	tests := []struct {
		path string
		want bool
	}{
		{"", true},
		{"id", true},
		{"active", true},
		{"deceasedBoolean", true},
		{"gender", false},
		{"name", true},
		{"name.family", true},
		{"name.given", true},
		{"maritalStatus.coding.code", true},
		{"maritalStatus.text", false},
		{"id.value", false},
		{"extension", true},
		{"extension.url", false},
		{"deceasedBoolean.value", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Exists(doc, tt.path))
		})
	}
}

func TestExistsFirstMatchOnly(t *testing.T) {
	doc := mustDoc(t, `{
  "resourceType": "Observation",
  "component": [
    {"code": "first"},
    {"code": {"text": "second"}}
  ]
}`)

	// The first component holding "code" is followed; the second one,
	// which would satisfy the deeper segment, is never consulted.
	assert.True(t, Exists(doc, "component.code"))
	assert.False(t, Exists(doc, "component.code.text"))

	doc = mustDoc(t, patient)
	assert.True(t, Exists(doc, "name.period.start"))
	assert.False(t, Exists(doc, "name.period.start.x"))
}

func TestResolveValue(t *testing.T) {
	doc := mustDoc(t, patient)

	t.Run("scalar", func(t *testing.T) {
		s, ok := ResolveValue(doc, "id").Text()
		require.True(t, ok)
		assert.Equal(t, "p1", s)
	})

	t.Run("sequence is returned at the boundary", func(t *testing.T) {
		n := ResolveValue(doc, "name.family")
		assert.Equal(t, Sequence, n.Kind())
		assert.Equal(t, 3, n.Len())
	})

	t.Run("mapping", func(t *testing.T) {
		n := ResolveValue(doc, "maritalStatus")
		assert.Equal(t, Mapping, n.Kind())
	})

	t.Run("missing", func(t *testing.T) {
		assert.True(t, ResolveValue(doc, "gender").IsAbsent())
		assert.True(t, ResolveValue(doc, "id.value").IsAbsent())
	})

	t.Run("null", func(t *testing.T) {
		assert.True(t, ResolveValue(doc, "deceasedBoolean").IsAbsent())
	})

	t.Run("root", func(t *testing.T) {
		assert.Equal(t, Mapping, ResolveValue(doc, "").Kind())
	})
}
