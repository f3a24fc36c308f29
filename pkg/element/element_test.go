package element

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phcore/validator/pkg/issue"
	"github.com/phcore/validator/pkg/registry"
)

type valueSets map[string]bool

func (v valueSets) HasValueSet(url string) bool { return v[url] }

const maritalVS = "http://example.org/ValueSet/marital"

func TestValidateRequired(t *testing.T) {
	v := New(valueSets{})

	tests := []struct {
		name     string
		doc      map[string]any
		elem     registry.ElementConstraint
		wantCode issue.Code
	}{
		{
			name:     "missing required",
			doc:      map[string]any{"resourceType": "Patient"},
			elem:     registry.ElementConstraint{Path: "Patient.identifier", Min: 1, Max: registry.Unbounded},
			wantCode: issue.CodeRequired,
		},
		{
			name: "present required",
			doc:  map[string]any{"resourceType": "Patient", "identifier": []any{map[string]any{"value": "1"}}},
			elem: registry.ElementConstraint{Path: "Patient.identifier", Min: 1, Max: registry.Unbounded},
		},
		{
			name: "optional missing",
			doc:  map[string]any{"resourceType": "Patient"},
			elem: registry.ElementConstraint{Path: "Patient.photo", Max: registry.Unbounded},
		},
		{
			name:     "nested required through array",
			doc:      map[string]any{"resourceType": "Patient", "name": []any{map[string]any{"text": "x"}}},
			elem:     registry.ElementConstraint{Path: "Patient.name.family", Min: 1},
			wantCode: issue.CodeRequired,
		},
		{
			name: "root element",
			doc:  map[string]any{},
			elem: registry.ElementConstraint{Path: "Patient", Min: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := issue.NewResult()
			v.Validate(tt.doc, tt.elem, result)

			if tt.wantCode == "" {
				assert.Empty(t, result.Issues)
				return
			}
			require.Len(t, result.Issues, 1)
			got := result.Issues[0]
			assert.Equal(t, issue.SeverityError, got.Severity)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.elem.Path, got.Location)
		})
	}
}

func TestRequiredDetails(t *testing.T) {
	result := issue.NewResult()
	New(nil).Validate(map[string]any{"resourceType": "Patient"},
		registry.ElementConstraint{Path: "Patient.identifier", Min: 1}, result)

	require.Len(t, result.Issues, 1)
	assert.Equal(t, "Required element missing: identifier", result.Issues[0].Details)
}

func TestValidateBinding(t *testing.T) {
	doc := map[string]any{
		"resourceType":  "Patient",
		"maritalStatus": map[string]any{"text": "married"},
	}

	tests := []struct {
		name       string
		doc        map[string]any
		strength   registry.BindingStrength
		registered bool
		wantIssue  bool
	}{
		{name: "required and missing value set", doc: doc, strength: registry.BindingRequired, wantIssue: true},
		{name: "required and registered", doc: doc, strength: registry.BindingRequired, registered: true},
		{name: "extensible and missing value set", doc: doc, strength: registry.BindingExtensible},
		{name: "preferred and missing value set", doc: doc, strength: registry.BindingPreferred},
		{name: "field absent", doc: map[string]any{"resourceType": "Patient"}, strength: registry.BindingRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vs := valueSets{}
			if tt.registered {
				vs[maritalVS] = true
			}
			elem := registry.ElementConstraint{
				Path:    "Patient.maritalStatus",
				Max:     registry.Cardinality{Max: 1},
				Binding: &registry.Binding{Strength: tt.strength, ValueSet: maritalVS},
			}

			result := issue.NewResult()
			New(vs).Validate(tt.doc, elem, result)

			if !tt.wantIssue {
				assert.Empty(t, result.Issues)
				return
			}
			require.Len(t, result.Issues, 1)
			got := result.Issues[0]
			assert.Equal(t, issue.SeverityWarning, got.Severity)
			assert.Equal(t, issue.CodeNotFound, got.Code)
			assert.Equal(t, "maritalStatus", got.Location)
			assert.Contains(t, got.Details, maritalVS)
		})
	}
}

func TestValidateGroup(t *testing.T) {
	group := registry.Group{
		Path: "Patient.identifier",
		Elements: []registry.ElementConstraint{
			{Path: "Patient.identifier", Min: 1},
			{Path: "Patient.identifier", Min: 2},
		},
	}
	result := issue.NewResult()
	New(nil).ValidateGroup(map[string]any{"resourceType": "Patient"}, group, result)

	assert.Equal(t, 2, result.ErrorCount())
}
