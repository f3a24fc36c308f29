// Package element checks non-sliced differential elements: minimum
// cardinality and the registration of a bound value set.
package element

import (
	"github.com/phcore/validator/pkg/issue"
	"github.com/phcore/validator/pkg/path"
	"github.com/phcore/validator/pkg/registry"
)

// ValueSets reports whether a value set is registered.
type ValueSets interface {
	HasValueSet(url string) bool
}

// Validator evaluates element constraints against a document.
type Validator struct {
	valueSets ValueSets
}

// New creates an element validator backed by a value-set lookup.
func New(valueSets ValueSets) *Validator {
	return &Validator{valueSets: valueSets}
}

// Validate checks one element constraint. The root element carries no
// testable condition and yields nothing.
func (v *Validator) Validate(doc map[string]any, elem registry.ElementConstraint, result *issue.Result) {
	if elem.IsRoot() {
		return
	}

	fieldPath := elem.FieldPath()
	exists := path.Exists(doc, fieldPath)

	if elem.Min > 0 && !exists {
		result.Add(issue.DiagElementRequired, map[string]any{"path": fieldPath}, elem.Path)
	}

	if elem.Binding != nil && exists {
		v.validateBinding(fieldPath, elem.Binding, result)
	}
}

// ValidateGroup checks every element of a non-sliced group.
func (v *Validator) ValidateGroup(doc map[string]any, group registry.Group, result *issue.Result) {
	for _, elem := range group.Elements {
		v.Validate(doc, elem, result)
	}
}

// validateBinding only checks that the bound value set is registered;
// the coded value itself is not looked up.
func (v *Validator) validateBinding(fieldPath string, binding *registry.Binding, result *issue.Result) {
	if binding.ValueSet == "" {
		return
	}
	if v.valueSets != nil && v.valueSets.HasValueSet(binding.ValueSet) {
		return
	}
	if binding.Strength == registry.BindingRequired {
		result.Add(issue.DiagValueSetNotFound, map[string]any{"valueSet": binding.ValueSet}, fieldPath)
	}
}
