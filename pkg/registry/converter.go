package registry

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/gofhir/fhir/r4"

	"github.com/phcore/validator/pkg/logger"
)

// decodeStructureDefinition decodes raw JSON into an R4 StructureDefinition.
func decodeStructureDefinition(raw []byte) (*r4.StructureDefinition, error) {
	var sd r4.StructureDefinition
	if err := json.Unmarshal(raw, &sd); err != nil {
		return nil, errors.Wrap(err, "decode StructureDefinition")
	}
	return &sd, nil
}

// convertDifferential converts the differential of an R4 StructureDefinition.
func convertDifferential(sd *r4.StructureDefinition) []ElementConstraint {
	if sd == nil || sd.Differential == nil || len(sd.Differential.Element) == 0 {
		return nil
	}

	elements := sd.Differential.Element
	result := make([]ElementConstraint, 0, len(elements))
	for i := range elements {
		result = append(result, convertElement(&elements[i]))
	}
	return result
}

func convertElement(ed *r4.ElementDefinition) ElementConstraint {
	e := ElementConstraint{
		ID:        derefString(ed.Id),
		Path:      derefString(ed.Path),
		SliceName: derefString(ed.SliceName),
		Min:       convertMin(ed.Min),
		Types:     convertTypes(ed.Type),
		Binding:   convertBinding(ed.Binding),
	}

	bound, ok := parseMax(derefString(ed.Max))
	if !ok {
		logger.Warn("element %s: malformed max %q, treating as unbounded", e.Path, derefString(ed.Max))
	}
	e.Max = bound
	return e
}

func convertTypes(types []r4.ElementDefinitionType) []TypeRef {
	if len(types) == 0 {
		return nil
	}

	result := make([]TypeRef, 0, len(types))
	for i := range types {
		t := &types[i]
		result = append(result, TypeRef{
			Code:          derefString(t.Code),
			Profile:       t.Profile,
			TargetProfile: t.TargetProfile,
		})
	}
	return result
}

// convertBinding returns nil when no value set is declared. A binding
// without a strength is treated as required.
func convertBinding(binding *r4.ElementDefinitionBinding) *Binding {
	if binding == nil || derefString(binding.ValueSet) == "" {
		return nil
	}

	strength := BindingRequired
	if binding.Strength != nil && *binding.Strength != "" {
		strength = BindingStrength(*binding.Strength)
	}
	return &Binding{
		Strength:    strength,
		ValueSet:    derefString(binding.ValueSet),
		Description: derefString(binding.Description),
	}
}

func convertKind(kind *r4.StructureDefinitionKind) string {
	if kind == nil {
		return ""
	}
	return string(*kind)
}

func convertMin(minVal *uint32) int {
	if minVal == nil {
		return 0
	}
	return int(*minVal)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// countValueSetCodes counts the concepts a ValueSet enumerates, preferring
// the expansion over the compose.
func countValueSetCodes(vs *r4.ValueSet) int {
	if vs.Expansion != nil {
		return countContains(vs.Expansion.Contains)
	}
	count := 0
	if vs.Compose != nil {
		for i := range vs.Compose.Include {
			count += len(vs.Compose.Include[i].Concept)
		}
	}
	return count
}

func countContains(contains []r4.ValueSetExpansionContains) int {
	count := 0
	for i := range contains {
		if contains[i].Code != nil {
			count++
		}
		count += countContains(contains[i].Contains)
	}
	return count
}

func countConcepts(concepts []r4.CodeSystemConcept) int {
	count := 0
	for i := range concepts {
		count++
		count += countConcepts(concepts[i].Concept)
	}
	return count
}
