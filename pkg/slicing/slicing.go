// Package slicing validates sliced differential elements.
//
// Two strategies exist. Extension slices are matched by the url of each
// extension against the profile declared on the slice's Extension type.
// Every other slice is checked for presence of its field only; values are
// not discriminated.
package slicing

import (
	"strings"

	"github.com/phcore/validator/pkg/issue"
	"github.com/phcore/validator/pkg/path"
	"github.com/phcore/validator/pkg/registry"
)

// Strategy selects how a slice family is evaluated.
type Strategy int

// Slice strategies.
const (
	StrategyGeneric Strategy = iota
	StrategyExtension
)

// String returns the strategy name.
func (s Strategy) String() string {
	if s == StrategyExtension {
		return "extension"
	}
	return "generic"
}

const extensionField = "extension"

// StrategyFor returns the strategy for a kind-stripped field path.
func StrategyFor(fieldPath string) Strategy {
	if fieldPath == extensionField {
		return StrategyExtension
	}
	return StrategyGeneric
}

// Validator validates slice families.
type Validator struct{}

// New creates a slicing validator.
func New() *Validator {
	return &Validator{}
}

// ValidateGroup evaluates every slice of a group. Elements without a
// slice name, such as the slicing entry itself, are not evaluated.
func (v *Validator) ValidateGroup(doc map[string]any, group registry.Group, result *issue.Result) {
	fieldPath := path.FieldPath(group.Path)
	strategy := StrategyFor(fieldPath)

	for _, slice := range group.Slices() {
		switch strategy {
		case StrategyExtension:
			v.validateExtensionSlice(doc, slice, result)
		case StrategyGeneric:
			v.validateGenericSlice(doc, fieldPath, slice, result)
		}
	}
}

// validateExtensionSlice counts top-level extensions whose url equals the
// slice's extension profile. A slice without a resolvable profile URL is
// skipped.
func (v *Validator) validateExtensionSlice(doc map[string]any, slice registry.ElementConstraint, result *issue.Result) {
	expectedURL, ok := slice.ExtensionURL()
	if !ok {
		return
	}

	count := CountExtensions(doc, expectedURL)
	location := sliceLocation(doc, slice, extensionField)

	if count < slice.Min {
		result.Add(issue.DiagExtensionSliceMin, map[string]any{
			"slice": slice.SliceName,
			"min":   slice.Min,
			"count": count,
			"url":   expectedURL,
		}, location)
	}

	if slice.Max.Exceeded(count) {
		result.Add(issue.DiagExtensionSliceMax, map[string]any{
			"slice": slice.SliceName,
			"max":   slice.Max.String(),
			"count": count,
		}, location)
	}
}

func (v *Validator) validateGenericSlice(doc map[string]any, fieldPath string, slice registry.ElementConstraint, result *issue.Result) {
	if slice.Min == 0 {
		return
	}
	if !path.ResolveValue(doc, fieldPath).IsAbsent() {
		return
	}
	result.Add(issue.DiagSliceMissing, map[string]any{
		"slice": slice.SliceName,
		"min":   slice.Min,
	}, sliceLocation(doc, slice, fieldPath))
}

// CountExtensions returns how many top-level extensions carry url.
func CountExtensions(doc map[string]any, url string) int {
	extensions, ok := path.Of(doc).Field(extensionField).Sequence()
	if !ok {
		return 0
	}

	count := 0
	for _, ext := range extensions {
		got, ok := path.Of(ext).Field("url").Text()
		if ok && got == url {
			count++
		}
	}
	return count
}

// sliceLocation is "<kind>.<field>:<sliceName>". The kind comes from the
// document and falls back to the profile path when the document has none.
func sliceLocation(doc map[string]any, slice registry.ElementConstraint, fieldPath string) string {
	kind, _ := doc["resourceType"].(string)
	if kind == "" {
		kind, _, _ = strings.Cut(slice.Path, ".")
	}
	return kind + "." + fieldPath + ":" + slice.SliceName
}
