package registry

import (
	"strconv"
	"strings"
)

// BindingStrength is the strength of a value-set binding.
type BindingStrength string

// Binding strengths.
const (
	BindingRequired   BindingStrength = "required"
	BindingExtensible BindingStrength = "extensible"
	BindingPreferred  BindingStrength = "preferred"
	BindingExample    BindingStrength = "example"
)

// ExtensionType is the type code that marks an extension slice.
const ExtensionType = "Extension"

// Cardinality is an upper occurrence bound.
type Cardinality struct {
	Max       int
	Unbounded bool
}

// Unbounded is the "*" cardinality.
var Unbounded = Cardinality{Unbounded: true}

// ParseMax parses an ElementDefinition.max value. "*", an empty string and
// anything that is not a non-negative integer are unbounded.
func ParseMax(s string) Cardinality {
	c, _ := parseMax(s)
	return c
}

// parseMax is ParseMax that also reports whether s was a well-formed max.
func parseMax(s string) (Cardinality, bool) {
	if s == "" || s == "*" {
		return Unbounded, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return Unbounded, false
	}
	return Cardinality{Max: n}, true
}

// Exceeded reports whether count occurrences break the bound.
func (c Cardinality) Exceeded(count int) bool {
	return !c.Unbounded && count > c.Max
}

// String returns "*" or the bound.
func (c Cardinality) String() string {
	if c.Unbounded {
		return "*"
	}
	return strconv.Itoa(c.Max)
}

// TypeRef is one entry of an element's type list.
type TypeRef struct {
	Code          string
	Profile       []string
	TargetProfile []string
}

// Binding is a value-set binding declared on an element.
type Binding struct {
	Strength    BindingStrength
	ValueSet    string
	Description string
}

// ElementConstraint is one differential element of a profile.
type ElementConstraint struct {
	ID        string
	Path      string
	SliceName string
	Min       int
	Max       Cardinality
	Types     []TypeRef
	Binding   *Binding
}

// IsSliced reports whether the element names a slice.
func (e ElementConstraint) IsSliced() bool {
	return e.SliceName != ""
}

// IsRoot reports whether the element is the profile's root element.
func (e ElementConstraint) IsRoot() bool {
	return !strings.Contains(e.Path, ".")
}

// FieldPath returns the path with the leading kind segment removed.
func (e ElementConstraint) FieldPath() string {
	_, rest, _ := strings.Cut(e.Path, ".")
	return rest
}

// ExtensionURL returns the profile of the first Extension-typed entry
// with any "|version" suffix removed.
func (e ElementConstraint) ExtensionURL() (string, bool) {
	for _, t := range e.Types {
		if t.Code != ExtensionType {
			continue
		}
		if len(t.Profile) == 0 {
			continue
		}
		url, _, _ := strings.Cut(t.Profile[0], "|")
		return url, url != ""
	}
	return "", false
}

// Group is the set of differential elements sharing a path.
type Group struct {
	Path     string
	Elements []ElementConstraint
}

// HasSlices reports whether any element of the group names a slice.
func (g Group) HasSlices() bool {
	for _, e := range g.Elements {
		if e.IsSliced() {
			return true
		}
	}
	return false
}

// Slices returns the elements that name a slice.
func (g Group) Slices() []ElementConstraint {
	var out []ElementConstraint
	for _, e := range g.Elements {
		if e.IsSliced() {
			out = append(out, e)
		}
	}
	return out
}

// GroupByPath groups elements by path in first-seen order.
func GroupByPath(elements []ElementConstraint) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, e := range elements {
		i, ok := index[e.Path]
		if !ok {
			i = len(groups)
			index[e.Path] = i
			groups = append(groups, Group{Path: e.Path})
		}
		groups[i].Elements = append(groups[i].Elements, e)
	}
	return groups
}
