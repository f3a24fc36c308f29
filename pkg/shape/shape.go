// Package shape applies the per-kind shape rule table to a document:
// allowed top-level fields, enumerations, date formats, JSON shapes and
// numeric signs.
package shape

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/phcore/validator/pkg/issue"
	"github.com/phcore/validator/pkg/path"
)

// Validator applies the rule table.
type Validator struct {
	table map[string]KindRules
}

// New creates a shape validator over the built-in Table.
func New() *Validator {
	return &Validator{table: Table}
}

// NewWithTable creates a shape validator over a custom table.
func NewWithTable(table map[string]KindRules) *Validator {
	return &Validator{table: table}
}

// Validate checks doc against the rules of kind. Locations are prefixed
// with kind. Unknown top-level fields are reported in sorted order.
func (v *Validator) Validate(doc map[string]any, kind string, result *issue.Result) {
	v.validateFields(doc, kind, result)

	for _, rule := range v.table[kind].Rules {
		v.apply(doc, kind, rule, result)
	}

	v.validateExtensions(doc, kind, result)
}

func (v *Validator) validateFields(doc map[string]any, kind string, result *issue.Result) {
	allowed := allowedIn(v.table, kind)

	fields := make([]string, 0, len(doc))
	for f := range doc {
		if !allowed[f] {
			fields = append(fields, f)
		}
	}
	sort.Strings(fields)

	for _, f := range fields {
		result.Add(issue.DiagShapeUnknownField, map[string]any{"field": f, "kind": kind}, kind+"."+f)
	}
}

func (v *Validator) apply(doc map[string]any, kind string, rule Rule, result *issue.Result) {
	if !path.Exists(doc, rule.Field) {
		return
	}
	node := path.ResolveValue(doc, rule.Field)
	location := kind + "." + rule.Field

	switch rule.Variant {
	case VariantEnum:
		if s, ok := node.Text(); !ok || !contains(rule.Values, s) {
			result.Add(issue.DiagShapeEnum, enumParams(rule, node), location)
		}

	case VariantItemEnum:
		items, ok := node.Sequence()
		if !ok {
			return
		}
		for i, item := range items {
			raw, present := mustMapping(path.Of(item))[rule.Sub]
			if !present {
				continue
			}
			sub := path.Of(raw)
			if s, ok := sub.Text(); ok && contains(rule.Values, s) {
				continue
			}
			result.Add(issue.DiagShapeEnum, enumParams(rule, sub),
				kind+"."+rule.Field+"["+strconv.Itoa(i)+"]."+rule.Sub)
		}

	case VariantDate:
		if s, ok := node.Text(); !ok || !IsDate(s) {
			result.Add(issue.DiagShapeDate, map[string]any{"field": rule.Label, "value": render(node)}, location)
		}

	case VariantDateTime:
		if s, ok := node.Text(); !ok || !IsDateTime(s) {
			result.Add(issue.DiagShapeDateTime, map[string]any{"field": rule.Label, "value": render(node)}, location)
		}

	case VariantObject:
		v.expect(node, path.Mapping, rule.Field, location, result)

	case VariantString:
		if _, ok := node.Text(); !ok {
			result.Add(issue.DiagShapeExpected, map[string]any{
				"field": rule.Field, "expected": "string", "actual": jsonType(node),
			}, location)
		}

	case VariantArray:
		v.expect(node, path.Sequence, rule.Field, location, result)

	case VariantNonNegative:
		n, ok := number(node)
		if !ok {
			result.Add(issue.DiagShapeExpected, map[string]any{
				"field": rule.Field, "expected": "number", "actual": jsonType(node),
			}, location)
			return
		}
		if n < 0 {
			result.Add(issue.DiagShapeNegative, map[string]any{"field": rule.Field, "value": render(node)}, location)
		}
	}
}

func (v *Validator) expect(node path.Node, want path.Kind, field, location string, result *issue.Result) {
	if node.Kind() == want {
		return
	}
	expected := "object"
	if want == path.Sequence {
		expected = "array"
	}
	result.Add(issue.DiagShapeExpected, map[string]any{
		"field": field, "expected": expected, "actual": jsonType(node),
	}, location)
}

// validateExtensions checks value types of known extensions and rejects
// denied extension URLs.
func (v *Validator) validateExtensions(doc map[string]any, kind string, result *issue.Result) {
	extensions, ok := path.Of(doc).Field("extension").Sequence()
	if !ok {
		return
	}

	for i, ext := range extensions {
		node := path.Of(ext)
		if _, ok := node.Mapping(); !ok {
			continue
		}
		url, _ := node.Field("url").Text()
		location := kind + ".extension[" + strconv.Itoa(i) + "]"

		for _, rule := range ExtensionTypeRules {
			if !strings.Contains(url, rule.URLContains) {
				continue
			}
			if _, present := mustMapping(node)[rule.Forbidden]; present {
				result.Add(issue.DiagShapeExtensionType, map[string]any{
					"name": rule.Name, "expected": rule.Expected, "actual": rule.Forbidden,
				}, location)
			}
		}

		for _, part := range DeniedExtensionURLParts {
			if strings.Contains(url, part) {
				result.Add(issue.DiagShapeExtensionURL, map[string]any{"url": url}, location)
				break
			}
		}
	}
}

func mustMapping(n path.Node) map[string]any {
	m, _ := n.Mapping()
	return m
}

func enumParams(rule Rule, node path.Node) map[string]any {
	return map[string]any{
		"field":   rule.Label,
		"value":   render(node),
		"allowed": strings.Join(rule.Values, ", "),
	}
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

// jsonType names the JSON type of a node for messages.
func jsonType(n path.Node) string {
	switch n.Kind() {
	case path.Absent:
		return "null"
	case path.Mapping:
		return "object"
	case path.Sequence:
		return "array"
	case path.Scalar:
		raw, _ := n.Scalar()
		switch raw.(type) {
		case string:
			return "string"
		case bool:
			return "boolean"
		case float64, float32, int, int64:
			return "number"
		}
	}
	return "unknown"
}

func number(n path.Node) (float64, bool) {
	raw, ok := n.Scalar()
	if !ok {
		return 0, false
	}
	switch x := raw.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

func render(n path.Node) string {
	if n.IsAbsent() {
		return "null"
	}
	return fmt.Sprint(n.Raw())
}
