package issue

import (
	"fmt"
	"regexp"
)

// DiagnosticID identifies a specific diagnostic message.
type DiagnosticID string

// Diagnostic IDs for document structure and profile resolution.
const (
	DiagMissingKind      DiagnosticID = "STRUCTURE_NO_RESOURCE_TYPE"
	DiagMissingID        DiagnosticID = "STRUCTURE_NO_ID"
	DiagProfileNotFound  DiagnosticID = "PROFILE_NOT_FOUND"
	DiagProfileMismatch  DiagnosticID = "PROFILE_TYPE_MISMATCH"
	DiagInvalidJSON      DiagnosticID = "STRUCTURE_INVALID_JSON"
	DiagValidationFailed DiagnosticID = "VALIDATION_EXCEPTION"
	DiagSuccess          DiagnosticID = "VALIDATION_SUCCESS"
)

// Diagnostic IDs for differential elements and slices.
const (
	DiagElementRequired   DiagnosticID = "ELEMENT_REQUIRED"
	DiagValueSetNotFound  DiagnosticID = "BINDING_VALUESET_NOT_FOUND"
	DiagExtensionSliceMin DiagnosticID = "SLICE_EXTENSION_MIN"
	DiagExtensionSliceMax DiagnosticID = "SLICE_EXTENSION_MAX"
	DiagSliceMissing      DiagnosticID = "SLICE_MISSING"
)

// Diagnostic IDs for shape rules.
const (
	DiagShapeUnknownField  DiagnosticID = "SHAPE_UNKNOWN_FIELD"
	DiagShapeEnum          DiagnosticID = "SHAPE_ENUM"
	DiagShapeDate          DiagnosticID = "SHAPE_DATE"
	DiagShapeDateTime      DiagnosticID = "SHAPE_DATETIME"
	DiagShapeExpected      DiagnosticID = "SHAPE_EXPECTED"
	DiagShapeNegative      DiagnosticID = "SHAPE_NEGATIVE"
	DiagShapeExtensionType DiagnosticID = "SHAPE_EXTENSION_TYPE"
	DiagShapeExtensionURL  DiagnosticID = "SHAPE_EXTENSION_URL"
)

// DiagnosticTemplate defines the structure for a diagnostic message.
type DiagnosticTemplate struct {
	Severity Severity
	Code     Code
	Template string
}

// diagnosticTemplates maps diagnostic IDs to their templates.
// Templates use {placeholder} syntax for variable substitution.
var diagnosticTemplates = map[DiagnosticID]DiagnosticTemplate{
	DiagMissingKind: {
		Severity: SeverityError,
		Code:     CodeRequired,
		Template: "Missing required field: resourceType",
	},
	DiagMissingID: {
		Severity: SeverityWarning,
		Code:     CodeRecommended,
		Template: "Missing recommended field: id",
	},
	DiagProfileNotFound: {
		Severity: SeverityWarning,
		Code:     CodeNotFound,
		Template: "StructureDefinition not found: {url}",
	},
	DiagProfileMismatch: {
		Severity: SeverityError,
		Code:     CodeTypeMismatch,
		Template: "Resource type {actual} does not match profile type {expected}",
	},
	DiagInvalidJSON: {
		Severity: SeverityError,
		Code:     CodeInvalid,
		Template: "JSON parsing error: {error}",
	},
	DiagValidationFailed: {
		Severity: SeverityError,
		Code:     CodeException,
		Template: "Validation error: {error}",
	},
	DiagSuccess: {
		Severity: SeverityInformation,
		Code:     CodeInformational,
		Template: "Resource validation completed successfully",
	},

	DiagElementRequired: {
		Severity: SeverityError,
		Code:     CodeRequired,
		Template: "Required element missing: {path}",
	},
	DiagValueSetNotFound: {
		Severity: SeverityWarning,
		Code:     CodeNotFound,
		Template: "ValueSet not found for binding: {valueSet}",
	},
	DiagExtensionSliceMin: {
		Severity: SeverityError,
		Code:     CodeCardinalityMin,
		Template: "Extension slice \"{slice}\" requires minimum {min} occurrence(s), found {count}. Expected URL: {url}",
	},
	DiagExtensionSliceMax: {
		Severity: SeverityError,
		Code:     CodeCardinalityMax,
		Template: "Extension slice \"{slice}\" allows maximum {max} occurrence(s), found {count}",
	},
	DiagSliceMissing: {
		Severity: SeverityError,
		Code:     CodeCardinalityMin,
		Template: "Slice \"{slice}\" requires minimum {min} occurrence(s), but field is missing",
	},

	DiagShapeUnknownField: {
		Severity: SeverityError,
		Code:     CodeInvalidField,
		Template: "Invalid field \"{field}\" found in {kind} resource",
	},
	DiagShapeEnum: {
		Severity: SeverityError,
		Code:     CodeInvalidValue,
		Template: "Invalid {field} value: \"{value}\". Must be one of: {allowed}",
	},
	DiagShapeDate: {
		Severity: SeverityError,
		Code:     CodeInvalidFormat,
		Template: "Invalid {field} format: \"{value}\". Expected YYYY, YYYY-MM or YYYY-MM-DD format",
	},
	DiagShapeDateTime: {
		Severity: SeverityError,
		Code:     CodeInvalidFormat,
		Template: "Invalid {field} format: \"{value}\". Expected a timestamp with offset (YYYY-MM-DDThh:mm:ss+zz:zz)",
	},
	DiagShapeExpected: {
		Severity: SeverityError,
		Code:     CodeWrongDataType,
		Template: "Field \"{field}\" should be {expected}, not {actual}",
	},
	DiagShapeNegative: {
		Severity: SeverityError,
		Code:     CodeInvalidValue,
		Template: "Field \"{field}\" must not be negative, found {value}",
	},
	DiagShapeExtensionType: {
		Severity: SeverityError,
		Code:     CodeWrongDataType,
		Template: "{name} extension should use {expected}, not {actual}",
	},
	DiagShapeExtensionURL: {
		Severity: SeverityError,
		Code:     CodeInvalidExtension,
		Template: "Invalid or unauthorized extension URL: {url}",
	},
}

var placeholder = regexp.MustCompile(`\{(\w+)\}`)

// formatTemplate replaces every {placeholder} of the template in a single
// pass. Substituted values are never rescanned, and placeholders without a
// param are left as written.
func formatTemplate(template string, params map[string]any) string {
	if len(params) == 0 {
		return template
	}
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		if value, ok := params[m[1:len(m)-1]]; ok {
			return fmt.Sprint(value)
		}
		return m
	})
}

// New builds an issue from a diagnostic template.
func New(id DiagnosticID, params map[string]any, location string) Issue {
	tmpl, ok := diagnosticTemplates[id]
	if !ok {
		return Issue{Severity: SeverityError, Code: CodeException, Details: string(id), Location: location}
	}
	return Issue{
		Severity: tmpl.Severity,
		Code:     tmpl.Code,
		Details:  formatTemplate(tmpl.Template, params),
		Location: location,
	}
}

// Add appends an issue built from a diagnostic template.
func (r *Result) Add(id DiagnosticID, params map[string]any, location string) {
	r.AddIssue(New(id, params, location))
}
