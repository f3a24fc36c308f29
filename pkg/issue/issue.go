// Package issue defines validation findings aligned with FHIR OperationOutcome.
package issue

// Severity represents the severity of a validation issue.
type Severity string

// Severity constants aligned with FHIR IssueSeverity.
const (
	SeverityError       Severity = "error"
	SeverityWarning     Severity = "warning"
	SeverityInformation Severity = "information"
)

// Code is the short machine code of a finding.
type Code string

// Codes produced by the validator.
const (
	CodeRequired         Code = "required"
	CodeRecommended      Code = "recommended"
	CodeCardinalityMin   Code = "cardinality-min"
	CodeCardinalityMax   Code = "cardinality-max"
	CodeTypeMismatch     Code = "type-mismatch"
	CodeNotFound         Code = "not-found"
	CodeInvalidField     Code = "invalid-field"
	CodeInvalidValue     Code = "invalid-value"
	CodeInvalidFormat    Code = "invalid-format"
	CodeWrongDataType    Code = "wrong-data-type"
	CodeInvalidExtension Code = "invalid-extension"
	CodeInvalid          Code = "invalid"
	CodeException        Code = "exception"
	CodeInformational    Code = "informational"
)

// LocationRoot is used when a finding applies to the whole document.
const LocationRoot = "root"

// Issue represents a single validation finding. Issues are values; once
// appended to a Result they are never modified.
type Issue struct {
	// Severity indicates the severity level (error, warning, information)
	Severity Severity `json:"severity"`

	// Code indicates the type of issue
	Code Code `json:"code"`

	// Details is the human-readable description of the issue
	Details string `json:"details"`

	// Location is a dotted path, optionally suffixed with ":sliceName"
	Location string `json:"location,omitempty"`
}

// IsError reports whether the issue makes a document invalid.
func (i Issue) IsError() bool {
	return i.Severity == SeverityError
}

// String returns a human-readable representation of the issue.
func (i Issue) String() string {
	s := string(i.Severity) + " [" + string(i.Code) + "]: " + i.Details
	if i.Location != "" {
		s += " at " + i.Location
	}
	return s
}

// Key identifies an issue by code and location, ignoring wording.
func (i Issue) Key() string {
	return string(i.Code) + "@" + i.Location
}

// Result holds the ordered collection of issues from validation.
type Result struct {
	Issues []Issue
}

// defaultIssueCapacity is the pre-allocated capacity for Issues slice.
const defaultIssueCapacity = 8

// NewResult creates a new empty Result with pre-allocated capacity.
func NewResult() *Result {
	return &Result{
		Issues: make([]Issue, 0, defaultIssueCapacity),
	}
}

// AddIssue adds an issue to the result.
func (r *Result) AddIssue(issue Issue) {
	r.Issues = append(r.Issues, issue)
}

// HasErrors returns true if there are any error-level issues.
func (r *Result) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.IsError() {
			return true
		}
	}
	return false
}

// ErrorCount returns the number of error-level issues.
func (r *Result) ErrorCount() int {
	return r.count(SeverityError)
}

// WarningCount returns the number of warning-level issues.
func (r *Result) WarningCount() int {
	return r.count(SeverityWarning)
}

func (r *Result) count(severity Severity) int {
	count := 0
	for _, issue := range r.Issues {
		if issue.Severity == severity {
			count++
		}
	}
	return count
}
