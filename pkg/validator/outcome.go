package validator

import (
	"github.com/google/uuid"

	"github.com/phcore/validator/pkg/issue"
)

// Outcome is the result of one validation call. Valid is true iff no
// issue has error severity.
type Outcome struct {
	Valid      bool          `json:"valid"`
	Issues     []issue.Issue `json:"issues"`
	ProfileURL string        `json:"profileUrl,omitempty"`
}

func newOutcome(result *issue.Result, profileURL string) *Outcome {
	issues := make([]issue.Issue, len(result.Issues))
	copy(issues, result.Issues)
	return &Outcome{
		Valid:      !result.HasErrors(),
		Issues:     issues,
		ProfileURL: profileURL,
	}
}

// Errors returns the error-severity issues.
func (o *Outcome) Errors() []issue.Issue {
	return o.bySeverity(issue.SeverityError)
}

// Warnings returns the warning-severity issues.
func (o *Outcome) Warnings() []issue.Issue {
	return o.bySeverity(issue.SeverityWarning)
}

// ErrorCount returns the number of errors.
func (o *Outcome) ErrorCount() int {
	return len(o.Errors())
}

// WarningCount returns the number of warnings.
func (o *Outcome) WarningCount() int {
	return len(o.Warnings())
}

func (o *Outcome) bySeverity(s issue.Severity) []issue.Issue {
	var out []issue.Issue
	for _, iss := range o.Issues {
		if iss.Severity == s {
			out = append(out, iss)
		}
	}
	return out
}

// OperationOutcome renders the outcome as a FHIR OperationOutcome. An
// outcome without issues carries a single informational success issue.
func (o *Outcome) OperationOutcome() map[string]any {
	issues := make([]any, 0, len(o.Issues)+1)
	for _, iss := range o.Issues {
		entry := map[string]any{
			"severity": string(iss.Severity),
			"code":     string(iss.Code),
			"details":  map[string]any{"text": iss.Details},
		}
		if iss.Location != "" {
			entry["location"] = []any{iss.Location}
		}
		issues = append(issues, entry)
	}

	if len(issues) == 0 {
		success := issue.New(issue.DiagSuccess, nil, "")
		issues = append(issues, map[string]any{
			"severity": string(success.Severity),
			"code":     string(success.Code),
			"details":  map[string]any{"text": success.Details},
		})
	}

	return map[string]any{
		"resourceType": "OperationOutcome",
		"id":           uuid.NewString(),
		"issue":        issues,
	}
}

// SummaryIssue is an issue as listed in a Summary.
type SummaryIssue struct {
	Severity issue.Severity `json:"severity"`
	Code     issue.Code     `json:"code"`
	Details  string         `json:"details"`
	Location string         `json:"location"`
}

// Summary is the compact outcome form used by interactive clients.
type Summary struct {
	Success      bool           `json:"success"`
	Issues       []SummaryIssue `json:"issues"`
	TotalIssues  int            `json:"total_issues"`
	ErrorCount   int            `json:"error_count"`
	WarningCount int            `json:"warning_count"`
}

// Summary returns the compact form. Success means no issues at all, not
// merely no errors. Issues without a location are placed at root.
func (o *Outcome) Summary() Summary {
	issues := make([]SummaryIssue, 0, len(o.Issues))
	for _, iss := range o.Issues {
		loc := iss.Location
		if loc == "" {
			loc = issue.LocationRoot
		}
		issues = append(issues, SummaryIssue{
			Severity: iss.Severity,
			Code:     iss.Code,
			Details:  iss.Details,
			Location: loc,
		})
	}
	return Summary{
		Success:      len(o.Issues) == 0,
		Issues:       issues,
		TotalIssues:  len(o.Issues),
		ErrorCount:   o.ErrorCount(),
		WarningCount: o.WarningCount(),
	}
}
