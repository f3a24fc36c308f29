package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"

	"github.com/phcore/validator/pkg/issue"
)

// Format specifies the output format for validation reports.
type Format string

const (
	// FormatText produces human-readable text output.
	FormatText Format = "text"
	// FormatJSON produces machine-readable JSON output.
	FormatJSON Format = "json"
)

// FileReport is the validation result of one input.
type FileReport struct {
	Resource string        `json:"resource"`
	Valid    bool          `json:"valid"`
	Errors   int           `json:"errors"`
	Warnings int           `json:"warnings"`
	Issues   []issue.Issue `json:"issues,omitempty"`
	Duration string        `json:"duration,omitempty"`
}

// Reporter formats and writes validation reports.
type Reporter struct {
	out    io.Writer
	format Format
	quiet  bool
}

// NewReporter creates a new Reporter.
func NewReporter(out io.Writer, format Format, quiet bool) *Reporter {
	return &Reporter{out: out, format: format, quiet: quiet}
}

// Report writes the reports in the configured format.
func (r *Reporter) Report(reports []FileReport) error {
	switch r.format {
	case FormatJSON:
		encoder := json.NewEncoder(r.out)
		encoder.SetIndent("", "  ")
		return errors.Wrap(encoder.Encode(reports), "encoding JSON report")
	default:
		for _, report := range reports {
			r.reportText(report)
		}
		return nil
	}
}

func (r *Reporter) reportText(report FileReport) {
	fmt.Fprintf(r.out, "== %s ==\n", report.Resource)

	status := color.GreenString("VALID")
	if !report.Valid {
		status = color.RedString("INVALID")
	}
	fmt.Fprintf(r.out, "Status: %s\n", status)

	counts := []string{}
	if report.Errors > 0 {
		counts = append(counts, color.RedString("%d error(s)", report.Errors))
	}
	if report.Warnings > 0 {
		counts = append(counts, color.YellowString("%d warning(s)", report.Warnings))
	}
	if len(counts) > 0 {
		fmt.Fprintf(r.out, "Found: %s\n", strings.Join(counts, ", "))
	}
	if report.Duration != "" {
		fmt.Fprintf(r.out, "Duration: %s\n", report.Duration)
	}

	if len(report.Issues) > 0 {
		fmt.Fprintln(r.out, "\nIssues:")
		for _, iss := range report.Issues {
			if r.quiet && iss.Severity == issue.SeverityInformation {
				continue
			}
			r.printIssue(iss)
		}
	}
	fmt.Fprintln(r.out)
}

func (r *Reporter) printIssue(iss issue.Issue) {
	var sb strings.Builder
	sb.WriteString("  ")
	sb.WriteString(severityLabel(iss.Severity))
	sb.WriteString(" [")
	sb.WriteString(string(iss.Code))
	sb.WriteString("] ")
	sb.WriteString(iss.Details)
	if iss.Location != "" {
		sb.WriteString(color.New(color.FgHiBlack).Sprintf(" @ %s", iss.Location))
	}
	fmt.Fprintln(r.out, sb.String())
}

func severityLabel(severity issue.Severity) string {
	switch severity {
	case issue.SeverityError:
		return color.New(color.FgRed, color.Bold).Sprint("ERROR")
	case issue.SeverityWarning:
		return color.YellowString("WARN ")
	case issue.SeverityInformation:
		return color.CyanString("INFO ")
	default:
		return "     "
	}
}
