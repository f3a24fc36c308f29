// Package validator checks clinical documents against indexed profiles.
//
// A Validator is built once from a conformance index and may then be
// shared by any number of goroutines: it holds no per-call state and
// never mutates the documents it is given.
package validator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/phcore/validator/pkg/element"
	"github.com/phcore/validator/pkg/issue"
	"github.com/phcore/validator/pkg/logger"
	"github.com/phcore/validator/pkg/metrics"
	"github.com/phcore/validator/pkg/path"
	"github.com/phcore/validator/pkg/registry"
	"github.com/phcore/validator/pkg/shape"
	"github.com/phcore/validator/pkg/slicing"
)

// Index is the part of the conformance index the validator reads.
type Index interface {
	Profile(url string) (*registry.Profile, bool)
	HasValueSet(url string) bool
}

// Validator is the entry point for document validation.
type Validator struct {
	index Index

	elementValidator *element.Validator
	sliceValidator   *slicing.Validator
	shapeValidator   *shape.Validator

	metrics *metrics.Metrics
}

// Option configures a Validator.
type Option func(*Validator)

// WithShapeTable replaces the built-in shape rule table used in verbose
// mode.
func WithShapeTable(table map[string]shape.KindRules) Option {
	return func(v *Validator) {
		v.shapeValidator = shape.NewWithTable(table)
	}
}

// WithMetrics records every validation call into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Validator) {
		v.metrics = m
	}
}

// New creates a Validator over an index.
func New(index Index, opts ...Option) *Validator {
	v := &Validator{
		index:            index,
		elementValidator: element.New(index),
		sliceValidator:   slicing.New(),
		shapeValidator:   shape.New(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks doc against profileURL, or against the profiles the
// document declares in meta.profile when profileURL is empty. Evaluation
// of a profile stops at a kind mismatch.
func (v *Validator) Validate(ctx context.Context, doc map[string]any, profileURL string) (*Outcome, error) {
	return v.validate(ctx, doc, profileURL, false)
}

// ValidateVerbose is Validate without the early stop on a kind mismatch,
// followed by the shape rules of the document's kind.
func (v *Validator) ValidateVerbose(ctx context.Context, doc map[string]any, profileURL string) (*Outcome, error) {
	return v.validate(ctx, doc, profileURL, true)
}

// ValidateJSON parses data and validates it. Malformed input yields an
// invalid outcome rather than an error.
func (v *Validator) ValidateJSON(ctx context.Context, data []byte, profileURL string) (*Outcome, error) {
	return v.validateJSON(ctx, data, profileURL, false)
}

// ValidateJSONVerbose parses data and validates it in verbose mode.
func (v *Validator) ValidateJSONVerbose(ctx context.Context, data []byte, profileURL string) (*Outcome, error) {
	return v.validateJSON(ctx, data, profileURL, true)
}

func (v *Validator) validateJSON(ctx context.Context, data []byte, profileURL string, verbose bool) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		result := issue.NewResult()
		result.Add(issue.DiagInvalidJSON, map[string]any{"error": err.Error()}, issue.LocationRoot)
		return newOutcome(result, profileURL), nil
	}
	return v.validate(ctx, doc, profileURL, verbose)
}

func (v *Validator) validate(ctx context.Context, doc map[string]any, profileURL string, verbose bool) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	result := v.run(doc, profileURL, verbose)
	out := newOutcome(result, profileURL)
	elapsed := time.Since(start)

	if v.metrics != nil {
		v.metrics.RecordValidation(elapsed, out.Valid, out.Issues)
	}

	kind, _ := doc["resourceType"].(string)
	logger.Debug("Validated %s in %v: %d errors, %d warnings (verbose=%t)",
		kind, elapsed.Round(time.Microsecond), out.ErrorCount(), out.WarningCount(), verbose)

	return out, nil
}

// run collects all findings. A panic anywhere in evaluation replaces
// them with a single exception finding.
func (v *Validator) run(doc map[string]any, profileURL string, verbose bool) (result *issue.Result) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("validation aborted: %v", r)
			result = issue.NewResult()
			result.Add(issue.DiagValidationFailed, map[string]any{"error": fmt.Sprint(r)}, issue.LocationRoot)
		}
	}()

	result = issue.NewResult()
	v.stage(metrics.StageStructure, result, func() {
		validateStructure(doc, result)
	})

	shaped := make(map[string]bool)
	for _, url := range profilesFor(doc, profileURL) {
		var profile *registry.Profile
		v.stage(metrics.StageProfile, result, func() {
			profile = v.validateProfile(doc, url, verbose, result)
		})
		if !verbose || profile == nil || shaped[url] {
			continue
		}
		shaped[url] = true

		kind := profile.Type
		if kind == "" {
			kind, _ = doc["resourceType"].(string)
		}
		if kind == "" {
			continue
		}
		v.stage(metrics.StageShape, result, func() {
			v.shapeValidator.Validate(doc, kind, result)
		})
	}
	return result
}

func (v *Validator) stage(name string, result *issue.Result, fn func()) {
	if v.metrics == nil {
		fn()
		return
	}
	start := time.Now()
	before := len(result.Issues)
	fn()
	v.metrics.RecordStage(name, time.Since(start), len(result.Issues)-before)
}

// validateStructure checks the fields every document must carry.
func validateStructure(doc map[string]any, result *issue.Result) {
	if _, ok := doc["resourceType"]; !ok {
		result.Add(issue.DiagMissingKind, nil, "")
	}
	if _, ok := doc["id"]; !ok {
		result.Add(issue.DiagMissingID, nil, "")
	}
}

// validateProfile checks doc against the differential of the profile at url.
// It returns the profile when evaluation went through its element rules,
// which is when verbose shape rules apply to it.
func (v *Validator) validateProfile(doc map[string]any, url string, verbose bool, result *issue.Result) *registry.Profile {
	profile, ok := v.index.Profile(url)
	if v.metrics != nil {
		v.metrics.RecordProfileLookup(ok)
	}
	if !ok {
		result.Add(issue.DiagProfileNotFound, map[string]any{"url": url}, "")
		return nil
	}

	kind, _ := doc["resourceType"].(string)
	if profile.Type != "" && kind != profile.Type {
		actual := kind
		if actual == "" {
			actual = "unknown"
		}
		result.Add(issue.DiagProfileMismatch, map[string]any{"actual": actual, "expected": profile.Type}, "")
		if !verbose {
			return nil
		}
	}

	for _, group := range profile.Groups() {
		if path.IsRoot(group.Path) {
			continue
		}
		if group.HasSlices() {
			v.sliceValidator.ValidateGroup(doc, group, result)
		} else {
			v.elementValidator.ValidateGroup(doc, group, result)
		}
	}
	return profile
}

// profilesFor returns the profile URLs to evaluate. An explicit URL wins
// over meta.profile, which may hold a single string or a list.
func profilesFor(doc map[string]any, explicit string) []string {
	if explicit != "" {
		return []string{explicit}
	}

	meta, ok := path.Of(doc).Field("meta").Mapping()
	if !ok {
		return nil
	}

	declared := path.Of(meta["profile"])
	if s, ok := declared.Text(); ok {
		return []string{s}
	}

	items, ok := declared.Sequence()
	if !ok {
		return nil
	}
	urls := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			urls = append(urls, s)
		}
	}
	return urls
}
