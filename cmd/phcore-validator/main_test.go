package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phcore/validator/pkg/issue"
	"github.com/phcore/validator/pkg/logger"
	"github.com/phcore/validator/pkg/query"
	"github.com/phcore/validator/pkg/registry"
	"github.com/phcore/validator/pkg/store"
	"github.com/phcore/validator/pkg/validator"
)

const encounterProfile = `{
  "resourceType": "StructureDefinition",
  "id": "ph-core-encounter",
  "url": "http://doh.gov.ph/fhir/ph-core/StructureDefinition/ph-core-encounter",
  "name": "PHCoreEncounter",
  "status": "active",
  "type": "Encounter",
  "differential": {
    "element": [
      {"id": "Encounter", "path": "Encounter"},
      {"id": "Encounter.subject", "path": "Encounter.subject", "min": 1}
    ]
  }
}`

const encounterURL = "http://doh.gov.ph/fhir/ph-core/StructureDefinition/ph-core-encounter"

func TestMain(m *testing.M) {
	logger.Disable()
	color.NoColor = true
	os.Exit(m.Run())
}

func newTestValidator(t *testing.T) *validator.Validator {
	t.Helper()
	s := store.New()
	var content map[string]any
	require.NoError(t, json.Unmarshal([]byte(encounterProfile), &content))
	_, ok := s.Add(content, []byte(encounterProfile), "test")
	require.True(t, ok)
	return validator.New(registry.New(s))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestRunValidateText(t *testing.T) {
	v := newTestValidator(t)
	dir := t.TempDir()
	good := writeFile(t, dir, "good.json", `{"resourceType":"Encounter","id":"e1","subject":{"reference":"Patient/p1"}}`)
	bad := writeFile(t, dir, "bad.json", `{"resourceType":"Encounter","id":"e2"}`)

	var out bytes.Buffer
	valid, err := runValidate(context.Background(), v, []string{good, bad}, nil, &out,
		validateOptions{profile: encounterURL, output: "text"})
	require.NoError(t, err)
	assert.False(t, valid)

	text := out.String()
	assert.Contains(t, text, "== "+good+" ==\nStatus: VALID")
	assert.Contains(t, text, "== "+bad+" ==\nStatus: INVALID")
	assert.Contains(t, text, "ERROR [required]")
	assert.Contains(t, text, "@ Encounter.subject")
}

func TestRunValidateJSON(t *testing.T) {
	v := newTestValidator(t)
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{"resourceType":"Encounter","id":"a","subject":{}}`)
	writeFile(t, dir, "b.json", `{"resourceType":"Encounter","id":"b","subject":{}}`)

	var out bytes.Buffer
	valid, err := runValidate(context.Background(), v, []string{filepath.Join(dir, "*.json")}, nil, &out,
		validateOptions{profile: encounterURL, output: "json"})
	require.NoError(t, err)
	assert.True(t, valid)

	var reports []FileReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &reports))
	require.Len(t, reports, 2)
	for _, r := range reports {
		assert.True(t, r.Valid)
		assert.Zero(t, r.Errors)
	}
}

func TestRunValidateStdin(t *testing.T) {
	v := newTestValidator(t)

	var out bytes.Buffer
	stdin := strings.NewReader(`{"resourceType":"Patient"}`)
	valid, err := runValidate(context.Background(), v, []string{"-"}, stdin, &out,
		validateOptions{output: "json"})
	require.NoError(t, err)
	assert.True(t, valid)

	var reports []FileReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, "stdin", reports[0].Resource)
	assert.Equal(t, 1, reports[0].Warnings)
}

func TestRunValidateInvalidJSON(t *testing.T) {
	v := newTestValidator(t)

	var out bytes.Buffer
	valid, err := runValidate(context.Background(), v, []string{"-"}, strings.NewReader("{not json"), &out,
		validateOptions{output: "json"})
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestRunValidateNoMatch(t *testing.T) {
	v := newTestValidator(t)

	var out bytes.Buffer
	valid, err := runValidate(context.Background(), v, []string{filepath.Join(t.TempDir(), "*.json")}, nil, &out,
		validateOptions{output: "text"})
	require.NoError(t, err)
	assert.False(t, valid)
	assert.Contains(t, out.String(), "No files match pattern")
}

func TestRunValidateVerbose(t *testing.T) {
	v := newTestValidator(t)
	dir := t.TempDir()
	p := writeFile(t, dir, "e.json", `{"resourceType":"Encounter","id":"e","status":"done","subject":{"reference":"Patient/p"}}`)

	var plain, verbose, unprofiled bytes.Buffer
	valid, err := runValidate(context.Background(), v, []string{p}, nil, &plain, validateOptions{profile: encounterURL, output: "text"})
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = runValidate(context.Background(), v, []string{p}, nil, &verbose, validateOptions{profile: encounterURL, output: "text", verbose: true})
	require.NoError(t, err)
	assert.False(t, valid)
	assert.Contains(t, verbose.String(), "Invalid status value")

	valid, err = runValidate(context.Background(), v, []string{p}, nil, &unprofiled, validateOptions{output: "text", verbose: true})
	require.NoError(t, err)
	assert.True(t, valid, "shape rules need a profile")
}

func TestReporterQuiet(t *testing.T) {
	reports := []FileReport{{
		Resource: "x.json",
		Valid:    true,
		Warnings: 1,
		Issues: []issue.Issue{
			{Severity: issue.SeverityWarning, Code: issue.CodeRequired, Details: "Missing recommended field: id"},
			{Severity: issue.SeverityInformation, Code: issue.CodeInformational, Details: "note"},
		},
	}}

	var out bytes.Buffer
	require.NoError(t, NewReporter(&out, FormatText, true).Report(reports))
	assert.Contains(t, out.String(), "WARN  [required] Missing recommended field: id")
	assert.NotContains(t, out.String(), "note")
	assert.Contains(t, out.String(), "Found: 1 warning(s)")
}

func TestExitCode(t *testing.T) {
	code, ok := exitCode(&exitError{code: 1})
	assert.True(t, ok)
	assert.Equal(t, 1, code)

	_, ok = exitCode(assert.AnError)
	assert.False(t, ok)
}

func TestRunEval(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	var out bytes.Buffer
	cmd.SetOut(&out)

	doc := []byte(`{"resourceType":"Patient","name":[{"given":["Maria","Clara"]}]}`)
	require.NoError(t, runEval(cmd, query.New(), "Patient.name.given", doc, false))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Maria")
	assert.Contains(t, lines[1], "Clara")

	out.Reset()
	require.NoError(t, runEval(cmd, query.New(), "Patient.birthDate", doc, false))
	assert.Equal(t, "(empty)\n", out.String())
}

func TestRunEvalSharesEngine(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	var out bytes.Buffer
	cmd.SetOut(&out)

	engine := query.New()
	expr := "Patient.name.exists()"
	require.NoError(t, runEval(cmd, engine, expr, []byte(`{"resourceType":"Patient","name":[{"family":"Santos"}]}`), true))
	require.NoError(t, runEval(cmd, engine, expr, []byte(`{"resourceType":"Patient"}`), true))
	assert.Equal(t, "true\nfalse\n", out.String())

	stats := engine.CacheStats()
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Hits)
}

func TestEvalCommandFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.json", `{"resourceType":"Patient","gender":"female"}`)
	b := writeFile(t, dir, "b.json", `{"resourceType":"Patient","gender":"male"}`)

	cmd := newEvalCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--bool", "gender = 'female'", a, b})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.Equal(t, "== "+a+" ==\ntrue\n== "+b+" ==\nfalse\n", out.String())
}

func TestPrintProfiles(t *testing.T) {
	s := store.New()
	for _, raw := range []string{
		encounterProfile,
		`{"resourceType":"ValueSet","id":"vs","url":"http://example.org/vs","compose":{"include":[{"system":"http://example.org/cs","concept":[{"code":"a"},{"code":"b"}]}]}}`,
		`{"resourceType":"CodeSystem","id":"cs","url":"http://example.org/cs","concept":[{"code":"a"},{"code":"b"},{"code":"c"}]}`,
	} {
		var content map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &content))
		s.Add(content, []byte(raw), "test")
	}
	idx := registry.New(s)

	var text bytes.Buffer
	require.NoError(t, printProfiles(&text, idx, false))
	assert.Contains(t, text.String(), "Encounter  PHCoreEncounter  active  "+encounterURL)
	assert.Contains(t, text.String(), "1 profiles, 1 value sets (2 codes), 1 code systems (3 concepts)")

	var raw bytes.Buffer
	require.NoError(t, printProfiles(&raw, idx, true))
	var decoded struct {
		Profiles []registry.ProfileInfo `json:"profiles"`
		Stats    registry.Stats         `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(raw.Bytes(), &decoded))
	require.Len(t, decoded.Profiles, 1)
	assert.Equal(t, registry.Stats{Profiles: 1, ValueSets: 1, CodeSystems: 1, Codes: 2, Concepts: 3}, decoded.Stats)
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()
	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "validate", "profiles", "eval"}, names)
}
