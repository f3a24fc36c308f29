// Package metrics tracks validation counters using lock-free atomic
// operations. All methods are safe for concurrent use.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phcore/validator/pkg/issue"
)

// Stage names recorded by the validator.
const (
	StageStructure = "structure"
	StageProfile   = "profile"
	StageShape     = "shape"
)

// Metrics accumulates validation statistics.
type Metrics struct {
	validationsTotal atomic.Uint64
	validationsValid atomic.Uint64

	// nanoseconds
	timeTotal atomic.Uint64
	timeMin   atomic.Uint64
	timeMax   atomic.Uint64

	profilesFound   atomic.Uint64
	profilesMissing atomic.Uint64

	errorsTotal   atomic.Uint64
	warningsTotal atomic.Uint64
	infosTotal    atomic.Uint64

	stages sync.Map // map[string]*stageMetrics
}

type stageMetrics struct {
	invocations atomic.Uint64
	totalTime   atomic.Uint64
	issuesFound atomic.Uint64
}

// New creates an empty Metrics.
func New() *Metrics {
	m := &Metrics{}
	m.timeMin.Store(^uint64(0))
	return m
}

// RecordValidation records one completed validation call and its issues.
func (m *Metrics) RecordValidation(duration time.Duration, valid bool, issues []issue.Issue) {
	m.validationsTotal.Add(1)
	if valid {
		m.validationsValid.Add(1)
	}

	ns := uint64(duration.Nanoseconds()) //nolint:gosec // durations are non-negative
	m.timeTotal.Add(ns)

	for {
		old := m.timeMin.Load()
		if ns >= old || m.timeMin.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.timeMax.Load()
		if ns <= old || m.timeMax.CompareAndSwap(old, ns) {
			break
		}
	}

	for _, iss := range issues {
		switch iss.Severity {
		case issue.SeverityError:
			m.errorsTotal.Add(1)
		case issue.SeverityWarning:
			m.warningsTotal.Add(1)
		case issue.SeverityInformation:
			m.infosTotal.Add(1)
		}
	}
}

// RecordProfileLookup records whether a requested profile was indexed.
func (m *Metrics) RecordProfileLookup(found bool) {
	if found {
		m.profilesFound.Add(1)
	} else {
		m.profilesMissing.Add(1)
	}
}

// RecordStage records one run of a validation stage.
func (m *Metrics) RecordStage(name string, duration time.Duration, issuesFound int) {
	v, _ := m.stages.LoadOrStore(name, &stageMetrics{})
	sm := v.(*stageMetrics)
	sm.invocations.Add(1)
	sm.totalTime.Add(uint64(duration.Nanoseconds())) //nolint:gosec // durations are non-negative
	if issuesFound > 0 {
		sm.issuesFound.Add(uint64(issuesFound))
	}
}

// ValidationsTotal returns the number of validation calls.
func (m *Metrics) ValidationsTotal() uint64 {
	return m.validationsTotal.Load()
}

// ValidationsValid returns the number of calls with no error.
func (m *Metrics) ValidationsValid() uint64 {
	return m.validationsValid.Load()
}

// AverageValidationTime returns the mean duration of a call.
func (m *Metrics) AverageValidationTime() time.Duration {
	total := m.validationsTotal.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(m.timeTotal.Load() / total) //nolint:gosec // within int64 range
}

// MinValidationTime returns the fastest call.
func (m *Metrics) MinValidationTime() time.Duration {
	v := m.timeMin.Load()
	if v == ^uint64(0) {
		return 0
	}
	return time.Duration(v) //nolint:gosec // within int64 range
}

// MaxValidationTime returns the slowest call.
func (m *Metrics) MaxValidationTime() time.Duration {
	return time.Duration(m.timeMax.Load()) //nolint:gosec // within int64 range
}

// StageStats summarizes one stage.
type StageStats struct {
	Name        string        `json:"name"`
	Invocations uint64        `json:"invocations"`
	TotalTime   time.Duration `json:"total_time_ns"`
	AvgTime     time.Duration `json:"avg_time_ns"`
	IssuesFound uint64        `json:"issues_found"`
}

// Stages returns the statistics of every recorded stage, sorted by name.
func (m *Metrics) Stages() []StageStats {
	var stats []StageStats
	m.stages.Range(func(key, value any) bool {
		sm := value.(*stageMetrics)
		invocations := sm.invocations.Load()
		total := sm.totalTime.Load()

		var avg time.Duration
		if invocations > 0 {
			avg = time.Duration(total / invocations) //nolint:gosec // within int64 range
		}
		stats = append(stats, StageStats{
			Name:        key.(string),
			Invocations: invocations,
			TotalTime:   time.Duration(total), //nolint:gosec // within int64 range
			AvgTime:     avg,
			IssuesFound: sm.issuesFound.Load(),
		})
		return true
	})
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	ValidationsTotal uint64  `json:"validations_total"`
	ValidationsValid uint64  `json:"validations_valid"`
	ValidationRate   float64 `json:"validation_rate"`

	AvgValidationTimeNs uint64 `json:"avg_validation_time_ns"`
	MinValidationTimeNs uint64 `json:"min_validation_time_ns"`
	MaxValidationTimeNs uint64 `json:"max_validation_time_ns"`

	ProfilesFound   uint64 `json:"profiles_found"`
	ProfilesMissing uint64 `json:"profiles_missing"`

	ErrorsTotal   uint64 `json:"errors_total"`
	WarningsTotal uint64 `json:"warnings_total"`
	InfosTotal    uint64 `json:"infos_total"`

	Stages []StageStats `json:"stages,omitempty"`
}

// Snapshot returns the current values.
func (m *Metrics) Snapshot() Snapshot {
	total := m.validationsTotal.Load()
	valid := m.validationsValid.Load()

	var rate float64
	if total > 0 {
		rate = float64(valid) / float64(total)
	}

	return Snapshot{
		Timestamp:           time.Now(),
		ValidationsTotal:    total,
		ValidationsValid:    valid,
		ValidationRate:      rate,
		AvgValidationTimeNs: uint64(m.AverageValidationTime().Nanoseconds()), //nolint:gosec // non-negative
		MinValidationTimeNs: uint64(m.MinValidationTime().Nanoseconds()),     //nolint:gosec // non-negative
		MaxValidationTimeNs: m.timeMax.Load(),
		ProfilesFound:       m.profilesFound.Load(),
		ProfilesMissing:     m.profilesMissing.Load(),
		ErrorsTotal:         m.errorsTotal.Load(),
		WarningsTotal:       m.warningsTotal.Load(),
		InfosTotal:          m.infosTotal.Load(),
		Stages:              m.Stages(),
	}
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.validationsTotal.Store(0)
	m.validationsValid.Store(0)
	m.timeTotal.Store(0)
	m.timeMin.Store(^uint64(0))
	m.timeMax.Store(0)
	m.profilesFound.Store(0)
	m.profilesMissing.Store(0)
	m.errorsTotal.Store(0)
	m.warningsTotal.Store(0)
	m.infosTotal.Store(0)
	m.stages.Range(func(key, _ any) bool {
		m.stages.Delete(key)
		return true
	})
}
