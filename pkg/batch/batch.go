// Package batch validates many documents in parallel while keeping the
// results in input order.
package batch

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/phcore/validator/pkg/validator"
)

// Func validates one raw document.
type Func func(ctx context.Context, data []byte) (*validator.Outcome, error)

// Job is one named document.
type Job struct {
	Name string
	Data []byte
}

// Result is the outcome of one Job. Outcome is nil when Err is set or the
// job was never started because the context ended.
type Result struct {
	Name     string
	Outcome  *validator.Outcome
	Err      error
	Duration time.Duration
}

// Validator runs a Func over batches of jobs.
type Validator struct {
	fn      Func
	workers int
}

// New creates a batch validator. workers <= 0 means one per CPU.
func New(fn Func, workers int) *Validator {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Validator{fn: fn, workers: workers}
}

// Run validates every job and returns one Result per job, in order.
func (v *Validator) Run(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))
	for i, job := range jobs {
		results[i].Name = job.Name
	}
	if len(jobs) == 0 {
		return results
	}

	if len(jobs) <= 2 || v.workers == 1 {
		for i, job := range jobs {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				continue
			}
			results[i] = v.runOne(ctx, job)
		}
		return results
	}

	workers := v.workers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indexes {
				if err := ctx.Err(); err != nil {
					results[i].Err = err
					continue
				}
				results[i] = v.runOne(ctx, jobs[i])
			}
		}()
	}

	for i := range jobs {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	return results
}

func (v *Validator) runOne(ctx context.Context, job Job) Result {
	start := time.Now()
	out, err := v.fn(ctx, job.Data)
	return Result{
		Name:     job.Name,
		Outcome:  out,
		Err:      err,
		Duration: time.Since(start),
	}
}

// Summary counts the results of a batch.
type Summary struct {
	Total  int `json:"total"`
	Valid  int `json:"valid"`
	Failed int `json:"failed"`
}

// Summarize counts valid documents and failed runs.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Err != nil:
			s.Failed++
		case r.Outcome != nil && r.Outcome.Valid:
			s.Valid++
		}
	}
	return s
}
