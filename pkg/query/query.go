// Package query evaluates FHIRPath expressions against documents.
// Compiled expressions are cached and the cache is safe for concurrent use.
package query

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/gofhir/fhirpath"

	"github.com/phcore/validator/pkg/cache"
)

// Engine compiles and evaluates FHIRPath expressions.
type Engine struct {
	cache *cache.LRU[string, *fhirpath.Expression]
}

// New creates an Engine with an expression cache of the default size.
func New() *Engine {
	return NewWithCapacity(cache.DefaultCapacity)
}

// NewWithCapacity creates an Engine caching at most capacity compiled
// expressions.
func NewWithCapacity(capacity int) *Engine {
	return &Engine{cache: cache.New[string, *fhirpath.Expression](capacity)}
}

// Compile returns the cached compiled form of expr, compiling it on
// first use.
func (e *Engine) Compile(expr string) (*fhirpath.Expression, error) {
	if compiled, ok := e.cache.Get(expr); ok {
		return compiled, nil
	}

	compiled, err := fhirpath.Compile(expr)
	if err != nil {
		return nil, errors.Wrapf(err, "compile %q", expr)
	}

	e.cache.Set(expr, compiled)
	return compiled, nil
}

// Eval evaluates expr against doc, which may be JSON bytes, a JSON
// string or any value that marshals to a JSON object.
func (e *Engine) Eval(ctx context.Context, expr string, doc any) (fhirpath.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := toJSON(doc)
	if err != nil {
		return nil, errors.Wrap(err, "encode document")
	}

	compiled, err := e.Compile(expr)
	if err != nil {
		return nil, err
	}

	result, err := compiled.Evaluate(data)
	if err != nil {
		return nil, errors.Wrapf(err, "evaluate %q", expr)
	}
	return result, nil
}

// EvalBool evaluates expr with FHIRPath truthiness: an empty result is
// false, a single boolean is its value, anything else is true.
func (e *Engine) EvalBool(ctx context.Context, expr string, doc any) (bool, error) {
	result, err := e.Eval(ctx, expr, doc)
	if err != nil {
		return false, err
	}
	if result.Empty() {
		return false, nil
	}
	if b, err := result.ToBoolean(); err == nil {
		return b, nil
	}
	return true, nil
}

// EvalStrings evaluates expr and renders every item of the result.
func (e *Engine) EvalStrings(ctx context.Context, expr string, doc any) ([]string, error) {
	result, err := e.Eval(ctx, expr, doc)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(result))
	for _, item := range result {
		out = append(out, fmt.Sprint(item))
	}
	return out, nil
}

// CacheStats returns the expression cache counters.
func (e *Engine) CacheStats() cache.Stats {
	return e.cache.Stats()
}

func toJSON(doc any) ([]byte, error) {
	switch v := doc.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return json.Marshal(v)
	}
}
