// Package batch fans per-item work out over a bounded worker pool while
// keeping results in input order.
package batch

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// #region config
// Config sizes a Runner. Zero fields take defaults.
type Config struct {
	BatchSize int `json:"batch_size"`
	Workers   int `json:"workers"`
}

// DefaultBatchSize is the chunk length used when Config.BatchSize is unset.
const DefaultBatchSize = 32

// Runner executes item functions chunk by chunk.
type Runner struct {
	BatchSize int
	Workers   int
}

// NewRunner applies defaults: batch size 32, one worker per GOMAXPROCS.
func NewRunner(cfg Config) *Runner {
	r := &Runner{BatchSize: cfg.BatchSize, Workers: cfg.Workers}
	if r.BatchSize <= 0 {
		r.BatchSize = DefaultBatchSize
	}
	if r.Workers <= 0 {
		r.Workers = runtime.GOMAXPROCS(0)
	}
	return r
}

// #endregion config

// #region item-error
// ItemError reports which input element failed.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// #endregion item-error

// #region map
// Map applies fn to every item and returns results in input order. Items are
// processed in chunks of r.BatchSize, each chunk spread across at most
// r.Workers goroutines. A failing chunk stops scheduling further chunks and
// its lowest failing index is returned as an *ItemError, whatever order the
// goroutines finished in. Unset Runner fields take NewRunner defaults.
func Map[T, R any](ctx context.Context, r *Runner, items []T, fn func(T) (R, error)) ([]R, error) {
	switch {
	case r == nil:
		r = NewRunner(Config{})
	case r.BatchSize <= 0 || r.Workers <= 0:
		r = NewRunner(Config{BatchSize: r.BatchSize, Workers: r.Workers})
	}
	out := make([]R, len(items))
	errs := make([]error, r.BatchSize)
	for start := 0; start < len(items); start += r.BatchSize {
		end := min(start+r.BatchSize, len(items))
		clear(errs)

		// Siblings are not cancelled on failure so every lower index still
		// reports its own outcome.
		var g errgroup.Group
		g.SetLimit(r.Workers)
		for i := start; i < end; i++ {
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				res, err := fn(items[i])
				if err != nil {
					errs[i-start] = &ItemError{Index: i, Err: err}
					return nil
				}
				out[i] = res
				return nil
			})
		}
		g.Wait()
		for _, err := range errs[:end-start] {
			if err != nil {
				return nil, err
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// #endregion map
