// Package fileproc provides concurrent file processing utilities.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// ProcessingError represents an error that occurred while processing a file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e ProcessingError) Unwrap() error {
	return e.Err
}

// ProcessingErrors collects multiple file processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Sorted returns the collected errors ordered by path.
func (e *ProcessingErrors) Sorted() []ProcessingError {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ProcessingError, len(e.Errors))
	copy(out, e.Errors)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// DefaultWorkerMultiplier scales NumCPU into the default pool size. Parsing
// runs in cgo and loading blocks on I/O, so one worker per CPU leaves cores
// idle.
const DefaultWorkerMultiplier = 2

// Workers returns n, or 2x NumCPU when n is not positive.
func Workers(n int) int {
	if n <= 0 {
		return runtime.NumCPU() * DefaultWorkerMultiplier
	}
	return n
}

// ProgressFunc is called after each item is processed.
type ProgressFunc func()

// MapIndexed runs fn for every item on a bounded pool. The result and error
// of item i are stored at index i, so callers see input order regardless of
// scheduling. Item errors do not stop the pool. The returned error is only
// set when ctx is cancelled, in which case the partial results are dropped.
// If maxWorkers is <= 0, defaults to 2x NumCPU.
func MapIndexed[T, R any](
	ctx context.Context,
	items []T,
	maxWorkers int,
	fn func(context.Context, T) (R, error),
	onProgress ProgressFunc,
) ([]R, []error, error) {
	if len(items) == 0 {
		return nil, nil, ctx.Err()
	}

	results := make([]R, len(items))
	errs := make([]error, len(items))

	p := pool.New().WithMaxGoroutines(Workers(maxWorkers)).WithContext(ctx)
	for i, item := range items {
		p.Go(func(ctx context.Context) error {
			// Check for cancellation before processing
			if err := ctx.Err(); err != nil {
				return err
			}

			results[i], errs[i] = fn(ctx, item)

			if onProgress != nil {
				onProgress()
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return results, errs, nil
}

// ForEachIndex calls fn for every index in [0, n) on a bounded pool. The
// first error cancels the remaining work and is returned; cancellation of
// ctx returns ctx.Err().
// If maxWorkers is <= 0, defaults to 2x NumCPU.
func ForEachIndex(ctx context.Context, n, maxWorkers int, fn func(context.Context, int) error, onProgress ProgressFunc) error {
	if n <= 0 {
		return ctx.Err()
	}

	p := pool.New().
		WithMaxGoroutines(Workers(maxWorkers)).
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()
	for i := 0; i < n; i++ {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx, i); err != nil {
				return err
			}
			if onProgress != nil {
				onProgress()
			}
			return nil
		})
	}
	err := p.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
