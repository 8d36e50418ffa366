package doublet

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Executor runs background tasks. Tasks must not be dropped.
type Executor interface {
	Go(task func())
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(task func())

// Go implements Executor.
func (f ExecutorFunc) Go(task func()) {
	f(task)
}

// goExecutor starts one goroutine per task.
func goExecutor() Executor {
	return ExecutorFunc(func(task func()) { go task() })
}

// future is a one-shot background computation with a memoized result.
//
// Only callers arriving before the result is published block. The first
// published value is shared by every later caller. If the background task
// fails, panics, or the caller's wait is interrupted, the computation is run
// again on the caller's goroutine.
type future[T any] struct {
	name    string
	compute func(ctx context.Context) (T, error)
	log     zerolog.Logger

	done chan struct{}
	val  T
	err  error

	resolved atomic.Pointer[T]
	mu       sync.Mutex // serializes synchronous fallbacks
}

// startFuture schedules compute on exec and returns immediately.
func startFuture[T any](exec Executor, name string, log zerolog.Logger, compute func(ctx context.Context) (T, error)) *future[T] {
	f := &future[T]{
		name:    name,
		compute: compute,
		log:     log,
		done:    make(chan struct{}),
	}
	exec.Go(f.run)
	return f
}

func (f *future[T]) run() {
	defer close(f.done)
	defer func() {
		if r := recover(); r != nil {
			f.err = fmt.Errorf("%s panicked: %v", f.name, r)
		}
	}()
	f.val, f.err = f.compute(context.Background())
}

// ready reports whether a value has been published.
func (f *future[T]) ready() bool {
	return f.resolved.Load() != nil
}

// resolve returns the memoized value, waiting for the background task only
// while nothing has been published yet.
func (f *future[T]) resolve(ctx context.Context) T {
	if v := f.resolved.Load(); v != nil {
		return *v
	}

	// A finished task wins over a done ctx.
	select {
	case <-f.done:
		if f.err == nil {
			return f.publish(f.val)
		}
	default:
	}

	select {
	case <-f.done:
		if f.err == nil {
			return f.publish(f.val)
		}
		f.log.Warn().Err(f.err).Str("task", f.name).Msg("background computation failed, recomputing synchronously")
	case <-ctx.Done():
		f.log.Warn().
			Err(fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err())).
			Str("task", f.name).
			Msg("wait for background computation interrupted, recomputing synchronously")
	}
	return f.fallback()
}

func (f *future[T]) fallback() T {
	f.mu.Lock()
	defer f.mu.Unlock()

	if v := f.resolved.Load(); v != nil {
		return *v
	}
	v, err := f.runSync()
	if err != nil {
		// Not memoized so the next caller tries again.
		f.log.Error().Err(err).Str("task", f.name).Msg("synchronous computation failed")
		return v
	}
	return f.publish(v)
}

func (f *future[T]) runSync() (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", f.name, r)
		}
	}()
	return f.compute(context.Background())
}

func (f *future[T]) publish(v T) T {
	if f.resolved.CompareAndSwap(nil, &v) {
		return v
	}
	return *f.resolved.Load()
}
