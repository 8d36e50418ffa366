package doublet

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// parkedExecutor holds tasks until release is called.
type parkedExecutor struct {
	mu    sync.Mutex
	tasks []func()
}

func (e *parkedExecutor) Go(task func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tasks = append(e.tasks, task)
}

func (e *parkedExecutor) release() {
	e.mu.Lock()
	tasks := e.tasks
	e.tasks = nil
	e.mu.Unlock()
	for _, task := range tasks {
		task()
	}
}

func TestInterruptedScanIsRecomputed(t *testing.T) {
	memFs := afero.NewMemMapFs()
	writeZip(t, memFs, "/lib/a.jar", map[string]string{"res": "1"})
	writeZip(t, memFs, "/lib/b.jar", map[string]string{"res": "1", "other": "2"})

	var logs bytes.Buffer
	exec := &parkedExecutor{}
	m := newTestMonitor(t, memFs,
		WithExplicitPath("/lib/a.jar", "/lib/b.jar"),
		WithExecutor(exec),
		WithLogger(zerolog.New(&logs)),
	)

	if m.Ready() {
		t.Fatal("Expected the index not to be ready while the scan is parked")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ix := m.Index(ctx)
	if ix == nil {
		t.Fatal("Index returned nil")
	}
	assertStrings(t, ix.Names(), []string{"other", "res"}, "names")
	if !m.IsDoublet(ctx, "res") {
		t.Error("Expected res to be a doublet")
	}
	if !m.Ready() {
		t.Error("Expected the index to be ready after the synchronous fallback")
	}
	if !strings.Contains(logs.String(), "recomputing synchronously") {
		t.Errorf("Expected a warning about the fallback, got %q", logs.String())
	}

	// The late background result does not replace the published snapshot.
	exec.release()
	if m.Index(context.Background()) != ix {
		t.Error("Expected the first published index to be kept")
	}
}

func TestFutureRecoversFromPanic(t *testing.T) {
	var calls atomic.Int32
	f := startFuture(inlineExecutor(), "test", zerolog.Nop(), func(context.Context) (int, error) {
		if calls.Add(1) == 1 {
			panic("boom")
		}
		return 42, nil
	})

	if got := f.resolve(context.Background()); got != 42 {
		t.Errorf("resolve = %d, want 42", got)
	}
	if got := f.resolve(context.Background()); got != 42 {
		t.Errorf("second resolve = %d, want 42", got)
	}
	if calls.Load() != 2 {
		t.Errorf("compute called %d times, want 2", calls.Load())
	}
}

func TestFutureDoesNotMemoizeFailure(t *testing.T) {
	var calls atomic.Int32
	f := startFuture(inlineExecutor(), "test", zerolog.Nop(), func(context.Context) (string, error) {
		calls.Add(1)
		return "", errors.New("unavailable")
	})

	for i := 0; i < 2; i++ {
		if got := f.resolve(context.Background()); got != "" {
			t.Errorf("resolve = %q, want zero value", got)
		}
	}
	if f.ready() {
		t.Error("A failed computation must not be published")
	}
	if calls.Load() != 3 {
		t.Errorf("compute called %d times, want 3", calls.Load())
	}
}

func TestFutureFinishedTaskWinsOverCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 200; i++ {
		var calls atomic.Int32
		f := startFuture(inlineExecutor(), "test", zerolog.Nop(), func(context.Context) (int, error) {
			calls.Add(1)
			return 9, nil
		})

		if got := f.resolve(ctx); got != 9 {
			t.Fatalf("resolve = %d, want 9", got)
		}
		if calls.Load() != 1 {
			t.Fatalf("round %d: compute called %d times, want 1", i, calls.Load())
		}
	}
}

func TestFutureConcurrentResolve(t *testing.T) {
	var calls atomic.Int32
	f := startFuture(goExecutor(), "test", zerolog.Nop(), func(context.Context) (int, error) {
		calls.Add(1)
		return 7, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := f.resolve(context.Background()); got != 7 {
				t.Errorf("resolve = %d, want 7", got)
			}
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("compute called %d times, want 1", calls.Load())
	}
}
