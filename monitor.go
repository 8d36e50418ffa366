package doublet

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"
)

// Monitor indexes one search path and answers doublet queries about it.
// It is safe for concurrent use.
type Monitor struct {
	cfg       Config
	explicit  []string
	provider  any
	profiles  []Profile
	registry  *Registry
	adapter   Adapter
	fs        afero.Fs
	log       zerolog.Logger
	profiler  Profiler
	executor  Executor
	registrar ShutdownRegistrar
	dumpDir   string
	hashFunc  HashFunc
	nowFunc   NowFunc

	mu sync.RWMutex // guards st
	st *scanState
}

// scanState is everything Reset discards: the scheduled computations, the
// per-name caches and the incompatible registry.
type scanState struct {
	index      *future[*Index]
	candidates *future[[]string]

	flight      singleflight.Group
	containerOf sync.Map // name -> *Container
	resourceOf  sync.Map // name -> *Locator
	used        sync.Map // name -> struct{}

	registry *incompatibleRegistry
}

// Open creates a monitor and schedules the search path scan in the
// background. It does not wait for the scan.
func Open(options ...Option) (*Monitor, error) {
	m := &Monitor{
		cfg:      DefaultConfig(),
		fs:       afero.NewOsFs(),
		log:      zerolog.Nop(),
		profiler: nopProfiler{},
		executor: goExecutor(),
		hashFunc: defaultHashFunc,
		nowFunc:  time.Now,
	}

	// Apply options
	for _, option := range options {
		option(m)
	}

	if err := newValidationError(m.cfg.validate()); err != nil {
		return nil, err
	}

	m.registry = NewRegistry(append(append([]Profile(nil), m.profiles...), defaultProfiles()...)...)
	m.adapter = m.registry.Detect(m.provider)
	if m.provider != nil && !m.adapter.Supported() {
		m.log.Warn().
			Err(ErrUnsupportedProvider).
			Str("type", m.adapter.TypeName()).
			Msg("search path provider not recognized, using the explicit search path only")
	}

	m.st = m.schedule()

	if m.registrar != nil {
		m.registrar.Register(m)
	}
	return m, nil
}

// schedule starts the background index build and the unused-candidates
// computation.
func (m *Monitor) schedule() *scanState {
	st := &scanState{registry: newIncompatibleRegistry()}
	builder := indexBuilder{fs: m.fs, log: m.log, profiler: m.profiler, now: m.nowFunc}

	st.index = startFuture(m.executor, "index", m.log, func(ctx context.Context) (*Index, error) {
		return builder.build(ctx, m.SearchPath())
	})
	st.candidates = startFuture(m.executor, "unused-candidates", m.log, func(ctx context.Context) ([]string, error) {
		return m.indexOf(ctx, st).Names(), nil
	})

	m.log.Debug().Str("profile", m.adapter.Profile().Name).Msg("search path scan scheduled")
	return st
}

// current returns the live scan state.
func (m *Monitor) current() *scanState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st
}

// indexOf resolves the index of st, never returning nil.
func (m *Monitor) indexOf(ctx context.Context, st *scanState) *Index {
	if ix := st.index.resolve(ctx); ix != nil {
		return ix
	}
	return &Index{entries: map[string][]*Container{}}
}

// Index returns the index snapshot, waiting for the background scan if it
// has not completed yet. If ctx is done before the scan completes, the scan
// is recomputed on the calling goroutine.
func (m *Monitor) Index(ctx context.Context) *Index {
	return m.indexOf(ctx, m.current())
}

// Ready reports whether the index snapshot has been resolved.
func (m *Monitor) Ready() bool {
	return m.current().index.ready()
}

// Reset discards the index, every per-name cache and the incompatible
// registry, then schedules a new scan.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st = m.schedule()
	m.log.Debug().Msg("monitor reset")
}

// Adapter returns the detected provider adapter.
func (m *Monitor) Adapter() Adapter {
	return m.adapter
}

// IsSupported reports whether the search-path provider was recognized.
func (m *Monitor) IsSupported() bool {
	return m.adapter.Supported()
}

// Config returns the configuration in effect.
func (m *Monitor) Config() Config {
	cfg := m.cfg
	cfg.SearchPathOverride = append([]string(nil), m.cfg.SearchPathOverride...)
	return cfg
}

// Shutdown implements ShutdownAction. It dumps the reports when a dump
// directory is configured.
func (m *Monitor) Shutdown() error {
	if m.dumpDir == "" {
		return nil
	}
	return m.Dump(m.dumpDir)
}

// Close unregisters the monitor from the shutdown registrar.
func (m *Monitor) Close() error {
	if m.registrar != nil {
		m.registrar.Unregister(m)
	}
	return nil
}
