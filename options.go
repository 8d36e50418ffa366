package doublet

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Option defines a function that configures a Monitor.
type Option func(*Monitor)

// NowFunc defines a function that returns the current time.
type NowFunc func() time.Time

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(m *Monitor) {
		m.cfg = cfg
	}
}

// WithSearchPathOverride sets an explicit container list. When set, neither
// the explicit search path nor the provider is consulted.
func WithSearchPathOverride(paths ...string) Option {
	return func(m *Monitor) {
		m.cfg.SearchPathOverride = append([]string(nil), paths...)
	}
}

// WithMultiThreading enables or disables parallel doublet comparison.
func WithMultiThreading(enabled bool) Option {
	return func(m *Monitor) {
		m.cfg.MultiThreadingEnabled = enabled
	}
}

// WithMaxDiagnosticEntries caps list results and dump files. Zero means
// unlimited.
func WithMaxDiagnosticEntries(n int) Option {
	return func(m *Monitor) {
		m.cfg.MaxDiagnosticEntries = n
	}
}

// WithExplicitPath sets the explicit search path, the list a runtime is
// configured with directly. Provider-managed containers are appended to it.
//
// Example:
//
//	m, err := doublet.Open(doublet.WithExplicitPath(filepath.SplitList(os.Getenv("CLASSPATH"))...))
func WithExplicitPath(paths ...string) Option {
	return func(m *Monitor) {
		m.explicit = append([]string(nil), paths...)
	}
}

// WithProvider sets the search-path provider whose container list is
// extracted through the profile registry.
func WithProvider(provider any) Option {
	return func(m *Monitor) {
		m.provider = provider
	}
}

// WithProfiles registers additional provider profiles. They are matched
// before the built-in ones.
func WithProfiles(profiles ...Profile) Option {
	return func(m *Monitor) {
		m.profiles = append(m.profiles, profiles...)
	}
}

// WithFs sets the filesystem containers are read from and reports are
// written to. This is primarily useful for testing with in-memory
// filesystems.
//
// Example:
//
//	m, err := doublet.Open(doublet.WithFs(afero.NewMemMapFs()))
func WithFs(fs afero.Fs) Option {
	return func(m *Monitor) {
		m.fs = fs
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Monitor) {
		m.log = log
	}
}

// WithProfiler sets the profiler used to time expensive operations.
func WithProfiler(p Profiler) Option {
	return func(m *Monitor) {
		m.profiler = p
	}
}

// WithExecutor sets the worker pool background scans run on. The default
// starts a goroutine per task.
func WithExecutor(exec Executor) Option {
	return func(m *Monitor) {
		m.executor = exec
	}
}

// WithShutdownRegistrar registers the monitor as a shutdown action. On
// shutdown the reports are dumped to the directory set with WithDumpDir.
func WithShutdownRegistrar(r ShutdownRegistrar) Option {
	return func(m *Monitor) {
		m.registrar = r
	}
}

// WithDumpDir sets the directory Shutdown writes reports to.
func WithDumpDir(dir string) Option {
	return func(m *Monitor) {
		m.dumpDir = dir
	}
}

// WithHashFunc sets the hash used for content digests in reports.
// The default is xxHash64.
func WithHashFunc(hashFunc HashFunc) Option {
	return func(m *Monitor) {
		m.hashFunc = hashFunc
	}
}

// WithNowFunc sets a custom time function.
// This is primarily useful for testing with deterministic timestamps.
func WithNowFunc(nowFunc NowFunc) Option {
	return func(m *Monitor) {
		m.nowFunc = nowFunc
	}
}
