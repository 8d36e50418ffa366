package doublet

import (
	"fmt"
	"runtime"
	"strings"
)

// Config holds the recognized configuration options of a Monitor.
type Config struct {
	// SearchPathOverride is an explicit container list that bypasses
	// provider-managed discovery.
	SearchPathOverride []string

	// MultiThreadingEnabled compares doublets in parallel.
	MultiThreadingEnabled bool

	// MaxDiagnosticEntries caps the size of list results and dump files.
	// Zero means unlimited.
	MaxDiagnosticEntries int
}

// DefaultConfig returns the default configuration. Multi-threading is on
// when more than one CPU is available.
func DefaultConfig() Config {
	return Config{
		MultiThreadingEnabled: runtime.NumCPU() > 1,
	}
}

// validate returns every problem found in c.
func (c Config) validate() []error {
	var errs []error
	if c.MaxDiagnosticEntries < 0 {
		errs = append(errs, fmt.Errorf("max diagnostic entries must not be negative, got %d", c.MaxDiagnosticEntries))
	}
	for i, entry := range c.SearchPathOverride {
		if strings.TrimSpace(entry) == "" {
			errs = append(errs, fmt.Errorf("search path override entry %d is empty", i))
		}
	}
	return errs
}

// capped truncates list to MaxDiagnosticEntries.
func (c Config) capped(list []string) []string {
	if c.MaxDiagnosticEntries > 0 && len(list) > c.MaxDiagnosticEntries {
		return list[:c.MaxDiagnosticEntries]
	}
	return list
}
