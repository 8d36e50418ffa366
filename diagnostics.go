package doublet

import (
	"context"
	"time"
)

// Containers returns the indexed container paths in search-path order.
func (m *Monitor) Containers(ctx context.Context) []string {
	cs := m.Index(ctx).Containers()
	paths := make([]string, 0, len(cs))
	for _, c := range cs {
		paths = append(paths, c.Path)
	}
	return m.cfg.capped(paths)
}

// Names returns every indexed resource name in sorted order.
func (m *Monitor) Names(ctx context.Context) []string {
	return m.cfg.capped(m.Index(ctx).Names())
}

// UnusedNames returns the sorted names that no lookup has asked for since
// the last reset.
func (m *Monitor) UnusedNames(ctx context.Context) []string {
	st := m.current()
	candidates := st.candidates.resolve(ctx)

	unused := make([]string, 0, len(candidates))
	for _, name := range candidates {
		if _, ok := st.used.Load(name); !ok {
			unused = append(unused, name)
		}
	}
	return m.cfg.capped(unused)
}

// MarkUsed records names the runtime resolved without asking the monitor.
func (m *Monitor) MarkUsed(names ...string) {
	st := m.current()
	for _, name := range names {
		st.used.Store(name, struct{}{})
	}
}

// WhichContainer returns the container a runtime would load name from, the
// first provider in search-path order. The answer is cached until Reset.
func (m *Monitor) WhichContainer(ctx context.Context, name string) (*Container, bool) {
	st := m.current()
	st.used.Store(name, struct{}{})
	c := m.containerFor(ctx, st, name)
	return c, c != nil
}

// WhichResource returns the locator of the entry a runtime would load for
// name. The answer is cached until Reset.
func (m *Monitor) WhichResource(ctx context.Context, name string) (Locator, bool) {
	st := m.current()
	st.used.Store(name, struct{}{})

	if v, ok := st.resourceOf.Load(name); ok {
		return derefLocator(v.(*Locator))
	}

	v, _, _ := st.flight.Do("resource:"+name, func() (any, error) {
		var l *Locator
		if c := m.containerFor(ctx, st, name); c != nil {
			loc := m.locator(c, name)
			l = &loc
		}
		if st.index.ready() {
			st.resourceOf.Store(name, l)
		}
		return l, nil
	})
	return derefLocator(v.(*Locator))
}

func (m *Monitor) containerFor(ctx context.Context, st *scanState, name string) *Container {
	if v, ok := st.containerOf.Load(name); ok {
		return v.(*Container)
	}

	v, _, _ := st.flight.Do("container:"+name, func() (any, error) {
		c, _ := m.indexOf(ctx, st).First(name)
		// An unpublished index is the empty stand-in for a failed scan.
		if st.index.ready() {
			st.containerOf.Store(name, c)
		}
		m.log.Trace().Str("name", name).Bool("found", c != nil).Msg("container lookup")
		return c, nil
	})
	return v.(*Container)
}

func derefLocator(l *Locator) (Locator, bool) {
	if l == nil {
		return Locator{}, false
	}
	return *l, true
}

// Profile returns the name of the matched provider profile.
func (m *Monitor) Profile() string {
	return m.adapter.Profile().Name
}

// Stats summarizes the state of the monitor.
type Stats struct {
	Profile      string
	Supported    bool
	Ready        bool
	Containers   int
	Names        int
	Doublets     int
	Incompatible int // doublets classified incompatible so far
	Unused       int
	BuiltAt      time.Time
	ScanDuration time.Duration
}

// Stats returns a summary of the current snapshot. It does not classify
// doublets; Incompatible counts what has been classified so far.
func (m *Monitor) Stats(ctx context.Context) Stats {
	st := m.current()
	ix := m.indexOf(ctx, st)

	unused := 0
	for _, name := range st.candidates.resolve(ctx) {
		if _, ok := st.used.Load(name); !ok {
			unused++
		}
	}

	return Stats{
		Profile:      m.Profile(),
		Supported:    m.IsSupported(),
		Ready:        st.index.ready(),
		Containers:   len(ix.containers),
		Names:        ix.Len(),
		Doublets:     len(ix.doublets),
		Incompatible: st.registry.len(),
		Unused:       unused,
		BuiltAt:      ix.BuiltAt(),
		ScanDuration: ix.Elapsed(),
	}
}
