package doublet

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// incompatibleRegistry is the monotonically growing set of doublets whose
// providers differ in content. Names are only ever added. There is no
// invalidation when the search path changes after the scan; Reset starts a
// new registry.
type incompatibleRegistry struct {
	mu           sync.Mutex
	incompatible map[string]struct{}
	checked      sync.Map // name -> bool (incompatible)
}

func newIncompatibleRegistry() *incompatibleRegistry {
	return &incompatibleRegistry{incompatible: make(map[string]struct{})}
}

// record marks name as checked and adds it to the set when incompatible.
func (r *incompatibleRegistry) record(name string, incompatible bool) {
	if incompatible {
		r.mu.Lock()
		r.incompatible[name] = struct{}{}
		r.mu.Unlock()
	}
	r.checked.Store(name, incompatible)
}

// lookup returns the classification of name, if it has been checked.
func (r *incompatibleRegistry) lookup(name string) (incompatible, checked bool) {
	v, ok := r.checked.Load(name)
	if !ok {
		return false, false
	}
	return v.(bool), true
}

// names returns a sorted copy of the set.
func (r *incompatibleRegistry) names() []string {
	r.mu.Lock()
	names := make([]string, 0, len(r.incompatible))
	for name := range r.incompatible {
		names = append(names, name)
	}
	r.mu.Unlock()
	sort.Strings(names)
	return names
}

func (r *incompatibleRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.incompatible)
}

// IsDoublet reports whether more than one container provides name.
func (m *Monitor) IsDoublet(ctx context.Context, name string) bool {
	return m.Index(ctx).IsDoublet(name)
}

// Doublet returns the n-th container providing name, counting from 1 in
// the index's sorted order. The order is stable until the index is rebuilt.
func (m *Monitor) Doublet(ctx context.Context, name string, n int) (*Container, bool) {
	cs := m.Index(ctx).Lookup(name)
	if n < 1 || n > len(cs) {
		return nil, false
	}
	return cs[n-1], true
}

// Doublets returns the sorted names provided by more than one container.
func (m *Monitor) Doublets(ctx context.Context) []string {
	return m.cfg.capped(m.Index(ctx).Doublets())
}

// IncompatibleNames classifies every doublet not checked yet and returns the
// sorted names whose providers differ in content.
//
// For each doublet the first provider is compared with each following one
// and the first mismatch classifies the name. Providers that differ from
// each other but match the first one are therefore reported compatible.
// Names already classified are not compared again.
func (m *Monitor) IncompatibleNames(ctx context.Context) ([]string, error) {
	st := m.current()
	ix := m.indexOf(ctx, st)

	handle := m.profiler.Start("doublet.incompatibleNames")
	defer m.profiler.Stop(handle)

	var pending []string
	for _, name := range ix.Doublets() {
		if _, checked := st.registry.lookup(name); !checked {
			pending = append(pending, name)
		}
	}

	classify := func(name string) error {
		_, err := m.classifyOnce(st, ix, name)
		return err
	}

	if m.cfg.MultiThreadingEnabled && len(pending) > 1 {
		var g errgroup.Group
		g.SetLimit(runtime.GOMAXPROCS(0))
		for _, name := range pending {
			name := name
			g.Go(func() error { return classify(name) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for _, name := range pending {
			if err := classify(name); err != nil {
				return nil, err
			}
		}
	}

	return m.cfg.capped(st.registry.names()), nil
}

// IsIncompatible reports whether name is a doublet whose providers differ in
// content, classifying it if necessary.
func (m *Monitor) IsIncompatible(ctx context.Context, name string) (bool, error) {
	st := m.current()
	if incompatible, checked := st.registry.lookup(name); checked {
		return incompatible, nil
	}

	ix := m.indexOf(ctx, st)
	if !ix.IsDoublet(name) {
		return false, nil
	}
	return m.classifyOnce(st, ix, name)
}

// classifyOnce classifies name and records the result. Concurrent callers
// asking for the same name share one comparison.
func (m *Monitor) classifyOnce(st *scanState, ix *Index, name string) (bool, error) {
	v, err, _ := st.flight.Do("classify:"+name, func() (any, error) {
		if incompatible, checked := st.registry.lookup(name); checked {
			return incompatible, nil
		}
		incompatible, err := m.classify(ix, name)
		if err != nil {
			return false, err
		}
		st.registry.record(name, incompatible)
		if incompatible {
			m.log.Debug().Str("name", name).Msg("incompatible doublet")
		}
		return incompatible, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// classify compares the first provider of name with each following one and
// stops at the first mismatch.
func (m *Monitor) classify(ix *Index, name string) (bool, error) {
	cs := ix.Lookup(name)
	if len(cs) < 2 {
		return false, nil
	}

	first := m.locator(cs[0], name)
	for _, c := range cs[1:] {
		equal, err := first.Equal(m.locator(c, name))
		if err != nil {
			return false, err
		}
		if !equal {
			return true, nil
		}
	}
	return false, nil
}

// Locators returns the locators of every provider of name, in the index's
// sorted order.
func (m *Monitor) Locators(ctx context.Context, name string) []Locator {
	cs := m.Index(ctx).Lookup(name)
	out := make([]Locator, 0, len(cs))
	for _, c := range cs {
		out = append(out, m.locator(c, name))
	}
	return out
}

// ParseLocator parses ref against the monitor's filesystem.
func (m *Monitor) ParseLocator(ref string) Locator {
	return ParseLocator(m.fs, ref).withHash(m.hashFunc)
}

func (m *Monitor) locator(c *Container, name string) Locator {
	return NewLocator(m.fs, c, name).withHash(m.hashFunc)
}
