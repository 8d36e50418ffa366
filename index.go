package doublet

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Index is an immutable snapshot mapping resource names to the containers
// that provide them. It is never mutated once built; a refresh replaces the
// whole snapshot.
type Index struct {
	containers []*Container            // search-path order
	entries    map[string][]*Container // sorted by Container.Path
	names      []string                // sorted
	doublets   []string                // sorted
	builtAt    time.Time
	elapsed    time.Duration
}

// Containers returns the indexed containers in search-path order.
func (ix *Index) Containers() []*Container {
	return append([]*Container(nil), ix.containers...)
}

// Names returns all resource names in sorted order.
func (ix *Index) Names() []string {
	return append([]string(nil), ix.names...)
}

// Len returns the number of distinct resource names.
func (ix *Index) Len() int {
	return len(ix.names)
}

// Lookup returns the containers providing name, sorted by path.
func (ix *Index) Lookup(name string) []*Container {
	return append([]*Container(nil), ix.entries[name]...)
}

// IsDoublet reports whether more than one container provides name.
func (ix *Index) IsDoublet(name string) bool {
	return len(ix.entries[name]) > 1
}

// Doublets returns the sorted names provided by more than one container.
func (ix *Index) Doublets() []string {
	return append([]string(nil), ix.doublets...)
}

// First returns the container a runtime resolves name from: the provider
// with the lowest search-path position.
func (ix *Index) First(name string) (*Container, bool) {
	var first *Container
	for _, c := range ix.entries[name] {
		if first == nil || c.Position < first.Position {
			first = c
		}
	}
	return first, first != nil
}

// BuiltAt returns when the snapshot was completed.
func (ix *Index) BuiltAt() time.Time {
	return ix.builtAt
}

// Elapsed returns how long the scan took.
func (ix *Index) Elapsed() time.Duration {
	return ix.elapsed
}

// indexBuilder enumerates containers and unions their entry names.
type indexBuilder struct {
	fs       afero.Fs
	log      zerolog.Logger
	profiler Profiler
	now      NowFunc
}

// build scans every entry of searchPath. Entries that do not exist or are not
// readable containers are skipped. It fails only when ctx is done, in which
// case the partial result is discarded.
func (b indexBuilder) build(ctx context.Context, searchPath []string) (*Index, error) {
	handle := b.profiler.Start("doublet.buildIndex")
	defer b.profiler.Stop(handle)

	start := b.now()
	ix := &Index{entries: make(map[string][]*Container)}
	seen := make(map[string]bool, len(searchPath))

	for i, ref := range searchPath {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInterrupted, err)
		}
		if seen[ref] {
			continue
		}
		seen[ref] = true

		c, err := newContainer(b.fs, ref, i)
		if err != nil {
			b.log.Debug().Err(err).Str("container", ref).Msg("skipping search path entry")
			continue
		}
		names, err := listEntries(b.fs, c)
		if err != nil {
			b.log.Debug().Err(err).Str("container", ref).Msg("skipping unreadable container")
			continue
		}

		ix.containers = append(ix.containers, c)
		for _, name := range names {
			ix.entries[name] = append(ix.entries[name], c)
		}
		b.log.Trace().Str("container", c.Path).Stringer("kind", c.Kind).Int("entries", len(names)).Msg("container scanned")
	}

	ix.names = make([]string, 0, len(ix.entries))
	for name, cs := range ix.entries {
		sort.Slice(cs, func(i, j int) bool { return cs[i].Path < cs[j].Path })
		ix.names = append(ix.names, name)
		if len(cs) > 1 {
			ix.doublets = append(ix.doublets, name)
		}
	}
	sort.Strings(ix.names)
	sort.Strings(ix.doublets)

	ix.builtAt = b.now()
	ix.elapsed = ix.builtAt.Sub(start)
	b.log.Debug().
		Int("containers", len(ix.containers)).
		Int("names", len(ix.names)).
		Int("doublets", len(ix.doublets)).
		Dur("elapsed", ix.elapsed).
		Msg("index built")
	return ix, nil
}
