package doublet

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// SearchPath returns the ordered, deduplicated container paths. The override
// wins when set; otherwise the explicit path is followed by the
// provider-managed containers. Wildcard entries ("lib/*.jar", "lib/**") are
// expanded and every entry is canonicalized.
func (m *Monitor) SearchPath() []string {
	var raw []string
	if len(m.cfg.SearchPathOverride) > 0 {
		raw = m.cfg.SearchPathOverride
	} else {
		raw = append(append(raw, m.explicit...), m.adapter.Containers()...)
	}
	return m.normalize(raw)
}

// BuiltinPath returns the containers implicitly available to the provider.
// It is empty when the provider is unsupported.
func (m *Monitor) BuiltinPath() []string {
	if !m.adapter.Supported() {
		return []string{}
	}
	return m.normalize(m.adapter.Builtin())
}

// normalize expands wildcards, canonicalizes and drops duplicates, keeping
// the first occurrence.
func (m *Monitor) normalize(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))

	for _, entry := range raw {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		for _, p := range m.expandEntry(entry) {
			c := canonicalPath(m.fs, p)
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// expandEntry expands a wildcard in the outermost link of entry.
func (m *Monitor) expandEntry(entry string) []string {
	outer, nested, isNested := strings.Cut(entry, nestSeparator)
	if !strings.ContainsAny(outer, "*?[") {
		return []string{entry}
	}

	matches, err := expandGlob(outer, m.fs)
	if err != nil {
		m.log.Debug().Err(err).Str("entry", entry).Msg("invalid wildcard search path entry")
		return nil
	}
	if len(matches) == 0 {
		m.log.Debug().Str("entry", entry).Msg("wildcard search path entry matched nothing")
	}
	if isNested {
		for i := range matches {
			matches[i] += nestSeparator + nested
		}
	}
	return matches
}

// canonicalPath returns the absolute, cleaned form of p. Symlinks are
// resolved on the OS filesystem. Nested links are cleaned and made relative.
func canonicalPath(fs afero.Fs, p string) string {
	outer, nested, isNested := strings.Cut(p, nestSeparator)

	if abs, err := filepath.Abs(outer); err == nil {
		outer = abs
	}
	outer = filepath.Clean(outer)
	if _, ok := fs.(*afero.OsFs); ok {
		if resolved, err := filepath.EvalSymlinks(outer); err == nil {
			outer = resolved
		}
	}
	if !isNested {
		return outer
	}

	links := strings.Split(nested, nestSeparator)
	for i, link := range links {
		links[i] = strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(link)), "/")
	}
	return outer + nestSeparator + strings.Join(links, nestSeparator)
}

// expandGlob expands a pattern (supporting **) and returns the sorted
// matching paths. A single-level pattern also matches directories, so
// "lib/*" picks up exploded archives; "**" only matches files.
func expandGlob(pattern string, fs afero.Fs) ([]string, error) {
	pattern = filepath.Clean(pattern)
	hasRecursive := strings.Contains(pattern, "**")
	baseDir := globBase(pattern)
	depth := strings.Count(pattern, string(filepath.Separator))

	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, err
	}

	exists, err := afero.DirExists(fs, baseDir)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil // No matches, not an error
	}

	var matches []string
	err = afero.Walk(fs, baseDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if p == baseDir {
			return nil
		}

		var matched bool
		if hasRecursive {
			matched = !info.IsDir() && matchesGlobPattern(p, pattern)
		} else {
			matched, err = filepath.Match(pattern, p)
			if err != nil {
				return err
			}
		}
		if matched {
			matches = append(matches, p)
		}

		// Wildcards do not descend below the pattern's depth.
		if info.IsDir() && !hasRecursive && strings.Count(p, string(filepath.Separator)) >= depth {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(matches)
	return matches, nil
}

// globBase returns the directory made of the segments of pattern that come
// before the first segment holding a wildcard.
func globBase(pattern string) string {
	sep := string(filepath.Separator)
	segments := strings.Split(pattern, sep)
	i := 0
	for i < len(segments) && !strings.ContainsAny(segments[i], "*?[") {
		i++
	}
	base := strings.Join(segments[:i], sep)
	switch {
	case base == "" && filepath.IsAbs(pattern):
		return sep
	case base == "":
		return "."
	}
	return base
}

// matchesGlobPattern checks if a path matches a pattern with ** support.
func matchesGlobPattern(path, pattern string) bool {
	pattern = filepath.ToSlash(pattern)
	path = filepath.ToSlash(path)

	patternParts := strings.Split(pattern, "/")
	pathParts := strings.Split(path, "/")

	return matchGlobParts(pathParts, patternParts, 0, 0)
}

// matchGlobParts recursively matches path parts against pattern parts.
func matchGlobParts(pathParts, patternParts []string, pathIdx, patternIdx int) bool {
	if patternIdx >= len(patternParts) {
		return pathIdx >= len(pathParts)
	}

	if pathIdx >= len(pathParts) {
		for i := patternIdx; i < len(patternParts); i++ {
			if patternParts[i] != "**" {
				return false
			}
		}
		return true
	}

	patternPart := patternParts[patternIdx]
	pathPart := pathParts[pathIdx]

	if patternPart == "**" {
		if matchGlobParts(pathParts, patternParts, pathIdx, patternIdx+1) {
			return true
		}
		return matchGlobParts(pathParts, patternParts, pathIdx+1, patternIdx)
	}

	matched, err := filepath.Match(patternPart, pathPart)
	if err != nil || !matched {
		return false
	}

	return matchGlobParts(pathParts, patternParts, pathIdx+1, patternIdx+1)
}
