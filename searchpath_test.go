package doublet

import (
	"context"
	"go/build"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

type unknownProvider struct {
	Dirs []string
}

func TestUnsupportedProvider(t *testing.T) {
	memFs := afero.NewMemMapFs()
	writeZip(t, memFs, "/lib/a.jar", map[string]string{"x": "1"})

	m := newTestMonitor(t, memFs,
		WithProvider(&unknownProvider{Dirs: []string{"/ignored"}}),
		WithSearchPathOverride("/lib/a.jar"),
	)

	if m.IsSupported() {
		t.Error("Expected the provider to be unsupported")
	}
	if m.Profile() != PlainProfile {
		t.Errorf("Profile = %q, want %q", m.Profile(), PlainProfile)
	}

	builtin := m.BuiltinPath()
	if builtin == nil || len(builtin) != 0 {
		t.Errorf("BuiltinPath = %#v, want an empty list", builtin)
	}
	assertStrings(t, m.SearchPath(), []string{"/lib/a.jar"}, "search path")
	assertStrings(t, m.Names(context.Background()), []string{"x"}, "names")
}

func TestSearchPathPrecedence(t *testing.T) {
	memFs := afero.NewMemMapFs()
	provider := &SearchPath{Entries: []string{"/provided/a", "/explicit/b"}, Builtin: []string{"/builtin"}}

	m := newTestMonitor(t, memFs,
		WithExplicitPath("/explicit/b", "/explicit/c"),
		WithProvider(provider),
	)
	assertStrings(t, m.SearchPath(), []string{"/explicit/b", "/explicit/c", "/provided/a"}, "explicit then provider")
	assertStrings(t, m.BuiltinPath(), []string{"/builtin"}, "builtin path")

	overridden := newTestMonitor(t, memFs,
		WithExplicitPath("/explicit/b"),
		WithProvider(provider),
		WithSearchPathOverride("/override"),
	)
	assertStrings(t, overridden.SearchPath(), []string{"/override"}, "override")
}

func TestSearchPathWildcards(t *testing.T) {
	memFs := afero.NewMemMapFs()
	for _, p := range []string{"/lib/b.jar", "/lib/a.jar", "/lib/readme.txt", "/lib/ext/c.jar", "/lib/ext/deep/d.jar",
		"/mods/one/a.jar", "/mods/two/a.jar", "/mods/two/b.jar", "/mods/three/deep/a.jar"} {
		createTestFile(t, memFs, p, []byte("x"))
	}

	testCases := []struct {
		name    string
		pattern string
		want    []string
	}{
		{name: "single level", pattern: "/lib/*.jar", want: []string{"/lib/a.jar", "/lib/b.jar"}},
		{name: "single level matches directories", pattern: "/lib/*", want: []string{"/lib/a.jar", "/lib/b.jar", "/lib/ext", "/lib/readme.txt"}},
		{name: "recursive", pattern: "/lib/**/*.jar", want: []string{"/lib/a.jar", "/lib/b.jar", "/lib/ext/c.jar", "/lib/ext/deep/d.jar"}},
		{name: "no match", pattern: "/lib/*.war", want: []string{}},
		{name: "missing base directory", pattern: "/nowhere/*.jar", want: []string{}},
		{name: "nested reference", pattern: "/lib/ext/*.jar!/inner.jar", want: []string{"/lib/ext/c.jar!/inner.jar"}},
		{name: "wildcard directory segment", pattern: "/mods/*/a.jar", want: []string{"/mods/one/a.jar", "/mods/two/a.jar"}},
		{name: "wildcard directory prefix", pattern: "/mo*/t*/*.jar", want: []string{"/mods/two/a.jar", "/mods/two/b.jar"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := newTestMonitor(t, memFs, WithSearchPathOverride(tc.pattern))
			assertStrings(t, m.SearchPath(), tc.want, tc.pattern)
		})
	}
}

func TestCanonicalPath(t *testing.T) {
	memFs := afero.NewMemMapFs()

	wd, err := filepath.Abs(".")
	if err != nil {
		t.Fatalf("Failed to resolve working directory: %v", err)
	}

	testCases := []struct {
		in   string
		want string
	}{
		{in: "/lib/../lib/a.jar", want: "/lib/a.jar"},
		{in: "lib/a.jar", want: filepath.Join(wd, "lib/a.jar")},
		{in: "/a.war!/WEB-INF//lib/./b.jar", want: "/a.war!/WEB-INF/lib/b.jar"},
		{in: "/a.war!//b.jar!/c.jar", want: "/a.war!/b.jar!/c.jar"},
	}

	for _, tc := range testCases {
		if got := canonicalPath(memFs, tc.in); got != tc.want {
			t.Errorf("canonicalPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCanonicalPathResolvesSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "classes")
	link := filepath.Join(dir, "linked")
	osFs := afero.NewOsFs()
	createTestFile(t, osFs, filepath.Join(target, "pkg", "Thing.class"), []byte("x"))
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("Symlinks not supported: %v", err)
	}

	want, err := filepath.EvalSymlinks(target)
	if err != nil {
		t.Fatalf("Failed to resolve %s: %v", target, err)
	}
	if got := canonicalPath(osFs, link); got != want {
		t.Errorf("canonicalPath(%q) = %q, want %q", link, got, want)
	}

	m := newTestMonitor(t, osFs, WithExplicitPath(target, link))
	assertStrings(t, m.SearchPath(), []string{want}, "search path")
	if m.IsDoublet(context.Background(), "pkg/Thing.class") {
		t.Error("A directory listed twice through a symlink must not produce a doublet")
	}
}

func TestGoBuildProvider(t *testing.T) {
	memFs := afero.NewMemMapFs()
	createTestFile(t, memFs, "/gopath/src/example.com/pkg/a.go", []byte("package pkg"))
	createTestFile(t, memFs, "/goroot/src/fmt/print.go", []byte("package fmt"))

	m := newTestMonitor(t, memFs, WithProvider(&build.Context{GOROOT: "/goroot", GOPATH: "/gopath"}))

	if m.Profile() != GoBuildProfile {
		t.Fatalf("Profile = %q, want %q", m.Profile(), GoBuildProfile)
	}
	assertStrings(t, m.SearchPath(), []string{"/gopath/src"}, "search path")
	assertStrings(t, m.BuiltinPath(), []string{"/goroot/src"}, "builtin path")
	assertStrings(t, m.Names(context.Background()), []string{"example.com/pkg/a.go"}, "names")
}
