package doublet

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestMain(t *testing.M) {
	code := t.Run()

	os.Exit(code)
}

func fixedNowFunc() time.Time {
	return time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
}

// inlineExecutor runs tasks on the calling goroutine so scans complete
// before Open returns.
func inlineExecutor() Executor {
	return ExecutorFunc(func(task func()) { task() })
}

// zipBytes builds an archive holding files, written in name order.
func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("Failed to create zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			t.Fatalf("Failed to write zip entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to close zip writer: %v", err)
	}
	return buf.Bytes()
}

// writeZip writes an archive holding files to path.
func writeZip(t *testing.T, fs afero.Fs, path string, files map[string]string) {
	t.Helper()
	createTestFile(t, fs, path, zipBytes(t, files))
}

// createTestFile creates a file with the given content.
func createTestFile(t *testing.T, fs afero.Fs, path string, content []byte) {
	t.Helper()
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := afero.WriteFile(fs, path, content, 0o644); err != nil {
		t.Fatalf("Failed to write test file %s: %v", path, err)
	}
}

// newTestMonitor opens a monitor over fs whose scans complete synchronously.
func newTestMonitor(t *testing.T, fs afero.Fs, options ...Option) *Monitor {
	t.Helper()

	defaults := []Option{
		WithFs(fs),
		WithNowFunc(fixedNowFunc),
		WithExecutor(inlineExecutor()),
		WithMultiThreading(false),
	}
	m, err := Open(append(defaults, options...)...)
	if err != nil {
		t.Fatalf("Failed to open monitor: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func assertStrings(t *testing.T, got, want []string, context string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: got %d entries %v, want %d entries %v", context, len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s: entry %d = %q, want %q", context, i, got[i], want[i])
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
