package doublet

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/afero"
)

// Report files written by Dump.
const (
	SearchPathReport   = "searchpath.txt"
	BuiltinPathReport  = "builtinpath.txt"
	ContainersReport   = "containers.txt"
	NamesReport        = "names.txt"
	UnusedReport       = "unused.txt"
	DoubletsReport     = "doublets.txt"
	IncompatibleReport = "incompatible.txt"
	AdapterReport      = "adapter.txt"
)

// adapterSummary is the printable part of the detected adapter.
type adapterSummary struct {
	Profile     string
	TypeName    string
	Field       string
	Supported   bool
	Provider    string
	Config      Config
	SearchPath  []string
	BuiltinPath []string
}

var spewConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Dump writes the diagnostic reports to dir, creating it if needed. The
// incompatible report classifies every doublet first. Every report is
// attempted; the returned error joins the failures.
func (m *Monitor) Dump(dir string) error {
	ctx := context.Background()
	if err := m.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create dump directory: %w", err)
	}
	generated := m.nowFunc()

	var errs []error
	writeList := func(file string, list []string) {
		err := m.writeReport(filepath.Join(dir, file), generated, func(w io.Writer) error {
			for _, line := range list {
				if _, err := fmt.Fprintln(w, line); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			errs = append(errs, err)
		}
	}

	writeList(SearchPathReport, m.cfg.capped(m.SearchPath()))
	writeList(BuiltinPathReport, m.cfg.capped(m.BuiltinPath()))
	writeList(ContainersReport, m.Containers(ctx))
	writeList(NamesReport, m.Names(ctx))
	writeList(UnusedReport, m.UnusedNames(ctx))
	writeList(DoubletsReport, m.Doublets(ctx))

	incompatible, err := m.IncompatibleNames(ctx)
	if err != nil {
		errs = append(errs, err)
		incompatible = m.cfg.capped(m.current().registry.names())
	}
	err = m.writeReport(filepath.Join(dir, IncompatibleReport), generated, func(w io.Writer) error {
		for _, name := range incompatible {
			fmt.Fprintln(w, name)
			for _, l := range m.Locators(ctx, name) {
				fmt.Fprintf(w, "  %s%s\n", l, describeEntry(l))
			}
		}
		return nil
	})
	if err != nil {
		errs = append(errs, err)
	}

	err = m.writeReport(filepath.Join(dir, AdapterReport), generated, func(w io.Writer) error {
		spewConfig.Fdump(w, m.adapterSummary())
		return nil
	})
	if err != nil {
		errs = append(errs, err)
	}

	m.log.Debug().Str("dir", dir).Int("errors", len(errs)).Msg("diagnostics dumped")
	return errors.Join(errs...)
}

// describeEntry renders the size and digest of l, or the reason they are
// unavailable.
func describeEntry(l Locator) string {
	size, err := l.Size()
	if err != nil {
		return fmt.Sprintf(" error=%q", err.Error())
	}
	sum, err := l.Digest()
	if err != nil {
		return fmt.Sprintf(" size=%d error=%q", size, err.Error())
	}
	return fmt.Sprintf(" size=%d digest=%s", size, sum)
}

func (m *Monitor) adapterSummary() adapterSummary {
	p := m.adapter.Profile()
	return adapterSummary{
		Profile:     p.Name,
		TypeName:    p.TypeName,
		Field:       p.Field,
		Supported:   m.adapter.Supported(),
		Provider:    m.adapter.TypeName(),
		Config:      m.Config(),
		SearchPath:  m.SearchPath(),
		BuiltinPath: m.BuiltinPath(),
	}
}

// writeReport creates path and writes a header line followed by body.
func (m *Monitor) writeReport(path string, generated time.Time, body func(w io.Writer) error) error {
	f, err := m.fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "# %s generated %s\n", filepath.Base(path), generated.UTC().Format(time.RFC3339))
	if err := body(w); err != nil {
		return fmt.Errorf("failed to write report %s: %w", filepath.Base(path), err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write report %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ReadReport returns the lines of a report written by Dump, without the
// header.
func ReadReport(fs afero.Fs, path string) ([]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		if first {
			first = false
			continue
		}
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}
