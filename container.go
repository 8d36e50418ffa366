package doublet

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/afero/zipfs"
)

// nestSeparator separates the links of a nested reference, e.g.
// "/app/outer.war!/WEB-INF/lib/inner.jar!/pkg/Thing.class".
const nestSeparator = "!/"

// Kind is the kind of a resource container.
type Kind int

const (
	KindDirectory Kind = iota
	KindArchive
	KindNestedArchive
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindArchive:
		return "archive"
	case KindNestedArchive:
		return "nested-archive"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Container is one element of the search path.
type Container struct {
	Path     string     // canonical path; nested containers join links with "!/"
	Kind     Kind       // directory, archive or nested archive
	Parent   *Container // enclosing container of a nested archive
	Entry    string     // path of a nested archive inside Parent
	Position int        // position in the search path
}

// String returns the canonical path.
func (c *Container) String() string {
	return c.Path
}

// chain returns the container references outermost first.
func (c *Container) chain() []string {
	if c.Parent == nil {
		return []string{c.Path}
	}
	return append(c.Parent.chain(), c.Entry)
}

// newContainer builds the container for a canonical search-path entry.
// It only stats the outermost link; the archive format is checked when the
// container is opened.
func newContainer(fs afero.Fs, ref string, position int) (*Container, error) {
	links := strings.Split(ref, nestSeparator)

	info, err := fs.Stat(links[0])
	if err != nil {
		return nil, fmt.Errorf("container %s: %w", links[0], ErrNotFound)
	}

	c := &Container{Path: links[0], Kind: KindArchive, Position: position}
	if info.IsDir() {
		c.Kind = KindDirectory
	}

	for _, inner := range links[1:] {
		c = &Container{
			Path:     c.Path + nestSeparator + inner,
			Kind:     KindNestedArchive,
			Parent:   c,
			Entry:    inner,
			Position: position,
		}
	}
	return c, nil
}

// openedContainer is the innermost container of a chain, viewed as a
// read-only filesystem.
type openedContainer struct {
	fs     afero.Fs
	zr     *zip.Reader // nil for directories
	root   string      // directory root, empty for archives
	closer func() error
}

func (o *openedContainer) Close() error {
	if o.closer == nil {
		return nil
	}
	return o.closer()
}

// openChain opens chain outermost first. Each nested archive is read from
// the filesystem of its parent.
func openChain(fs afero.Fs, chain []string) (*openedContainer, error) {
	if len(chain) == 0 {
		return nil, fmt.Errorf("empty container chain: %w", ErrNotFound)
	}

	cur, err := openRoot(fs, chain[0])
	if err != nil {
		return nil, err
	}

	for _, link := range chain[1:] {
		data, err := afero.ReadFile(cur.fs, link)
		if err != nil {
			_ = cur.Close()
			return nil, fmt.Errorf("nested archive %s: %w", link, err)
		}
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			_ = cur.Close()
			return nil, fmt.Errorf("nested archive %s: %w", link, err)
		}
		cur = &openedContainer{fs: zipfs.New(zr), zr: zr, closer: cur.closer}
	}
	return cur, nil
}

func openRoot(fs afero.Fs, root string) (*openedContainer, error) {
	info, err := fs.Stat(root)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return &openedContainer{
			fs:   afero.NewReadOnlyFs(afero.NewBasePathFs(fs, root)),
			root: root,
		}, nil
	}

	f, err := fs.Open(root)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("archive %s: %w", root, err)
	}
	return &openedContainer{fs: zipfs.New(zr), zr: zr, closer: f.Close}, nil
}

// listEntries returns the sorted, unique entry names of c. Directories are
// not entries.
func listEntries(fs afero.Fs, c *Container) ([]string, error) {
	oc, err := openChain(fs, c.chain())
	if err != nil {
		return nil, err
	}
	defer oc.Close()

	seen := make(map[string]struct{})
	if oc.zr != nil {
		for _, f := range oc.zr.File {
			if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
				continue
			}
			if name := entryName(f.Name); name != "" {
				seen[name] = struct{}{}
			}
		}
	} else {
		err := afero.Walk(fs, oc.root, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(oc.root, p)
			if err != nil {
				return err
			}
			seen[filepath.ToSlash(rel)] = struct{}{}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("dir %s: %w", oc.root, err)
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// entryName normalizes an archive entry name to a slash separated path
// without a leading slash.
func entryName(name string) string {
	name = strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(name)), "/")
	if name == "." {
		return ""
	}
	return name
}
