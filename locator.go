package doublet

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"
)

// schemeRe matches a URI scheme. Single letters are left alone so Windows
// drive letters are not mistaken for schemes.
var schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]+:`)

// Locator references one named entry, possibly nested through several
// containers. Size and content are resolved on demand.
type Locator struct {
	fs         afero.Fs
	hashFunc   HashFunc
	ref        string
	chain      []string // container references, outermost first
	entry      string   // entry path inside the innermost container
	dirRoot    bool     // the outermost link is a directory
	comparable bool
}

// NewLocator returns the locator of entry inside container c.
func NewLocator(fs afero.Fs, c *Container, entry string) Locator {
	root := c
	for root.Parent != nil {
		root = root.Parent
	}
	l := Locator{
		fs:         fs,
		chain:      c.chain(),
		entry:      entryName(entry),
		dirRoot:    root.Kind == KindDirectory,
		comparable: true,
	}
	l.ref = l.render()
	return l
}

// ParseLocator parses a reference such as
// "jar:file:/lib/outer.zip!/inner.jar!/pkg/Thing.class". The "jar:" and
// "file:" schemes are understood; any other scheme yields a locator that is
// not comparable. A reference without "!/" names a plain file.
func ParseLocator(fs afero.Fs, ref string) Locator {
	l := Locator{fs: fs, ref: ref}

	s := strings.TrimPrefix(ref, "jar:")
	if rest, ok := strings.CutPrefix(s, "file:"); ok {
		s = rest
		if strings.HasPrefix(s, "///") {
			s = strings.TrimPrefix(s, "//")
		}
	} else if schemeRe.MatchString(s) {
		return l
	}

	links := strings.Split(s, nestSeparator)
	for _, link := range links {
		if link == "" {
			return l
		}
	}

	if len(links) == 1 {
		dir, base := filepath.Split(filepath.Clean(s))
		if base == "" {
			return l
		}
		if dir == "" {
			dir = "."
		}
		l.chain = []string{filepath.Clean(dir)}
		l.entry = base
		l.dirRoot = true
	} else {
		l.chain = links[:len(links)-1]
		l.entry = entryName(links[len(links)-1])
	}
	l.comparable = l.entry != ""
	return l
}

// withHash returns a copy of l using newHash for Digest.
func (l Locator) withHash(newHash HashFunc) Locator {
	l.hashFunc = newHash
	return l
}

func (l Locator) render() string {
	if l.dirRoot && len(l.chain) == 1 {
		return filepath.ToSlash(filepath.Join(l.chain[0], l.entry))
	}
	links := append(append([]string(nil), l.chain...), l.entry)
	return strings.Join(links, nestSeparator)
}

// String returns the reference of the locator.
func (l Locator) String() string {
	return l.ref
}

// Comparable reports whether the reference could be resolved to a
// container chain. Size, Bytes and Equal are undefined otherwise.
func (l Locator) Comparable() bool {
	return l.comparable
}

// Depth returns the number of containers in the chain.
func (l Locator) Depth() int {
	return len(l.chain)
}

// Entry returns the entry path inside the innermost container.
func (l Locator) Entry() string {
	return l.entry
}

// Size returns the declared size of the entry.
func (l Locator) Size() (int64, error) {
	if !l.comparable {
		return 0, &IOError{Op: "size", Ref: l.ref, Err: ErrNotComparable}
	}
	oc, err := openChain(l.fs, l.chain)
	if err != nil {
		return 0, &IOError{Op: "size", Ref: l.ref, Err: err}
	}
	defer oc.Close()

	info, err := oc.fs.Stat(l.entry)
	if err != nil {
		return 0, &IOError{Op: "size", Ref: l.ref, Err: notFound(err)}
	}
	if info.IsDir() {
		return 0, &IOError{Op: "size", Ref: l.ref, Err: ErrNotFound}
	}
	return info.Size(), nil
}

// Bytes returns the full content of the entry.
func (l Locator) Bytes() ([]byte, error) {
	if !l.comparable {
		return nil, &IOError{Op: "read", Ref: l.ref, Err: ErrNotComparable}
	}
	oc, err := openChain(l.fs, l.chain)
	if err != nil {
		return nil, &IOError{Op: "read", Ref: l.ref, Err: err}
	}
	defer oc.Close()

	data, err := afero.ReadFile(oc.fs, l.entry)
	if err != nil {
		return nil, &IOError{Op: "read", Ref: l.ref, Err: notFound(err)}
	}
	return data, nil
}

// Digest returns the hex encoded hash of the entry content (xxHash64 unless
// configured otherwise).
func (l Locator) Digest() (string, error) {
	data, err := l.Bytes()
	if err != nil {
		return "", err
	}
	return digest(bytes.NewReader(data), l.hashFunc)
}

// Equal reports whether both locators resolve and have identical content.
// Declared sizes are compared first so content is only read when needed.
// A locator that is not comparable is never equal to anything.
func (l Locator) Equal(other Locator) (bool, error) {
	if !l.comparable || !other.comparable {
		return false, nil
	}

	size, err := l.Size()
	if err != nil {
		return false, compareError(l, other, err)
	}
	if l.sameRef(other) {
		return true, nil
	}
	otherSize, err := other.Size()
	if err != nil {
		return false, compareError(other, l, err)
	}
	if size != otherSize {
		return false, nil
	}

	data, err := l.Bytes()
	if err != nil {
		return false, compareError(l, other, err)
	}
	otherData, err := other.Bytes()
	if err != nil {
		return false, compareError(other, l, err)
	}
	return bytes.Equal(data, otherData), nil
}

func (l Locator) sameRef(other Locator) bool {
	if l.entry != other.entry || len(l.chain) != len(other.chain) {
		return false
	}
	for i := range l.chain {
		if path.Clean(filepath.ToSlash(l.chain[i])) != path.Clean(filepath.ToSlash(other.chain[i])) {
			return false
		}
	}
	return true
}

// notFound marks a missing entry with ErrNotFound, keeping the cause.
func notFound(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

// compareError names both operands of a failed comparison. failed is the
// locator whose resolution failed.
func compareError(failed, other Locator, err error) error {
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		err = ioErr.Err
	}
	return &IOError{Op: "compare", Ref: failed.ref, Other: other.ref, Err: err}
}
