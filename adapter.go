package doublet

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
)

// Names of the built-in profiles.
const (
	PlainProfile      = "plain"
	ListerProfile     = "lister"
	GoBuildProfile    = "go-build"
	SearchPathProfile = "search-path"
	ExecProfile       = "exec"
)

// maxHierarchyDepth bounds the walk through embedded structs.
const maxHierarchyDepth = 16

// ContainerLister is implemented by providers that expose their container
// list directly. It is matched before any type-name profile.
type ContainerLister interface {
	Containers() []string
}

// BuiltinLister is optionally implemented by a ContainerLister to expose the
// containers that are implicitly available to it.
type BuiltinLister interface {
	BuiltinContainers() []string
}

// SearchPath is a plain search-path provider: an ordered list of container
// paths plus the baseline containers available without configuration.
type SearchPath struct {
	Entries []string
	Builtin []string
}

// Accessor extracts container paths from the level of the provider's type
// hierarchy that matched a profile.
type Accessor func(v reflect.Value) []string

// Profile describes one known family of search-path provider.
type Profile struct {
	// Name identifies the family in logs and reports.
	Name string

	// TypeName is the package-qualified type name, e.g. "go/build.Context".
	TypeName string

	// Field is an optional struct field that must be present before the
	// profile is accepted. It also allows matching renamed types.
	Field string

	// Containers returns the provider-managed container list.
	Containers Accessor

	// Builtin returns the implicitly available containers. May be nil.
	Builtin Accessor
}

// Adapter is the result of detecting a provider: the matched profile bound
// to the value it matched.
type Adapter struct {
	profile   Profile
	value     reflect.Value
	typeName  string
	supported bool
}

// Profile returns the matched profile.
func (a Adapter) Profile() Profile {
	return a.profile
}

// Supported reports whether a profile other than the plain fallback matched.
func (a Adapter) Supported() bool {
	return a.supported
}

// TypeName returns the provider's package-qualified type name, or an empty
// string when no provider was given.
func (a Adapter) TypeName() string {
	return a.typeName
}

// Containers returns the provider-managed container list. It never panics;
// an accessor failure yields an empty list.
func (a Adapter) Containers() []string {
	return a.call(a.profile.Containers)
}

// Builtin returns the implicitly available containers, or nil when the
// profile does not expose them.
func (a Adapter) Builtin() []string {
	return a.call(a.profile.Builtin)
}

func (a Adapter) call(fn Accessor) (paths []string) {
	if fn == nil || !a.value.IsValid() {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			paths = nil
		}
	}()
	return fn(a.value)
}

// Registry is an immutable table of provider profiles.
type Registry struct {
	profiles []Profile
	byType   map[string]struct{}
}

// NewRegistry creates a registry from the given profiles, in match order.
func NewRegistry(profiles ...Profile) *Registry {
	r := &Registry{
		profiles: append([]Profile(nil), profiles...),
		byType:   make(map[string]struct{}, len(profiles)),
	}
	for _, p := range profiles {
		if p.TypeName != "" {
			r.byType[p.TypeName] = struct{}{}
		}
	}
	return r
}

// DefaultRegistry returns a registry with the built-in profiles.
func DefaultRegistry() *Registry {
	return NewRegistry(defaultProfiles()...)
}

// Profiles returns a copy of the registered profiles.
func (r *Registry) Profiles() []Profile {
	return append([]Profile(nil), r.profiles...)
}

// IsSupported reports whether a profile is registered for typeName.
// It is a pure name lookup and does not probe for fields.
func (r *Registry) IsSupported(typeName string) bool {
	_, ok := r.byType[typeName]
	return ok
}

// Detect identifies the profile for provider.
//
// A provider implementing ContainerLister is matched first. Then the type
// hierarchy (the dereferenced type followed by its embedded structs) is
// compared by exact type name; profiles naming a Field only match when the
// field is present. A second pass accepts any profile whose Field is present
// regardless of type name. Otherwise the plain profile is returned and the
// adapter reports itself unsupported.
func (r *Registry) Detect(provider any) Adapter {
	if provider == nil {
		return plainAdapter("")
	}

	root := reflect.ValueOf(provider)
	rootName := typeName(root.Type())

	if _, ok := provider.(ContainerLister); ok {
		return Adapter{profile: listerProfile(), value: root, typeName: rootName, supported: true}
	}

	levels := hierarchy(root)

	for _, lvl := range levels {
		name := typeName(lvl.Type())
		for _, p := range r.profiles {
			if p.TypeName != name {
				continue
			}
			if p.Field != "" && !hasField(lvl.Type(), p.Field) {
				continue
			}
			return Adapter{profile: p, value: lvl, typeName: rootName, supported: true}
		}
	}

	for _, lvl := range levels {
		for _, p := range r.profiles {
			if p.Field == "" || !hasField(lvl.Type(), p.Field) {
				continue
			}
			return Adapter{profile: p, value: lvl, typeName: rootName, supported: true}
		}
	}

	return plainAdapter(rootName)
}

func plainAdapter(name string) Adapter {
	return Adapter{profile: Profile{Name: PlainProfile}, typeName: name}
}

// hierarchy returns the struct levels of v breadth-first: v itself with
// pointers dereferenced, then each embedded struct.
func hierarchy(v reflect.Value) []reflect.Value {
	var levels []reflect.Value
	seen := make(map[reflect.Type]bool)
	queue := []reflect.Value{v}

	for len(queue) > 0 && len(levels) < maxHierarchyDepth {
		cur := deref(queue[0])
		queue = queue[1:]
		if !cur.IsValid() || seen[cur.Type()] {
			continue
		}
		seen[cur.Type()] = true
		levels = append(levels, cur)

		if cur.Kind() != reflect.Struct {
			continue
		}
		for i := 0; i < cur.NumField(); i++ {
			if cur.Type().Field(i).Anonymous {
				queue = append(queue, cur.Field(i))
			}
		}
	}
	return levels
}

func deref(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func typeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" || t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

func hasField(t reflect.Type, name string) bool {
	if t.Kind() != reflect.Struct {
		return false
	}
	_, ok := t.FieldByName(name)
	return ok
}

// fieldPaths reads a string or []string field. A string is split with the
// OS list separator.
func fieldPaths(v reflect.Value, name string) []string {
	if v.Kind() != reflect.Struct {
		return nil
	}
	f := v.FieldByName(name)
	switch f.Kind() {
	case reflect.String:
		return splitList(f.String())
	case reflect.Slice:
		if f.Type().Elem().Kind() != reflect.String {
			return nil
		}
		out := make([]string, 0, f.Len())
		for i := 0; i < f.Len(); i++ {
			out = append(out, f.Index(i).String())
		}
		return out
	}
	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return filepath.SplitList(s)
}

func listerProfile() Profile {
	return Profile{
		Name: ListerProfile,
		Containers: func(v reflect.Value) []string {
			return v.Interface().(ContainerLister).Containers()
		},
		Builtin: func(v reflect.Value) []string {
			if b, ok := v.Interface().(BuiltinLister); ok {
				return b.BuiltinContainers()
			}
			return nil
		},
	}
}

func defaultProfiles() []Profile {
	return []Profile{
		{
			Name:     GoBuildProfile,
			TypeName: "go/build.Context",
			Field:    "GOPATH",
			Containers: func(v reflect.Value) []string {
				var out []string
				for _, p := range fieldPaths(v, "GOPATH") {
					out = append(out, filepath.Join(p, "src"))
				}
				return out
			},
			Builtin: func(v reflect.Value) []string {
				var out []string
				for _, p := range fieldPaths(v, "GOROOT") {
					out = append(out, filepath.Join(p, "src"))
				}
				return out
			},
		},
		{
			Name:     SearchPathProfile,
			TypeName: "github.com/gophersatwork/doublet.SearchPath",
			Field:    "Entries",
			Containers: func(v reflect.Value) []string {
				return fieldPaths(v, "Entries")
			},
			Builtin: func(v reflect.Value) []string {
				return fieldPaths(v, "Builtin")
			},
		},
		{
			Name:     ExecProfile,
			TypeName: "os/exec.Cmd",
			Field:    "Env",
			Containers: func(v reflect.Value) []string {
				env := fieldPaths(v, "Env")
				if env == nil {
					return splitList(os.Getenv("PATH"))
				}
				for i := len(env) - 1; i >= 0; i-- {
					if value, ok := strings.CutPrefix(env[i], "PATH="); ok {
						return splitList(value)
					}
				}
				return nil
			},
		},
	}
}
