// Package fspath implements the canonical paths that name files and
// directories in the logical filesystem. A path is a value; two paths
// are equal exactly when their component sequences are equal, and the
// canonical string form makes that plain string equality.
package fspath

import (
	"path/filepath"
	"strings"

	"github.com/nicolagi/scatterfs/internal/fault"
)

// Path is the canonical string form, "/" or "/c1/c2/.../cn". Only the
// constructors in this package produce valid values, so comparison and
// use as a map key are by component sequence.
type Path string

const Root = Path("/")

// New parses a raw string into a path. The string must start with a
// slash and must not contain colons, which are reserved for host:port
// pairs in addresses. Runs of slashes collapse, and whitespace around
// components is trimmed.
func New(raw string) (Path, error) {
	if raw == "" {
		return "", fault.E(fault.InvalidArgument, "empty path string")
	}
	if !strings.HasPrefix(raw, "/") {
		return "", fault.E(fault.InvalidArgument, "%q: path is not absolute", raw)
	}
	if strings.ContainsRune(raw, ':') {
		return "", fault.E(fault.InvalidArgument, "%q: path contains a colon", raw)
	}
	var components []string
	for _, c := range strings.Split(raw, "/") {
		c = strings.TrimSpace(c)
		if c != "" {
			components = append(components, c)
		}
	}
	return fromComponents(components), nil
}

// Join extends the path by a single component.
func (p Path) Join(component string) (Path, error) {
	if component == "" {
		return "", fault.E(fault.InvalidArgument, "empty component")
	}
	if strings.ContainsAny(component, "/:") {
		return "", fault.E(fault.InvalidArgument, "%q: component contains a separator or a colon", component)
	}
	if p.IsRoot() {
		return Path("/" + component), nil
	}
	return p + Path("/"+component), nil
}

func (p Path) IsRoot() bool { return p == Root }

func (p Path) Components() []string {
	if p.IsRoot() {
		return nil
	}
	return strings.Split(string(p[1:]), "/")
}

func (p Path) Parent() (Path, error) {
	if p.IsRoot() {
		return "", fault.E(fault.InvalidArgument, "the root has no parent")
	}
	cc := p.Components()
	return fromComponents(cc[:len(cc)-1]), nil
}

// Last returns the final component of the path.
func (p Path) Last() (string, error) {
	if p.IsRoot() {
		return "", fault.E(fault.InvalidArgument, "the root has no last component")
	}
	cc := p.Components()
	return cc[len(cc)-1], nil
}

// IsSubpath reports whether other's components are a prefix of p's.
// The comparison is at component granularity: "/a" is an ancestor of
// "/a/b" but not of "/ab".
func (p Path) IsSubpath(other Path) bool {
	pc, oc := p.Components(), other.Components()
	if len(oc) > len(pc) {
		return false
	}
	for i := range oc {
		if pc[i] != oc[i] {
			return false
		}
	}
	return true
}

func (p Path) String() string { return string(p) }

// Filename maps the path to an entry of the local filesystem tree
// rooted at root.
func Filename(root string, p Path) string {
	return filepath.Join(root, filepath.FromSlash(string(p)))
}

func fromComponents(components []string) Path {
	if len(components) == 0 {
		return Root
	}
	return Path("/" + strings.Join(components, "/"))
}
