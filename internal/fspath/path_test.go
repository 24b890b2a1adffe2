package fspath

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"testing/quick"

	"github.com/nicolagi/scatterfs/internal/fault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("collapses slashes and trims components", func(t *testing.T) {
		p, err := New("/a//b/ /c")
		require.Nil(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, p.Components())
		assert.Equal(t, "/a/b/c", p.String())
	})
	t.Run("all slashes is the root", func(t *testing.T) {
		p, err := New("///")
		require.Nil(t, err)
		assert.True(t, p.IsRoot())
	})
	t.Run("relative path is an error", func(t *testing.T) {
		_, err := New("a/b")
		assert.True(t, fault.Is(err, fault.InvalidArgument))
	})
	t.Run("empty string is an error", func(t *testing.T) {
		_, err := New("")
		assert.True(t, fault.Is(err, fault.InvalidArgument))
	})
	t.Run("colon is an error", func(t *testing.T) {
		_, err := New("/a:b")
		assert.True(t, fault.Is(err, fault.InvalidArgument))
	})
}

func TestJoin(t *testing.T) {
	t.Run("join onto root", func(t *testing.T) {
		p, err := Root.Join("etc")
		require.Nil(t, err)
		assert.Equal(t, Path("/etc"), p)
	})
	t.Run("join onto non-root", func(t *testing.T) {
		p, err := Path("/etc").Join("hosts")
		require.Nil(t, err)
		assert.Equal(t, Path("/etc/hosts"), p)
	})
	for _, component := range []string{"", "a/b", "a:b"} {
		component := component
		t.Run("bad component "+component, func(t *testing.T) {
			_, err := Root.Join(component)
			assert.True(t, fault.Is(err, fault.InvalidArgument))
		})
	}
}

func TestParentLast(t *testing.T) {
	t.Run("of the root", func(t *testing.T) {
		_, err := Root.Parent()
		assert.True(t, fault.Is(err, fault.InvalidArgument))
		_, err = Root.Last()
		assert.True(t, fault.Is(err, fault.InvalidArgument))
	})
	t.Run("of a top-level entry", func(t *testing.T) {
		parent, err := Path("/etc").Parent()
		require.Nil(t, err)
		assert.True(t, parent.IsRoot())
		last, err := Path("/etc").Last()
		require.Nil(t, err)
		assert.Equal(t, "etc", last)
	})
	t.Run("of a nested entry", func(t *testing.T) {
		parent, err := Path("/etc/hosts").Parent()
		require.Nil(t, err)
		assert.Equal(t, Path("/etc"), parent)
	})
}

func TestIsSubpath(t *testing.T) {
	t.Run("component prefix, not string prefix", func(t *testing.T) {
		assert.True(t, Path("/a/b").IsSubpath(Path("/a")))
		assert.False(t, Path("/ab").IsSubpath(Path("/a")))
		assert.False(t, Path("/abc").IsSubpath(Path("/a")))
	})
	t.Run("every path descends from the root", func(t *testing.T) {
		assert.True(t, Path("/a").IsSubpath(Root))
		assert.True(t, Root.IsSubpath(Root))
	})
	t.Run("a path descends from itself", func(t *testing.T) {
		assert.True(t, Path("/a/b").IsSubpath(Path("/a/b")))
	})
	t.Run("not the other way around", func(t *testing.T) {
		assert.False(t, Path("/a").IsSubpath(Path("/a/b")))
	})
	t.Run("prefix of components agrees with the definition", func(t *testing.T) {
		f := func(p, other Path) bool {
			pc, oc := p.Components(), other.Components()
			want := len(oc) <= len(pc)
			for i := 0; want && i < len(oc); i++ {
				want = pc[i] == oc[i]
			}
			return p.IsSubpath(other) == want
		}
		if err := quick.Check(f, nil); err != nil {
			t.Error(err)
		}
	})
}

func TestStringRoundTrip(t *testing.T) {
	f := func(p Path) bool {
		q, err := New(p.String())
		if err != nil {
			t.Log(err)
			return false
		}
		return p == q
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

// Generate implements quick.Generator, producing valid canonical
// paths.
func (Path) Generate(rand *rand.Rand, size int) reflect.Value {
	n := rand.Intn(4)
	components := make([]string, 0, n)
	for i := 0; i < n; i++ {
		b := make([]byte, 1+rand.Intn(3))
		for j := range b {
			b[j] = byte('a' + rand.Intn(4))
		}
		components = append(components, string(b))
	}
	if len(components) == 0 {
		return reflect.ValueOf(Root)
	}
	return reflect.ValueOf(Path("/" + strings.Join(components, "/")))
}
