package naming

import (
	"testing"

	"github.com/nicolagi/scatterfs/internal/fspath"
	"github.com/nicolagi/scatterfs/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubs(addr string) (remote.StorageStub, remote.CommandStub) {
	return remote.NewStorageStub(addr, nil), remote.NewCommandStub(addr, nil)
}

func TestTreeLookup(t *testing.T) {
	tr := newTree()
	assert.Same(t, tr.root, tr.lookup(fspath.Root))
	assert.Nil(t, tr.lookup("/missing"))
}

func TestTreeIngest(t *testing.T) {
	tr := newTree()
	storage, command := stubs("127.0.0.1:7201")

	t.Run("creates intermediate directories", func(t *testing.T) {
		assert.False(t, tr.ingest("/a/b/c", storage, command))
		n := tr.lookup("/a/b")
		require.NotNil(t, n)
		assert.True(t, n.isDir())
		leaf := tr.lookup("/a/b/c")
		require.NotNil(t, leaf)
		assert.False(t, leaf.isDir())
		assert.True(t, leaf.storage.Equal(storage))
	})
	t.Run("existing path conflicts", func(t *testing.T) {
		assert.True(t, tr.ingest("/a/b/c", storage, command))
	})
	t.Run("existing directory conflicts", func(t *testing.T) {
		assert.True(t, tr.ingest("/a/b", storage, command))
	})
	t.Run("file as intermediate conflicts", func(t *testing.T) {
		assert.True(t, tr.ingest("/a/b/c/d", storage, command))
	})
}

func TestTreeRemove(t *testing.T) {
	tr := newTree()
	storage, command := stubs("127.0.0.1:7202")
	require.False(t, tr.ingest("/a/b", storage, command))

	assert.False(t, tr.remove(fspath.Root))
	assert.False(t, tr.remove("/missing"))
	assert.True(t, tr.remove("/a/b"))
	assert.Nil(t, tr.lookup("/a/b"))
	// The parent directory stays; naming directories are explicit.
	assert.NotNil(t, tr.lookup("/a"))
	assert.False(t, tr.remove("/a/b"))
}

func TestCommandsUnder(t *testing.T) {
	tr := newTree()
	storageA, commandA := stubs("127.0.0.1:7203")
	storageB, commandB := stubs("127.0.0.1:7204")
	require.False(t, tr.ingest("/d/one", storageA, commandA))
	require.False(t, tr.ingest("/d/two", storageB, commandB))
	require.False(t, tr.ingest("/d/three", storageA, commandA))

	acc := make(map[string]remote.CommandStub)
	commandsUnder(tr.lookup("/d"), acc)
	assert.Len(t, acc, 2)
	_, ok := acc[commandA.Addr()]
	assert.True(t, ok)
	_, ok = acc[commandB.Addr()]
	assert.True(t, ok)
	assert.False(t, storageA.Equal(storageB))
}
