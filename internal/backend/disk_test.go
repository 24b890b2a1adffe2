package backend

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nicolagi/scatterfs/internal/fault"
	"github.com/nicolagi/scatterfs/internal/fspath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskBackend_SizeRead(t *testing.T) {
	b, clean := disposableDiskBackend(t)
	defer clean()
	seed(t, b.root, "/f", "0123456789")

	t.Run("size", func(t *testing.T) {
		n, err := b.Size("/f")
		require.Nil(t, err)
		assert.Equal(t, int64(10), n)
	})
	t.Run("size of missing file", func(t *testing.T) {
		_, err := b.Size("/missing")
		assert.True(t, fault.Is(err, fault.NotFound))
	})
	t.Run("size of directory", func(t *testing.T) {
		require.Nil(t, os.MkdirAll(filepath.Join(b.root, "d"), 0700))
		_, err := b.Size("/d")
		assert.True(t, fault.Is(err, fault.NotFound))
	})
	t.Run("read the tail", func(t *testing.T) {
		data, err := b.ReadAt("/f", 5, 5)
		require.Nil(t, err)
		assert.Equal(t, []byte("56789"), data)
	})
	t.Run("read past the end", func(t *testing.T) {
		_, err := b.ReadAt("/f", 5, 6)
		assert.True(t, fault.Is(err, fault.OutOfBounds))
	})
	t.Run("negative offset and length", func(t *testing.T) {
		_, err := b.ReadAt("/f", -1, 1)
		assert.True(t, fault.Is(err, fault.OutOfBounds))
		_, err = b.ReadAt("/f", 0, -1)
		assert.True(t, fault.Is(err, fault.OutOfBounds))
	})
	t.Run("zero bytes of an empty file", func(t *testing.T) {
		seed(t, b.root, "/empty", "")
		data, err := b.ReadAt("/empty", 0, 0)
		require.Nil(t, err)
		assert.Len(t, data, 0)
	})
}

func TestDiskBackend_Write(t *testing.T) {
	b, clean := disposableDiskBackend(t)
	defer clean()
	seed(t, b.root, "/f", "0123456789")

	t.Run("write then read back", func(t *testing.T) {
		require.Nil(t, b.WriteAt("/f", 3, []byte{1, 2, 3}))
		data, err := b.ReadAt("/f", 3, 3)
		require.Nil(t, err)
		assert.Equal(t, []byte{1, 2, 3}, data)
	})
	t.Run("write extends the file", func(t *testing.T) {
		require.Nil(t, b.WriteAt("/f", 15, []byte("tail")))
		n, err := b.Size("/f")
		require.Nil(t, err)
		assert.Equal(t, int64(19), n)
	})
	t.Run("negative offset", func(t *testing.T) {
		err := b.WriteAt("/f", -1, []byte("x"))
		assert.True(t, fault.Is(err, fault.OutOfBounds))
	})
	t.Run("missing file", func(t *testing.T) {
		err := b.WriteAt("/missing", 0, []byte("x"))
		assert.True(t, fault.Is(err, fault.NotFound))
	})
}

func TestDiskBackend_CreateDelete(t *testing.T) {
	b, clean := disposableDiskBackend(t)
	defer clean()

	t.Run("create with parents", func(t *testing.T) {
		created, err := b.Create("/d/e/f")
		require.Nil(t, err)
		assert.True(t, created)
		n, err := b.Size("/d/e/f")
		require.Nil(t, err)
		assert.Equal(t, int64(0), n)
	})
	t.Run("create existing", func(t *testing.T) {
		created, err := b.Create("/d/e/f")
		require.Nil(t, err)
		assert.False(t, created)
	})
	t.Run("create root", func(t *testing.T) {
		created, err := b.Create(fspath.Root)
		require.Nil(t, err)
		assert.False(t, created)
	})
	t.Run("delete a file", func(t *testing.T) {
		deleted, err := b.Delete("/d/e/f")
		require.Nil(t, err)
		assert.True(t, deleted)
		_, err = b.Size("/d/e/f")
		assert.True(t, fault.Is(err, fault.NotFound))
	})
	t.Run("delete a directory tree", func(t *testing.T) {
		seed(t, b.root, "/d/x", "x")
		seed(t, b.root, "/d/sub/y", "y")
		deleted, err := b.Delete("/d")
		require.Nil(t, err)
		assert.True(t, deleted)
		paths, err := b.List()
		require.Nil(t, err)
		assert.Len(t, paths, 0)
	})
	t.Run("delete missing", func(t *testing.T) {
		deleted, err := b.Delete("/missing")
		require.Nil(t, err)
		assert.False(t, deleted)
	})
	t.Run("delete root", func(t *testing.T) {
		deleted, err := b.Delete(fspath.Root)
		require.Nil(t, err)
		assert.False(t, deleted)
	})
}

func TestDiskBackend_ListPrune(t *testing.T) {
	b, clean := disposableDiskBackend(t)
	defer clean()
	seed(t, b.root, "/x", "x")
	seed(t, b.root, "/d/y", "y")
	require.Nil(t, os.MkdirAll(filepath.Join(b.root, "hollow/deep"), 0700))

	paths, err := b.List()
	require.Nil(t, err)
	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })
	if diff := cmp.Diff([]fspath.Path{"/d/y", "/x"}, paths); diff != "" {
		t.Errorf("unexpected listing (-want +got):\n%s", diff)
	}

	require.Nil(t, b.PruneEmptyDirs())
	_, err = os.Stat(filepath.Join(b.root, "hollow"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(b.root, "d"))
	assert.Nil(t, err)
}

func disposableDiskBackend(t *testing.T) (b *DiskBackend, cleanup func()) {
	t.Helper()
	dir, err := ioutil.TempDir("", "")
	require.Nil(t, err)
	return NewDiskBackend(dir), func() {
		assert.Nil(t, os.RemoveAll(dir))
	}
}

func seed(t *testing.T, root, path, contents string) {
	t.Helper()
	name := filepath.Join(root, filepath.FromSlash(path))
	require.Nil(t, os.MkdirAll(filepath.Dir(name), 0700))
	require.Nil(t, ioutil.WriteFile(name, []byte(contents), 0600))
}
