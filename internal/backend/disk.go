package backend

import (
	"os"
	"path/filepath"

	"github.com/nicolagi/scatterfs/internal/fault"
	"github.com/nicolagi/scatterfs/internal/fspath"
)

const (
	diskDirPerm  = 0700
	diskFilePerm = 0600
)

// DiskBackend stores files in a local tree rooted at a configured
// directory; path /a/b maps to <root>/a/b.
type DiskBackend struct {
	root string
}

var _ Backend = (*DiskBackend)(nil)

func NewDiskBackend(root string) *DiskBackend {
	return &DiskBackend{root: root}
}

func (b *DiskBackend) Root() string { return b.root }

func (b *DiskBackend) List() ([]fspath.Path, error) {
	paths, err := fspath.List(b.root)
	if err != nil && fault.KindOf(err) == fault.Unknown {
		return nil, fault.E(fault.IO, "could not list %q: %v", b.root, err)
	}
	return paths, err
}

func (b *DiskBackend) Size(p fspath.Path) (int64, error) {
	fi, err := b.statFile(p)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (b *DiskBackend) ReadAt(p fspath.Path, offset int64, length int32) ([]byte, error) {
	fi, err := b.statFile(p)
	if err != nil {
		return nil, err
	}
	if offset < 0 || length < 0 || offset+int64(length) > fi.Size() {
		return nil, fault.E(fault.OutOfBounds, "%s: range [%d,%d) outside of %d bytes", p, offset, offset+int64(length), fi.Size())
	}
	f, err := os.Open(fspath.Filename(b.root, p))
	if err != nil {
		return nil, fault.E(fault.IO, "could not open %q: %v", p, err)
	}
	defer func() { _ = f.Close() }()
	data := make([]byte, length)
	if length == 0 {
		return data, nil
	}
	if _, err := f.ReadAt(data, offset); err != nil {
		return nil, fault.E(fault.IO, "could not read %d bytes at %d from %q: %v", length, offset, p, err)
	}
	return data, nil
}

func (b *DiskBackend) WriteAt(p fspath.Path, offset int64, data []byte) error {
	if offset < 0 {
		return fault.E(fault.OutOfBounds, "%s: negative offset %d", p, offset)
	}
	if _, err := b.statFile(p); err != nil {
		return err
	}
	f, err := os.OpenFile(fspath.Filename(b.root, p), os.O_WRONLY, diskFilePerm)
	if err != nil {
		return fault.E(fault.IO, "could not open %q for writing: %v", p, err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteAt(data, offset); err != nil {
		return fault.E(fault.IO, "could not write %d bytes at %d to %q: %v", len(data), offset, p, err)
	}
	return nil
}

func (b *DiskBackend) Create(p fspath.Path) (bool, error) {
	if p.IsRoot() {
		return false, nil
	}
	name := fspath.Filename(b.root, p)
	if _, err := os.Stat(name); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fault.E(fault.IO, "could not stat %q: %v", p, err)
	}
	if err := os.MkdirAll(filepath.Dir(name), diskDirPerm); err != nil {
		return false, fault.E(fault.IO, "could not make parents of %q: %v", p, err)
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, diskFilePerm)
	if err != nil {
		return false, fault.E(fault.IO, "could not create %q: %v", p, err)
	}
	if err := f.Close(); err != nil {
		return false, fault.E(fault.IO, "could not close %q: %v", p, err)
	}
	return true, nil
}

func (b *DiskBackend) Delete(p fspath.Path) (bool, error) {
	if p.IsRoot() {
		return false, nil
	}
	name := fspath.Filename(b.root, p)
	if _, err := os.Stat(name); os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, fault.E(fault.IO, "could not stat %q: %v", p, err)
	}
	if err := os.RemoveAll(name); err != nil {
		return false, fault.E(fault.IO, "could not remove %q: %v", p, err)
	}
	return true, nil
}

func (b *DiskBackend) PruneEmptyDirs() error {
	if err := fspath.PruneEmptyDirs(b.root); err != nil {
		return fault.E(fault.IO, "could not prune %q: %v", b.root, err)
	}
	return nil
}

// statFile is the shared gate for the data operations: they address
// files, never directories, so a directory is as good as absent.
func (b *DiskBackend) statFile(p fspath.Path) (os.FileInfo, error) {
	fi, err := os.Stat(fspath.Filename(b.root, p))
	if os.IsNotExist(err) {
		return nil, fault.E(fault.NotFound, "%s: no such file", p)
	}
	if err != nil {
		return nil, fault.E(fault.IO, "could not stat %q: %v", p, err)
	}
	if fi.IsDir() {
		return nil, fault.E(fault.NotFound, "%s: is a directory", p)
	}
	return fi, nil
}
