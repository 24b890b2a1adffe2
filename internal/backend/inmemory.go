package backend

import (
	"sync"

	"github.com/nicolagi/scatterfs/internal/fault"
	"github.com/nicolagi/scatterfs/internal/fspath"
)

// InMemory implements Backend, meant to be used in unit tests.
type InMemory struct {
	sync.Mutex
	m map[fspath.Path][]byte
}

var _ Backend = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{m: make(map[fspath.Path][]byte)}
}

func (b *InMemory) List() ([]fspath.Path, error) {
	b.Lock()
	defer b.Unlock()
	paths := make([]fspath.Path, 0, len(b.m))
	for p := range b.m {
		paths = append(paths, p)
	}
	return paths, nil
}

func (b *InMemory) Size(p fspath.Path) (int64, error) {
	b.Lock()
	defer b.Unlock()
	data, ok := b.m[p]
	if !ok {
		return 0, fault.E(fault.NotFound, "%s: no such file", p)
	}
	return int64(len(data)), nil
}

func (b *InMemory) ReadAt(p fspath.Path, offset int64, length int32) ([]byte, error) {
	b.Lock()
	defer b.Unlock()
	data, ok := b.m[p]
	if !ok {
		return nil, fault.E(fault.NotFound, "%s: no such file", p)
	}
	if offset < 0 || length < 0 || offset+int64(length) > int64(len(data)) {
		return nil, fault.E(fault.OutOfBounds, "%s: range [%d,%d) outside of %d bytes", p, offset, offset+int64(length), len(data))
	}
	out := make([]byte, length)
	copy(out, data[offset:])
	return out, nil
}

func (b *InMemory) WriteAt(p fspath.Path, offset int64, data []byte) error {
	b.Lock()
	defer b.Unlock()
	current, ok := b.m[p]
	if !ok {
		return fault.E(fault.NotFound, "%s: no such file", p)
	}
	if offset < 0 {
		return fault.E(fault.OutOfBounds, "%s: negative offset %d", p, offset)
	}
	end := offset + int64(len(data))
	if end < int64(len(current)) {
		end = int64(len(current))
	}
	grown := make([]byte, end)
	copy(grown, current)
	copy(grown[offset:], data)
	b.m[p] = grown
	return nil
}

func (b *InMemory) Create(p fspath.Path) (bool, error) {
	if p.IsRoot() {
		return false, nil
	}
	b.Lock()
	defer b.Unlock()
	if _, ok := b.m[p]; ok {
		return false, nil
	}
	b.m[p] = []byte{}
	return true, nil
}

func (b *InMemory) Delete(p fspath.Path) (bool, error) {
	if p.IsRoot() {
		return false, nil
	}
	b.Lock()
	defer b.Unlock()
	deleted := false
	for q := range b.m {
		if q == p || q.IsSubpath(p) {
			delete(b.m, q)
			deleted = true
		}
	}
	return deleted, nil
}

func (b *InMemory) PruneEmptyDirs() error { return nil }
