// Package backend holds the byte stores a storage server can sit on
// top of. The storage server only needs a handful of capabilities from
// its store: enumerate the files under the root, read and write byte
// ranges, create and delete entries, and drop directories that became
// empty. Backend captures exactly those.
package backend

import (
	"fmt"

	"github.com/nicolagi/scatterfs/internal/config"
	"github.com/nicolagi/scatterfs/internal/fspath"
)

type Backend interface {
	// List enumerates every file currently held, as paths relative to
	// the backend's root.
	List() ([]fspath.Path, error)
	// Size returns the byte length of the file at p. It is an error
	// (not found) if p is missing or names a directory.
	Size(p fspath.Path) (int64, error)
	// ReadAt returns length bytes starting at offset. The range must
	// lie within the file.
	ReadAt(p fspath.Path, offset int64, length int32) ([]byte, error)
	// WriteAt writes data at offset, extending the file as needed.
	WriteAt(p fspath.Path, offset int64, data []byte) error
	// Create makes an empty file at p, with intermediate directories
	// as needed. False if p is the root or already exists.
	Create(p fspath.Path) (bool, error)
	// Delete removes the entry at p, recursively for directories.
	// False for the root or a missing path.
	Delete(p fspath.Path) (bool, error)
	// PruneEmptyDirs removes, bottom-up, directories holding no files.
	PruneEmptyDirs() error
}

// New selects the backend named by the configuration.
func New(c *config.C) (Backend, error) {
	switch c.Backend {
	case "", "disk":
		return NewDiskBackend(c.RootDir), nil
	case "s3":
		return newS3Backend(c), nil
	default:
		return nil, fmt.Errorf("%q: unknown backend", c.Backend)
	}
}
