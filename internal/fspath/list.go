package fspath

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nicolagi/scatterfs/internal/fault"
	"github.com/pkg/errors"
)

// List enumerates the regular files under localRoot and returns their
// paths relative to it. Traversal order is not specified; treat the
// result as a set.
func List(localRoot string) ([]Path, error) {
	fi, err := os.Stat(localRoot)
	if os.IsNotExist(err) {
		return nil, fault.E(fault.NotFound, "%q: no such directory", localRoot)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not stat %q", localRoot)
	}
	if !fi.IsDir() {
		return nil, fault.E(fault.InvalidArgument, "%q: not a directory", localRoot)
	}
	var paths []Path
	err = filepath.Walk(localRoot, func(name string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() || !fi.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(localRoot, name)
		if err != nil {
			return err
		}
		p, err := New("/" + filepath.ToSlash(rel))
		if err != nil {
			// A local name our canonical form cannot express, e.g.,
			// one containing a colon. Skip it rather than fail the
			// whole enumeration.
			return nil
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not walk %q", localRoot)
	}
	return paths, nil
}

// PruneEmptyDirs removes, bottom-up, every directory under localRoot
// that contains no files, leaving localRoot itself in place.
func PruneEmptyDirs(localRoot string) error {
	var dirs []string
	err := filepath.Walk(localRoot, func(name string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() && name != localRoot {
			dirs = append(dirs, name)
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "could not walk %q", localRoot)
	}
	// Deepest first, so a directory that only held empty directories
	// is itself empty by the time it is visited.
	sortByDepthDesc(dirs)
	for _, dir := range dirs {
		empty, err := isEmptyDir(dir)
		if err != nil {
			return err
		}
		if empty {
			if err := os.Remove(dir); err != nil {
				return errors.Wrapf(err, "could not remove %q", dir)
			}
		}
	}
	return nil
}

func sortByDepthDesc(dirs []string) {
	depth := func(name string) int {
		return strings.Count(filepath.ToSlash(name), "/")
	}
	for i := 1; i < len(dirs); i++ {
		for j := i; j > 0 && depth(dirs[j]) > depth(dirs[j-1]); j-- {
			dirs[j], dirs[j-1] = dirs[j-1], dirs[j]
		}
	}
}

func isEmptyDir(name string) (bool, error) {
	f, err := os.Open(name)
	if err != nil {
		return false, err
	}
	_, err = f.Readdirnames(1)
	_ = f.Close()
	if err == io.EOF {
		return true, nil
	}
	return false, err
}
