// Package fs defines the filesystem abstraction used by autosnap for its
// lock file and report output.
package fs

import (
	"context"
	"os"
)

type FS interface {
	ReadFile(path string) ([]byte, error)
	// WriteFileAtomic replaces path via a temp file and rename.
	WriteFileAtomic(ctx context.Context, path string, data []byte, perm os.FileMode) error
	// CreateExclusive fails with fs.ErrExist if path already exists.
	CreateExclusive(path string, data []byte) error
	Remove(path string) error
}
