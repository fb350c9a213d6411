package fs

import (
	"context"
	"errors"
	iofs "io/fs"
	"os"
)

type OSFS struct{}

// the concrete implementation of FS backed by the local OS filesystem.

func New() *OSFS {
	return &OSFS{}
}

func (o *OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (o *OSFS) CreateExclusive(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

func (o *OSFS) Remove(path string) error {
	err := os.Remove(path)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil
	}
	return err
}

func (o *OSFS) WriteFileAtomic(ctx context.Context, path string, data []byte, perm os.FileMode) error {
	return writeAtomic(ctx, path, data, perm)
}
