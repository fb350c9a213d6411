package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/raoulx24/autosnap/internal/retry"
)

// writes data to a temp file next to path, then renames it into place with
// retry, so readers never observe a partial file.

var renamePolicy = retry.Policy{Attempts: 5, Base: 100 * time.Millisecond, Transient: isTransient}

func writeAtomic(ctx context.Context, path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err := retry.Do(ctx, renamePolicy, "rename", func() error {
		return os.Rename(tmpName, path)
	}); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
