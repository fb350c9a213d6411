// Package lock keeps two autosnap runs from operating on the same node at
// once, using a pid file.
package lock

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/raoulx24/autosnap/internal/fs"
)

// ErrHeld is returned when another live process owns the lock.
var ErrHeld = errors.New("already running")

// PIDFile is a single-instance guard.
type PIDFile struct {
	path string
	fs   fs.FS
	pid  int
}

// New prepares a lock at path for the current process. A nil filesystem
// means the OS filesystem.
func New(path string, filesystem fs.FS) *PIDFile {
	if filesystem == nil {
		filesystem = fs.New()
	}
	return &PIDFile{path: path, fs: filesystem, pid: os.Getpid()}
}

// Acquire creates the pid file. A file left by a dead process is replaced.
func (p *PIDFile) Acquire() error {
	for attempt := 0; attempt < 2; attempt++ {
		err := p.fs.CreateExclusive(p.path, []byte(strconv.Itoa(p.pid)))
		if err == nil {
			return nil
		}
		if !errors.Is(err, iofs.ErrExist) {
			return fmt.Errorf("creating lock file: %w", err)
		}

		owner, readErr := p.owner()
		if readErr == nil && owner != p.pid && processAlive(owner) {
			return fmt.Errorf("%w under PID %d", ErrHeld, owner)
		}
		// stale or unreadable: take it over
		if err := p.fs.Remove(p.path); err != nil {
			return fmt.Errorf("removing stale lock file: %w", err)
		}
	}
	return fmt.Errorf("%w: lock file %s keeps reappearing", ErrHeld, p.path)
}

// Release removes the pid file if this process still owns it.
func (p *PIDFile) Release() error {
	owner, err := p.owner()
	if err != nil || owner != p.pid {
		return nil
	}
	return p.fs.Remove(p.path)
}

func (p *PIDFile) owner() (int, error) {
	data, err := p.fs.ReadFile(p.path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}
