package store

import (
	"fmt"
	"os"

	"github.com/ehrlich-b/noetic/internal/config"
	"golang.org/x/sys/unix"
)

// DirLock is an exclusive advisory lock on a data directory: the process
// owns exactly one data directory, acquired at startup; a second instance
// targeting the same directory must fail fast with ErrDirectoryLocked
// rather than corrupt shared state.
type DirLock struct {
	f *os.File
}

// AcquireDirLock takes an exclusive, non-blocking flock on dataDir/.lock.
func AcquireDirLock(dataDir string) (*DirLock, error) {
	path := config.LockPath(dataDir)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrDirectoryLocked, dataDir)
	}

	return &DirLock{f: f}, nil
}

// Release drops the lock and closes the underlying file. Safe to call once.
func (l *DirLock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	closeErr := l.f.Close()
	l.f = nil
	if err != nil {
		return err
	}
	return closeErr
}
