//go:build unix

package filestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/ignite/phishing-simulator/internal/domain"
)

// ErrDataDirLocked reports that another process already holds the data
// directory open for writing.
var ErrDataDirLocked = errors.New("data directory is locked by another process")

// dirLock is an exclusive advisory lock on <dataDir>/.lock, held until
// release. The kernel drops it when the holder exits, so a crash never
// leaves a stale lock behind.
type dirLock struct {
	f *os.File
}

func lockDataDir(dataDir string) (*dirLock, error) {
	path := filepath.Join(dataDir, lockFile)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, domain.StorageErr("open lock file", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, domain.StorageErr("lock "+dataDir, ErrDataDirLocked)
		}
		return nil, domain.StorageErr("lock "+dataDir, err)
	}
	if err := f.Truncate(0); err == nil {
		fmt.Fprintf(f, "%d\n", os.Getpid())
	}
	return &dirLock{f: f}, nil
}

func (l *dirLock) release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := errors.Join(unix.Flock(int(l.f.Fd()), unix.LOCK_UN), l.f.Close())
	l.f = nil
	return err
}
