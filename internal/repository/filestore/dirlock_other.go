//go:build !unix

package filestore

import (
	"errors"

	"github.com/ignite/phishing-simulator/internal/domain"
)

// ErrDataDirLocked reports that another process already holds the data
// directory open for writing.
var ErrDataDirLocked = errors.New("data directory is locked by another process")

type dirLock struct{}

func lockDataDir(string) (*dirLock, error) {
	return nil, domain.StorageErr("lock data directory", errors.New("exclusive locking is only supported on unix"))
}

func (l *dirLock) release() error { return nil }
