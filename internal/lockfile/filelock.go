package lockfile

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// fileLock is an OS-level advisory lock on a sidecar ".lock" file,
// guarding a scoped acquisition against other processes touching the same
// lockfile path. Cross-process coordination is the only thing it adds;
// within one process, the mutex held by Lockfile and ProjectLockfile
// already serializes access.
type fileLock struct {
	file *os.File
}

func newFileLock(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	return &fileLock{file: f}, nil
}

func (l *fileLock) lockExclusive() error {
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_EX); err != nil {
		l.file.Close()
		return fmt.Errorf("acquire exclusive lock: %w", err)
	}
	return nil
}

func (l *fileLock) lockShared() error {
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_SH); err != nil {
		l.file.Close()
		return fmt.Errorf("acquire shared lock: %w", err)
	}
	return nil
}

func (l *fileLock) unlock() error {
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return closeErr
}
