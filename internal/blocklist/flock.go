package blocklist

import (
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"github.com/cockroachdb/errors"
)

// ErrLocked is returned when another process is building the same output.
var ErrLocked = errors.New("output is locked by another process")

// Flock provides advisory file locking on an open file.
type Flock struct {
	f *os.File
}

// Lock acquires an exclusive lock without blocking.
func (fl Flock) Lock() error {
	err := syscall.Flock(int(fl.f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if errors.Is(err, syscall.EWOULDBLOCK) {
		return errors.Mark(errors.Wrap(err, fl.f.Name()), ErrLocked)
	}
	if err != nil {
		return errors.Wrap(err, "flock "+fl.f.Name())
	}
	return nil
}

// Unlock releases the lock.
func (fl Flock) Unlock() error {
	return syscall.Flock(int(fl.f.Fd()), syscall.LOCK_UN)
}

// lockPath returns the lock file guarding output.
func lockPath(output string) string {
	return filepath.Join(filepath.Dir(output), "."+filepath.Base(output)+".lock")
}

// lockOutput takes the lock for output and returns a function that
// releases it. The lock file is left in place.
func lockOutput(output string) (func(), error) {
	path := lockPath(output)
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644) // #nosec G304,G302 - derived from configured output
	if err != nil {
		return nil, errors.Wrap(err, "lock file")
	}

	fl := Flock{file}
	if err := fl.Lock(); err != nil {
		file.Close()
		return nil, err
	}

	return func() {
		if err := fl.Unlock(); err != nil {
			slog.Warn("failed to unlock file", "error", err)
		}
		if err := file.Close(); err != nil {
			slog.Warn("failed to close lock file", "error", err)
		}
	}, nil
}
