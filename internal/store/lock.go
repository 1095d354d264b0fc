package store

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"strconv"

	"github.com/gosure/gosure/internal/fs"
)

// Lock is an advisory per-store lock that keeps two updates from
// interleaving their rotate steps. It is a lock file created
// exclusively; a stale one must be removed by hand.
type Lock struct {
	path string
	fsys fs.FS
}

// AcquireLock takes the lock guarding the store at path.
func AcquireLock(path string, fsys fs.FS) (*Lock, error) {
	lockPath := path + ".lock"
	w, err := fsys.CreateNew(lockPath)
	if err != nil {
		if errors.Is(err, iofs.ErrExist) {
			return nil, fmt.Errorf("store %s is locked (remove %s if no update is running)", path, lockPath)
		}
		return nil, fmt.Errorf("acquire store lock: %w", err)
	}
	if _, err := w.Write([]byte(strconv.Itoa(os.Getpid()) + "\n")); err != nil {
		w.Close()
		fsys.Remove(lockPath)
		return nil, err
	}
	if err := w.Close(); err != nil {
		fsys.Remove(lockPath)
		return nil, err
	}
	return &Lock{path: lockPath, fsys: fsys}, nil
}

func (l *Lock) Release() error {
	return l.fsys.Remove(l.path)
}
