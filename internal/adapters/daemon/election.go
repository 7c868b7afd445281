package daemon

import (
	"os"

	"github.com/gofrs/flock"
	"go.trai.ch/stitch/internal/core/domain"
	"go.trai.ch/stitch/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Elector = FlockElector{}

// FlockElector elects the primary by an exclusive flock on the state
// directory's lock file. The kernel drops the lock when its holder exits.
type FlockElector struct{}

// Acquire implements ports.Elector.
func (FlockElector) Acquire(stateDir string) (ports.Lease, error) {
	if err := os.MkdirAll(stateDir, domain.DirPerm); err != nil {
		return nil, zerr.Wrap(err, domain.ErrRecordCreateFailed.Error())
	}

	path := domain.LockPath(stateDir)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrLockFailed.Error()), "lock", path)
	}
	if !ok {
		return nil, zerr.With(domain.ErrPrimaryRunning, "lock", path)
	}
	return &lease{lock: lock}, nil
}

type lease struct {
	lock *flock.Flock
}

func (l *lease) Release() error {
	if err := l.lock.Unlock(); err != nil {
		return zerr.Wrap(err, "failed to release primary lock")
	}
	return nil
}
