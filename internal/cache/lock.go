package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// ErrLockHeld means another pipeline instance holds the cache lock. The
// current invocation must not touch the cache and should exit.
var ErrLockHeld = errors.New("cache: lock held by another instance")

// lockStaleAfter is how old a lock file may be before it is considered
// abandoned by a crashed run and reclaimed.
const lockStaleAfter = time.Hour

const lockFileName = ".lock"

// Lock is an advisory single-instance marker for the cache directory.
// It is not a distributed lock: acquisition never blocks, and staleness
// is judged purely by file age.
type Lock struct {
	path   string
	logger *zap.Logger
}

// AcquireLock takes the advisory lock for the cache rooted at root. It
// returns ErrLockHeld if an unexpired lock exists; a lock older than one
// hour is removed and re-acquired transparently.
func AcquireLock(root string, logger *zap.Logger) (*Lock, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("lock")

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	path := filepath.Join(root, lockFileName)

	if info, err := os.Stat(path); err == nil {
		age := time.Since(info.ModTime())
		if age <= lockStaleAfter {
			logger.Warn("pipeline already running", zap.String("lock", path), zap.Duration("age", age))
			return nil, ErrLockHeld
		}
		logger.Warn("removing stale lock", zap.String("lock", path), zap.Duration("age", age))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("removing stale lock: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrLockHeld
		}
		return nil, fmt.Errorf("creating lock: %w", err)
	}
	fmt.Fprintf(f, "%s\nPID: %d\n", time.Now().Format(time.RFC3339), os.Getpid())
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("writing lock: %w", err)
	}

	logger.Info("lock acquired", zap.String("lock", path))
	return &Lock{path: path, logger: logger}, nil
}

// Release removes the lock file. Idempotent: releasing an already released
// or missing lock is a no-op, so it is safe to defer unconditionally.
func (l *Lock) Release() {
	if l == nil {
		return
	}
	if err := os.Remove(l.path); err != nil {
		if !os.IsNotExist(err) {
			l.logger.Warn("failed to release lock", zap.Error(err))
		}
		return
	}
	l.logger.Info("lock released")
}
