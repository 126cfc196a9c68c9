// Package workspace guards a working tree against concurrent patch runs.
package workspace

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
)

const lockFileName = ".apply-patch.lock"

// Lock is an acquired exclusive lock on a working tree. Release it when the
// patch run is done; Release is idempotent.
type Lock struct {
	file        *os.File
	lockPath    string
	sigChan     chan os.Signal
	mu          sync.Mutex
	cleanupOnce sync.Once
}

// Acquire takes an exclusive flock on root. Patches are applied file by file
// with no rollback, so two runs interleaving on the same tree could each see
// the other's half-applied state. The lock is non-blocking: a busy tree is an
// immediate error, not a wait.
func Acquire(root string) (*Lock, error) {
	lockPath := filepath.Join(root, lockFileName)

	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}

	if err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		lockFile.Close()
		return nil, fmt.Errorf("working directory %q is already in use by another apply-patch run", root)
	}

	// Record the owning PID for debugging stale locks.
	lockFile.Truncate(0)
	lockFile.Seek(0, 0)
	fmt.Fprintf(lockFile, "%d\n", os.Getpid())

	lock := &Lock{
		file:     lockFile,
		lockPath: lockPath,
		sigChan:  make(chan os.Signal, 1),
	}

	// Remove the lock file even when the run is interrupted.
	signal.Notify(lock.sigChan, syscall.SIGINT, syscall.SIGTERM)
	sigChan := lock.sigChan
	go func() {
		sig, ok := <-sigChan
		if ok && sig != nil {
			lock.cleanup()
			os.Exit(130)
		}
	}()

	return lock, nil
}

// Release unlocks the tree and removes the lock file.
func (l *Lock) Release() {
	l.mu.Lock()
	if l.file == nil {
		l.mu.Unlock()
		return
	}
	if l.sigChan != nil {
		signal.Stop(l.sigChan)
		close(l.sigChan)
		l.sigChan = nil
	}
	l.mu.Unlock()
	l.cleanup()
}

func (l *Lock) cleanup() {
	l.cleanupOnce.Do(func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.file == nil {
			return
		}
		syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
		l.file.Close()
		os.Remove(l.lockPath)
		l.file = nil
	})
}
