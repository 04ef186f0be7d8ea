// Package lock enforces spec §5's at-most-one-active-batch constraint with
// a PID file, the way a daemon would guard against a second instance.
package lock

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// BatchLock guards a single sync/cleanup run via a PID file.
type BatchLock struct {
	path string
}

// New returns a BatchLock backed by the file at path.
func New(path string) *BatchLock {
	return &BatchLock{path: path}
}

// Acquire claims the lock, failing if another batch already holds it and
// its process is still alive. A stale lock file (dead PID, or unparsable
// contents) is reclaimed silently.
func (l *BatchLock) Acquire() error {
	if data, err := os.ReadFile(l.path); err == nil {
		pidStr := strings.TrimSpace(string(data))
		pid, err := strconv.Atoi(pidStr)
		if err != nil {
			_ = os.Remove(l.path)
		} else if processRunning(pid) {
			return fmt.Errorf("lock: another batch is already running (pid %d)", pid)
		} else {
			_ = os.Remove(l.path)
		}
	}

	if err := os.WriteFile(l.path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644); err != nil {
		return fmt.Errorf("lock: writing %s: %w", l.path, err)
	}
	return nil
}

// Release drops the lock. Safe to call even if Acquire was never called.
func (l *BatchLock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("lock: removing %s: %w", l.path, err)
	}
	return nil
}

func processRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	if err == syscall.ESRCH {
		return false
	}
	if err == syscall.EPERM {
		return true
	}
	return false
}
