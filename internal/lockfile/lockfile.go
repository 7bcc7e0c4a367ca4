// Package lockfile keeps two BuddyBot processes from sharing one state directory.
//
// The lock is an flock(2) on a file inside the state directory, so the kernel drops
// it when the holder exits, even on a crash.
package lockfile

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// LockFileName is the name of the lock file created in the state directory
const LockFileName = "buddybot.lock"

// ErrLocked is wrapped by *LockError when another process holds the lock.
var ErrLocked = errors.New("state directory is locked by another process")

// Holder describes the process recorded in a lock file.
type Holder struct {
	PID       int
	StartedAt time.Time
	Running   bool
}

// Lock is a held state directory lock.
type Lock struct {
	file *os.File
	path string
}

// AcquireLock takes the exclusive lock on stateDir, creating the directory if needed.
func AcquireLock(stateDir string) (*Lock, error) {
	lockPath := filepath.Join(stateDir, LockFileName)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", stateDir, err)
	}

	// O_TRUNC would wipe the holder's details before we know whether we win the lock.
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", lockPath, err)
	}
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		holder, _ := ReadHolder(lockPath)
		slog.Error("Another BuddyBot instance holds the state directory", "lock_path", lockPath, "holder_pid", holder.PID)
		return nil, &LockError{LockPath: lockPath, Holder: holder, Cause: err}
	}

	if err := writeHolder(file); err != nil {
		syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		file.Close()
		return nil, fmt.Errorf("failed to write lock information to %s: %w", lockPath, err)
	}

	slog.Info("Acquired state directory lock", "lock_path", lockPath, "pid", os.Getpid())
	return &Lock{file: file, path: lockPath}, nil
}

func writeHolder(file *os.File) error {
	if err := file.Truncate(0); err != nil {
		return err
	}
	if _, err := file.Seek(0, 0); err != nil {
		return err
	}
	content := fmt.Sprintf("pid=%d\nstarted=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if _, err := file.WriteString(content); err != nil {
		return err
	}
	if err := file.Sync(); err != nil {
		slog.Warn("Failed to sync lock file", "error", err, "lock_path", file.Name())
	}
	return nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks and removes the lock file. Calling it more than once is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	var errs []error
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		errs = append(errs, fmt.Errorf("unlock: %w", err))
	}
	if err := l.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close: %w", err))
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("remove: %w", err))
	}
	l.file = nil
	slog.Info("Released state directory lock", "lock_path", l.path)
	return errors.Join(errs...)
}

// LockError reports a lock held by someone else.
type LockError struct {
	LockPath string
	Holder   Holder
	Cause    error
}

func (e *LockError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "another BuddyBot instance is using this state directory (lock file %s)", e.LockPath)
	switch {
	case e.Holder.PID == 0:
		b.WriteString("; holder unknown")
	case e.Holder.Running:
		fmt.Fprintf(&b, "; held by PID %d", e.Holder.PID)
	default:
		fmt.Fprintf(&b, "; recorded PID %d is not running, remove %s if no other instance is active", e.Holder.PID, e.LockPath)
	}
	return b.String()
}

func (e *LockError) Is(target error) bool {
	return target == ErrLocked
}

func (e *LockError) Unwrap() error {
	return e.Cause
}

// ReadHolder parses the process details written into a lock file.
func ReadHolder(lockPath string) (Holder, error) {
	f, err := os.Open(lockPath)
	if err != nil {
		return Holder{}, err
	}
	defer f.Close()

	var h Holder
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			if pid, err := strconv.Atoi(value); err == nil {
				h.PID = pid
			}
		case "started":
			if t, err := time.Parse(time.RFC3339, value); err == nil {
				h.StartedAt = t
			}
		}
	}
	if h.PID > 0 {
		h.Running = isProcessRunning(h.PID)
	}
	return h, scanner.Err()
}

// isProcessRunning probes pid with signal 0.
func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
