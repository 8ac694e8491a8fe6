package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	lockFileName   = "db.lock"
	defaultTimeout = 500 * time.Millisecond
)

// writeLocker serializes writers across processes with an OS-level file
// lock. The kernel drops the lock when the holder exits, so a crashed
// register process never wedges the database.
type writeLocker struct {
	path string
	file *os.File
}

func newWriteLocker(baseDir string) *writeLocker {
	return &writeLocker{path: filepath.Join(baseDir, dataDirName, lockFileName)}
}

// acquire takes the exclusive lock, polling with a growing delay until the
// timeout. A timeout error names the current holder.
func (l *writeLocker) acquire(timeout time.Duration) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for delay := 5 * time.Millisecond; ; {
		if err := tryLock(f); err == nil {
			l.file = f
			l.stampOwner()
			return nil
		}
		if time.Now().After(deadline) {
			holder := l.describeOwner()
			f.Close()
			return fmt.Errorf("database is write-locked by %s (waited %v)", holder, timeout)
		}
		time.Sleep(delay)
		if delay < 50*time.Millisecond {
			delay *= 2
		}
	}
}

// release clears the owner stamp and drops the lock.
func (l *writeLocker) release() error {
	if l.file == nil {
		return nil
	}
	l.file.Truncate(0)
	unlock(l.file)
	err := l.file.Close()
	l.file = nil
	return err
}

// stampOwner records pid and acquisition time in the lock file so a
// timeout on the other side can point at this process.
func (l *writeLocker) stampOwner() {
	l.file.Truncate(0)
	l.file.Seek(0, 0)
	fmt.Fprintf(l.file, "pid=%d acquired=%s\n", os.Getpid(), time.Now().Format(time.RFC3339))
	l.file.Sync()
}

// describeOwner reads the stamp left by the current holder, flagging
// stamps whose process no longer exists.
func (l *writeLocker) describeOwner() string {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return "unknown process"
	}

	var pid int
	var acquired string
	for _, field := range strings.Fields(strings.TrimSpace(string(data))) {
		if v, ok := strings.CutPrefix(field, "pid="); ok {
			pid, _ = strconv.Atoi(v)
		}
		if v, ok := strings.CutPrefix(field, "acquired="); ok {
			acquired = v
		}
	}
	if pid == 0 {
		return "unknown process"
	}

	desc := fmt.Sprintf("pid %d since %s", pid, acquired)
	if !processAlive(pid) {
		desc += " (process gone, stale lock file)"
	}
	return desc
}

// tryLock, unlock, and processAlive are per-platform: flock on unix,
// LockFileEx on windows.
