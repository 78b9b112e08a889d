package flash

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/conn-castle/maintd/internal/messages"
)

// scope names one independently locked group of flash files. Readers of a
// scope share its lock; a writer holds it alone.
type scope string

const (
	scopeProperties scope = "properties"
	scopeAlerts     scope = "alerts"
	scopeUserLevel  scope = "userlevel"
)

// lockPath is the lock file for sc in the flash directory dir.
func (sc scope) lockPath(dir string) string {
	return filepath.Join(dir, ".lock-"+string(sc))
}

var (
	flockFn   = unix.Flock
	lockSleep = time.Sleep
	lockNow   = time.Now

	lockWaitTimeout = 10 * time.Second
	lockPollEvery   = 50 * time.Millisecond
)

type scopeLock struct {
	file *os.File
}

// lockScope takes the lock of sc in dir. mode is unix.LOCK_SH or unix.LOCK_EX.
func lockScope(dir string, sc scope, mode int) (*scopeLock, error) {
	path := sc.lockPath(dir)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf(messages.FlashOpenLockFmt, path, err)
	}
	if err := waitLock(int(file.Fd()), mode); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf(messages.FlashLockFmt, path, err)
	}
	return &scopeLock{file: file}, nil
}

func (l *scopeLock) unlock() error {
	err := flockFn(int(l.file.Fd()), unix.LOCK_UN)
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// waitLock polls a non-blocking flock until it is granted or lockWaitTimeout passes.
func waitLock(fd, mode int) error {
	deadline := lockNow().Add(lockWaitTimeout)
	for {
		err := flockFn(fd, mode|unix.LOCK_NB)
		if err == nil {
			return nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) {
			return err
		}
		if !lockNow().Before(deadline) {
			return fmt.Errorf(messages.FlashLockTimeoutFmt, lockWaitTimeout)
		}
		lockSleep(lockPollEvery)
	}
}
