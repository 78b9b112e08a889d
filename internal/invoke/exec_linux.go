package invoke

import (
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

var closeRange = unix.CloseRange

// execReplace marks every descriptor above stderr close-on-exec and replaces the process image.
func execReplace(path string, args []string, env []string) error {
	markCloseOnExec()
	return unix.Exec(path, args, env)
}

// markCloseOnExec keeps only stdin, stdout and stderr across exec.
func markCloseOnExec() {
	if err := closeRange(3, ^uint(0), unix.CLOSE_RANGE_CLOEXEC); err == nil {
		return
	}
	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		return
	}
	for _, entry := range entries {
		fd, err := strconv.Atoi(entry.Name())
		if err != nil || fd <= 2 {
			continue
		}
		unix.CloseOnExec(fd)
	}
}
