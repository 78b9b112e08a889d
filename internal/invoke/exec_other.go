//go:build !linux

package invoke

import "syscall"

// execReplace replaces the current process with the target binary.
// Go opens its own descriptors close-on-exec, so only inherited ones survive.
func execReplace(path string, args []string, env []string) error {
	return syscall.Exec(path, args, env)
}
