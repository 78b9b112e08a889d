package invoke

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"syscall"
)

// Spec describes one child process.
type Spec struct {
	Path string
	// Args holds the full argv including argv[0].
	Args []string
	// Env replaces the environment when non-nil.
	Env []string
	// Stdout receives the child's standard output; nil discards it.
	Stdout io.Writer
}

// Process is a started child.
type Process interface {
	// Wait blocks until the child exits and returns its exit code.
	Wait() (int, error)
}

// System abstracts the OS operations the invoker needs.
type System interface {
	Start(spec Spec) (Process, error)
	StartDetached(spec Spec) error
	Exec(path string, args []string, env []string) error
	Environ() []string
}

// RealSystem implements System with os/exec and execve.
type RealSystem struct{}

// Start starts spec with stdin and stderr connected to the null device.
func (RealSystem) Start(spec Spec) (Process, error) {
	cmd := command(spec)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmdProcess{cmd: cmd}, nil
}

// StartDetached starts spec in its own session and does not wait for it.
func (RealSystem) StartDetached(spec Spec) error {
	cmd := command(spec)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

// Exec replaces the current process image. It returns only on failure.
func (RealSystem) Exec(path string, args []string, env []string) error {
	return execReplace(path, args, env)
}

// Environ returns a copy of the process environment.
func (RealSystem) Environ() []string {
	return os.Environ()
}

func command(spec Spec) *exec.Cmd {
	cmd := exec.Command(spec.Path)
	if len(spec.Args) > 0 {
		cmd.Args = spec.Args
	}
	cmd.Env = spec.Env
	cmd.Stdout = spec.Stdout
	return cmd
}

type cmdProcess struct {
	cmd *exec.Cmd
}

// Wait maps a non-zero exit into its code; a child killed by a signal reports 1.
func (p cmdProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code <= 0 {
			code = 1
		}
		return code, nil
	}
	return 1, err
}
