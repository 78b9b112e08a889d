// Package invoke runs external helper programs for maintd. Children are
// started from the event loop, waited for in the background and their
// completions are delivered back on the loop, one at a time.
package invoke

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/conn-castle/maintd/internal/messages"
)

// DefaultShell runs command lines handed to System.
const DefaultShell = "/bin/sh"

// ErrInvocationPending is the panic value when an invocation is issued while another is in flight.
var ErrInvocationPending = errors.New(messages.InvokePending)

// Result is the completion of one invocation.
type Result struct {
	// Output is the child's standard output, verbatim. Empty when not captured.
	Output string
	// ExitCode is the child's exit status, or -1 when it never ran.
	ExitCode int
	// Err is set when the child could not be started or waited for.
	Err error
}

// Success reports whether the child ran and exited with status 0.
func (r Result) Success() bool {
	return r.Err == nil && r.ExitCode == 0
}

// Trimmed returns Output without surrounding whitespace.
func (r Result) Trimmed() string {
	return strings.TrimSpace(r.Output)
}

// Observer is notified of every completion. kind is "system" or "execve".
type Observer func(kind string, r Result)

// Option configures an Invoker.
type Option func(*Invoker)

// WithLogger sets the logger used for invocation diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(i *Invoker) {
		if log != nil {
			i.log = log
		}
	}
}

// WithObserver registers fn to be called on the loop for every completion.
func WithObserver(fn Observer) Option {
	return func(i *Invoker) {
		i.observe = fn
	}
}

// Invoker starts at most one child at a time.
type Invoker struct {
	loop    *Loop
	sys     System
	shell   string
	log     *zap.Logger
	observe Observer
	pending bool
}

// New returns an invoker posting completions to loop. An empty shell selects DefaultShell.
func New(loop *Loop, sys System, shell string, opts ...Option) *Invoker {
	if sys == nil {
		sys = RealSystem{}
	}
	if shell == "" {
		shell = DefaultShell
	}
	i := &Invoker{loop: loop, sys: sys, shell: shell, log: zap.NewNop()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Pending reports whether an invocation is in flight.
func (i *Invoker) Pending() bool {
	return i.pending
}

// System runs cmdline through the shell and calls done on the loop after the child exited.
// Standard output is collected when capture is set and discarded otherwise; stderr is muted.
func (i *Invoker) System(cmdline string, capture bool, done func(Result)) {
	i.log.Debug("running command", zap.String("cmdline", cmdline))
	i.start("system", Spec{Path: i.shell, Args: []string{i.shell, "-c", cmdline}}, capture, done)
}

// Execve runs path with the explicit argv and calls done on the loop after the child exited.
// A nil env inherits the process environment.
func (i *Invoker) Execve(path string, argv []string, env []string, capture bool, done func(Result)) {
	i.log.Debug("running program", zap.String("path", path))
	i.start("execve", Spec{Path: path, Args: argv, Env: env}, capture, done)
}

func (i *Invoker) start(kind string, spec Spec, capture bool, done func(Result)) {
	if i.pending {
		panic(ErrInvocationPending)
	}
	i.pending = true
	var out *bytes.Buffer
	if capture {
		out = &bytes.Buffer{}
		spec.Stdout = out
	}
	i.loop.hold()
	proc, err := i.sys.Start(spec)
	if err != nil {
		result := Result{ExitCode: -1, Err: fmt.Errorf(messages.InvokeStartFmt, spec.Path, err)}
		i.loop.postAndRelease(func() { i.complete(kind, result, done) })
		return
	}
	go func() {
		code, waitErr := proc.Wait()
		result := Result{ExitCode: code}
		if waitErr != nil {
			result.Err = fmt.Errorf(messages.InvokeWaitFmt, spec.Path, waitErr)
		}
		if out != nil {
			result.Output = out.String()
		}
		i.loop.postAndRelease(func() { i.complete(kind, result, done) })
	}()
}

// complete releases the pending slot before done runs so done may invoke again.
func (i *Invoker) complete(kind string, result Result, done func(Result)) {
	i.pending = false
	if result.Err != nil {
		i.log.Warn("invocation failed", zap.String("kind", kind), zap.Error(result.Err))
	} else {
		i.log.Debug("invocation finished", zap.String("kind", kind), zap.Int("exit_code", result.ExitCode))
	}
	if i.observe != nil {
		i.observe(kind, result)
	}
	if done != nil {
		done(result)
	}
}

// Spawn starts cmdline detached from maintd and returns without waiting.
func (i *Invoker) Spawn(cmdline string) error {
	i.log.Debug("spawning detached command", zap.String("cmdline", cmdline))
	if err := i.sys.StartDetached(Spec{Path: i.shell, Args: []string{i.shell, "-c", cmdline}}); err != nil {
		return fmt.Errorf(messages.InvokeStartFmt, i.shell, err)
	}
	return nil
}

// Replace replaces the process image with path. Descriptors above stderr are not inherited.
// A nil env inherits the process environment. It returns only on failure.
func (i *Invoker) Replace(path string, argv []string, env []string) error {
	if env == nil {
		env = i.sys.Environ()
	}
	i.log.Debug("replacing process image", zap.String("path", path))
	if err := i.sys.Exec(path, argv, env); err != nil {
		return fmt.Errorf(messages.InvokeExecFmt, path, err)
	}
	return nil
}

