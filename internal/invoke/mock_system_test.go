package invoke

import (
	"errors"
	"fmt"
)

// errNotMocked is returned when a testSystem method is called without a mock function set.
var errNotMocked = errors.New("testSystem: method not mocked")

// testSystem provides a mock System for unit tests.
//
// Fallback behavior:
//   - StartDetached, Exec: return errNotMocked (fail-fast). Tests must never
//     leave detached children behind or replace the test binary.
//   - Start, Environ: fall back to RealSystem so tests can run real shell stubs.
type testSystem struct {
	RealSystem

	StartFunc         func(spec Spec) (Process, error)
	StartDetachedFunc func(spec Spec) error
	ExecFunc          func(path string, args []string, env []string) error
	EnvironFunc       func() []string
}

func (s *testSystem) Start(spec Spec) (Process, error) {
	if s.StartFunc != nil {
		return s.StartFunc(spec)
	}
	return s.RealSystem.Start(spec)
}

func (s *testSystem) StartDetached(spec Spec) error {
	if s.StartDetachedFunc != nil {
		return s.StartDetachedFunc(spec)
	}
	return fmt.Errorf("%w: StartDetached", errNotMocked)
}

func (s *testSystem) Exec(path string, args []string, env []string) error {
	if s.ExecFunc != nil {
		return s.ExecFunc(path, args, env)
	}
	return fmt.Errorf("%w: Exec", errNotMocked)
}

func (s *testSystem) Environ() []string {
	if s.EnvironFunc != nil {
		return s.EnvironFunc()
	}
	return s.RealSystem.Environ()
}
