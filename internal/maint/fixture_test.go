package maint

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/conn-castle/maintd/internal/answer"
	"github.com/conn-castle/maintd/internal/defs"
	"github.com/conn-castle/maintd/internal/flash"
	"github.com/conn-castle/maintd/internal/invoke"
)

var errNotMocked = errors.New("not mocked")

type invocation struct {
	kind    string
	cmdline string
	path    string
	argv    []string
	capture bool
}

// fakeInvoker records invocations and completes them when the test says so.
type fakeInvoker struct {
	calls    []invocation
	done     func(invoke.Result)
	spawned  []string
	replaced []invocation

	SpawnFunc   func(cmdline string) error
	ReplaceFunc func(path string, argv []string, env []string) error
}

func (f *fakeInvoker) System(cmdline string, capture bool, done func(invoke.Result)) {
	f.start(invocation{kind: "system", cmdline: cmdline, capture: capture}, done)
}

func (f *fakeInvoker) Execve(path string, argv []string, _ []string, capture bool, done func(invoke.Result)) {
	f.start(invocation{kind: "execve", path: path, argv: argv, capture: capture}, done)
}

func (f *fakeInvoker) start(call invocation, done func(invoke.Result)) {
	if f.done != nil {
		panic(invoke.ErrInvocationPending)
	}
	f.calls = append(f.calls, call)
	f.done = done
}

func (f *fakeInvoker) Spawn(cmdline string) error {
	f.spawned = append(f.spawned, cmdline)
	if f.SpawnFunc != nil {
		return f.SpawnFunc(cmdline)
	}
	return nil
}

func (f *fakeInvoker) Replace(path string, argv []string, env []string) error {
	f.replaced = append(f.replaced, invocation{kind: "replace", path: path, argv: argv})
	if f.ReplaceFunc != nil {
		return f.ReplaceFunc(path, argv, env)
	}
	return errNotMocked
}

func (f *fakeInvoker) Pending() bool {
	return f.done != nil
}

// complete finishes the pending invocation the way the loop would.
func (f *fakeInvoker) complete(t *testing.T, r invoke.Result) {
	t.Helper()
	require.NotNil(t, f.done, "no invocation pending")
	done := f.done
	f.done = nil
	done(r)
}

func (f *fakeInvoker) last(t *testing.T) invocation {
	t.Helper()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

type recordingTerminator struct {
	codes []int
}

func (r *recordingTerminator) Terminate(code int) {
	r.codes = append(r.codes, code)
}

type fixture struct {
	d        *Dispatcher
	inv      *fakeInvoker
	out      *bytes.Buffer
	term     *recordingTerminator
	store    *defs.Store
	flashDir string
	outcomes []string
}

var fixedNow = time.Date(2024, 3, 5, 14, 7, 0, 0, time.UTC)

func testTools() Tools {
	return Tools{
		Restart:       "sv stop p44mbrd vdcd mg44; sync; reboot",
		Poweroff:      "sv stop p44mbrd vdcd mg44; sync; poweroff",
		IPConf:        "p44ipconf",
		IPConfCommit:  true,
		WifiConf:      "p44wificonf",
		UCI:           "uci",
		Password:      "/usr/bin/mg44 -A",
		ConfigBackup:  "p44configbackup",
		ConfigRestore: "p44configrestore",
		FactoryReset:  "p44factoryreset",
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		inv:      &fakeInvoker{},
		out:      &bytes.Buffer{},
		term:     &recordingTerminator{},
		store:    defs.New(),
		flashDir: t.TempDir(),
	}
	ch := answer.NewChannel(f.out, f.term)
	f.d = New(f.store, f.inv, ch, flash.New(f.flashDir), Options{
		Tools:        testTools(),
		Shell:        "/bin/sh",
		TmpDir:       "/tmp",
		PasswordFile: "/flash/webui_authfile",
		Now:          func() time.Time { return fixedNow },
		Uptime:       func() (time.Duration, error) { return 352800 * time.Second, nil },
		Observer:     func(cmd string, outcome string) { f.outcomes = append(f.outcomes, cmd+":"+outcome) },
		Logger:       zaptest.NewLogger(t),
	})
	return f
}

// post builds a POST envelope around params.
func post(t *testing.T, params map[string]any) string {
	t.Helper()
	data, err := json.Marshal(map[string]any{"method": "POST", "uri": "maint", "data": params})
	require.NoError(t, err)
	return string(data)
}

// answerOf decodes the single answer line written so far.
func (f *fixture) answerOf(t *testing.T) map[string]json.RawMessage {
	t.Helper()
	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(f.out.Bytes(), &decoded), "answer: %q", f.out.String())
	return decoded
}

func (f *fixture) result(t *testing.T) json.RawMessage {
	t.Helper()
	decoded := f.answerOf(t)
	raw, ok := decoded["result"]
	require.True(t, ok, "expected a result answer, got %s", f.out.String())
	return raw
}

func (f *fixture) errorAnswer(t *testing.T) answer.Error {
	t.Helper()
	decoded := f.answerOf(t)
	raw, ok := decoded["error"]
	require.True(t, ok, "expected an error answer, got %s", f.out.String())
	var e answer.Error
	require.NoError(t, json.Unmarshal(raw, &e))
	return e
}
