package maint

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conn-castle/maintd/internal/invoke"
)

func TestHandleRejectsMalformedRequests(t *testing.T) {
	tests := []struct {
		name    string
		request string
		message string
	}{
		{name: "not json", request: `{"data":`, message: "Cannot decode JSON"},
		{name: "no params", request: `{"method":"GET","uri":"x"}`, message: "Missing 'cmd'"},
		{name: "no cmd", request: `{"data":{"level":1}}`, message: "Missing 'cmd'"},
		{name: "cmd not a string", request: `{"data":{"cmd":3}}`, message: "Missing 'cmd'"},
		{name: "array", request: `[1,2]`, message: "Missing 'cmd'"},
		{name: "unknown cmd", request: `{"uri_params":{"cmd":"selfdestruct"}}`, message: "Unknown 'cmd'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.d.Handle(tt.request)

			e := f.errorAnswer(t)
			assert.Equal(t, 1, e.Code)
			assert.Equal(t, tt.message, e.Message)
			assert.Empty(t, f.inv.calls)
			assert.Empty(t, f.inv.spawned)
			assert.Equal(t, []int{0}, f.term.codes)
		})
	}
}

func TestDataTakesPrecedenceOverURIParams(t *testing.T) {
	f := newFixture(t)
	f.store.Set("STATUS_USER_LEVEL", "2")
	f.d.Handle(`{"method":"POST","uri_params":{"cmd":"selfdestruct"},"data":{"cmd":"userlevel"}}`)
	assert.JSONEq(t, `"2"`, string(f.result(t)))
}

func TestURIParamsUsedWithoutData(t *testing.T) {
	f := newFixture(t)
	f.d.Handle(`{"method":"GET","uri_params":{"cmd":"userlevel"}}`)
	assert.JSONEq(t, `"0"`, string(f.result(t)))
	assert.Equal(t, []string{"userlevel:success"}, f.outcomes)
}

func TestRestartSpawnsDetachedAndAnswersNull(t *testing.T) {
	f := newFixture(t)
	f.d.Handle(post(t, map[string]any{"cmd": "restart"}))

	assert.Equal(t, []string{"sv stop p44mbrd vdcd mg44; sync; reboot"}, f.inv.spawned)
	assert.Equal(t, "{\"result\":null}\n", f.out.String())
}

func TestPoweroffSpawnFailureAnswersError(t *testing.T) {
	f := newFixture(t)
	f.inv.SpawnFunc = func(string) error { return errors.New("fork: resource temporarily unavailable") }
	f.d.Handle(post(t, map[string]any{"cmd": "poweroff"}))

	assert.Equal(t, []string{"sv stop p44mbrd vdcd mg44; sync; poweroff"}, f.inv.spawned)
	assert.Contains(t, f.errorAnswer(t).Message, "resource temporarily unavailable")
}

func TestFactoryResetFinishesWithScriptStatus(t *testing.T) {
	f := newFixture(t)
	f.d.Handle(post(t, map[string]any{"cmd": "factoryreset", "mode": 2}))

	assert.Equal(t, "p44factoryreset 2", f.inv.last(t).cmdline)
	assert.Empty(t, f.term.codes)

	f.inv.complete(t, invoke.Result{ExitCode: 3})
	assert.Empty(t, f.out.String())
	assert.Equal(t, []int{3}, f.term.codes)
}

func TestFactoryResetSpawnFailureExitsWithFailure(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.d.FactoryReset(1))
	f.inv.complete(t, invoke.Result{ExitCode: -1, Err: errors.New("no such file")})
	assert.Equal(t, []int{1}, f.term.codes)
}

func TestFactoryResetRejectsMode(t *testing.T) {
	for _, mode := range []any{0, 4, "x", nil} {
		f := newFixture(t)
		f.d.Handle(post(t, map[string]any{"cmd": "factoryreset", "mode": mode}))
		assert.Equal(t, "Invalid or missing 'mode'", f.errorAnswer(t).Message)
		assert.Empty(t, f.inv.calls)
	}
	f := newFixture(t)
	assert.Error(t, f.d.FactoryReset(7))
}

func TestSetPasswordRunsTool(t *testing.T) {
	f := newFixture(t)
	f.store.Set("PRODUCT_MODEL", "P44-DSB-E2")
	f.d.Handle(post(t, map[string]any{"cmd": "setpassword", "password": "s3cret"}))

	call := f.inv.last(t)
	assert.Equal(t, "execve", call.kind)
	assert.Equal(t, "/usr/bin/mg44", call.path)
	assert.Equal(t, []string{"mg44", "-A", "/flash/webui_authfile", "P44-DSB-E2", "vdcadmin", "s3cret"}, call.argv)
	assert.True(t, call.capture)

	f.inv.complete(t, invoke.Result{ExitCode: 0})
	assert.Equal(t, "{\"result\":null}\n", f.out.String())
}

func TestSetPasswordUserOverrides(t *testing.T) {
	f := newFixture(t)
	f.store.Set("PRODUCT_WEBADMIN_USER", "admin")
	f.d.Handle(post(t, map[string]any{"cmd": "setpassword", "password": "pw"}))
	assert.Equal(t, "admin", f.inv.last(t).argv[4])

	f = newFixture(t)
	f.store.Set("PRODUCT_WEBADMIN_USER", "admin")
	f.d.Handle(post(t, map[string]any{"cmd": "setpassword", "password": "pw", "username": "bob"}))
	assert.Equal(t, "bob", f.inv.last(t).argv[4])
}

func TestSetPasswordFailures(t *testing.T) {
	f := newFixture(t)
	f.d.Handle(post(t, map[string]any{"cmd": "setpassword"}))
	assert.Equal(t, "missing password", f.errorAnswer(t).Message)
	assert.Empty(t, f.inv.calls)

	f = newFixture(t)
	f.d.Handle(post(t, map[string]any{"cmd": "setpassword", "password": "pw"}))
	f.inv.complete(t, invoke.Result{ExitCode: 2, Output: "cannot write auth file\n"})
	assert.Equal(t, "cannot write auth file", f.errorAnswer(t).Message)
}

func TestContractViolationPanics(t *testing.T) {
	f := newFixture(t)
	assert.PanicsWithValue(t, ErrContractViolation, func() {
		f.d.finish("devinfo", Deferred(), nil)
	})

	f.inv.System("true", false, func(invoke.Result) {})
	assert.PanicsWithValue(t, ErrContractViolation, func() {
		f.d.finish("devinfo", Immediate(nil), nil)
	})
	assert.PanicsWithValue(t, ErrContractViolation, func() {
		f.d.finish("devinfo", Reply{}, errors.New("boom"))
	})
}

func TestSecondAnswerIsSuppressed(t *testing.T) {
	f := newFixture(t)
	f.d.Handle(post(t, map[string]any{"cmd": "restart"}))
	f.d.respond("restart", "late", nil)
	assert.Equal(t, "{\"result\":null}\n", f.out.String())
	assert.Equal(t, []int{0}, f.term.codes)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindInvalid, KindOf(invalid("x")))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, 415, (&Error{Code: CodeInvalidIP}).AnswerCode())
	assert.Equal(t, 1, (&Error{}).AnswerCode())
}

func TestCommandsListsEveryHandlerSorted(t *testing.T) {
	assert.Equal(t, []string{
		"alert", "configbackup", "configrestoreapply", "configrestoreprep", "devinfo",
		"factoryreset", "ipconfig", "poweroff", "property", "restart",
		"setpassword", "tzconfig", "userlevel", "wificonfig",
	}, Commands())
}

func TestObservedCommandLabels(t *testing.T) {
	tests := []struct {
		name    string
		request string
		outcome string
	}{
		{name: "unsupported cmd", request: `{"data":{"cmd":"selfdestruct-4711"}}`, outcome: "unknown:error"},
		{name: "missing cmd", request: `{"data":{}}`, outcome: "none:error"},
		{name: "supported cmd", request: `{"data":{"cmd":"userlevel"}}`, outcome: "userlevel:success"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.d.Handle(tt.request)
			assert.Equal(t, []string{tt.outcome}, f.outcomes)
		})
	}
}
