// Package maint decodes one administrative JSON request, routes it to its command
// handler and makes sure exactly one answer comes out of it.
//
// Handlers run on the event loop. A handler either answers immediately, issues one
// invocation whose continuation answers later, or asks for the process image to be
// replaced.
package maint

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/conn-castle/maintd/internal/defs"
	"github.com/conn-castle/maintd/internal/flash"
	"github.com/conn-castle/maintd/internal/invoke"
	"github.com/conn-castle/maintd/internal/messages"
)

// Invoker runs helper programs. *invoke.Invoker implements it.
type Invoker interface {
	System(cmdline string, capture bool, done func(invoke.Result))
	Execve(path string, argv []string, env []string, capture bool, done func(invoke.Result))
	Spawn(cmdline string) error
	Replace(path string, argv []string, env []string) error
	Pending() bool
}

// Answerer emits the single answer. *answer.Channel implements it.
type Answerer interface {
	Succeed(payload any) error
	Fail(err error) error
	Finish(code int) error
	WriteRaw(text string) error
}

// Tools holds the command lines of the helpers the handlers run.
type Tools struct {
	Restart       string
	Poweroff      string
	IPConf        string
	IPConfCommit  bool
	WifiConf      string
	UCI           string
	Password      string
	ConfigBackup  string
	ConfigRestore string
	FactoryReset  string
}

// Outcome values passed to an Observer.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeReplaced = "replaced"
	OutcomeFinished = "finished"
)

// Observer is told how every command ended.
type Observer func(cmd string, outcome string)

// Options configures a Dispatcher.
type Options struct {
	Tools Tools
	// Shell runs the replacement images of backup and restore.
	Shell        string
	TmpDir       string
	PasswordFile string
	Now          func() time.Time
	// Uptime returns the system uptime; a failure reports -1.
	Uptime   func() (time.Duration, error)
	Observer Observer
	Logger   *zap.Logger
}

type handlerFunc func(d *Dispatcher, req *request) (Reply, error)

var handlers = map[string]handlerFunc{
	"restart":            (*Dispatcher).restart,
	"poweroff":           (*Dispatcher).poweroff,
	"configbackup":       (*Dispatcher).configBackup,
	"configrestoreprep":  (*Dispatcher).configRestorePrep,
	"configrestoreapply": (*Dispatcher).configRestoreApply,
	"tzconfig":           (*Dispatcher).tzConfig,
	"wificonfig":         (*Dispatcher).wifiConfig,
	"ipconfig":           (*Dispatcher).ipConfig,
	"setpassword":        (*Dispatcher).setPassword,
	"factoryreset":       (*Dispatcher).factoryReset,
	"devinfo":            (*Dispatcher).devInfo,
	"userlevel":          (*Dispatcher).userLevel,
	"property":           (*Dispatcher).property,
	"alert":              (*Dispatcher).alert,
}

// Commands returns the names of all supported commands in sorted order.
func Commands() []string {
	return slices.Sorted(maps.Keys(handlers))
}

// Dispatcher handles one request against the resolved definitions.
type Dispatcher struct {
	store *defs.Store
	inv   Invoker
	ans   Answerer
	flash *flash.Store
	opts  Options
	log   *zap.Logger
}

// New returns a dispatcher. store must already be resolved.
func New(store *defs.Store, inv Invoker, ans Answerer, fs *flash.Store, opts Options) *Dispatcher {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Shell == "" {
		opts.Shell = invoke.DefaultShell
	}
	if opts.TmpDir == "" {
		opts.TmpDir = "/tmp/"
	}
	if opts.Uptime == nil {
		opts.Uptime = procUptime
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{store: store, inv: inv, ans: ans, flash: fs, opts: opts, log: log}
}

// request is a decoded envelope. Params come from data, or from uri_params when
// data is absent.
type request struct {
	cmd      string
	method   string
	uri      string
	envelope Params
	params   Params
}

func decodeRequest(text string) (*request, error) {
	var top any
	if err := json.Unmarshal([]byte(text), &top); err != nil {
		return nil, wrapError(KindMalformed, messages.MaintCannotDecode, err)
	}
	obj, ok := top.(map[string]any)
	if !ok {
		return nil, newError(KindMalformed, messages.MaintMissingCmd)
	}
	var envelope Params
	if err := json.Unmarshal([]byte(text), &envelope); err != nil {
		return nil, wrapError(KindMalformed, messages.MaintCannotDecode, err)
	}
	req := &request{envelope: envelope}
	req.method, _ = obj["method"].(string)
	req.uri, _ = obj["uri"].(string)
	params, ok := envelope.Object("data")
	if !ok {
		params, ok = envelope.Object("uri_params")
	}
	if !ok {
		return nil, newError(KindMalformed, messages.MaintMissingCmd)
	}
	req.params = params
	var cmd string
	if raw, ok := params["cmd"]; !ok || json.Unmarshal(raw, &cmd) != nil || cmd == "" {
		return nil, newError(KindMalformed, messages.MaintMissingCmd)
	}
	req.cmd = cmd
	return req, nil
}

// Handle processes one request. The answer is emitted before Handle returns or
// by the continuation of the invocation the handler issued.
func (d *Dispatcher) Handle(text string) {
	req, err := decodeRequest(text)
	if err != nil {
		d.log.Info("rejected request", zap.Error(err))
		d.respond("", nil, err)
		return
	}
	d.log.Info("handling command", zap.String("cmd", req.cmd), zap.String("method", req.method), zap.String("uri", req.uri))
	handler, ok := handlers[req.cmd]
	if !ok {
		d.respond(req.cmd, nil, newError(KindUnknown, messages.MaintUnknownCmd))
		return
	}
	reply, err := handler(d, req)
	d.finish(req.cmd, reply, err)
}

func (d *Dispatcher) finish(cmd string, reply Reply, err error) {
	if err != nil {
		if d.inv.Pending() {
			panic(ErrContractViolation)
		}
		d.respond(cmd, nil, err)
		return
	}
	switch reply.kind {
	case replyImmediate:
		if d.inv.Pending() {
			panic(ErrContractViolation)
		}
		d.respond(cmd, reply.payload, nil)
	case replyDeferred:
		if !d.inv.Pending() {
			panic(ErrContractViolation)
		}
	case replyReplace:
		if d.inv.Pending() {
			panic(ErrContractViolation)
		}
		d.replace(cmd, reply.exec)
	}
}

func (d *Dispatcher) replace(cmd string, action ExecAction) {
	if action.Preamble != "" {
		if err := d.ans.WriteRaw(action.Preamble); err != nil {
			d.log.Warn("writing preamble failed", zap.String("cmd", cmd), zap.Error(err))
		}
	}
	d.observe(cmd, OutcomeReplaced)
	err := d.inv.Replace(action.Path, action.Argv, action.Env)
	if err == nil {
		return
	}
	d.log.Error("process image replacement failed", zap.String("cmd", cmd), zap.Error(err))
	message := action.FailMessage
	if message == "" {
		message = err.Error()
	}
	d.respond(cmd, nil, wrapError(KindSpawn, message, err))
}

// respond emits the answer for cmd.
func (d *Dispatcher) respond(cmd string, payload any, err error) {
	var emitErr error
	if err != nil {
		d.log.Info("command failed", zap.String("cmd", cmd), zap.String("kind", string(KindOf(err))), zap.Error(err))
		d.observe(cmd, OutcomeError)
		emitErr = d.ans.Fail(err)
	} else {
		d.observe(cmd, OutcomeSuccess)
		emitErr = d.ans.Succeed(payload)
	}
	if emitErr != nil {
		d.log.Error("answer not delivered", zap.String("cmd", cmd), zap.Error(emitErr))
	}
}

func (d *Dispatcher) observe(cmd string, outcome string) {
	if d.opts.Observer == nil {
		return
	}
	d.opts.Observer(commandLabel(cmd), outcome)
}

// commandLabel bounds the observed command names to the supported ones.
func commandLabel(cmd string) string {
	if cmd == "" {
		return "none"
	}
	if _, ok := handlers[cmd]; !ok {
		return "unknown"
	}
	return cmd
}

// continueWith returns a completion that answers for cmd with whatever answerFn derives
// from the helper's result.
func (d *Dispatcher) continueWith(cmd string, answerFn func(invoke.Result) (any, error)) func(invoke.Result) {
	return func(r invoke.Result) {
		payload, err := answerFn(r)
		d.respond(cmd, payload, err)
	}
}

// answerNull is the continuation of setters: null when the helper succeeded.
func answerNull(r invoke.Result) (any, error) {
	if err := resultError(r); err != nil {
		return nil, err
	}
	return nil, nil
}

func (d *Dispatcher) shellAction(cmdline string, failMessage string) ExecAction {
	return ExecAction{
		Path:        d.opts.Shell,
		Argv:        []string{"sh", "-c", cmdline},
		FailMessage: failMessage,
	}
}

func invalid(format string, args ...any) error {
	if len(args) == 0 {
		return newError(KindInvalid, format)
	}
	return newError(KindInvalid, fmt.Sprintf(format, args...))
}
