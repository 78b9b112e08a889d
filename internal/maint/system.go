package maint

import (
	"path/filepath"
	"strconv"

	"github.com/google/shlex"
	"go.uber.org/zap"

	"github.com/conn-castle/maintd/internal/defs"
	"github.com/conn-castle/maintd/internal/invoke"
	"github.com/conn-castle/maintd/internal/messages"
)

// DefaultWebAdminUser owns the web UI password unless PRODUCT_WEBADMIN_USER says otherwise.
const DefaultWebAdminUser = "vdcadmin"

func (d *Dispatcher) restart(*request) (Reply, error) {
	return d.shutdown(d.opts.Tools.Restart)
}

func (d *Dispatcher) poweroff(*request) (Reply, error) {
	return d.shutdown(d.opts.Tools.Poweroff)
}

// shutdown starts cmdline detached so the answer goes out before services stop.
func (d *Dispatcher) shutdown(cmdline string) (Reply, error) {
	if err := d.inv.Spawn(cmdline); err != nil {
		return Reply{}, wrapError(KindSpawn, err.Error(), err)
	}
	return Immediate(nil), nil
}

func (d *Dispatcher) factoryReset(req *request) (Reply, error) {
	mode, ok := req.params.Int("mode")
	if !ok || !ValidFactoryResetMode(mode) {
		return Reply{}, invalid(messages.MaintFactoryResetMode)
	}
	d.runFactoryReset(mode)
	return Deferred(), nil
}

// ValidFactoryResetMode reports whether mode selects a factory reset depth.
func ValidFactoryResetMode(mode int) bool {
	return mode >= 1 && mode <= 3
}

// FactoryReset runs the factory reset script outside of a JSON request. The run
// ends without an answer once the script exited, with the script's exit status.
func (d *Dispatcher) FactoryReset(mode int) error {
	if !ValidFactoryResetMode(mode) {
		return invalid(messages.MaintFactoryResetMode)
	}
	d.runFactoryReset(mode)
	return nil
}

func (d *Dispatcher) runFactoryReset(mode int) {
	cmdline := d.opts.Tools.FactoryReset + " " + strconv.Itoa(mode)
	d.log.Warn("running factory reset", zap.Int("mode", mode))
	d.inv.System(cmdline, true, func(r invoke.Result) {
		code := r.ExitCode
		if r.Err != nil || code < 0 {
			code = 1
		}
		d.log.Info("factory reset script finished", zap.Int("exit_code", code))
		d.observe("factoryreset", OutcomeFinished)
		if err := d.ans.Finish(code); err != nil {
			d.log.Error("finishing factory reset failed", zap.Error(err))
		}
	})
}

func (d *Dispatcher) setPassword(req *request) (Reply, error) {
	user := d.store.GetOr(defs.KeyProductWebAdminUser, DefaultWebAdminUser)
	if name, ok := req.params.String("username"); ok {
		user = name
	}
	password, ok := req.params.String("password")
	if !ok {
		return Reply{}, invalid(messages.MaintMissingPassword)
	}
	tool, err := shlex.Split(d.opts.Tools.Password)
	if err != nil {
		return Reply{}, wrapError(KindInternal, messages.MaintPasswordToolInvalid, err)
	}
	if len(tool) == 0 {
		return Reply{}, newError(KindInternal, messages.MaintPasswordToolInvalid)
	}
	path := tool[0]
	argv := append([]string{filepath.Base(path)}, tool[1:]...)
	argv = append(argv, d.opts.PasswordFile, d.store.Value(defs.KeyProductModel), user, password)
	d.log.Info("updating web UI password", zap.String("user", user))
	d.inv.Execve(path, argv, nil, true, d.continueWith(req.cmd, answerNull))
	return Deferred(), nil
}
