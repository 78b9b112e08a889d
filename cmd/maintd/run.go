package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/conn-castle/maintd/internal/answer"
	"github.com/conn-castle/maintd/internal/config"
	"github.com/conn-castle/maintd/internal/defs"
	"github.com/conn-castle/maintd/internal/flash"
	"github.com/conn-castle/maintd/internal/identity"
	"github.com/conn-castle/maintd/internal/invoke"
	"github.com/conn-castle/maintd/internal/logging"
	"github.com/conn-castle/maintd/internal/maint"
	"github.com/conn-castle/maintd/internal/messages"
	"github.com/conn-castle/maintd/internal/metrics"
	"github.com/conn-castle/maintd/internal/netid"
	"github.com/conn-castle/maintd/internal/terminal"
)

var (
	newNetProvider = netid.NewProvider
	now            = time.Now
)

// action is what maintd does once the unit is identified.
type action struct {
	name    string
	perform func(a *app)
}

// app wires one run: identification followed by a single action.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	loop   *invoke.Loop
	inv    *invoke.Invoker
	store  *defs.Store
	rec    *metrics.Recorder
	stdout io.Writer
	err    error
}

// run loads the configuration, identifies the unit, performs act and exports metrics.
func run(ctx context.Context, opts *options, act action, stdout io.Writer, stderr io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Logging.Level, cfg.Logging.DeltaTimestamps, stderr)
	defer func() { _ = log.Sync() }()

	a := newApp(cfg, log, stdout)
	code, runErr := a.run(ctx, act)
	if err := a.rec.WriteTextfile(cfg.Metrics.Textfile, now()); err != nil {
		log.Warn("metrics export failed", zap.Error(err))
	}
	if runErr != nil {
		return fmt.Errorf(messages.CLIActionFailedFmt, act.name, runErr)
	}
	if a.err != nil {
		return fmt.Errorf(messages.CLIActionFailedFmt, act.name, a.err)
	}
	if code != 0 {
		return &SilentExitError{Code: code}
	}
	return nil
}

// loadConfig reads the config file and applies the command line overrides.
// The default config file may be absent; an explicitly named one must exist.
func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath, opts.configSet)
	if err != nil {
		return nil, err
	}
	if opts.defsDirSet {
		cfg.Paths.DefsDir = opts.defsDir
	}
	if opts.logLevelSet {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.deltaStamps {
		cfg.Logging.DeltaTimestamps = true
	}
	return cfg, nil
}

func newApp(cfg *config.Config, log *zap.Logger, stdout io.Writer) *app {
	a := &app{
		cfg:    cfg,
		log:    log,
		loop:   invoke.NewLoop(),
		store:  defs.New(),
		rec:    metrics.NewRecorder(),
		stdout: stdout,
	}
	a.inv = invoke.New(a.loop, invoke.RealSystem{}, cfg.Tools.Shell,
		invoke.WithLogger(log.Named("invoke")),
		invoke.WithObserver(func(kind string, r invoke.Result) {
			a.rec.IncInvocation(kind, invocationResult(r))
		}),
	)
	return a
}

func invocationResult(r invoke.Result) string {
	switch {
	case r.Err != nil:
		return metrics.ResultSpawn
	case r.ExitCode != 0:
		return metrics.ResultFailed
	default:
		return metrics.ResultSuccess
	}
}

// run resolves the identity on the loop, then performs act, and returns the exit
// code the action terminated the loop with.
func (a *app) run(ctx context.Context, act action) (int, error) {
	pipeline := identity.New(a.store, a.inv, identity.Options{
		Paths: identity.Paths{
			DefsDir:             a.cfg.Paths.DefsDir,
			FlashDir:            a.cfg.Paths.FlashDir,
			TmpDir:              a.cfg.Paths.TmpDir,
			ComputingModuleFile: a.cfg.Paths.ComputingModuleFile,
		},
		Fixed:              a.cfg.Identity.Fixed,
		Interface:          a.cfg.Identity.Interface,
		CopyrightHolder:    a.cfg.Identity.CopyrightHolder,
		CopyrightFirstYear: a.cfg.Identity.CopyrightFirstYear,
		Net:                newNetProvider(),
		Now:                now,
		Logger:             a.log.Named("identity"),
	})
	started := time.Now()
	a.loop.Post(func() {
		pipeline.Run(func() {
			a.rec.ObserveResolution(time.Since(started), a.store.Len())
			a.log.Debug("performing action", zap.String("action", act.name))
			act.perform(a)
		})
	})
	return a.loop.Run(ctx)
}

// done ends the run with 0, or with 1 when err is set.
func (a *app) done(err error) {
	if err != nil {
		a.err = err
		a.loop.Terminate(1)
		return
	}
	a.loop.Terminate(0)
}

func (a *app) dispatcher() *maint.Dispatcher {
	tools := a.cfg.Tools
	return maint.New(a.store, a.inv, answer.NewChannel(a.stdout, a.loop), flash.New(a.cfg.Paths.FlashDir), maint.Options{
		Tools: maint.Tools{
			Restart:       tools.Restart,
			Poweroff:      tools.Poweroff,
			IPConf:        tools.IPConf,
			IPConfCommit:  tools.CommitIPConf(),
			WifiConf:      tools.WifiConf,
			UCI:           tools.UCI,
			Password:      tools.Password,
			ConfigBackup:  tools.ConfigBackup,
			ConfigRestore: tools.ConfigRestore,
			FactoryReset:  tools.FactoryReset,
		},
		Shell:        tools.Shell,
		TmpDir:       a.cfg.Paths.TmpDir,
		PasswordFile: a.cfg.Paths.PasswordFile,
		Now:          now,
		Observer:     a.rec.IncCommand,
		Logger:       a.log.Named("maint"),
	})
}

func jsonAction(text string) action {
	return action{name: "json", perform: func(a *app) {
		a.dispatcher().Handle(text)
	}}
}

func deviceInfoAction() action {
	return action{name: "deviceinfo", perform: func(a *app) {
		a.done(writeDeviceInfo(a.stdout, a.store, terminal.IsTerminal(a.stdout)))
	}}
}

func defsAction() action {
	return action{name: "defs", perform: func(a *app) {
		a.done(a.store.WriteShell(a.stdout))
	}}
}

func factoryResetAction(mode int) action {
	return action{name: "factoryreset", perform: func(a *app) {
		if err := a.dispatcher().FactoryReset(mode); err != nil {
			a.done(err)
		}
	}}
}
