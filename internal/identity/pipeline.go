// Package identity resolves who the unit is: platform, product, producer, variant,
// firmware and the values derived from its network identity.
//
// Resolution runs as a state machine on the event loop. Every stage may suspend
// on one getter command; the getter's completion commits its value and resumes the
// machine at the next stage.
package identity

import (
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/conn-castle/maintd/internal/defs"
	"github.com/conn-castle/maintd/internal/invoke"
	"github.com/conn-castle/maintd/internal/netid"
)

// Stage is the resolution step the pipeline runs next.
type Stage int

// Resolution stages in execution order.
const (
	StageDefaults Stage = iota
	StagePlatform
	StagePlatformSpecifics
	StageProduct
	StageVariant
	StageDone
)

var stageNames = [...]string{"defaults", "platform", "platform-specifics", "product", "variant", "done"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "stage(" + strconv.Itoa(int(s)) + ")"
	}
	return stageNames[s]
}

// StatusTimeLayout formats STATUS_TIME.
const StatusTimeLayout = "2006-01-02 15:04:05"

// Defaults for derived values.
const (
	DefaultProducer           = "unknown"
	DefaultHostPrefix         = "unknown"
	DefaultCopyrightHolder    = "plan44.ch"
	DefaultCopyrightFirstYear = 2013
	DefaultVariant            = "0"
)

// Invoker runs getter command lines.
type Invoker interface {
	System(cmdline string, capture bool, done func(invoke.Result))
}

// Paths locates the files the pipeline reads.
type Paths struct {
	DefsDir             string
	FlashDir            string
	TmpDir              string
	ComputingModuleFile string
}

// Options configures a Pipeline.
type Options struct {
	Paths Paths
	// Fixed, when non-empty, replaces discovery: the values are installed as is
	// and only derived values are computed.
	Fixed              map[string]string
	Interface          string
	CopyrightHolder    string
	CopyrightFirstYear int
	Net                netid.Provider
	Now                func() time.Time
	Logger             *zap.Logger
}

// Pipeline populates a defs.Store.
type Pipeline struct {
	store  *defs.Store
	inv    Invoker
	opts   Options
	log    *zap.Logger
	stage  Stage
	onDone func()
}

// New returns a pipeline writing into store.
func New(store *defs.Store, inv Invoker, opts Options) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Net == nil {
		opts.Net = netid.Static{}
	}
	if opts.CopyrightHolder == "" {
		opts.CopyrightHolder = DefaultCopyrightHolder
	}
	if opts.CopyrightFirstYear == 0 {
		opts.CopyrightFirstYear = DefaultCopyrightFirstYear
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{store: store, inv: inv, opts: opts, log: log, stage: StageDefaults}
}

// Stage returns the stage that runs next, or StageDone.
func (p *Pipeline) Stage() Stage {
	return p.stage
}

// Run starts resolution. onDone runs on the loop once all stages finished; when no
// getter is needed that happens before Run returns.
func (p *Pipeline) Run(onDone func()) {
	p.onDone = onDone
	p.stage = StageDefaults
	p.advance()
}

// advance runs stages until one suspends on a getter or resolution is done.
func (p *Pipeline) advance() {
	for {
		var suspended bool
		switch p.stage {
		case StageDefaults:
			suspended = p.defaults()
		case StagePlatform:
			suspended = p.platform()
		case StagePlatformSpecifics:
			suspended = p.platformSpecifics()
		case StageProduct:
			suspended = p.product()
		case StageVariant:
			suspended = p.variant()
		case StageDone:
			p.log.Debug("unit identified", zap.Int("defs", p.store.Len()))
			if done := p.onDone; done != nil {
				p.onDone = nil
				done()
			}
			return
		}
		if suspended {
			return
		}
	}
}

// runGetter invokes the command line stored under getterKey, if defined, and reports
// whether the pipeline suspended. commit receives the trimmed output on the loop,
// after which the pipeline resumes at the stage set before the call.
// A getter that fails to run or exits non-zero counts as one that printed nothing
// useful; whatever it printed is still used. A getter defined as empty still runs
// and prints nothing.
func (p *Pipeline) runGetter(getterKey string, commit func(value string)) bool {
	cmdline, ok := p.store.Get(getterKey)
	if !ok {
		return false
	}
	p.log.Debug("running getter", zap.String("getter", getterKey), zap.Stringer("resume", p.stage))
	p.inv.System(cmdline, true, func(r invoke.Result) {
		if !r.Success() {
			p.log.Warn("getter failed", zap.String("getter", getterKey), zap.Int("exit_code", r.ExitCode), zap.Error(r.Err))
		}
		commit(r.Trimmed())
		p.advance()
	})
	return true
}

func (p *Pipeline) defsPath(name string) string {
	return filepath.Join(p.opts.Paths.DefsDir, name)
}

func (p *Pipeline) merge(path string) {
	if p.store.MergeFile(path) {
		p.log.Debug("merged definitions", zap.String("path", path))
	}
}

func (p *Pipeline) defaults() bool {
	p.store.Reset()
	p.store.Set(defs.KeyStatusTime, p.opts.Now().Format(StatusTimeLayout))
	if len(p.opts.Fixed) > 0 {
		p.store.SetAll(p.opts.Fixed)
		p.finish()
		return false
	}
	p.stage = StagePlatform
	return false
}

func (p *Pipeline) platform() bool {
	p.merge(p.defsPath("p44platform.defs"))
	p.stage = StagePlatformSpecifics
	return p.runGetter(defs.KeyPlatformIDGetter, func(value string) {
		if value != "" {
			p.store.Set(defs.KeyPlatformIdentifier, value)
		}
	})
}

func (p *Pipeline) platformSpecifics() bool {
	if platform, ok := p.store.Get(defs.KeyPlatformIdentifier); ok {
		p.merge(p.defsPath("p44platform-" + platform + ".defs"))
	}
	p.store.MergeFirstLine(p.opts.Paths.ComputingModuleFile, defs.KeyPlatformComputeModule)
	p.stage = StageProduct
	return p.runGetter(defs.KeyPlatformProductGetter, func(value string) {
		if value != "" {
			p.store.Set(defs.KeyProductIdentifier, value)
		}
	})
}

func (p *Pipeline) product() bool {
	p.merge(p.defsPath("p44product.defs"))
	if !p.store.Has(defs.KeyProductIdentifier) {
		if platform, ok := p.store.Get(defs.KeyPlatformIdentifier); ok {
			p.merge(p.defsPath("p44product-default_" + platform + ".defs"))
		}
	}
	if !p.store.Has(defs.KeyProductIdentifier) {
		p.merge(p.defsPath("p44product-default.defs"))
	}
	if product, ok := p.store.Get(defs.KeyProductIdentifier); ok {
		p.merge(p.defsPath("p44product-" + product + ".defs"))
	}
	p.stage = StageVariant
	if p.runGetter(defs.KeyProducerGetter, func(value string) {
		if value != "" {
			p.store.Set(defs.KeyProducer, value)
		}
	}) {
		return true
	}
	p.store.MergeFirstLine(p.defsPath("p44producer"), defs.KeyProducer)
	return false
}

func (p *Pipeline) variant() bool {
	p.store.SetDefault(defs.KeyProducer, DefaultProducer)
	p.store.MergeFirstLine(p.defsPath("p44feed"), defs.KeyFirmwareFeed)
	p.store.MergeFirstLine(p.defsPath("p44version"), defs.KeyFirmwareVersion)
	p.resolveUserLevel()
	p.stage = StageDone
	if p.runGetter(defs.KeyPlatformVariantGetter, func(value string) {
		if value == "" {
			value = DefaultVariant
		}
		p.store.Set(defs.KeyProductVariant, value)
		p.variantOverrides()
	}) {
		return true
	}
	p.variantOverrides()
	return false
}

// resolveUserLevel takes the volatile level, then the persisted one, then the product
// default, and finally 0 for production feeds and 1 for all others.
func (p *Pipeline) resolveUserLevel() {
	if p.store.MergeFirstLine(filepath.Join(p.opts.Paths.TmpDir, "p44userlevel"), defs.KeyStatusUserLevel) {
		return
	}
	if p.store.MergeFirstLine(filepath.Join(p.opts.Paths.FlashDir, "p44userlevel"), defs.KeyStatusUserLevel) {
		return
	}
	if level, ok := p.store.Get(defs.KeyProductDefaultUserLvl); ok {
		p.store.Set(defs.KeyStatusUserLevel, level)
		return
	}
	if p.store.Value(defs.KeyFirmwareFeed) == "prod" {
		p.store.Set(defs.KeyStatusUserLevel, "0")
	} else {
		p.store.Set(defs.KeyStatusUserLevel, "1")
	}
}

func (p *Pipeline) variantOverrides() {
	if variant, ok := p.store.Get(defs.KeyProductVariant); ok {
		product := p.store.Value(defs.KeyProductIdentifier)
		p.merge(p.defsPath("p44variant-" + product + "-" + variant + ".defs"))
	}
	p.merge(filepath.Join(p.opts.Paths.FlashDir, "p44custom.defs"))
	p.finish()
}

// finish computes the derived values and marks resolution done.
func (p *Pipeline) finish() {
	p.derive()
	p.stage = StageDone
}

func (p *Pipeline) derive() {
	id, err := p.opts.Net.Lookup(p.opts.Interface)
	if err != nil {
		p.log.Warn("network identity unavailable", zap.Error(err))
	}
	serial := netid.Serial(id.MAC)
	p.store.Set(defs.KeyUnitSerial, strconv.FormatUint(serial, 10))
	p.store.Set(defs.KeyUnitMACDecimal, strconv.FormatUint(id.MAC, 10))
	p.store.Set(defs.KeyUnitMACAddress, netid.FormatMAC(id.MAC))
	p.store.Set(defs.KeyStatusIPv4, netid.FormatIPv4(id.IPv4))
	prefix := p.store.GetOr(defs.KeyProductHostPrefix, DefaultHostPrefix)
	p.store.Set(defs.KeyUnitHostname, prefix+"_"+strconv.FormatUint(serial, 10))
	years := strconv.Itoa(p.opts.CopyrightFirstYear) + "-" + strconv.Itoa(p.opts.Now().Year())
	p.store.SetDefault(defs.KeyProductCopyrightYears, years)
	p.store.SetDefault(defs.KeyProductCopyrightHolder, p.opts.CopyrightHolder)
}
