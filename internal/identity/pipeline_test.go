package identity

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/conn-castle/maintd/internal/defs"
	"github.com/conn-castle/maintd/internal/invoke"
	"github.com/conn-castle/maintd/internal/netid"
)

// fakeInvoker queues completions so they run after the issuing call returned,
// the way the event loop delivers them.
type fakeInvoker struct {
	results map[string]invoke.Result
	calls   []string
	queue   []func()
}

func (f *fakeInvoker) System(cmdline string, capture bool, done func(invoke.Result)) {
	f.calls = append(f.calls, cmdline)
	result, ok := f.results[cmdline]
	if !ok {
		result = invoke.Result{ExitCode: 127}
	}
	f.queue = append(f.queue, func() { done(result) })
}

func (f *fakeInvoker) drain() {
	for len(f.queue) > 0 {
		next := f.queue[0]
		f.queue = f.queue[1:]
		next()
	}
}

type fixture struct {
	paths Paths
	inv   *fakeInvoker
	store *defs.Store
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	paths := Paths{
		DefsDir:             filepath.Join(root, "etc"),
		FlashDir:            filepath.Join(root, "flash"),
		TmpDir:              filepath.Join(root, "tmp"),
		ComputingModuleFile: filepath.Join(root, "tmp", "p44-computing-module"),
	}
	for _, dir := range []string{paths.DefsDir, paths.FlashDir, paths.TmpDir} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	return &fixture{
		paths: paths,
		inv:   &fakeInvoker{results: map[string]invoke.Result{}},
		store: defs.New(),
		now:   time.Date(2024, 5, 17, 8, 30, 0, 0, time.Local),
	}
}

func (f *fixture) write(t *testing.T, dir string, name string, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func (f *fixture) pipeline(t *testing.T, fixed map[string]string) *Pipeline {
	return New(f.store, f.inv, Options{
		Paths:  f.paths,
		Fixed:  fixed,
		Net:    netid.Static{MAC: 0xB827EB123456, IPv4: 0xC0A80114},
		Now:    func() time.Time { return f.now },
		Logger: zaptest.NewLogger(t),
	})
}

func TestFixedPlatformCompletesInOneTurn(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.paths.DefsDir, "p44platform.defs", "PLATFORM_IDENTIFIER_GETTER=echo nope\n")
	p := f.pipeline(t, map[string]string{
		"PLATFORM_IDENTIFIER": "generic_dummy",
		"PRODUCT_HOSTPREFIX":  "p44_xx_linux",
		"PRODUCER":            "plan44",
	})

	done := false
	p.Run(func() { done = true })

	assert.True(t, done)
	assert.Equal(t, StageDone, p.Stage())
	assert.Empty(t, f.inv.calls)
	assert.Equal(t, "generic_dummy", f.store.Value(defs.KeyPlatformIdentifier))
	assert.Equal(t, "2024-05-17 08:30:00", f.store.Value(defs.KeyStatusTime))
	assert.Equal(t, "34747478", f.store.Value(defs.KeyUnitSerial))
	assert.Equal(t, "p44_xx_linux_34747478", f.store.Value(defs.KeyUnitHostname))
	assert.False(t, f.store.Has(defs.KeyFirmwareFeed))
}

func TestDerivedValues(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t, nil)
	p.Run(nil)

	assert.Equal(t, StageDone, p.Stage())
	assert.Equal(t, "34747478", f.store.Value(defs.KeyUnitSerial))
	assert.Equal(t, "202481587074134", f.store.Value(defs.KeyUnitMACDecimal))
	assert.Equal(t, "B8:27:EB:12:34:56", f.store.Value(defs.KeyUnitMACAddress))
	assert.Equal(t, "192.168.1.20", f.store.Value(defs.KeyStatusIPv4))
	assert.Equal(t, "unknown_34747478", f.store.Value(defs.KeyUnitHostname))
	assert.Equal(t, "2013-2024", f.store.Value(defs.KeyProductCopyrightYears))
	assert.Equal(t, "plan44.ch", f.store.Value(defs.KeyProductCopyrightHolder))
	assert.Equal(t, "unknown", f.store.Value(defs.KeyProducer))
	assert.Equal(t, "1", f.store.Value(defs.KeyStatusUserLevel))
}

func TestCopyrightDefaultsDoNotOverrideDefinitions(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.paths.DefsDir, "p44product.defs", "PRODUCT_COPYRIGHT_HOLDER=someone\nPRODUCT_COPYRIGHT_YEARS=2020\n")
	f.pipeline(t, nil).Run(nil)
	assert.Equal(t, "someone", f.store.Value(defs.KeyProductCopyrightHolder))
	assert.Equal(t, "2020", f.store.Value(defs.KeyProductCopyrightYears))
}

func TestFullResolutionWithGetters(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.paths.DefsDir, "p44platform.defs", "PLATFORM_IDENTIFIER=generic\nPLATFORM_IDENTIFIER_GETTER=get-platform\n")
	f.write(t, f.paths.DefsDir, "p44platform-rpi.defs", "PLATFORM_NAME=Raspberry Pi\nPLATFORM_PRODUCT_IDENTIFIER_GETTER=get-product\n")
	f.write(t, f.paths.DefsDir, "p44product.defs", "PRODUCT_HOSTPREFIX=p44_dsb\nPRODUCER_GETTER=get-producer\n")
	f.write(t, f.paths.DefsDir, "p44product-p44-dsb-e2.defs", "PRODUCT_MODEL=P44-DSB-E2\nPLATFORM_VARIANT_GETTER=get-variant\n")
	f.write(t, f.paths.DefsDir, "p44variant-p44-dsb-e2-3.defs", "PRODUCT_GTIN=7640161170003\n")
	f.write(t, f.paths.DefsDir, "p44feed", "prod\n")
	f.write(t, f.paths.DefsDir, "p44version", "1.6.2.1\n")
	f.write(t, f.paths.FlashDir, "p44custom.defs", "PRODUCT_MODEL=custom\n")
	f.write(t, f.paths.TmpDir, "p44-computing-module", "cm4\n")

	f.inv.results["get-platform"] = invoke.Result{Output: "  rpi \n"}
	f.inv.results["get-product"] = invoke.Result{Output: "p44-dsb-e2\n"}
	f.inv.results["get-producer"] = invoke.Result{Output: "plan44\n"}
	f.inv.results["get-variant"] = invoke.Result{Output: "3\n"}

	p := f.pipeline(t, nil)
	done := false
	p.Run(func() { done = true })

	assert.False(t, done)
	assert.Equal(t, StagePlatformSpecifics, p.Stage())
	assert.Equal(t, []string{"get-platform"}, f.inv.calls)

	f.inv.drain()

	require.True(t, done)
	assert.Equal(t, []string{"get-platform", "get-product", "get-producer", "get-variant"}, f.inv.calls)
	assert.Equal(t, "rpi", f.store.Value(defs.KeyPlatformIdentifier))
	assert.Equal(t, "Raspberry Pi", f.store.Value(defs.KeyPlatformName))
	assert.Equal(t, "cm4", f.store.Value(defs.KeyPlatformComputeModule))
	assert.Equal(t, "p44-dsb-e2", f.store.Value(defs.KeyProductIdentifier))
	assert.Equal(t, "plan44", f.store.Value(defs.KeyProducer))
	assert.Equal(t, "3", f.store.Value(defs.KeyProductVariant))
	assert.Equal(t, "7640161170003", f.store.Value(defs.KeyProductGTIN))
	assert.Equal(t, "custom", f.store.Value(defs.KeyProductModel))
	assert.Equal(t, "prod", f.store.Value(defs.KeyFirmwareFeed))
	assert.Equal(t, "1.6.2.1", f.store.Value(defs.KeyFirmwareVersion))
	assert.Equal(t, "0", f.store.Value(defs.KeyStatusUserLevel))
	assert.Equal(t, "p44_dsb_34747478", f.store.Value(defs.KeyUnitHostname))
}

func TestEmptyGetterOutputKeepsPreviousValue(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.paths.DefsDir, "p44platform.defs", "PLATFORM_IDENTIFIER=generic\nPLATFORM_IDENTIFIER_GETTER=get-platform\n")
	f.inv.results["get-platform"] = invoke.Result{Output: " \n\t"}

	f.pipeline(t, nil).Run(nil)
	f.inv.drain()
	assert.Equal(t, "generic", f.store.Value(defs.KeyPlatformIdentifier))
}

func TestFailingGetterCountsAsNoOutput(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.paths.DefsDir, "p44platform.defs", "PLATFORM_IDENTIFIER=generic\nPLATFORM_IDENTIFIER_GETTER=broken\n")
	f.inv.results["broken"] = invoke.Result{ExitCode: -1, Err: errors.New("no shell")}

	done := false
	f.pipeline(t, nil).Run(func() { done = true })
	f.inv.drain()
	assert.True(t, done)
	assert.Equal(t, "generic", f.store.Value(defs.KeyPlatformIdentifier))
}

func TestEmptyVariantBecomesZero(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.paths.DefsDir, "p44product.defs", "PRODUCT_IDENTIFIER=p44-dsb-e2\nPLATFORM_VARIANT_GETTER=get-variant\n")
	f.write(t, f.paths.DefsDir, "p44variant-p44-dsb-e2-0.defs", "PRODUCT_GTIN=variant0\n")
	f.inv.results["get-variant"] = invoke.Result{Output: "\n"}

	f.pipeline(t, nil).Run(nil)
	f.inv.drain()
	assert.Equal(t, "0", f.store.Value(defs.KeyProductVariant))
	assert.Equal(t, "variant0", f.store.Value(defs.KeyProductGTIN))
}

func TestDefinedEmptyGetterStillRuns(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.paths.DefsDir, "p44product.defs", "PRODUCT_IDENTIFIER=p44-dsb-e2\nPLATFORM_VARIANT_GETTER=\n")
	f.write(t, f.paths.DefsDir, "p44variant-p44-dsb-e2-0.defs", "PRODUCT_GTIN=variant0\n")
	f.inv.results[""] = invoke.Result{}

	done := false
	f.pipeline(t, nil).Run(func() { done = true })
	f.inv.drain()
	assert.True(t, done)
	assert.Equal(t, []string{""}, f.inv.calls)
	assert.Equal(t, "0", f.store.Value(defs.KeyProductVariant))
	assert.Equal(t, "variant0", f.store.Value(defs.KeyProductGTIN))
}

func TestProductDefaultFallbacks(t *testing.T) {
	t.Run("platform specific default", func(t *testing.T) {
		f := newFixture(t)
		f.write(t, f.paths.DefsDir, "p44platform.defs", "PLATFORM_IDENTIFIER=omega2\n")
		f.write(t, f.paths.DefsDir, "p44product-default_omega2.defs", "PRODUCT_IDENTIFIER=p44-lc-e\n")
		f.write(t, f.paths.DefsDir, "p44product-default.defs", "PRODUCT_IDENTIFIER=generic\n")
		f.write(t, f.paths.DefsDir, "p44product-p44-lc-e.defs", "PRODUCT_MODEL=P44-LC-E\n")
		f.pipeline(t, nil).Run(nil)
		assert.Equal(t, "p44-lc-e", f.store.Value(defs.KeyProductIdentifier))
		assert.Equal(t, "P44-LC-E", f.store.Value(defs.KeyProductModel))
	})
	t.Run("generic default", func(t *testing.T) {
		f := newFixture(t)
		f.write(t, f.paths.DefsDir, "p44product-default.defs", "PRODUCT_IDENTIFIER=generic\n")
		f.pipeline(t, nil).Run(nil)
		assert.Equal(t, "generic", f.store.Value(defs.KeyProductIdentifier))
	})
}

func TestProducerFromFileWithoutGetter(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.paths.DefsDir, "p44producer", "acme\n")
	f.pipeline(t, nil).Run(nil)
	assert.Equal(t, "acme", f.store.Value(defs.KeyProducer))
	assert.Empty(t, f.inv.calls)
}

func TestUserLevelPrecedence(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, f *fixture)
		want  string
	}{
		{name: "volatile wins", want: "3", setup: func(t *testing.T, f *fixture) {
			f.write(t, f.paths.TmpDir, "p44userlevel", "3\n")
			f.write(t, f.paths.FlashDir, "p44userlevel", "2\n")
		}},
		{name: "persisted", want: "2", setup: func(t *testing.T, f *fixture) {
			f.write(t, f.paths.FlashDir, "p44userlevel", "2\n")
		}},
		{name: "product default", want: "4", setup: func(t *testing.T, f *fixture) {
			f.write(t, f.paths.DefsDir, "p44product.defs", "PRODUCT_DEFAULT_USER_LEVEL=4\n")
		}},
		{name: "prod feed", want: "0", setup: func(t *testing.T, f *fixture) {
			f.write(t, f.paths.DefsDir, "p44feed", "prod\n")
		}},
		{name: "beta feed", want: "1", setup: func(t *testing.T, f *fixture) {
			f.write(t, f.paths.DefsDir, "p44feed", "beta\n")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(t, f)
			f.pipeline(t, nil).Run(nil)
			assert.Equal(t, tt.want, f.store.Value(defs.KeyStatusUserLevel))
		})
	}
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "platform-specifics", StagePlatformSpecifics.String())
	assert.Equal(t, "stage(9)", Stage(9).String())
}
