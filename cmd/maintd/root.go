package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conn-castle/maintd/internal/config"
	"github.com/conn-castle/maintd/internal/maint"
	"github.com/conn-castle/maintd/internal/messages"
)

const defaultConfigPath = "/etc/maintd.toml"

var errNoAction = errors.New(messages.CLINoAction)

// options holds the parsed command line.
type options struct {
	json         string
	deviceInfo   bool
	defs         bool
	factoryReset int
	defsDir      string
	configPath   string
	logLevel     int
	deltaStamps  bool

	configSet   bool
	defsDirSet  bool
	logLevelSet bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           messages.RootUse,
		Short:         messages.RootShort,
		Long:          messages.RootLong + fmt.Sprintf(messages.RootCommandsFmt, strings.Join(maint.Commands(), ", ")),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if flags.NFlag() == 0 {
				return cmd.Help()
			}
			opts.configSet = flags.Changed("config")
			opts.defsDirSet = flags.Changed("defsdir")
			opts.logLevelSet = flags.Changed("loglevel")
			if opts.logLevelSet && (opts.logLevel < config.MinLogLevel || opts.logLevel > config.MaxLogLevel) {
				return fmt.Errorf(messages.CLILogLevelRangeFmt, opts.logLevel)
			}
			act, err := selectAction(opts, flags.Changed("json"), flags.Changed("factoryreset"))
			if err != nil {
				return err
			}
			return run(cmd.Context(), opts, act, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.json, "json", "", messages.FlagJSON)
	flags.BoolVarP(&opts.deviceInfo, "deviceinfo", "i", false, messages.FlagDeviceInfo)
	flags.BoolVar(&opts.defs, "defs", false, messages.FlagDefs)
	flags.IntVar(&opts.factoryReset, "factoryreset", 0, messages.FlagFactoryReset)
	flags.StringVar(&opts.defsDir, "defsdir", "", messages.FlagDefsDir)
	flags.StringVar(&opts.configPath, "config", defaultConfigPath, messages.FlagConfig)
	flags.IntVarP(&opts.logLevel, "loglevel", "l", 0, messages.FlagLogLevel)
	flags.BoolVar(&opts.deltaStamps, "deltatstamps", false, messages.FlagDeltaStamps)
	flags.BoolP("version", "V", false, messages.RootVersionFlag)
	return cmd
}

// selectAction picks the single action to run: json, then deviceinfo, then defs,
// then factoryreset.
func selectAction(opts *options, jsonSet bool, factoryResetSet bool) (action, error) {
	switch {
	case jsonSet:
		return jsonAction(opts.json), nil
	case opts.deviceInfo:
		return deviceInfoAction(), nil
	case opts.defs:
		return defsAction(), nil
	case factoryResetSet:
		if !maint.ValidFactoryResetMode(opts.factoryReset) {
			return action{}, fmt.Errorf(messages.CLIFactoryResetModeFmt, opts.factoryReset)
		}
		return factoryResetAction(opts.factoryReset), nil
	default:
		return action{}, errNoAction
	}
}
