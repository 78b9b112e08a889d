package messages

// CLI messages for the maintd command line.
const (
	// RootUse is the CLI command name.
	RootUse = "maintd"
	// RootShort is the short description for the root command.
	RootShort = "Appliance maintenance helper for the web admin interface"
	RootLong  = "maintd identifies the unit (platform, product, producer, variant, serial) from\n" +
		"definition files and getter commands, then performs exactly one action."
	// RootCommandsFmt lists the commands a --json request may name.
	RootCommandsFmt = "\n\nCommands accepted by --json: %s."
	RootVersionFlag = "Print version and exit"

	// VersionCommitFmt formats the commit hash for version display.
	VersionCommitFmt = "commit %s"
	VersionBuildFmt  = "built %s"
	VersionFullFmt   = "%s (%s)"
	VersionTemplate  = "{{.Version}}\n"

	FlagJSON         = "process one JSON maintenance command and print the JSON answer"
	FlagFactoryReset = "factory reset, mode: 1=reset dS settings, 2=reset network settings, 3=reset both"
	FlagDefs         = "output all platform, product and unit defs as shell variable assignments"
	FlagDefsDir      = "directory where .defs files are read from"
	FlagDeviceInfo   = "human readable device info"
	FlagLogLevel     = "max level of log message detail to show on stderr (0..7)"
	FlagDeltaStamps  = "show timestamp delta between log lines"
	FlagConfig       = "daemon configuration file (TOML)"

	CLINoAction               = "no action requested"
	CLIFactoryResetModeFmt    = "invalid factory reset mode %d (expected 1..3)"
	CLILogLevelRangeFmt       = "invalid log level %d (expected 0..7)"
	CLIWriteOutputFmt         = "write output: %w"
	CLIActionFailedFmt        = "%s failed: %w"
	CLIDeviceInfoFirmwareFmt  = "%s_%s"
	CLIDeviceInfoLabelFmt     = "%-12s"
	CLIDeviceInfoLineFmt      = "%s: %s\n"
	CLIDeviceInfoLabelModel   = "Model"
	CLIDeviceInfoLabelVariant = "Variant"
	CLIDeviceInfoLabelProd    = "Producer"
	CLIDeviceInfoLabelGTIN    = "GTIN"
	CLIDeviceInfoLabelSerial  = "Serial"
	CLIDeviceInfoLabelPlat    = "Platform"
	CLIDeviceInfoLabelOS      = "OS"
	CLIDeviceInfoLabelFW      = "Firmware"
	CLIDeviceInfoLabelHost    = "hostname"
	CLIDeviceInfoLabelIPv4    = "IPv4"
)
