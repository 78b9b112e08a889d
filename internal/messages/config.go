package messages

// Config messages for configuration loading and validation.
const (
	// ConfigMissingFileFmt formats missing config file errors.
	ConfigMissingFileFmt        = "missing config file %s: %w"
	ConfigFailedReadTemplateFmt = "failed to read template maintd.toml: %w"
	ConfigInvalidConfigFmt      = "invalid config %s: %w"
	ConfigUnrecognizedKeysFmt   = "%s: unrecognized config keys: %w"
	ConfigExpandPathFmt         = "%s: expand %s: %w"
	// ConfigValidationFailed marks errors in the content of an otherwise readable config.
	ConfigValidationFailed = "config validation failed"

	ConfigPathRequiredFmt    = "%s: paths.%s is required"
	ConfigToolRequiredFmt    = "%s: tools.%s is required"
	ConfigShellAbsoluteFmt   = "%s: tools.shell must be an absolute path"
	ConfigCopyrightYearFmt   = "%s: identity.copyright_first_year must be positive"
	ConfigFixedKeyInvalidFmt = "%s: identity.fixed key %q is invalid"
	ConfigLogLevelRangeFmt   = "%s: logging.level must be between %d and %d"
)
