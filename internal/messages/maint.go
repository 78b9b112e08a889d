package messages

// Answer messages of the JSON command interface. The web UI matches some of
// them verbatim, so their wording is fixed.
const (
	MaintCannotDecode = "Cannot decode JSON"
	MaintMissingCmd   = "Missing 'cmd'"
	MaintUnknownCmd   = "Unknown 'cmd'"

	MaintInvalidIP           = "Invalid IP address parameters"
	MaintUnknownTimeZone     = "Unknown time zone name"
	MaintMissingPassword     = "missing password"
	MaintMissingUploadedFile = "missing 'uploadedfile' param"
	MaintRestoreMode         = "missing or wrong 'mode'"
	MaintFactoryResetMode    = "Invalid or missing 'mode'"
	MaintBackupExecFailed    = "Cannot exec backup script"
	MaintRestoreExecFailed   = "Cannot exec restore apply script"

	MaintInvalidUserLevel   = "invalid 'level'"
	MaintInvalidPropertyKey = "invalid property 'key'"
	MaintInvalidAlert       = "'new' must be an object"
	MaintInvalidAlertID     = "invalid alert id"

	MaintHelperExitFmt       = "helper exited with status %d"
	MaintPasswordToolInvalid = "password tool command line is invalid"
	// MaintContractViolation is a programming error in a command handler.
	MaintContractViolation = "command handler reply does not match its pending invocation"
)
