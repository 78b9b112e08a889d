package messages

// System messages for internal operations.
const (
	// InvokePending indicates a second invocation while one is in flight.
	InvokePending     = "an invocation is already pending"
	InvokeLoopStalled = "event loop stalled: nothing queued, nothing pending, not terminated"
	InvokeStartFmt    = "start %s: %w"
	InvokeWaitFmt     = "wait for %s: %w"
	InvokeExecFmt     = "exec %s: %w"

	DefsReadFileFmt   = "read definitions %s: %w"
	DefsWriteShellFmt = "write definitions: %w"

	NetidNoInterface   = "no usable network interface"
	NetidLinkByNameFmt = "look up link %s: %w"
	NetidListLinksFmt  = "list links: %w"
	NetidListAddrsFmt  = "list addresses of %s: %w"

	AnswerAlreadySent  = "answer already sent"
	AnswerWriteFmt     = "write answer: %w"
	AnswerEncodeFmt    = "encode answer: %w"
	AnswerUnknownError = "unknown error"

	// FlashInvalidName rejects names that would leave the flash directory.
	FlashInvalidName    = "name must not be empty or contain '/' or '.'"
	FlashOpenLockFmt    = "open lock %s: %w"
	FlashLockFmt        = "lock %s: %w"
	FlashLockTimeoutFmt = "timed out waiting for lock after %s"
	FlashEncodeFmt      = "encode %s: %w"
	FlashCreateDirFmt   = "create directory %s: %w"
	FlashReadDirFmt     = "read directory %s: %w"
	FlashReadFmt        = "read %s: %w"
	FlashCreateTempFmt  = "create temp file: %w"
	FlashWriteFmt       = "write %s: %w"
	FlashSyncFmt        = "sync temp file: %w"
	FlashCloseFmt       = "close temp file: %w"
	FlashRenameFmt      = "move %s into place: %w"
	FlashRemoveFmt      = "remove %s: %w"

	MetricsWriteFmt = "write metrics textfile %s: %w"
)
