package maint

type replyKind int

const (
	replyImmediate replyKind = iota
	replyDeferred
	replyReplace
)

// Reply tells the dispatcher how a handler finishes.
type Reply struct {
	kind    replyKind
	payload any
	exec    ExecAction
}

// Immediate answers payload right away. A nil payload answers null.
func Immediate(payload any) Reply {
	return Reply{kind: replyImmediate, payload: payload}
}

// Deferred means the handler issued exactly one invocation whose continuation answers.
func Deferred() Reply {
	return Reply{kind: replyDeferred}
}

// Replace replaces the process image instead of answering.
func Replace(action ExecAction) Reply {
	return Reply{kind: replyReplace, exec: action}
}

// ExecAction describes a process image replacement.
type ExecAction struct {
	Path string
	Argv []string
	// Env is passed to the new image; nil inherits the current environment.
	Env []string
	// Preamble is written to the answer stream before the image is replaced.
	Preamble string
	// FailMessage is answered when the replacement could not be performed.
	FailMessage string
}
