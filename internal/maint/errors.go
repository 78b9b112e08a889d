package maint

import (
	"errors"
	"fmt"

	"github.com/conn-castle/maintd/internal/invoke"
	"github.com/conn-castle/maintd/internal/messages"
)

// Kind classifies a command failure.
type Kind string

// Failure kinds.
const (
	KindMalformed Kind = "malformed"
	KindUnknown   Kind = "unknown"
	KindInvalid   Kind = "invalid"
	KindSpawn     Kind = "spawn"
	KindProcess   Kind = "process"
	KindResource  Kind = "resource"
	KindInternal  Kind = "internal"
)

// CodeInvalidIP is the answer code for unusable IP address parameters.
const CodeInvalidIP = 415

// ErrContractViolation is the panic value when a handler's reply does not match
// the invocation state it left behind.
var ErrContractViolation = errors.New(messages.MaintContractViolation)

// Error is a command failure as the caller sees it. Only Message is shown; Cause
// stays available to errors.Is and errors.As.
type Error struct {
	Code    int
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// AnswerCode returns the code reported in the error answer.
func (e *Error) AnswerCode() int {
	if e.Code == 0 {
		return 1
	}
	return e.Code
}

func newError(kind Kind, message string) *Error {
	return &Error{Code: 1, Kind: kind, Message: message}
}

func wrapError(kind Kind, message string, cause error) *Error {
	return &Error{Code: 1, Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the kind of err, or KindInternal for errors not raised by a command.
func KindOf(err error) Kind {
	var merr *Error
	if errors.As(err, &merr) {
		return merr.Kind
	}
	return KindInternal
}

// resultError maps a helper completion to a command failure, or nil when the
// helper ran and exited with status 0.
func resultError(r invoke.Result) error {
	if r.Err != nil {
		return wrapError(KindSpawn, r.Err.Error(), r.Err)
	}
	if r.ExitCode != 0 {
		message := r.Trimmed()
		if message == "" {
			message = fmt.Sprintf(messages.MaintHelperExitFmt, r.ExitCode)
		}
		return newError(KindProcess, message)
	}
	return nil
}
