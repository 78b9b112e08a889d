// Package answer writes the single JSON answer of a maintd request.
package answer

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/conn-castle/maintd/internal/messages"
)

// ErrAlreadyAnswered is returned when a second answer is emitted.
var ErrAlreadyAnswered = errors.New(messages.AnswerAlreadySent)

// Error is the payload of an error answer.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Coder is implemented by errors that carry an answer code.
type Coder interface {
	AnswerCode() int
}

// DefaultErrorCode is used for errors that carry no code.
const DefaultErrorCode = 1

type envelope struct {
	Result json.RawMessage `json:"result"`
}

type errorEnvelope struct {
	Error Error `json:"error"`
}

// Terminator ends the process once the answer is out.
type Terminator interface {
	Terminate(code int)
}

// Channel emits at most one answer and then terminates the run.
type Channel struct {
	mu       sync.Mutex
	out      *bufio.Writer
	term     Terminator
	answered bool
}

// NewChannel returns a channel writing to w.
func NewChannel(w io.Writer, term Terminator) *Channel {
	return &Channel{out: bufio.NewWriter(w), term: term}
}

// Succeed emits {"result": payload}. A nil payload is encoded as null.
// Payloads that are already json.RawMessage are written as is.
func (c *Channel) Succeed(payload any) error {
	raw, err := encodePayload(payload)
	if err != nil {
		return c.Fail(err)
	}
	return c.emit(envelope{Result: raw})
}

// Fail emits {"error": {"code": ..., "message": ...}} for err.
func (c *Channel) Fail(err error) error {
	return c.emit(errorEnvelope{Error: ErrorFor(err)})
}

// Finish ends the run with code without emitting an answer.
func (c *Channel) Finish(code int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.answered {
		return ErrAlreadyAnswered
	}
	c.answered = true
	c.term.Terminate(code)
	return nil
}

// WriteRaw writes text ahead of a process image replacement and flushes it.
// It does not count as an answer.
func (c *Channel) WriteRaw(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.answered {
		return ErrAlreadyAnswered
	}
	if _, err := c.out.WriteString(text); err != nil {
		return fmt.Errorf(messages.AnswerWriteFmt, err)
	}
	if err := c.out.Flush(); err != nil {
		return fmt.Errorf(messages.AnswerWriteFmt, err)
	}
	return nil
}

func (c *Channel) emit(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.answered {
		return ErrAlreadyAnswered
	}
	c.answered = true
	defer c.term.Terminate(0)
	data, err := marshal(v)
	if err != nil {
		return err
	}
	if _, err := c.out.Write(data); err != nil {
		return fmt.Errorf(messages.AnswerWriteFmt, err)
	}
	if err := c.out.Flush(); err != nil {
		return fmt.Errorf(messages.AnswerWriteFmt, err)
	}
	return nil
}

// marshal encodes v as one line of JSON without HTML escaping.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf(messages.AnswerEncodeFmt, err)
	}
	return buf.Bytes(), nil
}

func encodePayload(payload any) (json.RawMessage, error) {
	switch v := payload.(type) {
	case nil:
		return json.RawMessage("null"), nil
	case json.RawMessage:
		if len(v) == 0 {
			return json.RawMessage("null"), nil
		}
		return v, nil
	}
	data, err := marshal(payload)
	if err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(data, []byte("\n")), nil
}

// ErrorFor converts err into an answer error. Errors implementing Coder keep
// their code; everything else gets DefaultErrorCode.
func ErrorFor(err error) Error {
	if err == nil {
		return Error{Code: DefaultErrorCode, Message: messages.AnswerUnknownError}
	}
	code := DefaultErrorCode
	var coder Coder
	if errors.As(err, &coder) {
		code = coder.AnswerCode()
	}
	return Error{Code: code, Message: err.Error()}
}
