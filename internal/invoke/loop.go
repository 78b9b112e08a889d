package invoke

import (
	"context"
	"errors"
	"sync"

	"github.com/conn-castle/maintd/internal/messages"
)

// ErrStalled is returned by Loop.Run when nothing is queued, no child is running
// and nobody requested termination.
var ErrStalled = errors.New(messages.InvokeLoopStalled)

// Loop runs posted functions one at a time on the goroutine that calls Run.
type Loop struct {
	mu         sync.Mutex
	queue      []func()
	holds      int
	terminated bool
	code       int
	wake       chan struct{}
}

// NewLoop returns an idle loop.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post queues fn to run on the loop. It may be called from any goroutine.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.signal()
}

// Terminate asks Run to return code once the current function finishes.
// The first call wins.
func (l *Loop) Terminate(code int) {
	l.mu.Lock()
	if !l.terminated {
		l.terminated = true
		l.code = code
	}
	l.mu.Unlock()
	l.signal()
}

// hold marks outstanding background work that will post back to the loop.
func (l *Loop) hold() {
	l.mu.Lock()
	l.holds++
	l.mu.Unlock()
}

// postAndRelease queues fn and drops one hold in a single step so Run never
// observes an empty queue with no holds in between.
func (l *Loop) postAndRelease(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.holds--
	l.mu.Unlock()
	l.signal()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run executes queued functions until Terminate is called and returns its code.
func (l *Loop) Run(ctx context.Context) (int, error) {
	for {
		l.mu.Lock()
		if l.terminated {
			code := l.code
			l.mu.Unlock()
			return code, nil
		}
		if len(l.queue) > 0 {
			fn := l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
			l.mu.Unlock()
			fn()
			continue
		}
		idle := l.holds == 0
		l.mu.Unlock()
		if idle {
			return 1, ErrStalled
		}
		select {
		case <-l.wake:
		case <-ctx.Done():
			return 1, ctx.Err()
		}
	}
}
