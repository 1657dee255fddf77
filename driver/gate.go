package driver

import (
	"context"
	"sync"
	"time"
)

// State is the init state of a driver
type State int

const (
	NotStarted State = iota
	InProgress
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// InitFunc starts a driver's asynchronous initialization and reports the
// outcome through done. ctx is cancelled once the gate settles, so an init
// still running after a timeout can give up.
type InitFunc func(ctx context.Context, done func(error))

// Gate runs a driver's init exactly once and holds submissions until it
// settles. Held submissions are released in arrival order with the init result.
type Gate struct {
	init    InitFunc
	timeout time.Duration

	mu       sync.Mutex
	state    State
	err      error
	pending  []func(error)
	draining bool
}

// NewGate creates a gate around init. A positive timeout fails the init if it
// has not called back in time.
func NewGate(init InitFunc, timeout time.Duration) *Gate {
	return &Gate{
		init:    init,
		timeout: timeout,
	}
}

// State returns the current init state
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Submit calls fn with nil once init has succeeded, or with the init error
// once it has failed. The first submission starts init.
func (g *Gate) Submit(fn func(error)) {
	g.mu.Lock()
	switch g.state {
	case NotStarted:
		g.state = InProgress
		g.pending = append(g.pending, fn)
		g.mu.Unlock()
		g.start()
	case InProgress:
		g.pending = append(g.pending, fn)
		g.mu.Unlock()
	default:
		// Queue behind a drain in progress so arrival order holds
		if g.draining {
			g.pending = append(g.pending, fn)
			g.mu.Unlock()
			return
		}
		err := g.err
		g.mu.Unlock()
		fn(err)
	}
}

func (g *Gate) start() {
	ctx, cancel := context.WithCancelCause(context.Background())

	var once sync.Once
	settled := make(chan struct{})
	finish := func(err error) {
		once.Do(func() {
			close(settled)
			cancel(err)
			g.settle(err)
		})
	}

	if g.timeout > 0 {
		go func() {
			t := time.NewTimer(g.timeout)
			defer t.Stop()
			select {
			case <-t.C:
				finish(ErrInitTimeout)
			case <-settled:
			}
		}()
	}
	g.init(ctx, finish)
}

func (g *Gate) settle(err error) {
	g.mu.Lock()
	g.err = err
	if err == nil {
		g.state = Succeeded
	} else {
		g.state = Failed
	}
	g.draining = true

	for len(g.pending) > 0 {
		fn := g.pending[0]
		g.pending[0] = nil
		g.pending = g.pending[1:]

		g.mu.Unlock()
		fn(err)
		g.mu.Lock()
	}

	g.pending = nil
	g.draining = false
	g.mu.Unlock()
}
