// Package asyncq runs blocking store queries off the game loop and hands
// their results back to the session that asked for them.
//
// A query is started with Go, which returns a Future. The session registers
// a continuation on its Processor; the host drains ready continuations on its
// own loop, so callbacks never run concurrently with other game logic for
// that session.
package asyncq

import "sync"

// Future is the pending result of a query started with Go.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Go runs fn on a new goroutine and returns its future result.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.val, f.err = fn()
	}()
	return f
}

// Resolved returns a future that is already complete.
func Resolved[T any](val T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), val: val, err: err}
	close(f.done)
	return f
}

// Ready reports whether the result is available.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the result is available and returns it.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.val, f.err
}

type pending struct {
	ready func() bool
	run   func()
}

// Processor holds the continuations of one session.
type Processor struct {
	mu      sync.Mutex
	queue   []pending
	stopped bool
}

// NewProcessor creates an empty processor.
func NewProcessor() *Processor {
	return &Processor{}
}

// AddCallback registers fn to run with f's result on the next Process call
// after f completes. Callbacks added after Cancel are dropped.
func AddCallback[T any](p *Processor, f *Future[T], fn func(T, error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.queue = append(p.queue, pending{
		ready: f.Ready,
		run: func() {
			val, err := f.Wait()
			fn(val, err)
		},
	})
}

// Process runs every continuation whose future has completed, in
// registration order, and returns how many ran.
func (p *Processor) Process() int {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return 0
	}
	var ready []pending
	remaining := p.queue[:0]
	for _, c := range p.queue {
		if c.ready() {
			ready = append(ready, c)
		} else {
			remaining = append(remaining, c)
		}
	}
	p.queue = remaining
	p.mu.Unlock()

	for _, c := range ready {
		c.run()
	}
	return len(ready)
}

// Pending returns the number of continuations still waiting.
func (p *Processor) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Cancel drops all pending continuations; results that arrive later are ignored.
func (p *Processor) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	p.queue = nil
}
