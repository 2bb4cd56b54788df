package traits

import (
	"sync/atomic"
)

// StateID keys per-traversal scratch state. Each traits instance that needs
// bookkeeping during a traversal allocates its own id once, at construction.
type StateID uint64

var lastStateID atomic.Uint64

// NewStateID returns a process-unique StateID.
func NewStateID() StateID {
	return StateID(lastStateID.Add(1))
}

// Context is implemented by every traversal context.
//
// A context lives for exactly one top-level call and must not be shared
// between goroutines.
type Context interface {
	// Enqueue defers fn until the current depth-first pass has returned
	// to the driver.
	Enqueue(fn func())

	// RunQueue drains deferred work in FIFO order, including work
	// enqueued while draining.
	RunQueue()

	// Fail records err as the traversal's error. Only the first error is
	// kept; once set, RunQueue stops draining.
	Fail(err error)

	// Err returns the first recorded error.
	Err() error

	base() *traversal
}

// traversal is the state shared by all contexts: a scratch map, a FIFO
// queue of deferred actions and a sticky error.
type traversal struct {
	scratch map[StateID]any
	queue   []func()
	err     error
}

func (t *traversal) base() *traversal { return t }

// Enqueue implements Context.
func (t *traversal) Enqueue(fn func()) {
	t.queue = append(t.queue, fn)
}

// RunQueue implements Context.
func (t *traversal) RunQueue() {
	for t.err == nil {
		fn, ok := t.dequeue()
		if !ok {
			return
		}
		fn()
	}
	t.queue = nil
}

func (t *traversal) dequeue() (func(), bool) {
	if len(t.queue) == 0 {
		return nil, false
	}
	fn := t.queue[0]
	// Release the closure so the backing array does not pin captured
	// payloads for the rest of the traversal.
	t.queue[0] = nil
	if len(t.queue) == 1 {
		t.queue = t.queue[:0]
	} else {
		t.queue = t.queue[1:]
	}
	return fn, true
}

// Fail implements Context.
func (t *traversal) Fail(err error) {
	if t.err == nil && err != nil {
		t.err = err
	}
}

// Err implements Context.
func (t *traversal) Err() error {
	return t.err
}

// State returns the scratch value stored under id in ctx, creating it with
// create on first use. Scratch values never outlive the context.
func State[S any](ctx Context, id StateID, create func() S) S {
	t := ctx.base()
	if v, ok := t.scratch[id]; ok {
		return v.(S)
	}
	if t.scratch == nil {
		t.scratch = make(map[StateID]any)
	}
	v := create()
	t.scratch[id] = v
	return v
}
