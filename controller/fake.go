package controller

import (
	"context"
	"sync"
)

// Call is one recorded operation on the fake: "toggle", "cancel", "send".
type Call struct {
	Op  string
	Err error
}

// Fake is a scriptable controller for coordinator tests. Toggle flips
// idle <-> recording like the real one; other states are set directly.
type Fake struct {
	mu        sync.Mutex
	state     State
	toggleErr error
	cancelErr error
	calls     chan Call
}

func NewFake() *Fake {
	return &Fake{
		state: StateIdle,
		calls: make(chan Call, 16),
	}
}

func (f *Fake) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// SetState forces the externally-owned state, e.g. transcribing.
func (f *Fake) SetState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

// FailNextToggle makes the next Toggle call return err without a state
// change.
func (f *Fake) FailNextToggle(err error) {
	f.mu.Lock()
	f.toggleErr = err
	f.mu.Unlock()
}

func (f *Fake) Toggle(_ context.Context) error {
	f.mu.Lock()
	err := f.toggleErr
	f.toggleErr = nil
	if err == nil {
		switch f.state {
		case StateIdle:
			f.state = StateRecording
		case StateRecording:
			f.state = StateIdle
		}
	}
	f.mu.Unlock()
	f.calls <- Call{Op: "toggle", Err: err}
	return err
}

func (f *Fake) Cancel(_ context.Context) error {
	f.mu.Lock()
	err := f.cancelErr
	f.cancelErr = nil
	if err == nil && f.state == StateRecording {
		f.state = StateIdle
	}
	f.mu.Unlock()
	f.calls <- Call{Op: "cancel", Err: err}
	return err
}

func (f *Fake) MarkPendingSend() {
	f.calls <- Call{Op: "send"}
}

// Calls exposes the recorded operations in order.
func (f *Fake) Calls() <-chan Call {
	return f.calls
}
