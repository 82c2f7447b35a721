package input

import "time"

// FakeSource simulates one channel for tests.
type FakeSource struct {
	channel     Channel
	transitions chan Transition
}

func NewFake(ch Channel) *FakeSource {
	return &FakeSource{
		channel:     ch,
		transitions: make(chan Transition, 8),
	}
}

func (f *FakeSource) Register() error { return nil }

func (f *FakeSource) Unregister() {}

func (f *FakeSource) Transitions() <-chan Transition { return f.transitions }

func (f *FakeSource) SimPress(at time.Time) {
	f.transitions <- Transition{Channel: f.channel, Pressed: true, At: at}
}

func (f *FakeSource) SimRelease(at time.Time) {
	f.transitions <- Transition{Channel: f.channel, Pressed: false, At: at}
}
