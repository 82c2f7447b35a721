package audio

import (
	"math"
	"sync"
	"sync/atomic"
)

// FakeContext produces synthetic PCM for tests: a 440Hz tone delivered
// in fixed-size chunks each time Pump is called.
type FakeContext struct{}

func NewFakeContext() *FakeContext { return &FakeContext{} }

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake0", Name: "fake mic"}}, nil
}

func (f *FakeContext) NewCapture(_ *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	return &FakeCapture{sampleRate: config.SampleRate}, nil
}

func (f *FakeContext) Close() {}

type FakeCapture struct {
	sampleRate uint32
	callback   atomic.Pointer[DataCallback]

	mu      sync.Mutex
	started bool
	phase   float64
}

func (c *FakeCapture) Start() error {
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
	return nil
}

func (c *FakeCapture) Stop() {
	c.mu.Lock()
	c.started = false
	c.mu.Unlock()
}

func (c *FakeCapture) Close() {}

func (c *FakeCapture) SetCallback(cb DataCallback) {
	c.callback.Store(&cb)
}

func (c *FakeCapture) ClearCallback() {
	c.callback.Store(nil)
}

func (c *FakeCapture) DeviceName() string { return "fake mic" }

func (c *FakeCapture) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// Pump pushes frames of a 440Hz tone into the callback, as if the device
// delivered them. No-op while stopped.
func (c *FakeCapture) Pump(frames int) {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	data := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		s := int16(math.Sin(c.phase) * 16000)
		c.phase += 2 * math.Pi * 440 / float64(c.sampleRate)
		data[i*2] = byte(s)
		data[i*2+1] = byte(uint16(s) >> 8)
	}
	c.mu.Unlock()

	if cb := c.callback.Load(); cb != nil {
		(*cb)(data, uint32(frames))
	}
}
