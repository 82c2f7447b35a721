package input

import (
	"fmt"
	"sync"
	"time"
)

// Kind distinguishes how a channel reports its physical signal.
type Kind int

const (
	// KindModifier is a held modifier key polled as live press/release state.
	// This is the kind known to oscillate its reported state and is the only
	// one routed through the debouncer.
	KindModifier Kind = iota
	// KindShortcut is a registered key combination delivering discrete
	// down/up events, subject to OS key-repeat.
	KindShortcut
	// KindMouse is a mouse button with live press/release state.
	KindMouse
)

func (k Kind) String() string {
	switch k {
	case KindModifier:
		return "modifier"
	case KindShortcut:
		return "shortcut"
	case KindMouse:
		return "mouse"
	}
	return "unknown"
}

// ChannelID names one configured input channel ("primary", "secondary",
// "shortcut", "mouse").
type ChannelID string

const (
	ChannelPrimary   ChannelID = "primary"
	ChannelSecondary ChannelID = "secondary"
	ChannelShortcut  ChannelID = "shortcut"
	ChannelMouse     ChannelID = "mouse"
)

// Channel identifies one input source. Immutable for the lifetime of a
// monitoring session; reconfiguration tears the Monitor down and rebuilds it.
type Channel struct {
	ID       ChannelID
	Kind     Kind
	Identity string // physical key/button name, e.g. "rightctrl", "ctrl+shift+space"
}

// Transition is one press or release observed on a channel.
type Transition struct {
	Channel Channel
	Pressed bool
	At      time.Time
}

// Source delivers transitions for a single channel. Register starts
// delivery, Unregister stops it and closes the Transitions channel.
type Source interface {
	Register() error
	Unregister()
	Transitions() <-chan Transition
}

// Handler consumes forwarded transitions. It may be called concurrently
// from different channels; events on a single channel arrive in order.
type Handler func(Transition)

// Monitor owns the configured sources for one monitoring session. It fans
// their transitions into the handler, running modifier channels through a
// debouncer and the mouse channel through an optional press-only
// activation delay.
type Monitor struct {
	handler    Handler
	settle     time.Duration
	mouseDelay time.Duration

	mu         sync.Mutex
	sources    []Source
	registered []Source
	debouncers []*Debouncer
	stop       chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

// NewMonitor creates a monitor delivering to handler. settle is the
// debounce window for modifier channels; mouseDelay is the press-only
// activation delay for the mouse channel (0 disables it).
func NewMonitor(handler Handler, settle, mouseDelay time.Duration) *Monitor {
	return &Monitor{
		handler:    handler,
		settle:     settle,
		mouseDelay: mouseDelay,
		stop:       make(chan struct{}),
	}
}

// Add appends a source. Must be called before Start.
func (m *Monitor) Add(src Source) {
	m.mu.Lock()
	m.sources = append(m.sources, src)
	m.mu.Unlock()
}

// Start registers every source and begins delivery. On error the sources
// registered so far are unregistered again.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, src := range m.sources {
		if err := src.Register(); err != nil {
			for _, r := range m.registered {
				r.Unregister()
			}
			m.registered = nil
			return fmt.Errorf("registering input source: %w", err)
		}
		m.registered = append(m.registered, src)
		m.wg.Add(1)
		go m.pump(src)
	}
	return nil
}

// pump forwards one source's transitions, one goroutine per source so a
// single channel's events stay ordered.
func (m *Monitor) pump(src Source) {
	defer m.wg.Done()
	var deb *Debouncer
	for {
		select {
		case <-m.stop:
			return
		case t, ok := <-src.Transitions():
			if !ok {
				return
			}
			if deb == nil {
				deb = m.debouncerFor(t.Channel)
			}
			if deb != nil {
				deb.Offer(t)
			} else {
				m.handler(t)
			}
		}
	}
}

func (m *Monitor) debouncerFor(ch Channel) *Debouncer {
	var d *Debouncer
	switch {
	case ch.Kind == KindModifier && m.settle > 0:
		d = NewDebouncer(m.settle, false, m.handler)
	case ch.Kind == KindMouse && m.mouseDelay > 0:
		d = NewDebouncer(m.mouseDelay, true, m.handler)
	default:
		return nil
	}
	m.mu.Lock()
	m.debouncers = append(m.debouncers, d)
	m.mu.Unlock()
	return d
}

// Stop unregisters all sources and cancels any pending debounce timers.
// Pending timers never fire after Stop returns.
func (m *Monitor) Stop() {
	m.mu.Lock()
	registered := m.registered
	m.registered = nil
	debouncers := m.debouncers
	m.debouncers = nil
	m.mu.Unlock()

	m.stopOnce.Do(func() { close(m.stop) })
	for _, src := range registered {
		src.Unregister()
	}
	m.wg.Wait()
	for _, d := range debouncers {
		d.Cancel()
	}
}
