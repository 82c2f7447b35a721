// Package coordinator translates debounced press/release transitions from
// the configured input channels into ordered, idempotent recording
// commands against the session controller.
//
// Several channels deliver events concurrently; every piece of state
// shared across them (the starter claim, the double-tap window, the stop
// gate) is mutated under one mutex, and all controller calls go through a
// single dispatch goroutine so commands reach the controller in decision
// order without blocking the delivery goroutines.
package coordinator

import (
	"context"
	"sync"
	"time"

	"dikta/controller"
	"dikta/input"
	"dikta/log"
)

const (
	// DefaultBriefPress separates hands-free taps from push-to-talk
	// holds. A hold of exactly this duration counts as push-to-talk.
	DefaultBriefPress = 1700 * time.Millisecond
	// DefaultDoubleTap is how long after a stop a new press is
	// reinterpreted as paste-and-confirm.
	DefaultDoubleTap = time.Second
	// DefaultCooldown is the refractory period absorbing key-repeat on
	// custom-shortcut channels.
	DefaultCooldown = 500 * time.Millisecond
)

type Config struct {
	BriefPress time.Duration
	DoubleTap  time.Duration
	Cooldown   time.Duration
}

func (c Config) withDefaults() Config {
	if c.BriefPress == 0 {
		c.BriefPress = DefaultBriefPress
	}
	if c.DoubleTap == 0 {
		c.DoubleTap = DefaultDoubleTap
	}
	if c.Cooldown == 0 {
		c.Cooldown = DefaultCooldown
	}
	return c
}

// pressSession tracks one in-flight press on one channel, created on a
// forwarded press and destroyed on its release.
type pressSession struct {
	channel  input.ChannelID
	start    time.Time
	starter  bool // this press started the active recording
	consumed bool // eaten by double-tap; its release is inert
}

type dispatch struct {
	cmd     Command
	channel input.ChannelID
	at      time.Time
}

// Coordinator is the single owner of cross-channel recording state.
type Coordinator struct {
	cfg  Config
	ctrl controller.Controller

	mu          sync.Mutex
	closed      bool
	starter     input.ChannelID // channel owning the active recording, "" if none
	stopPending bool            // a stop/cancel command is in flight
	presses     map[input.ChannelID]*pressSession
	lastStop    time.Time // zero while the double-tap window is unarmed
	cooldowns   map[input.ChannelID]time.Time

	cmds chan dispatch
	done chan struct{}
}

func New(ctrl controller.Controller, cfg Config) *Coordinator {
	c := &Coordinator{
		cfg:       cfg.withDefaults(),
		ctrl:      ctrl,
		presses:   make(map[input.ChannelID]*pressSession),
		cooldowns: make(map[input.ChannelID]time.Time),
		cmds:      make(chan dispatch, 8),
		done:      make(chan struct{}),
	}
	go c.dispatchLoop()
	return c
}

// HandleTransition consumes one forwarded press or release. Safe for
// concurrent use from multiple channel goroutines; events on a single
// channel must arrive in delivery order.
func (c *Coordinator) HandleTransition(t input.Transition) {
	if t.Pressed {
		c.press(t)
	} else {
		c.release(t)
	}
}

func (c *Coordinator) press(t input.Transition) {
	ch := t.Channel.ID
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	// Key-repeat guard: discrete shortcut channels can deliver duplicate
	// down events for a single held key.
	if t.Channel.Kind == input.KindShortcut {
		if last, ok := c.cooldowns[ch]; ok && t.At.Sub(last) < c.cfg.Cooldown {
			log.Suppressed("cooldown", string(ch))
			return
		}
		c.cooldowns[ch] = t.At
	}

	// Double-tap wins over every other branch, busy checks included: the
	// decision keys off the last logical stop, not controller state,
	// which can lag the physical event.
	if !c.lastStop.IsZero() && t.At.Sub(c.lastStop) <= c.cfg.DoubleTap {
		c.lastStop = time.Time{}
		c.presses[ch] = &pressSession{channel: ch, start: t.At, consumed: true}
		c.enqueue(dispatch{cmd: CmdDoubleTapSend, channel: ch, at: t.At})
		return
	}

	switch state := c.ctrl.State(); state {
	case controller.StateIdle:
		if c.starter != "" {
			// Another channel already claimed the start; this press is
			// inert for its whole gesture.
			c.presses[ch] = &pressSession{channel: ch, start: t.At}
			log.Suppressed("start_claimed", string(ch))
			return
		}
		c.starter = ch
		c.presses[ch] = &pressSession{channel: ch, start: t.At, starter: true}
		c.enqueue(dispatch{cmd: CmdStart, channel: ch, at: t.At})

	case controller.StateRecording:
		c.presses[ch] = &pressSession{channel: ch, start: t.At}
		if c.stopPending {
			log.Suppressed("stop_pending", string(ch))
			return
		}
		// Explicit stop of a hands-free recording, possibly from a
		// different channel than the one that started it. The starting
		// press, if still held, loses its claim here so its eventual
		// release cannot stop a recording it did not start.
		if owner := c.presses[c.starter]; owner != nil {
			owner.starter = false
		}
		c.stopPending = true
		c.starter = ""
		c.lastStop = t.At
		c.enqueue(dispatch{cmd: CmdStopHandsFree, channel: ch, at: t.At})

	default:
		// transcribing/enhancing/busy: dropped, never queued.
		c.presses[ch] = &pressSession{channel: ch, start: t.At}
		log.Suppressed("busy_"+state.String(), string(ch))
	}
}

func (c *Coordinator) release(t input.Transition) {
	ch := t.Channel.ID
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	ps := c.presses[ch]
	delete(c.presses, ch)
	if ps == nil {
		// Stale release: no forwarded press preceded it this gesture.
		return
	}
	if ps.consumed || !ps.starter {
		return
	}

	held := t.At.Sub(ps.start)
	if held < c.cfg.BriefPress {
		// Hands-free: recording continues after release; ownership stays
		// with this channel until an explicit stop gesture.
		log.HandsFree(string(ch), held)
		return
	}

	// Sustained hold: push-to-talk, stop now.
	if c.stopPending || c.ctrl.State() != controller.StateRecording {
		// The recording already ended (or never started); surrender
		// ownership so the next gesture starts clean.
		if c.starter == ch {
			c.starter = ""
		}
		return
	}
	c.stopPending = true
	c.starter = ""
	c.lastStop = t.At
	c.enqueue(dispatch{cmd: CmdStopPushToTalk, channel: ch, at: t.At})
}

// Cancel aborts the active recording without pasting. Driven by the UI's
// double-Escape gesture.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.stopPending || c.ctrl.State() != controller.StateRecording {
		log.Suppressed("cancel_not_recording", "ui")
		return
	}
	if owner := c.presses[c.starter]; owner != nil {
		owner.starter = false
	}
	c.stopPending = true
	c.starter = ""
	c.enqueue(dispatch{cmd: CmdCancel, at: time.Now()})
}

// enqueue hands a command to the dispatch goroutine. Called with mu held;
// it must not block, so an overfull queue drops the command and rolls the
// optimistic bookkeeping back. A dropped gesture is simply lost.
func (c *Coordinator) enqueue(d dispatch) {
	select {
	case c.cmds <- d:
	default:
		log.Suppressed("queue_full", string(d.channel))
		switch d.cmd {
		case CmdStart:
			c.starter = ""
			if ps := c.presses[d.channel]; ps != nil {
				ps.starter = false
			}
		case CmdStopPushToTalk, CmdStopHandsFree:
			c.stopPending = false
			if c.lastStop.Equal(d.at) {
				c.lastStop = time.Time{}
			}
		case CmdCancel:
			c.stopPending = false
		}
	}
}

// dispatchLoop is the only caller into the controller. Commands execute
// in decision order; completion bookkeeping runs here so delivery
// goroutines never wait on the controller.
func (c *Coordinator) dispatchLoop() {
	defer close(c.done)
	for d := range c.cmds {
		switch d.cmd {
		case CmdStart:
			err := c.ctrl.Toggle(context.Background())
			c.mu.Lock()
			if err != nil {
				// A claim must not outlive a failed start.
				if c.starter == d.channel {
					c.starter = ""
				}
				if ps := c.presses[d.channel]; ps != nil {
					ps.starter = false
				}
				log.CommandFailed(d.cmd.String(), string(d.channel), err)
			} else {
				log.Command(d.cmd.String(), string(d.channel))
			}
			c.mu.Unlock()

		case CmdStopPushToTalk, CmdStopHandsFree:
			err := c.ctrl.Toggle(context.Background())
			c.mu.Lock()
			c.stopPending = false
			if err != nil {
				// A failed stop must not arm the double-tap window.
				if c.lastStop.Equal(d.at) {
					c.lastStop = time.Time{}
				}
				log.CommandFailed(d.cmd.String(), string(d.channel), err)
			} else {
				log.Command(d.cmd.String(), string(d.channel))
			}
			c.mu.Unlock()

		case CmdCancel:
			err := c.ctrl.Cancel(context.Background())
			c.mu.Lock()
			c.stopPending = false
			c.mu.Unlock()
			if err != nil {
				log.CommandFailed(d.cmd.String(), string(d.channel), err)
			} else {
				log.Command(d.cmd.String(), string(d.channel))
			}

		case CmdDoubleTapSend:
			c.ctrl.MarkPendingSend()
			log.Command(d.cmd.String(), string(d.channel))
		}
	}
}

// Close stops the dispatch goroutine. Transitions arriving afterwards are
// dropped.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	close(c.cmds)
	<-c.done
}
