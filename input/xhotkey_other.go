//go:build !linux

package input

import (
	"fmt"
	"sync"
	"time"

	"golang.design/x/hotkey"
)

// Off Linux only the custom-shortcut channel is available; modifier-key
// and mouse channels need raw device access that golang.design/x/hotkey
// does not expose.

func NewModifierSource(id ChannelID, identity string) (Source, error) {
	return nil, fmt.Errorf("modifier-key channel %q is only supported on linux", identity)
}

func NewMouseSource(id ChannelID) (Source, error) {
	return nil, fmt.Errorf("middle-click channel is only supported on linux")
}

type xhotkeySource struct {
	channel     Channel
	hk          *hotkey.Hotkey
	transitions chan Transition
	stop        chan struct{}
	once        sync.Once
}

var xhotkeyKeys = map[string]hotkey.Key{
	"space": hotkey.KeySpace,
	"a":     hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD,
	"e": hotkey.KeyE, "f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH,
	"i": hotkey.KeyI, "j": hotkey.KeyJ, "k": hotkey.KeyK, "l": hotkey.KeyL,
	"m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO, "p": hotkey.KeyP,
	"q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX,
	"y": hotkey.KeyY, "z": hotkey.KeyZ,
}

// NewShortcutSource registers a global shortcut through
// golang.design/x/hotkey. Ctrl and Shift are the portable modifiers.
func NewShortcutSource(id ChannelID, identity string) (Source, error) {
	spec, err := ParseShortcut(identity)
	if err != nil {
		return nil, err
	}
	if spec.Alt || spec.Meta {
		return nil, fmt.Errorf("shortcut %q: only ctrl/shift modifiers are supported on this platform", identity)
	}
	key, ok := xhotkeyKeys[spec.Key]
	if !ok {
		return nil, fmt.Errorf("shortcut key %q is not supported on this platform", spec.Key)
	}
	var mods []hotkey.Modifier
	if spec.Ctrl {
		mods = append(mods, hotkey.ModCtrl)
	}
	if spec.Shift {
		mods = append(mods, hotkey.ModShift)
	}
	return &xhotkeySource{
		channel:     Channel{ID: id, Kind: KindShortcut, Identity: identity},
		hk:          hotkey.New(mods, key),
		transitions: make(chan Transition, 8),
	}, nil
}

func (s *xhotkeySource) Register() error {
	if err := s.hk.Register(); err != nil {
		return err
	}
	s.stop = make(chan struct{})
	go func() {
		for {
			select {
			case <-s.stop:
				return
			case <-s.hk.Keydown():
				s.emit(true)
			case <-s.hk.Keyup():
				s.emit(false)
			}
		}
	}()
	return nil
}

func (s *xhotkeySource) emit(pressed bool) {
	t := Transition{Channel: s.channel, Pressed: pressed, At: time.Now()}
	select {
	case s.transitions <- t:
	case <-s.stop:
	}
}

func (s *xhotkeySource) Unregister() {
	s.once.Do(func() {
		if s.stop != nil {
			close(s.stop)
		}
		s.hk.Unregister()
	})
}

func (s *xhotkeySource) Transitions() <-chan Transition {
	return s.transitions
}
