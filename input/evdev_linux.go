//go:build linux

package input

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	evKey      = 1
	keyRelease = 0
	keyPress   = 1
	keyRepeat  = 2

	btnMiddle = 274
)

// input_event is 24 bytes on 64-bit Linux:
// timeval (16 bytes) + type (2) + code (2) + value (4)
const inputEventSize = 24

// evdevSource reads /dev/input directly. Requires the user to be in the
// 'input' group. One instance serves one channel; every matching device
// gets its own reader goroutine so a channel's own events stay ordered
// per device.
type evdevSource struct {
	channel      Channel
	keyboardOnly bool
	handle       func(s *evdevSource, state *evdevState, code uint16, value int32)

	transitions chan Transition
	files       []*os.File
	stop        chan struct{}
	once        sync.Once
}

// evdevState is per-device tracking for one reader goroutine.
type evdevState struct {
	held      map[uint16]bool
	comboDown bool
}

// anyHeld reports whether any tracked key is currently down. Modifier
// identities like "ctrl" cover both the left and right key codes, so the
// channel is down while at least one of them is.
func anyHeld(held map[uint16]bool) bool {
	for _, down := range held {
		if down {
			return true
		}
	}
	return false
}

// NewModifierSource builds a modifier-key channel (e.g. "rightctrl").
func NewModifierSource(id ChannelID, identity string) (Source, error) {
	codes, ok := ModifierKey(identity)
	if !ok {
		return nil, fmt.Errorf("unknown modifier key %q", identity)
	}
	match := make(map[uint16]bool, len(codes))
	for _, c := range codes {
		match[c] = true
	}
	s := newEvdev(Channel{ID: id, Kind: KindModifier, Identity: identity}, true)
	s.handle = func(s *evdevSource, state *evdevState, code uint16, value int32) {
		if !match[code] || value == keyRepeat {
			return
		}
		wasDown := anyHeld(state.held)
		state.held[code] = value == keyPress
		isDown := anyHeld(state.held)
		if isDown != wasDown {
			s.emit(isDown)
		}
	}
	return s, nil
}

// NewShortcutSource builds a custom-shortcut channel. Key-repeat down
// events are forwarded deliberately; the coordinator's cooldown guard
// owns suppressing them.
func NewShortcutSource(id ChannelID, identity string) (Source, error) {
	spec, err := ParseShortcut(identity)
	if err != nil {
		return nil, err
	}
	s := newEvdev(Channel{ID: id, Kind: KindShortcut, Identity: identity}, true)
	s.handle = func(s *evdevSource, state *evdevState, code uint16, value int32) {
		switch code {
		case 29, 97, 42, 54, 56, 100, 125, 126: // ctrl, shift, alt, meta
			switch value {
			case keyPress:
				state.held[code] = true
			case keyRelease:
				state.held[code] = false
			}
		case spec.KeyCode:
			mods := (!spec.Ctrl || state.held[29] || state.held[97]) &&
				(!spec.Shift || state.held[42] || state.held[54]) &&
				(!spec.Alt || state.held[56] || state.held[100]) &&
				(!spec.Meta || state.held[125] || state.held[126])
			switch {
			case (value == keyPress || value == keyRepeat) && mods:
				state.comboDown = true
				s.emit(true)
			case value == keyRelease && state.comboDown:
				state.comboDown = false
				s.emit(false)
			}
		}
	}
	return s, nil
}

// NewMouseSource builds the middle-button channel.
func NewMouseSource(id ChannelID) (Source, error) {
	s := newEvdev(Channel{ID: id, Kind: KindMouse, Identity: "middle"}, false)
	s.handle = func(s *evdevSource, state *evdevState, code uint16, value int32) {
		if code != btnMiddle || value == keyRepeat {
			return
		}
		s.emit(value == keyPress)
	}
	return s, nil
}

func newEvdev(ch Channel, keyboardOnly bool) *evdevSource {
	return &evdevSource{
		channel:      ch,
		keyboardOnly: keyboardOnly,
		transitions:  make(chan Transition, 8),
	}
}

func (s *evdevSource) Register() error {
	devices, err := findDevices(s.keyboardOnly)
	if err != nil {
		return fmt.Errorf("scanning input devices: %w", err)
	}
	if len(devices) == 0 {
		return fmt.Errorf("no input devices found for %s channel (is user in 'input' group?)", s.channel.Kind)
	}

	s.stop = make(chan struct{})

	for _, path := range devices {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		s.files = append(s.files, f)
		go s.readEvents(f)
	}

	if len(s.files) == 0 {
		return fmt.Errorf("could not open any input device (run: sudo usermod -aG input $USER, then re-login)")
	}
	return nil
}

func (s *evdevSource) readEvents(f *os.File) {
	buf := make([]byte, inputEventSize*16)
	state := &evdevState{held: make(map[uint16]bool)}

	for {
		select {
		case <-s.stop:
			return
		default:
		}

		n, err := f.Read(buf)
		if err != nil {
			return
		}

		for i := 0; i+inputEventSize <= n; i += inputEventSize {
			evType := binary.LittleEndian.Uint16(buf[i+16:])
			evCode := binary.LittleEndian.Uint16(buf[i+18:])
			evValue := int32(binary.LittleEndian.Uint32(buf[i+20:]))

			if evType != evKey {
				continue
			}
			s.handle(s, state, evCode, evValue)
		}
	}
}

func (s *evdevSource) emit(pressed bool) {
	t := Transition{Channel: s.channel, Pressed: pressed, At: time.Now()}
	select {
	case s.transitions <- t:
	case <-s.stop:
	}
}

func (s *evdevSource) Unregister() {
	s.once.Do(func() {
		if s.stop != nil {
			close(s.stop)
		}
		for _, f := range s.files {
			f.Close()
		}
	})
}

func (s *evdevSource) Transitions() <-chan Transition {
	return s.transitions
}

func findDevices(keyboardOnly bool) ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}

	var devices []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		if keyboardOnly && !isKeyboard(e.Name()) {
			continue
		}
		if !keyboardOnly && !hasKeyCapability(e.Name()) {
			continue
		}
		devices = append(devices, filepath.Join("/dev/input", e.Name()))
	}
	return devices, nil
}

func isKeyboard(eventName string) bool {
	caps, ok := keyCapabilities(eventName)
	return ok && len(caps) > 10
}

func hasKeyCapability(eventName string) bool {
	caps, ok := keyCapabilities(eventName)
	return ok && strings.Trim(caps, "0 ") != ""
}

func keyCapabilities(eventName string) (string, bool) {
	capsPath := filepath.Join("/sys/class/input", eventName, "device", "capabilities", "key")
	data, err := os.ReadFile(capsPath)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}
