// Package session owns the recording lifecycle: it starts and stops audio
// capture, hands PCM to the transcriber, and delivers the resulting text
// to the clipboard and the focused window. It is the concrete controller
// behind the input coordinator.
package session

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"dikta/audio"
	"dikta/beep"
	"dikta/clipboard"
	"dikta/controller"
	"dikta/encoder"
	"dikta/log"
	"dikta/paste"
	"dikta/transcriber"
)

// MinRecording is the shortest capture worth uploading. Anything below is
// treated as an accidental tap and discarded.
const MinRecording = 100 * time.Millisecond

const clipboardRestoreDelay = 600 * time.Millisecond

// EventSink receives display events. Both the TUI and a headless run
// implement it.
type EventSink interface {
	RecordingStart()
	RecordingStop()
	AudioLevel(level float64)
	Transcription(text string, noSpeech bool)
	SessionError(err error)
}

type NopSink struct{}

func (NopSink) RecordingStart()            {}
func (NopSink) RecordingStop()             {}
func (NopSink) AudioLevel(float64)         {}
func (NopSink) Transcription(string, bool) {}
func (NopSink) SessionError(error)         {}

type Config struct {
	Language  string
	AutoPaste bool
}

type Session struct {
	cfg     Config
	tr      transcriber.Transcriber
	capture audio.CaptureDevice
	sink    EventSink

	mu          sync.Mutex
	state       controller.State
	active      transcriber.Session
	pendingSend bool
	lastText    string

	// Touched from the audio callback goroutine, so kept off the mutex.
	totalFrames atomic.Uint64
	feeding     atomic.Bool

	// Injection points for tests. Default to the real clipboard, paste
	// and beep implementations.
	copyText    func(string) error
	readClip    func() (string, error)
	sendPaste   func() error
	sendConfirm func() error
	playStart   func()
	playEnd     func()
	playError   func()
}

var _ controller.Controller = (*Session)(nil)

func New(tr transcriber.Transcriber, capture audio.CaptureDevice, cfg Config, sink EventSink) *Session {
	if sink == nil {
		sink = NopSink{}
	}
	return &Session{
		cfg:         cfg,
		tr:          tr,
		capture:     capture,
		sink:        sink,
		state:       controller.StateIdle,
		copyText:    clipboard.Copy,
		readClip:    clipboard.Read,
		sendPaste:   paste.Send,
		sendConfirm: paste.Confirm,
		playStart:   beep.PlayStart,
		playEnd:     beep.PlayEnd,
		playError:   beep.PlayError,
	}
}

func (s *Session) State() controller.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Toggle starts a recording when idle and stops one when recording.
// Any other state is an error; the caller decides whether that matters.
func (s *Session) Toggle(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case controller.StateIdle:
		return s.startLocked(ctx)
	case controller.StateRecording:
		return s.stopLocked()
	default:
		return fmt.Errorf("session busy: %s", s.state)
	}
}

func (s *Session) startLocked(ctx context.Context) error {
	sess, err := s.tr.NewSession(ctx, transcriber.SessionConfig{Language: s.cfg.Language})
	if err != nil {
		return fmt.Errorf("transcriber session: %w", err)
	}

	s.totalFrames.Store(0)
	s.feeding.Store(true)
	s.capture.SetCallback(func(data []byte, frameCount uint32) {
		if !s.feeding.Load() {
			return
		}
		s.totalFrames.Add(uint64(frameCount))

		if len(data) > 0 {
			pcm := make([]byte, len(data))
			copy(pcm, data)
			sess.Feed(pcm)
			s.sink.AudioLevel(rms(data))
		}
	})

	if err := s.capture.Start(); err != nil {
		s.feeding.Store(false)
		s.capture.ClearCallback()
		sess.Discard()
		return fmt.Errorf("capture start: %w", err)
	}

	s.active = sess
	s.state = controller.StateRecording
	log.Info("recording_start: " + s.capture.DeviceName())
	s.sink.RecordingStart()
	go s.playStart()
	return nil
}

func (s *Session) stopLocked() error {
	s.feeding.Store(false)
	s.capture.Stop()
	s.capture.ClearCallback()

	sess := s.active
	s.active = nil
	frames := s.totalFrames.Load()
	s.sink.RecordingStop()
	go s.playEnd()

	recorded := time.Duration(float64(frames) / encoder.SampleRate * float64(time.Second))
	if recorded < MinRecording {
		s.state = controller.StateIdle
		s.pendingSend = false
		log.Info("recording_too_short")
		go sess.Discard()
		return nil
	}

	s.state = controller.StateTranscribing
	log.Info("recording_stop")

	clipCh := make(chan string, 1)
	if s.cfg.AutoPaste {
		go func() {
			prev, _ := s.readClip()
			clipCh <- prev
		}()
	}

	go s.finish(sess, clipCh)
	return nil
}

func (s *Session) finish(sess transcriber.Session, clipCh chan string) {
	result, err := sess.Close()

	s.mu.Lock()
	pending := s.pendingSend
	s.pendingSend = false
	s.state = controller.StateIdle
	if err == nil && result.HasText {
		s.lastText = result.Text
	}
	s.mu.Unlock()

	if err != nil {
		log.Errorf("transcription error: %v", err)
		s.sink.SessionError(err)
		go s.playError()
		return
	}

	log.Transcription(s.tr.Name(), result.AudioLengthS, 0, result.RateLimit)

	if result.NoSpeech {
		log.Info("no_speech")
		s.sink.Transcription("", true)
		return
	}

	log.TranscriptionText(result.Text)

	if err := s.copyText(result.Text); err != nil {
		log.Warnf("clipboard copy failed: %v", err)
	}
	if s.cfg.AutoPaste {
		var clipPrev string
		select {
		case clipPrev = <-clipCh:
		default:
		}
		if err := s.sendPaste(); err != nil {
			log.Warnf("paste failed: %v", err)
		} else if pending {
			if err := s.sendConfirm(); err != nil {
				log.Warnf("confirm failed: %v", err)
			}
		}
		if clipPrev != "" {
			go func() {
				time.Sleep(clipboardRestoreDelay)
				s.copyText(clipPrev)
			}()
		}
	}

	s.sink.Transcription(result.Text, false)
}

// Cancel aborts an in-progress recording without uploading anything.
// A no-op outside the recording state.
func (s *Session) Cancel(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != controller.StateRecording {
		return nil
	}

	s.feeding.Store(false)
	s.capture.Stop()
	s.capture.ClearCallback()

	sess := s.active
	s.active = nil
	s.state = controller.StateIdle
	s.pendingSend = false
	log.Info("recording_cancelled")
	s.sink.RecordingStop()
	go s.playEnd()
	go sess.Discard()
	return nil
}

// MarkPendingSend arms a confirm keystroke for the transcription in
// flight. If nothing is in flight, the last transcript is pasted and
// confirmed again immediately.
func (s *Session) MarkPendingSend() {
	s.mu.Lock()

	switch s.state {
	case controller.StateRecording, controller.StateTranscribing, controller.StateEnhancing:
		s.pendingSend = true
		s.mu.Unlock()
		return
	}

	text := s.lastText
	s.mu.Unlock()

	if text == "" || !s.cfg.AutoPaste {
		return
	}
	go func() {
		if err := s.copyText(text); err != nil {
			log.Warnf("clipboard copy failed: %v", err)
			return
		}
		if err := s.sendPaste(); err != nil {
			log.Warnf("paste failed: %v", err)
			return
		}
		if err := s.sendConfirm(); err != nil {
			log.Warnf("confirm failed: %v", err)
		}
	}()
}

// LastText returns the most recent non-empty transcript.
func (s *Session) LastText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastText
}

func rms(data []byte) float64 {
	if len(data) < 2 {
		return 0
	}
	var sumSquares float64
	for i := 0; i+1 < len(data); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(data[i:]))
		normalized := float64(sample) / 32768.0
		sumSquares += normalized * normalized
	}
	return math.Sqrt(sumSquares / float64(len(data)/2))
}
