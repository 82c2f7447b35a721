package transcriber

import (
	"context"
	"fmt"
	"sync"
)

type FakeTranscriber struct {
	text string
	err  error
	lang string

	mu       sync.Mutex
	sessions int
	last     *fakeSession
}

func NewFake(text string, err error) *FakeTranscriber {
	return &FakeTranscriber{text: text, err: err}
}

func (f *FakeTranscriber) Name() string            { return "fake" }
func (f *FakeTranscriber) SetLanguage(lang string) { f.lang = lang }
func (f *FakeTranscriber) GetLanguage() string     { return f.lang }

func (f *FakeTranscriber) Sessions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions
}

// LastDiscarded reports whether the most recent session was torn down
// without an upload.
func (f *FakeTranscriber) LastDiscarded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last == nil {
		return false
	}
	f.last.mu.Lock()
	defer f.last.mu.Unlock()
	return f.last.discarded
}

func (f *FakeTranscriber) NewSession(_ context.Context, _ SessionConfig) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions++
	s := &fakeSession{text: f.text, err: f.err}
	f.last = s
	return s, nil
}

type fakeSession struct {
	text string
	err  error

	mu        sync.Mutex
	fed       int
	discarded bool
}

func (s *fakeSession) Feed(pcm []byte) {
	s.mu.Lock()
	s.fed += len(pcm)
	s.mu.Unlock()
}

func (s *fakeSession) Discard() {
	s.mu.Lock()
	s.discarded = true
	s.mu.Unlock()
}

func (s *fakeSession) Close() (SessionResult, error) {
	if s.err != nil {
		return SessionResult{}, fmt.Errorf("fake transcriber error: %w", s.err)
	}
	s.mu.Lock()
	fed := s.fed
	s.mu.Unlock()
	return SessionResult{
		Text:         s.text,
		HasText:      s.text != "",
		NoSpeech:     s.text == "",
		AudioLengthS: float64(fed) / 2 / 16000,
	}, nil
}
