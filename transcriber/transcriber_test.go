package transcriber

import (
	"encoding/binary"
	"net/http"
	"strings"
	"testing"

	"dikta/encoder"
)

func TestFirstNonEmpty(t *testing.T) {
	h := http.Header{}
	h.Set("X-Rate-Limit", "100")

	if got := firstNonEmpty(h, "X-Missing", "X-Rate-Limit"); got != "100" {
		t.Errorf("got %q, want %q", got, "100")
	}
	if got := firstNonEmpty(h, "X-A", "X-B"); got != "?" {
		t.Errorf("got %q, want %q", got, "?")
	}
}

func TestBatchSessionFeedAndClose(t *testing.T) {
	var uploaded []byte
	fakeFn := func(audio []byte) (*Result, error) {
		uploaded = audio
		return &Result{Text: "hello world", RateLimit: "99/100"}, nil
	}

	bs, err := newBatchSession(fakeFn)
	if err != nil {
		t.Fatalf("newBatchSession: %v", err)
	}

	nSamples := encoder.BlockSize + encoder.BlockSize/2
	pcm := make([]byte, nSamples*2)
	for i := 0; i < nSamples; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(i%1000))
	}

	bs.Feed(pcm)

	result, err := bs.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if result.Text != "hello world" {
		t.Errorf("Text = %q, want %q", result.Text, "hello world")
	}
	if !result.HasText {
		t.Error("HasText should be true")
	}
	if result.AudioLengthS <= 0 {
		t.Error("AudioLengthS should be positive")
	}
	if result.RateLimit != "99/100" {
		t.Errorf("RateLimit = %q", result.RateLimit)
	}
	if len(uploaded) < 4 || string(uploaded[:4]) != "fLaC" {
		t.Error("uploaded audio is not FLAC")
	}
}

func TestBatchSessionFeedRacingDiscard(t *testing.T) {
	fakeFn := func(audio []byte) (*Result, error) {
		return &Result{}, nil
	}

	pcm := make([]byte, encoder.BlockSize*2)
	for i := 0; i < 50; i++ {
		bs, err := newBatchSession(fakeFn)
		if err != nil {
			t.Fatalf("newBatchSession: %v", err)
		}

		feeding := make(chan struct{})
		go func() {
			defer close(feeding)
			for j := 0; j < 20; j++ {
				bs.Feed(pcm)
			}
		}()

		bs.Discard()
		<-feeding

		// Feeds after teardown land on a finalized session and must be
		// dropped, not panic.
		bs.Feed(pcm)
	}
}

func TestBatchSessionNoSpeech(t *testing.T) {
	fakeFn := func(audio []byte) (*Result, error) {
		return &Result{Text: "   "}, nil
	}

	bs, err := newBatchSession(fakeFn)
	if err != nil {
		t.Fatalf("newBatchSession: %v", err)
	}

	result, err := bs.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if result.HasText {
		t.Error("whitespace-only text should report NoSpeech")
	}
	if !result.NoSpeech {
		t.Error("NoSpeech should be true")
	}
}

func TestBatchSessionTrimsText(t *testing.T) {
	fakeFn := func(audio []byte) (*Result, error) {
		return &Result{Text: "  trimmed  "}, nil
	}

	bs, err := newBatchSession(fakeFn)
	if err != nil {
		t.Fatalf("newBatchSession: %v", err)
	}

	result, err := bs.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if result.Text != "trimmed" || strings.Contains(result.Text, " ") {
		t.Errorf("Text = %q, want trimmed", result.Text)
	}
}
