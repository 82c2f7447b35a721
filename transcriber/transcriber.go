// Package transcriber turns captured audio into text through the Groq
// speech API. Audio is FLAC-encoded concurrently while the recording is
// still in progress, then uploaded in one batch when the session closes.
package transcriber

import (
	"context"
	"fmt"
	"net/http"
	"os"
)

type Result struct {
	Text         string
	RateLimit    string // "remaining/limit" or "?/?"
	NoSpeechProb float64
	AvgLogProb   float64
	Duration     float64
}

type SessionConfig struct {
	Language string
}

type SessionResult struct {
	Text             string
	HasText          bool
	NoSpeech         bool
	RateLimit        string
	AudioLengthS     float64
	RawSizeKB        float64
	CompressedSizeKB float64
	CompressionPct   float64
}

// Session accumulates PCM for one recording. Feed may be called from the
// audio callback goroutine; Close flushes, uploads and returns the text.
// Discard tears the session down without uploading anything.
type Session interface {
	Feed(pcm []byte)
	Close() (SessionResult, error)
	Discard()
}

type Transcriber interface {
	Name() string
	SetLanguage(lang string)
	GetLanguage() string
	NewSession(ctx context.Context, cfg SessionConfig) (Session, error)
}

func New() (Transcriber, error) {
	key := os.Getenv("GROQ_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("set GROQ_API_KEY environment variable")
	}
	return NewGroq(key), nil
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}
