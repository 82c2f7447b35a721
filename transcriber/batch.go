package transcriber

import (
	"encoding/binary"
	"strings"
	"sync"

	"dikta/encoder"
)

type transcribeFunc func(audio []byte) (*Result, error)

type batchSession struct {
	transcribe transcribeFunc
	encoder    encoder.Encoder
	blockChan  chan []int16
	encodeDone chan struct{}
	sampleBuf  []int16
	finished   bool
	bufMu      sync.Mutex
}

func newBatchSession(transcribe transcribeFunc) (*batchSession, error) {
	enc, err := encoder.NewFlac()
	if err != nil {
		return nil, err
	}

	bs := &batchSession{
		transcribe: transcribe,
		encoder:    enc,
		blockChan:  make(chan []int16, 64),
		encodeDone: make(chan struct{}),
	}

	go func() {
		defer close(bs.encodeDone)
		for block := range bs.blockChan {
			bs.encoder.EncodeBlock(block)
		}
	}()

	return bs, nil
}

func (bs *batchSession) Feed(pcm []byte) {
	bs.bufMu.Lock()
	defer bs.bufMu.Unlock()
	if bs.finished {
		return
	}
	for i := 0; i+1 < len(pcm); i += 2 {
		bs.sampleBuf = append(bs.sampleBuf, int16(binary.LittleEndian.Uint16(pcm[i:])))
	}
	// The sends stay under the mutex: drain closes blockChan only after it
	// has taken the lock and flipped finished, so no Feed can race the
	// close. The encode goroutine never takes the lock, so a full channel
	// still makes progress.
	for len(bs.sampleBuf) >= encoder.BlockSize {
		block := make([]int16, encoder.BlockSize)
		copy(block, bs.sampleBuf[:encoder.BlockSize])
		bs.sampleBuf = bs.sampleBuf[encoder.BlockSize:]
		bs.blockChan <- block
	}
}

// drain flushes buffered samples, stops the encode goroutine and
// finalizes the encoder. Safe to call once via Close or Discard.
func (bs *batchSession) drain() error {
	bs.bufMu.Lock()
	if bs.finished {
		bs.bufMu.Unlock()
		return nil
	}
	bs.finished = true
	if len(bs.sampleBuf) > 0 {
		partial := make([]int16, len(bs.sampleBuf))
		copy(partial, bs.sampleBuf)
		bs.blockChan <- partial
		bs.sampleBuf = nil
	}
	bs.bufMu.Unlock()

	close(bs.blockChan)
	<-bs.encodeDone
	return bs.encoder.Close()
}

func (bs *batchSession) Discard() {
	bs.drain()
}

func (bs *batchSession) Close() (SessionResult, error) {
	if err := bs.drain(); err != nil {
		return SessionResult{}, err
	}

	audioData := bs.encoder.Bytes()

	result, err := bs.transcribe(audioData)
	if err != nil {
		return SessionResult{}, err
	}

	text := strings.TrimSpace(result.Text)
	noSpeech := text == ""

	rawSize := bs.encoder.TotalFrames() * 2
	encodedSize := uint64(len(audioData))
	compressionPct := 0.0
	if rawSize > 0 {
		compressionPct = (1.0 - float64(encodedSize)/float64(rawSize)) * 100
	}

	return SessionResult{
		Text:             text,
		HasText:          !noSpeech,
		NoSpeech:         noSpeech,
		RateLimit:        result.RateLimit,
		AudioLengthS:     float64(bs.encoder.TotalFrames()) / float64(encoder.SampleRate),
		RawSizeKB:        float64(rawSize) / 1024,
		CompressedSizeKB: float64(encodedSize) / 1024,
		CompressionPct:   compressionPct,
	}, nil
}
