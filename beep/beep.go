// Package beep plays short audible cues for recording start, stop, and
// errors. All playback is best effort; failures are swallowed so a broken
// output device never blocks dictation.
package beep

var disabled bool

func Disable() { disabled = true }

const (
	sampleRate = 44100

	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	endFreq   = 900
	endVolume = 0.5
	endDecay  = 40

	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)
