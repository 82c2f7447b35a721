// Package controller defines the recording session controller interface
// the input coordinator drives. The real implementation lives in the
// session package; tests use the in-package fake.
package controller

import "context"

// State is a snapshot of the controller's externally-owned state machine.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateTranscribing
	StateEnhancing
	StateBusy
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateTranscribing:
		return "transcribing"
	case StateEnhancing:
		return "enhancing"
	case StateBusy:
		return "busy"
	}
	return "unknown"
}

// Controller is the external recording session controller.
type Controller interface {
	// State returns a consistent snapshot; callers gate commands on it
	// together with their own bookkeeping.
	State() State
	// Toggle starts a recording when idle and stops one when recording.
	// Callers only invoke it in a compatible state.
	Toggle(ctx context.Context) error
	// Cancel tears down the active recording without pasting.
	Cancel(ctx context.Context) error
	// MarkPendingSend asks the controller to paste-and-confirm once its
	// in-flight work completes.
	MarkPendingSend()
}
