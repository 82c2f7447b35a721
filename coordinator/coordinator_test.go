package coordinator

import (
	"errors"
	"testing"
	"time"

	"dikta/controller"
	"dikta/input"
)

var (
	chPrimary   = input.Channel{ID: input.ChannelPrimary, Kind: input.KindModifier, Identity: "rightctrl"}
	chSecondary = input.Channel{ID: input.ChannelSecondary, Kind: input.KindModifier, Identity: "rightalt"}
	chShortcut  = input.Channel{ID: input.ChannelShortcut, Kind: input.KindShortcut, Identity: "ctrl+shift+space"}
)

func newTestCoordinator(t *testing.T) (*Coordinator, *controller.Fake) {
	t.Helper()
	fake := controller.NewFake()
	c := New(fake, Config{})
	t.Cleanup(c.Close)
	return c, fake
}

func press(c *Coordinator, ch input.Channel, at time.Time) {
	c.HandleTransition(input.Transition{Channel: ch, Pressed: true, At: at})
}

func release(c *Coordinator, ch input.Channel, at time.Time) {
	c.HandleTransition(input.Transition{Channel: ch, Pressed: false, At: at})
}

func waitCall(t *testing.T, fake *controller.Fake, op string) controller.Call {
	t.Helper()
	select {
	case call := <-fake.Calls():
		if call.Op != op {
			t.Fatalf("got controller call %q, want %q", call.Op, op)
		}
		return call
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for controller call %q", op)
		return controller.Call{}
	}
}

func expectNoCall(t *testing.T, fake *controller.Fake) {
	t.Helper()
	select {
	case call := <-fake.Calls():
		t.Fatalf("unexpected controller call %q", call.Op)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMutualExclusion(t *testing.T) {
	c, fake := newTestCoordinator(t)
	t0 := time.Now()

	// Both channels press at the same instant; exactly one start.
	press(c, chPrimary, t0)
	press(c, chSecondary, t0)
	waitCall(t, fake, "toggle")
	expectNoCall(t, fake)

	// The loser's release is inert even after a sustained hold.
	release(c, chSecondary, t0.Add(2*time.Second))
	expectNoCall(t, fake)

	// The winner's release performs the push-to-talk stop.
	release(c, chPrimary, t0.Add(2*time.Second))
	waitCall(t, fake, "toggle")
}

func TestBriefPressGoesHandsFree(t *testing.T) {
	c, fake := newTestCoordinator(t)
	t0 := time.Now()

	press(c, chPrimary, t0)
	waitCall(t, fake, "toggle")

	// Released before the threshold: recording keeps going.
	release(c, chPrimary, t0.Add(500*time.Millisecond))
	expectNoCall(t, fake)

	if got := fake.State(); got != controller.StateRecording {
		t.Fatalf("state after hands-free release = %v, want recording", got)
	}
}

func TestSustainedPressStopsOnRelease(t *testing.T) {
	c, fake := newTestCoordinator(t)
	t0 := time.Now()

	press(c, chPrimary, t0)
	waitCall(t, fake, "toggle")

	release(c, chPrimary, t0.Add(2*time.Second))
	waitCall(t, fake, "toggle")

	if got := fake.State(); got != controller.StateIdle {
		t.Fatalf("state after push-to-talk release = %v, want idle", got)
	}
}

func TestThresholdBoundaryIsPushToTalk(t *testing.T) {
	c, fake := newTestCoordinator(t)
	t0 := time.Now()

	press(c, chPrimary, t0)
	waitCall(t, fake, "toggle")

	// Exactly 1.7s held counts as sustained.
	release(c, chPrimary, t0.Add(DefaultBriefPress))
	waitCall(t, fake, "toggle")
}

// stopRecording drives a full press/hold/release cycle and returns the
// stop timestamp.
func stopRecording(t *testing.T, c *Coordinator, fake *controller.Fake, t0 time.Time) time.Time {
	t.Helper()
	press(c, chPrimary, t0)
	waitCall(t, fake, "toggle")
	stopAt := t0.Add(2 * time.Second)
	release(c, chPrimary, stopAt)
	waitCall(t, fake, "toggle")
	return stopAt
}

func TestDoubleTapWithinWindow(t *testing.T) {
	c, fake := newTestCoordinator(t)
	stopAt := stopRecording(t, c, fake, time.Now())

	tap := stopAt.Add(999 * time.Millisecond)
	press(c, chPrimary, tap)
	waitCall(t, fake, "send")

	// The consumed press's release is a no-op.
	release(c, chPrimary, tap.Add(100*time.Millisecond))
	expectNoCall(t, fake)

	// Window cleared on consumption: a third rapid press starts normally.
	press(c, chPrimary, tap.Add(300*time.Millisecond))
	waitCall(t, fake, "toggle")
}

func TestDoubleTapOutsideWindow(t *testing.T) {
	c, fake := newTestCoordinator(t)
	stopAt := stopRecording(t, c, fake, time.Now())

	press(c, chPrimary, stopAt.Add(1001*time.Millisecond))
	waitCall(t, fake, "toggle") // normal start, not a send
}

func TestDoubleTapBypassesBusyState(t *testing.T) {
	c, fake := newTestCoordinator(t)
	stopAt := stopRecording(t, c, fake, time.Now())

	// Controller already moved on to transcribing; the double-tap still
	// fires because it keys off the last logical stop.
	fake.SetState(controller.StateTranscribing)
	press(c, chPrimary, stopAt.Add(800*time.Millisecond))
	waitCall(t, fake, "send")
}

func TestShortcutCooldown(t *testing.T) {
	c, fake := newTestCoordinator(t)
	t0 := time.Now()

	press(c, chShortcut, t0)
	waitCall(t, fake, "toggle")

	// Key-repeat 0.2s later is dropped entirely.
	press(c, chShortcut, t0.Add(200*time.Millisecond))
	expectNoCall(t, fake)

	// 0.6s later is a second accepted trigger: it stops the recording.
	press(c, chShortcut, t0.Add(600*time.Millisecond))
	waitCall(t, fake, "toggle")
}

func TestBusyStateSuppressesEverything(t *testing.T) {
	c, fake := newTestCoordinator(t)
	fake.SetState(controller.StateTranscribing)

	t0 := time.Now()
	press(c, chPrimary, t0)
	release(c, chPrimary, t0.Add(2*time.Second))
	press(c, chShortcut, t0.Add(3*time.Second))
	expectNoCall(t, fake)
}

func TestHandsFreeStoppedByNextPress(t *testing.T) {
	c, fake := newTestCoordinator(t)
	t0 := time.Now()

	press(c, chPrimary, t0)
	waitCall(t, fake, "toggle")
	release(c, chPrimary, t0.Add(500*time.Millisecond))
	expectNoCall(t, fake)

	// No stop has happened yet, so a press 300ms after the hands-free
	// release is a normal stop, not a double-tap.
	press(c, chPrimary, t0.Add(800*time.Millisecond))
	waitCall(t, fake, "toggle")

	// That stopping press did not start anything; its release is inert.
	release(c, chPrimary, t0.Add(900*time.Millisecond))
	expectNoCall(t, fake)
}

func TestCrossChannelHandsFreeStop(t *testing.T) {
	c, fake := newTestCoordinator(t)
	t0 := time.Now()

	press(c, chPrimary, t0)
	waitCall(t, fake, "toggle")
	release(c, chPrimary, t0.Add(300*time.Millisecond))

	// A different channel may deliver the explicit stop.
	press(c, chSecondary, t0.Add(5*time.Second))
	waitCall(t, fake, "toggle")
	release(c, chSecondary, t0.Add(5100*time.Millisecond))
	expectNoCall(t, fake)
}

func TestHeldStarterLosesClaimOnCrossChannelStop(t *testing.T) {
	c, fake := newTestCoordinator(t)
	t0 := time.Now()

	// Primary starts and stays held for the whole test.
	press(c, chPrimary, t0)
	waitCall(t, fake, "toggle")

	// Secondary stops the recording while primary is still down.
	press(c, chSecondary, t0.Add(3*time.Second))
	waitCall(t, fake, "toggle")
	release(c, chSecondary, t0.Add(3300*time.Millisecond))

	// Secondary starts a fresh recording outside the double-tap window.
	press(c, chSecondary, t0.Add(4200*time.Millisecond))
	waitCall(t, fake, "toggle")

	// Primary's claim died with the stopped recording; its release must
	// not touch the one it never started.
	release(c, chPrimary, t0.Add(5*time.Second))
	expectNoCall(t, fake)
	if got := fake.State(); got != controller.StateRecording {
		t.Fatalf("state after stale release = %v, want recording", got)
	}
}

func TestHeldStarterLosesClaimOnCancel(t *testing.T) {
	c, fake := newTestCoordinator(t)
	t0 := time.Now()

	press(c, chPrimary, t0)
	waitCall(t, fake, "toggle")

	c.Cancel()
	waitCall(t, fake, "cancel")

	// Another channel records while primary is still down.
	press(c, chSecondary, t0.Add(2*time.Second))
	waitCall(t, fake, "toggle")

	release(c, chPrimary, t0.Add(4*time.Second))
	expectNoCall(t, fake)
	if got := fake.State(); got != controller.StateRecording {
		t.Fatalf("state after stale release = %v, want recording", got)
	}
}

func TestStaleReleaseIsNoOp(t *testing.T) {
	c, fake := newTestCoordinator(t)
	release(c, chPrimary, time.Now())
	expectNoCall(t, fake)
}

func TestStartFailureReleasesClaim(t *testing.T) {
	c, fake := newTestCoordinator(t)
	t0 := time.Now()

	fake.FailNextToggle(errors.New("device busy"))
	press(c, chPrimary, t0)
	waitCall(t, fake, "toggle")
	time.Sleep(20 * time.Millisecond) // let the failure bookkeeping land

	// The failed press's release does nothing.
	release(c, chPrimary, t0.Add(2*time.Second))
	expectNoCall(t, fake)

	// The claim was surrendered; the next gesture starts clean.
	press(c, chPrimary, t0.Add(3*time.Second))
	waitCall(t, fake, "toggle")
	if got := fake.State(); got != controller.StateRecording {
		t.Fatalf("state after recovered start = %v, want recording", got)
	}
}

func TestStopFailureDisarmsDoubleTap(t *testing.T) {
	c, fake := newTestCoordinator(t)
	t0 := time.Now()

	press(c, chPrimary, t0)
	waitCall(t, fake, "toggle")

	fake.FailNextToggle(errors.New("flush failed"))
	release(c, chPrimary, t0.Add(2*time.Second))
	waitCall(t, fake, "toggle")
	time.Sleep(20 * time.Millisecond)

	// Still recording, and the failed stop must not arm the window: the
	// next press is a fresh stop attempt, not a double-tap send.
	press(c, chPrimary, t0.Add(2500*time.Millisecond))
	waitCall(t, fake, "toggle")
	if got := fake.State(); got != controller.StateIdle {
		t.Fatalf("state after retried stop = %v, want idle", got)
	}
}

func TestCancel(t *testing.T) {
	c, fake := newTestCoordinator(t)
	t0 := time.Now()

	press(c, chPrimary, t0)
	waitCall(t, fake, "toggle")

	c.Cancel()
	waitCall(t, fake, "cancel")

	// Cancel does not arm the double-tap window.
	press(c, chPrimary, t0.Add(200*time.Millisecond))
	waitCall(t, fake, "toggle")
}

func TestCancelWhileIdleIsNoOp(t *testing.T) {
	c, fake := newTestCoordinator(t)
	c.Cancel()
	expectNoCall(t, fake)
}
