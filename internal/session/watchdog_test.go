package session

import (
	"testing"
	"time"
)

func TestWatchdog_Fires(t *testing.T) {
	fired := make(chan struct{})
	ArmWatchdog(5*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("watchdog did not fire")
	}
}

func TestWatchdog_StopPreventsFire(t *testing.T) {
	fired := make(chan struct{}, 1)
	w := ArmWatchdog(50*time.Millisecond, func() { fired <- struct{}{} })

	if !w.Stop() {
		t.Fatal("expected Stop to disarm a pending watchdog")
	}
	select {
	case <-fired:
		t.Error("stopped watchdog fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestState_Terminal(t *testing.T) {
	for _, s := range []State{StateCompleted, StateFailed, StateKilled} {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	if StateMatching.Terminal() {
		t.Error("Matching is not terminal")
	}
}
