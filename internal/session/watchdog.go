package session

import "time"

// KillExitCode is the process exit status after a watchdog kill.
const KillExitCode = 124

// Watchdog fires once after a fixed delay unless stopped first.
type Watchdog struct {
	timer *time.Timer
}

// ArmWatchdog schedules onFire after d.
func ArmWatchdog(d time.Duration, onFire func()) *Watchdog {
	return &Watchdog{timer: time.AfterFunc(d, onFire)}
}

// Stop disarms the watchdog. Reports false if it already fired.
func (w *Watchdog) Stop() bool {
	if w == nil || w.timer == nil {
		return true
	}
	return w.timer.Stop()
}
