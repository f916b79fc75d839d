// services/hal/timerutil.go
package hal

import "time"

// resetTimer stops, drains, and re-arms a timer. Negative durations fire
// immediately.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		drainTimer(t)
	}
	if d < 0 {
		d = 0
	}
	t.Reset(d)
}

func drainTimer(t *time.Timer) {
	select {
	case <-t.C:
	default:
	}
}
