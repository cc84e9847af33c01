package playback

import (
	"sync"
	"time"
)

// oneShot is a cancelable single-fire timer. Arming supersedes any
// pending shot; a superseded or canceled shot never runs its callback.
// Every arm bumps a generation counter and the fired callback checks it
// still matches before running, so a timer that fires concurrently with
// Cancel cannot act on a context that has already moved on.
type oneShot struct {
	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
	armed bool
}

// Arm schedules fn to run after d, replacing any pending shot. A
// non-positive d fires on a separate goroutine as soon as possible,
// never synchronously from Arm.
func (o *oneShot) Arm(d time.Duration, fn func()) {
	o.mu.Lock()
	o.gen++
	gen := o.gen
	if o.timer != nil {
		o.timer.Stop()
	}
	o.armed = true
	if d < 0 {
		d = 0
	}
	o.timer = time.AfterFunc(d, func() {
		o.mu.Lock()
		if o.gen != gen {
			o.mu.Unlock()
			return
		}
		o.armed = false
		o.mu.Unlock()
		fn()
	})
	o.mu.Unlock()
}

// Cancel stops any pending shot. Safe to call whether or not a shot is
// armed, and safe to call repeatedly.
func (o *oneShot) Cancel() {
	o.mu.Lock()
	o.gen++
	o.armed = false
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.mu.Unlock()
}

// Active reports whether a shot is armed and has not yet fired.
func (o *oneShot) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.armed
}
