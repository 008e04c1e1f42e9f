// Package clock provides the process-wide monotonic "global tick" time
// service used to schedule timetag-delayed dispatch (spec §5, "Timekeeping").
package clock

import (
	"sync"
	"time"

	"github.com/vexis-audio/oscrt/osc"
)

var minSessionStart = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// Clock is a process-wide time source producing osc.Timetag values. Now()
// is computed as base plus however long has elapsed since monoStart was
// captured, so Restart/SetSessionStart actually re-pin the wall-clock
// instant every subsequent Now() is measured from, rather than merely
// recording state nothing reads. The zero Clock is ready for use: it
// initializes itself to the wall UTC time on the first Now or AfterSeconds
// call, as the package-level Global instance does.
type Clock struct {
	mu        sync.Mutex
	started   bool
	base      time.Time // wall UTC instant corresponding to monoStart
	monoStart time.Time // time.Now() reading taken when base was pinned
}

// Global is the default process-wide clock instance, mirroring the source's
// single process-wide time service.
var Global = &Clock{}

// Now returns the current global tick as a Timetag: base advanced by the
// real time elapsed since base was pinned, initializing the clock to the
// wall UTC time on first use.
func (c *Clock) Now() osc.Timetag {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureStartedLocked()
	return osc.NewTimetag(c.base.Add(time.Since(c.monoStart)))
}

// AfterSeconds returns the Timetag for d seconds from now.
func (c *Clock) AfterSeconds(d float64) osc.Timetag {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureStartedLocked()
	t := c.base.Add(time.Since(c.monoStart)).Add(time.Duration(d * float64(time.Second)))
	return osc.NewTimetag(t)
}

func (c *Clock) ensureStartedLocked() {
	if c.started {
		return
	}
	now := time.Now()
	c.base = now.UTC()
	c.monoStart = now
	c.started = true
}

// Restart re-pins the clock's base to the current wall time: the next Now()
// call reads back approximately the restart instant, and every subsequent
// one advances from there.
func (c *Clock) Restart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	c.base = now.UTC()
	c.monoStart = now
	c.started = true
}

// SetSessionStart pins the clock's base to t, clamped to no earlier than the
// NTP epoch (1900-01-01 UTC). Every Now()/AfterSeconds() call made after
// this returns a Timetag derived from t advanced by the real time elapsed
// since the call to SetSessionStart.
func (c *Clock) SetSessionStart(t time.Time) {
	if t.Before(minSessionStart) {
		t = minSessionStart
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = t.UTC()
	c.monoStart = time.Now()
	c.started = true
}

// Now returns Global.Now().
func Now() osc.Timetag { return Global.Now() }

// AfterSeconds returns Global.AfterSeconds(d).
func AfterSeconds(d float64) osc.Timetag { return Global.AfterSeconds(d) }

// Restart reinitializes Global.
func Restart() { Global.Restart() }

// SetSessionStart pins Global's base to t.
func SetSessionStart(t time.Time) { Global.SetSessionStart(t) }
