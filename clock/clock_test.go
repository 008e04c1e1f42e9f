package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNowInitializesOnFirstUse(t *testing.T) {
	c := &Clock{}
	assert.False(t, c.started)
	tt := c.Now()
	assert.True(t, c.started)
	assert.WithinDuration(t, time.Now().UTC(), tt.Time(), time.Second)
}

func TestSetSessionStartPinsNow(t *testing.T) {
	c := &Clock{}
	start := time.Date(2030, 5, 17, 12, 0, 0, 0, time.UTC)
	c.SetSessionStart(start)

	got := c.Now()
	assert.WithinDuration(t, start, got.Time(), 50*time.Millisecond)
}

func TestSetSessionStartAdvancesWithRealTime(t *testing.T) {
	c := &Clock{}
	start := time.Date(2030, 5, 17, 12, 0, 0, 0, time.UTC)
	c.SetSessionStart(start)

	time.Sleep(10 * time.Millisecond)
	got := c.Now()
	assert.True(t, got.Time().After(start))
}

func TestSetSessionStartClampsToNTPEpoch(t *testing.T) {
	c := &Clock{}
	c.SetSessionStart(time.Date(1800, 1, 1, 0, 0, 0, 0, time.UTC))
	got := c.Now()
	assert.WithinDuration(t, minSessionStart, got.Time(), 50*time.Millisecond)
}

func TestAfterSecondsAddsDuration(t *testing.T) {
	c := &Clock{}
	start := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	c.SetSessionStart(start)

	tt := c.AfterSeconds(5)
	assert.WithinDuration(t, start.Add(5*time.Second), tt.Time(), 50*time.Millisecond)
}

func TestRestartRepinsBase(t *testing.T) {
	c := &Clock{}
	c.SetSessionStart(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))

	c.Restart()
	got := c.Now()
	assert.WithinDuration(t, time.Now().UTC(), got.Time(), time.Second)
}

func TestPackageLevelGlobalClock(t *testing.T) {
	start := time.Date(2031, 6, 1, 0, 0, 0, 0, time.UTC)
	SetSessionStart(start)
	defer Restart()

	got := Now()
	assert.WithinDuration(t, start, got.Time(), 50*time.Millisecond)
}
