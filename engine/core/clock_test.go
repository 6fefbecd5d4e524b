package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeNow returns a controllable clock source for RunTime.
func fakeNow(start time.Time) (func() time.Time, func(time.Duration)) {
	current := start
	now := func() time.Time { return current }
	advance := func(d time.Duration) { current = current.Add(d) }
	return now, advance
}

func TestRunTimeStep(t *testing.T) {
	rt := NewRunTime()
	now, advance := fakeNow(time.Unix(1000, 0))
	rt.now = now
	rt.Reset()

	advance(16 * time.Millisecond)
	dt := rt.Step()

	assert.Equal(t, 16*time.Millisecond, dt)
	assert.Equal(t, 16*time.Millisecond, rt.Delta)
	assert.Equal(t, 16*time.Millisecond, rt.Current)
}

func TestRunTimePaused(t *testing.T) {
	rt := NewRunTime()
	now, advance := fakeNow(time.Unix(1000, 0))
	rt.now = now
	rt.Reset()
	rt.Paused = true

	advance(16 * time.Millisecond)
	dt := rt.Step()

	assert.Equal(t, time.Duration(0), dt)
	// Wall delta still advances while paused.
	assert.Equal(t, 16*time.Millisecond, rt.Delta)
	assert.Equal(t, time.Duration(0), rt.Current)

	// Resuming does not replay the paused span.
	rt.Paused = false
	advance(16 * time.Millisecond)
	assert.Equal(t, 16*time.Millisecond, rt.Step())
	assert.Equal(t, 16*time.Millisecond, rt.Current)
}

func TestRunTimeFixedDelta(t *testing.T) {
	rt := NewRunTime()
	now, advance := fakeNow(time.Unix(1000, 0))
	rt.now = now
	rt.Reset()
	rt.UseFixedDelta = true
	rt.FixedDelta = 10 * time.Millisecond

	advance(37 * time.Millisecond)
	dt := rt.Step()

	assert.Equal(t, 10*time.Millisecond, dt)
	assert.Equal(t, 37*time.Millisecond, rt.Delta)
}

func TestRunTimeSpeed(t *testing.T) {
	rt := NewRunTime()
	now, advance := fakeNow(time.Unix(1000, 0))
	rt.now = now
	rt.Reset()
	rt.Speed = 2.0

	advance(10 * time.Millisecond)
	assert.Equal(t, 20*time.Millisecond, rt.Step())

	rt.Speed = 0.5
	advance(10 * time.Millisecond)
	assert.Equal(t, 5*time.Millisecond, rt.Step())

	assert.Equal(t, 25*time.Millisecond, rt.Current)
}

func TestRunTimeFirstStepWithoutReset(t *testing.T) {
	rt := NewRunTime()
	now, _ := fakeNow(time.Unix(1000, 0))
	rt.now = now

	// Without an anchor the first step yields no delta.
	assert.Equal(t, time.Duration(0), rt.Step())
}

func TestClockElapsed(t *testing.T) {
	clock := NewClock()
	assert.Equal(t, time.Duration(0), clock.Elapsed())

	clock.Start()
	clock.Update()
	assert.True(t, clock.Elapsed() >= 0)

	clock.Stop()
	elapsed := clock.Elapsed()
	clock.Update()
	// Stopped clocks keep their last elapsed value.
	assert.Equal(t, elapsed, clock.Elapsed())
}

func TestClockElapsedNeedsUpdate(t *testing.T) {
	clock := NewClock()
	clock.Start()
	time.Sleep(2 * time.Millisecond)

	// Elapsed only moves when Update refreshes it.
	assert.Equal(t, time.Duration(0), clock.Elapsed())
	clock.Update()
	assert.True(t, clock.Elapsed() >= 2*time.Millisecond)
}
