package core

import "time"

type Clock struct {
	startTime time.Time
	elapsed   time.Duration
}

func NewClock() *Clock {
	return &Clock{}
}

// Updates the provided clock. Should be called just before checking elapsed time.
// Has no effect on non-started clocks.
func (c *Clock) Update() {
	if !c.startTime.IsZero() {
		c.elapsed = time.Since(c.startTime)
	}
}

// Starts the provided clock. Resets elapsed time.
func (c *Clock) Start() {
	c.startTime = time.Now()
	c.elapsed = 0
}

// Stops the provided clock. Does not reset elapsed time.
func (c *Clock) Stop() {
	c.startTime = time.Time{}
}

func (c *Clock) Elapsed() time.Duration {
	return c.elapsed
}

// RunTime drives the simulation clock of the frame loop. Wall time advances
// every tick; simulation time only advances while unpaused, optionally with a
// fixed delta and a speed multiplier applied.
type RunTime struct {
	Paused        bool
	Speed         float64
	UseFixedDelta bool
	FixedDelta    time.Duration

	// Accumulated simulated time.
	Current time.Duration
	// Raw wall-clock delta of the last tick.
	Delta time.Duration

	system time.Time
	now    func() time.Time
}

func NewRunTime() *RunTime {
	return &RunTime{
		Speed:      1.0,
		FixedDelta: 20 * time.Millisecond,
		now:        time.Now,
	}
}

// Reset re-anchors the wall clock. Call once right before the loop starts so
// the first tick does not see the whole setup time as its delta.
func (rt *RunTime) Reset() {
	rt.system = rt.now()
}

// Step advances the run time by one tick and returns the simulated delta to
// hand to the update hook. Returns zero while paused.
func (rt *RunTime) Step() time.Duration {
	t := rt.now()

	dt := time.Duration(0)
	if !rt.system.IsZero() && t.After(rt.system) {
		dt = t.Sub(rt.system)
	}
	rt.system = t
	rt.Delta = dt

	if rt.Paused {
		return 0
	}

	if rt.UseFixedDelta {
		dt = rt.FixedDelta
	}

	dt = time.Duration(float64(dt) * rt.Speed)
	rt.Current += dt

	return dt
}
