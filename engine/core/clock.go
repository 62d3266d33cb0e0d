package core

import "time"

type Clock struct {
	startTime float64
	elapsed   float64
}

func NewClock() *Clock {
	return &Clock{}
}

// Updates the provided clock. Should be called just before checking elapsed time.
// Has no effect on non-started clocks.
func (c *Clock) Update() {
	if c.startTime != 0 {
		c.elapsed = float64(time.Now().UnixNano()) - c.startTime
	}
}

// Starts the provided clock. Resets elapsed time.
func (c *Clock) Start() {
	c.startTime = float64(time.Now().UnixNano())
	c.elapsed = 0
}

// Stops the provided clock. Does not reset elapsed time.
func (c *Clock) Stop() {
	c.startTime = 0
}

// Elapsed time in seconds.
func (c *Clock) Elapsed() float64 {
	return c.elapsed / float64(time.Second)
}

// Timer hands out the time that passed since it was last asked.
type Timer struct {
	now        func() time.Time
	lastUpdate time.Time
}

func NewTimer() *Timer {
	return newTimerWithSource(time.Now)
}

func newTimerWithSource(now func() time.Time) *Timer {
	return &Timer{
		now:        now,
		lastUpdate: now(),
	}
}

// PullTimeStepMillis returns the milliseconds elapsed since the previous call
// (or since creation) and restarts the measurement.
func (t *Timer) PullTimeStepMillis() uint64 {
	now := t.now()
	elapsed := now.Sub(t.lastUpdate)
	t.lastUpdate = now
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed.Milliseconds())
}
