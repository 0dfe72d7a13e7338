package roundclock

import "time"

// Countdown is the two-field remaining time shown to players.
type Countdown struct {
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// CountdownFor converts a round duration to a countdown, truncating to whole seconds.
func CountdownFor(d time.Duration) Countdown {
	total := int(d / time.Second)
	if total < 0 {
		total = 0
	}
	return Countdown{Minutes: total / 60, Seconds: total % 60}
}

// Tick decrements the countdown by one second, borrowing from minutes when
// seconds underflow. expired reports that the result reached zero or below.
func (c Countdown) Tick() (next Countdown, expired bool) {
	next = c
	next.Seconds--
	if next.Seconds < 0 {
		next.Minutes--
		next.Seconds += 60
	}
	if next.Minutes < 0 || next.Zero() {
		return Countdown{}, true
	}
	return next, false
}

// Zero reports whether no time is left.
func (c Countdown) Zero() bool {
	return c.Minutes <= 0 && c.Seconds <= 0
}

type State string

const (
	Stopped = State("stopped")
	Running = State("running")
)

// Outcome describes what a single tick did.
type Outcome int

const (
	// Idle means the clock was stopped and nothing changed.
	Idle Outcome = iota
	Ticked
	RoundAdvanced
	Finished
)

func (o Outcome) String() string {
	switch o {
	case Ticked:
		return "ticked"
	case RoundAdvanced:
		return "round-advanced"
	case Finished:
		return "finished"
	}
	return "idle"
}

// Clock is the countdown state machine of one room. It is not safe for
// concurrent use; the owning room serializes access.
type Clock struct {
	State     State
	Round     int
	MaxRounds int
	Remaining Countdown
	Duration  time.Duration
}

func New(maxRounds int, roundDuration time.Duration) *Clock {
	return &Clock{
		State:     Stopped,
		Round:     1,
		MaxRounds: maxRounds,
		Remaining: CountdownFor(roundDuration),
		Duration:  roundDuration,
	}
}

func (c *Clock) Start() {
	c.State = Running
}

func (c *Clock) Stop() {
	c.State = Stopped
}

func (c *Clock) Running() bool {
	return c.State == Running
}

// Reset puts the clock back to round one with a full countdown, stopped.
func (c *Clock) Reset() {
	c.State = Stopped
	c.Round = 1
	c.Remaining = CountdownFor(c.Duration)
}

// Tick advances the countdown by one second. When the countdown expires the
// round number is incremented; past MaxRounds the clock stops and reports
// Finished with the countdown left at zero.
func (c *Clock) Tick() Outcome {
	if c.State != Running {
		return Idle
	}
	next, expired := c.Remaining.Tick()
	if !expired {
		c.Remaining = next
		return Ticked
	}

	c.Round++
	if c.Round > c.MaxRounds {
		c.Remaining = Countdown{}
		c.State = Stopped
		return Finished
	}
	c.Remaining = CountdownFor(c.Duration)
	return RoundAdvanced
}
