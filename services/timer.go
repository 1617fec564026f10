package services

import "time"

// Timer is the countdown clock bound to one player inside one match. Its
// remaining time is owned exclusively by its run loop; all access goes
// through the command mailbox, one command at a time.
type Timer struct {
	playerID string
	interval time.Duration
	expired  func(playerID string)
	commands chan timerCmd
	done     chan struct{}
}

type timerOp int

const (
	timerStart timerOp = iota
	timerPause
	timerQuery
	timerStop
)

type timerCmd struct {
	op    timerOp
	reply chan float64
}

// NewTimer creates a paused timer with the given number of seconds on the
// clock. expired is invoked at most once per Start/Pause cycle, on its own
// goroutine, when the clock hits zero while running.
func NewTimer(playerID string, seconds float64, tick time.Duration, expired func(playerID string)) *Timer {
	t := &Timer{
		playerID: playerID,
		interval: tick,
		expired:  expired,
		commands: make(chan timerCmd),
		done:     make(chan struct{}),
	}
	go t.run(seconds)
	return t
}

// Start begins (or resumes) the countdown. Restarting while already running
// cancels the previous tick source first, so the clock never double-ticks.
func (t *Timer) Start() { t.post(timerCmd{op: timerStart}) }

// Pause cancels the active tick source. Pausing a stopped timer is a no-op.
func (t *Timer) Pause() { t.post(timerCmd{op: timerPause}) }

// Stop is terminal cleanup; no expiry notification can fire afterwards.
// Stopping an already-stopped timer is a no-op.
func (t *Timer) Stop() { t.post(timerCmd{op: timerStop}) }

// Query returns the remaining time in seconds without side effects. A stopped
// or expired timer reports zero, never a negative value.
func (t *Timer) Query() float64 {
	reply := make(chan float64, 1)
	select {
	case t.commands <- timerCmd{op: timerQuery, reply: reply}:
		return <-reply
	case <-t.done:
		return 0
	}
}

func (t *Timer) post(cmd timerCmd) {
	select {
	case t.commands <- cmd:
	case <-t.done:
	}
}

func (t *Timer) run(remaining float64) {
	var tick *time.Ticker
	var tickC <-chan time.Time
	cancelTick := func() {
		if tick != nil {
			tick.Stop()
			tick = nil
			tickC = nil
		}
	}
	for {
		select {
		case cmd := <-t.commands:
			switch cmd.op {
			case timerStart:
				cancelTick()
				tick = time.NewTicker(t.interval)
				tickC = tick.C
			case timerPause:
				cancelTick()
			case timerQuery:
				cmd.reply <- remaining
			case timerStop:
				cancelTick()
				close(t.done)
				return
			}
		case <-tickC:
			remaining -= t.interval.Seconds()
			if remaining <= 0 {
				remaining = 0
				cancelTick()
				go t.expired(t.playerID)
			}
		}
	}
}
