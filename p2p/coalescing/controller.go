package coalescing

import "github.com/sarchlab/eeesim/sim/hooking"

// armTimerIfIdle schedules the coalescing timeout when a frame arrives at an
// empty queue. It runs before the frame is enqueued.
func (c *Comp) armTimerIfIdle() {
	if c.queue.Bytes() != 0 || c.timerPending {
		return
	}

	c.schedule(TimeoutEvent{Cycle: c.cycle}, c.cfg.Timeout)
	c.timerPending = true

	logger.Tracef("%s: timeout armed for cycle %d", c.name, c.cycle)
}

func (c *Comp) wakeUpIfByteLimitReached() {
	if c.state != StateLowPower || c.queue.Bytes() < c.cfg.ByteLimit {
		return
	}

	c.timerPending = false
	c.startWakeup(CauseByteLimit)
}

func (c *Comp) handleTimeout(e TimeoutEvent) {
	if e.Cycle != c.cycle || c.state != StateLowPower {
		logger.Tracef("%s: ignoring timeout of cycle %d in %s, cycle is %d",
			c.name, e.Cycle, c.state, c.cycle)
		return
	}

	c.timerPending = false
	c.startWakeup(CauseTimeout)
}

func (c *Comp) startWakeup(cause string) {
	c.transition(StateWakeup, cause)
	c.schedule(WakeupDoneEvent{}, c.cfg.WakeTime)
}

func (c *Comp) handleWakeupDone() {
	if c.state != StateWakeup {
		return
	}

	c.transition(StateSend, CauseWakeupDone)
	c.counters.CompleteLowPowerInterval(
		c.engine.CurrentTime() - c.lowPowerStart)

	f := c.queue.Dequeue()
	if f == nil {
		logger.Warningf("%s: woke up with an empty queue", c.name)
		c.queueEmptied()

		return
	}

	c.sendFrame(f)
}

func (c *Comp) queueEmptied() {
	c.cycle++
	c.transition(StateSleep, CauseQueueEmptied)
	c.schedule(SleepDoneEvent{}, c.cfg.WakeTime)
}

func (c *Comp) handleSleepDone() {
	if c.state != StateSleep {
		return
	}

	c.transition(StateLowPower, CauseSleepDone)
	c.lowPowerStart = c.engine.CurrentTime()
}

func (c *Comp) transition(to State, cause string) {
	t := Transition{
		From:  c.state,
		To:    to,
		Time:  c.engine.CurrentTime(),
		Cause: cause,
	}

	c.state = to

	logger.Tracef("%s @ %s: %s -> %s on %s", c.name, t.Time, t.From, t.To, cause)

	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosStateChange,
		Item:   t,
	})
}
