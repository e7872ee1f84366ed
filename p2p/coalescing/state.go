package coalescing

import (
	"fmt"

	"github.com/sarchlab/eeesim/sim/timing"
)

// State is the energy state of a device.
type State int

// The coalescing states. A device starts in StateLowPower.
const (
	StateLowPower State = iota
	StateWakeup
	StateSend
	StateSleep
)

func (s State) String() string {
	switch s {
	case StateLowPower:
		return "LOWPOWER"
	case StateWakeup:
		return "WAKEUP"
	case StateSend:
		return "SEND"
	case StateSleep:
		return "SLEEP"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// TxState is the state of the transmit pipeline.
type TxState int

// The transmit pipeline states.
const (
	TxReady TxState = iota
	TxBusy
)

func (s TxState) String() string {
	if s == TxBusy {
		return "BUSY"
	}

	return "READY"
}

// Causes of state transitions.
const (
	CauseTimeout      = "timeout"
	CauseByteLimit    = "byte limit"
	CauseWakeupDone   = "wakeup done"
	CauseQueueEmptied = "queue emptied"
	CauseSleepDone    = "sleep done"
)

// Transition is the hook item of HookPosStateChange.
type Transition struct {
	From  State
	To    State
	Time  timing.VTime
	Cause string
}

// TimeoutEvent fires Te after the first frame of a batch arrives. Cycle is
// the value of the timer cycle when the timeout was scheduled.
type TimeoutEvent struct {
	Cycle uint64
}

// WakeupDoneEvent fires when the link has left low power.
type WakeupDoneEvent struct{}

// SleepDoneEvent fires when the link has entered low power.
type SleepDoneEvent struct{}

type transmitCompleteEvent struct{}
