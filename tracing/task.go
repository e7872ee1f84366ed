// Package tracing turns the hooks of coalescing devices into tasks and
// collects them with tracers.
package tracing

import "github.com/sarchlab/eeesim/sim/timing"

// Task kinds raised by CollectTrace.
const (
	// KindFrame tasks last from when a device accepts a frame until the frame
	// leaves the wire or is dropped.
	KindFrame = "frame"

	// KindState tasks last as long as a device stays in a coalescing state.
	// What is the name of the state.
	KindState = "state"
)

// A TaskStep represents a milestone in the processing of task
type TaskStep struct {
	Time timing.VTime `json:"time"`
	What string       `json:"what"`
}

// A Task is a task
type Task struct {
	ID        string       `json:"id"`
	ParentID  string       `json:"parent_id"`
	Kind      string       `json:"kind"`
	What      string       `json:"what"`
	Where     string       `json:"where"`
	StartTime timing.VTime `json:"start_time"`
	EndTime   timing.VTime `json:"end_time"`
	Steps     []TaskStep   `json:"steps"`
	Detail    any          `json:"-"`
}

// TaskFilter is a function that can filter interesting tasks. If this function
// returns true, the task is considered useful.
type TaskFilter func(t Task) bool

// KindFilter keeps the tasks of the given kind. A non-empty what also has to
// match.
func KindFilter(kind, what string) TaskFilter {
	return func(t Task) bool {
		return t.Kind == kind && (what == "" || t.What == what)
	}
}
