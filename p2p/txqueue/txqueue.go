// Package txqueue provides the byte-bounded transmit queue of a link device.
package txqueue

import (
	"log"

	"github.com/sarchlab/eeesim/p2p"
	"github.com/sarchlab/eeesim/sim/hooking"
)

// HookPosEnqueue marks when a frame is accepted into the queue.
var HookPosEnqueue = &hooking.HookPos{Name: "Queue Enqueue"}

// HookPosDequeue marks when a frame leaves the queue.
var HookPosDequeue = &hooking.HookPos{Name: "Queue Dequeue"}

// HookPosDrop marks when a frame is rejected because the queue is full.
var HookPosDrop = &hooking.HookPos{Name: "Queue Drop"}

// Occupancy is the hook detail of every queue hook. It describes the queue
// after the operation.
type Occupancy struct {
	Frames int
	Bytes  int
}

// A Queue is a FIFO of frames bounded by the total number of bytes it holds.
type Queue interface {
	hooking.Hookable

	Name() string

	// Enqueue appends the frame if it fits and reports whether it did.
	Enqueue(f *p2p.Frame) bool

	// Dequeue removes and returns the oldest frame, or nil if the queue is
	// empty.
	Dequeue() *p2p.Frame

	Peek() *p2p.Frame
	Bytes() int
	Len() int
	Capacity() int
	Clear()
}

// Builder builds queues.
type Builder struct {
	capacity int
}

// MakeBuilder returns a Builder with the default capacity of 100 full-size
// frames.
func MakeBuilder() Builder {
	return Builder{capacity: 100 * 1502}
}

// WithCapacity sets the capacity of the queue, in bytes.
func (b Builder) WithCapacity(numBytes int) Builder {
	b.capacity = numBytes
	return b
}

// Build creates a new queue.
func (b Builder) Build(name string) Queue {
	if b.capacity <= 0 {
		log.Panicf("queue %s: capacity must be positive, got %d",
			name, b.capacity)
	}

	return &queueImpl{
		name:     name,
		capacity: b.capacity,
	}
}

type queueImpl struct {
	hooking.HookableBase

	name     string
	capacity int
	bytes    int
	frames   []*p2p.Frame
}

func (q *queueImpl) Name() string {
	return q.name
}

func (q *queueImpl) Enqueue(f *p2p.Frame) bool {
	if q.bytes+f.Size() > q.capacity {
		q.invoke(HookPosDrop, f)
		return false
	}

	q.frames = append(q.frames, f)
	q.bytes += f.Size()

	q.invoke(HookPosEnqueue, f)

	return true
}

func (q *queueImpl) Dequeue() *p2p.Frame {
	if len(q.frames) == 0 {
		return nil
	}

	f := q.frames[0]
	q.frames[0] = nil
	q.frames = q.frames[1:]
	q.bytes -= f.Size()

	q.invoke(HookPosDequeue, f)

	return f
}

func (q *queueImpl) Peek() *p2p.Frame {
	if len(q.frames) == 0 {
		return nil
	}

	return q.frames[0]
}

func (q *queueImpl) Bytes() int {
	return q.bytes
}

func (q *queueImpl) Len() int {
	return len(q.frames)
}

func (q *queueImpl) Capacity() int {
	return q.capacity
}

func (q *queueImpl) Clear() {
	q.frames = nil
	q.bytes = 0
}

func (q *queueImpl) invoke(pos *hooking.HookPos, f *p2p.Frame) {
	if q.NumHooks() == 0 {
		return
	}

	q.InvokeHook(hooking.HookCtx{
		Domain: q,
		Pos:    pos,
		Item:   f,
		Detail: Occupancy{Frames: len(q.frames), Bytes: q.bytes},
	})
}
