package txqueue

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/eeesim/p2p"
	"github.com/sarchlab/eeesim/sim/hooking"
)

func frameOfSize(id string, n int) *p2p.Frame {
	return p2p.NewFrame(id, make([]byte, n))
}

var _ = Describe("Queue", func() {
	var q Queue

	BeforeEach(func() {
		q = MakeBuilder().WithCapacity(3000).Build("Queue")
	})

	It("should start empty", func() {
		Expect(q.Len()).To(Equal(0))
		Expect(q.Bytes()).To(Equal(0))
		Expect(q.Capacity()).To(Equal(3000))
		Expect(q.Dequeue()).To(BeNil())
		Expect(q.Peek()).To(BeNil())
	})

	It("should keep arrival order", func() {
		Expect(q.Enqueue(frameOfSize("1", 100))).To(BeTrue())
		Expect(q.Enqueue(frameOfSize("2", 200))).To(BeTrue())
		Expect(q.Enqueue(frameOfSize("3", 300))).To(BeTrue())

		Expect(q.Bytes()).To(Equal(600))
		Expect(q.Peek().ID).To(Equal("1"))
		Expect(q.Dequeue().ID).To(Equal("1"))
		Expect(q.Dequeue().ID).To(Equal("2"))
		Expect(q.Bytes()).To(Equal(300))
		Expect(q.Dequeue().ID).To(Equal("3"))
		Expect(q.Bytes()).To(Equal(0))
	})

	It("should accept a frame that fills the queue exactly", func() {
		Expect(q.Enqueue(frameOfSize("1", 1500))).To(BeTrue())
		Expect(q.Enqueue(frameOfSize("2", 1500))).To(BeTrue())
		Expect(q.Bytes()).To(Equal(3000))
	})

	It("should reject a frame that does not fit", func() {
		Expect(q.Enqueue(frameOfSize("1", 1500))).To(BeTrue())
		Expect(q.Enqueue(frameOfSize("2", 1501))).To(BeFalse())

		Expect(q.Len()).To(Equal(1))
		Expect(q.Bytes()).To(Equal(1500))
	})

	It("should never exceed its capacity", func() {
		for i := 0; i < 100; i++ {
			q.Enqueue(frameOfSize("x", 7*i%1600))
			Expect(q.Bytes()).To(BeNumerically("<=", q.Capacity()))

			if i%3 == 0 {
				q.Dequeue()
			}
		}
	})

	It("should clear", func() {
		q.Enqueue(frameOfSize("1", 100))
		q.Clear()

		Expect(q.Len()).To(Equal(0))
		Expect(q.Bytes()).To(Equal(0))
	})

	It("should invoke hooks", func() {
		var positions []*hooking.HookPos
		var details []Occupancy

		q.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			positions = append(positions, ctx.Pos)
			details = append(details, ctx.Detail.(Occupancy))
		}))

		q.Enqueue(frameOfSize("1", 2000))
		q.Enqueue(frameOfSize("2", 2000))
		q.Dequeue()

		Expect(positions).To(Equal([]*hooking.HookPos{
			HookPosEnqueue, HookPosDrop, HookPosDequeue,
		}))
		Expect(details[0]).To(Equal(Occupancy{Frames: 1, Bytes: 2000}))
		Expect(details[2]).To(Equal(Occupancy{Frames: 0, Bytes: 0}))
	})

	It("should panic on non-positive capacity", func() {
		Expect(func() { MakeBuilder().WithCapacity(0).Build("Q") }).To(Panic())
	})
})
