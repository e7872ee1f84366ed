package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/eeesim/sim/timing"
)

var _ = Describe("BusyTimeTracer", func() {
	var (
		mockCtrl   *gomock.Controller
		timeTeller *MockTimeTeller
		t          *BusyTimeTracer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		timeTeller = NewMockTimeTeller(mockCtrl)

		t = NewBusyTimeTracer(timeTeller, nil)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	at := func(ns timing.VTime) {
		timeTeller.EXPECT().CurrentTime().Return(ns * timing.Nanosecond)
	}

	It("should track busy time, one task", func() {
		at(1)
		t.StartTask(Task{ID: "1"})
		at(2)
		t.EndTask(Task{ID: "1"})

		Expect(t.BusyTime()).To(Equal(1 * timing.Nanosecond))
	})

	It("should track busy time, two tasks", func() {
		at(1)
		t.StartTask(Task{ID: "1"})
		at(2)
		t.EndTask(Task{ID: "1"})
		at(3)
		t.StartTask(Task{ID: "2"})
		at(4)
		t.EndTask(Task{ID: "2"})

		Expect(t.BusyTime()).To(Equal(2 * timing.Nanosecond))
	})

	It("should track busy time, two tasks adjacent", func() {
		at(1)
		t.StartTask(Task{ID: "1"})
		at(2)
		t.EndTask(Task{ID: "1"})
		at(2)
		t.StartTask(Task{ID: "2"})
		at(3)
		t.EndTask(Task{ID: "2"})

		Expect(t.BusyTime()).To(Equal(2 * timing.Nanosecond))
	})

	It("should track busy time, two tasks overlap", func() {
		at(10)
		t.StartTask(Task{ID: "1"})
		at(15)
		t.StartTask(Task{ID: "2"})
		at(20)
		t.EndTask(Task{ID: "1"})

		Expect(t.BusyTime()).To(BeZero())

		at(25)
		t.EndTask(Task{ID: "2"})

		Expect(t.BusyTime()).To(Equal(15 * timing.Nanosecond))
	})

	It("should track busy time, one task nested in another", func() {
		at(10)
		t.StartTask(Task{ID: "1"})
		at(12)
		t.StartTask(Task{ID: "2"})
		at(14)
		t.EndTask(Task{ID: "2"})
		at(20)
		t.EndTask(Task{ID: "1"})

		Expect(t.BusyTime()).To(Equal(10 * timing.Nanosecond))
	})

	It("should ignore tasks that are not started", func() {
		at(1)
		t.EndTask(Task{ID: "unknown"})

		Expect(t.BusyTime()).To(BeZero())
	})

	It("should count unfinished tasks when terminated", func() {
		at(1)
		t.StartTask(Task{ID: "1"})

		t.TerminateAllTasks(5 * timing.Nanosecond)

		Expect(t.BusyTime()).To(Equal(4 * timing.Nanosecond))
	})

	It("should only trace filtered tasks", func() {
		t = NewBusyTimeTracer(timeTeller, KindFilter(KindState, "LOWPOWER"))

		at(1)
		t.StartTask(Task{ID: "1", Kind: KindState, What: "LOWPOWER"})
		at(2)
		t.StartTask(Task{ID: "2", Kind: KindState, What: "SEND"})
		at(4)
		t.EndTask(Task{ID: "1"})
		at(8)
		t.EndTask(Task{ID: "2"})

		Expect(t.BusyTime()).To(Equal(3 * timing.Nanosecond))
	})
})
