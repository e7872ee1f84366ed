package timing

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("SerialEngine", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *SerialEngine
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewSerialEngine()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should schedule events", func() {
		handler1 := NewMockHandler(mockCtrl)
		handler2 := NewMockHandler(mockCtrl)

		evt1 := ScheduledEvent{Event: "evt1", Time: 4 * Nanosecond, Handler: handler1}
		evt2 := ScheduledEvent{Event: "evt2", Time: 2 * Nanosecond, Handler: handler2}
		evt3 := ScheduledEvent{Event: "evt3", Time: 3 * Nanosecond, Handler: handler1}
		evt4 := ScheduledEvent{Event: "evt4", Time: 5 * Nanosecond, Handler: handler1}

		handleEvt2 := handler2.EXPECT().Handle("evt2").Do(func(any) {
			engine.Schedule(evt3)
			engine.Schedule(evt4)
		})
		handleEvt3 := handler1.EXPECT().Handle("evt3").After(handleEvt2)
		handleEvt1 := handler1.EXPECT().Handle("evt1").After(handleEvt3)
		handler1.EXPECT().Handle("evt4").After(handleEvt1)

		engine.Schedule(evt1)
		engine.Schedule(evt2)

		Expect(engine.Run()).To(Succeed())
		Expect(engine.CurrentTime()).To(Equal(5 * Nanosecond))
	})

	It("should run same-time events in scheduling order", func() {
		handler := NewMockHandler(mockCtrl)

		var order []string
		handler.EXPECT().Handle(gomock.Any()).
			DoAndReturn(func(e any) error {
				order = append(order, e.(string))
				return nil
			}).
			Times(4)

		for _, name := range []string{"a", "b", "c", "d"} {
			engine.Schedule(ScheduledEvent{
				Event:   name,
				Time:    Microsecond,
				Handler: handler,
			})
		}

		Expect(engine.Run()).To(Succeed())
		Expect(order).To(Equal([]string{"a", "b", "c", "d"}))
	})

	It("should consider secondary events", func() {
		handler1 := NewMockHandler(mockCtrl)
		handler2 := NewMockHandler(mockCtrl)
		handler3 := NewMockHandler(mockCtrl)

		evt1 := ScheduledEvent{
			Event: "evt1", Time: 2 * Nanosecond, Handler: handler1,
			IsSecondary: true,
		}
		evt2 := ScheduledEvent{Event: "evt2", Time: 2 * Nanosecond, Handler: handler2}
		evt3 := ScheduledEvent{Event: "evt3", Time: 2 * Nanosecond, Handler: handler3}

		handleEvt2 := handler2.EXPECT().Handle("evt2")
		handleEvt3 := handler3.EXPECT().Handle("evt3").After(handleEvt2)
		handler1.EXPECT().Handle("evt1").After(handleEvt3)

		engine.Schedule(evt1)
		engine.Schedule(evt2)
		engine.Schedule(evt3)

		Expect(engine.Run()).To(Succeed())
	})

	It("should panic when scheduling into the past", func() {
		handler := NewMockHandler(mockCtrl)
		handler.EXPECT().Handle("late").Do(func(any) {
			engine.Schedule(ScheduledEvent{
				Event: "early", Time: Nanosecond, Handler: handler,
			})
		})

		engine.Schedule(ScheduledEvent{
			Event: "late", Time: 10 * Nanosecond, Handler: handler,
		})

		Expect(func() { _ = engine.Run() }).To(Panic())
	})

	It("should stop on handler error", func() {
		handler := NewMockHandler(mockCtrl)
		handler.EXPECT().Handle("bad").Return(errors.New("boom"))

		engine.Schedule(ScheduledEvent{Event: "bad", Time: 1, Handler: handler})
		engine.Schedule(ScheduledEvent{Event: "never", Time: 2, Handler: handler})

		err := engine.Run()

		Expect(err).To(MatchError(ContainSubstring("boom")))
	})

	It("should run until a time and advance the clock", func() {
		handler := NewMockHandler(mockCtrl)
		handler.EXPECT().Handle("first")

		engine.Schedule(ScheduledEvent{
			Event: "first", Time: Microsecond, Handler: handler,
		})
		engine.Schedule(ScheduledEvent{
			Event: "second", Time: Millisecond, Handler: handler,
		})

		Expect(engine.RunUntil(10 * Microsecond)).To(Succeed())
		Expect(engine.CurrentTime()).To(Equal(10 * Microsecond))
		Expect(engine.queue.Len()).To(Equal(1))
	})

	It("should call simulation end handlers in order", func() {
		h1 := NewMockSimulationEndHandler(mockCtrl)
		h2 := NewMockSimulationEndHandler(mockCtrl)

		call1 := h1.EXPECT().Handle(VTime(0))
		h2.EXPECT().Handle(VTime(0)).After(call1)

		engine.RegisterSimulationEndHandler(h1)
		engine.RegisterSimulationEndHandler(h2)
		engine.Finished()
	})
})
