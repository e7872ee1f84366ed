package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/eeesim/sim/timing"
)

var _ = Describe("AverageTimeTracer", func() {
	var (
		mockCtrl   *gomock.Controller
		timeTeller *MockTimeTeller
		t          *AverageTimeTracer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		timeTeller = NewMockTimeTeller(mockCtrl)

		t = NewAverageTimeTracer(timeTeller, KindFilter(KindFrame, ""))
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should be zero without tasks", func() {
		Expect(t.AverageTime()).To(BeZero())
		Expect(t.TotalCount()).To(BeZero())
	})

	It("should average overlapping tasks in full", func() {
		timeTeller.EXPECT().CurrentTime().Return(timing.VTime(0))
		t.StartTask(Task{ID: "1", Kind: KindFrame})
		timeTeller.EXPECT().CurrentTime().Return(timing.VTime(10))
		t.StartTask(Task{ID: "2", Kind: KindFrame})
		timeTeller.EXPECT().CurrentTime().Return(timing.VTime(20))
		t.EndTask(Task{ID: "1"})
		timeTeller.EXPECT().CurrentTime().Return(timing.VTime(50))
		t.EndTask(Task{ID: "2"})

		Expect(t.TotalCount()).To(Equal(uint64(2)))
		Expect(t.TotalTime()).To(Equal(timing.VTime(60)))
		Expect(t.AverageTime()).To(Equal(timing.VTime(30)))
	})

	It("should skip filtered tasks", func() {
		timeTeller.EXPECT().CurrentTime().Return(timing.VTime(0))
		t.StartTask(Task{ID: "1", Kind: KindState})
		timeTeller.EXPECT().CurrentTime().Return(timing.VTime(20))
		t.EndTask(Task{ID: "1"})

		Expect(t.TotalCount()).To(BeZero())
	})
})
