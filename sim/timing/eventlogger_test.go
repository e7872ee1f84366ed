package timing

import (
	"github.com/juju/loggo"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type namedHandler struct{}

func (namedHandler) Name() string { return "Dev" }

func (namedHandler) Handle(any) error { return nil }

type tickEvent struct{}

var _ = Describe("EventLogger", func() {
	var (
		writer *loggo.TestWriter
		engine *SerialEngine
	)

	BeforeEach(func() {
		writer = &loggo.TestWriter{}
		Expect(loggo.RegisterWriter("eventlogger-test", writer)).To(Succeed())

		logger := loggo.GetLogger("eeesim.timing.test")
		logger.SetLogLevel(loggo.TRACE)

		engine = NewSerialEngine()
		engine.AcceptHook(NewEventLogger(logger))
	})

	AfterEach(func() {
		_, _ = loggo.RemoveWriter("eventlogger-test")
	})

	It("should log each event once with its handler name", func() {
		engine.Schedule(ScheduledEvent{
			Event:   tickEvent{},
			Time:    3 * Nanosecond,
			Handler: namedHandler{},
		})

		Expect(engine.Run()).To(Succeed())

		var messages []string
		for _, e := range writer.Log() {
			if e.Module == "eeesim.timing.test" {
				messages = append(messages, e.Message)
			}
		}

		Expect(messages).To(Equal([]string{"3ns, timing.tickEvent -> Dev"}))
	})
})
