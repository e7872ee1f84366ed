package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sarchlab/eeesim/p2p"
	"github.com/sarchlab/eeesim/p2p/channel"
	"github.com/sarchlab/eeesim/p2p/coalescing"
	"github.com/sarchlab/eeesim/p2p/framing"
	"github.com/sarchlab/eeesim/sim/timing"
)

var _ = Describe("Monitor", func() {
	var (
		engine  *timing.SerialEngine
		m       *Monitor
		devA    *coalescing.Comp
		devB    *coalescing.Comp
		handler http.Handler
	)

	get := func(url string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))

		return rec
	}

	BeforeEach(func() {
		engine = timing.NewSerialEngine()
		ch := channel.MakeBuilder().WithEngine(engine).BuildLocal("Channel")

		cfg := coalescing.DefaultConfig()
		cfg.QueueCapacity = 1000
		cfg.ByteLimit = 1000
		devA = coalescing.MakeBuilder().
			WithEngine(engine).
			WithConfig(cfg).
			Build("DevA")
		devB = coalescing.MakeBuilder().WithEngine(engine).Build("DevB")
		Expect(devA.Attach(ch)).To(Succeed())
		Expect(devB.Attach(ch)).To(Succeed())

		Expect(devA.Send(make([]byte, 98), p2p.BroadcastAddress,
			framing.ProtocolIPv4)).To(Succeed())

		m = NewMonitor()
		m.RegisterEngine(engine)
		m.RegisterDevice(devA)
		m.RegisterDevice(devB)

		handler = m.Handler()
	})

	It("should refuse a device registered twice", func() {
		Expect(func() { m.RegisterDevice(devA) }).To(Panic())
	})

	It("should report the current time", func() {
		Expect(engine.RunUntil(3 * timing.Microsecond)).To(Succeed())

		rec := get("/api/now")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(Equal(`{"now":0.000003000000}`))
	})

	It("should pause and continue the engine", func() {
		Expect(get("/api/pause").Code).To(Equal(http.StatusOK))
		Expect(get("/api/continue").Code).To(Equal(http.StatusOK))

		Expect(engine.Run()).To(Succeed())
	})

	It("should list devices", func() {
		rec := get("/api/devices")

		var devices []deviceRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &devices)).To(Succeed())
		Expect(devices).To(HaveLen(2))
		Expect(devices[0]).To(Equal(deviceRsp{
			Name:          "DevA",
			State:         "LOWPOWER",
			QueueFrames:   1,
			QueueBytes:    100,
			QueueCapacity: 1000,
		}))
		Expect(devices[1].Name).To(Equal("DevB"))
	})

	It("should answer 404 for unknown devices", func() {
		Expect(get("/api/device/DevC").Code).To(Equal(http.StatusNotFound))
	})

	It("should reject malformed field requests", func() {
		Expect(get("/api/field/notjson").Code).To(Equal(http.StatusBadRequest))
	})

	It("should sort queues by fill percentage", func() {
		rec := get("/api/queues")

		var queues []queueRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &queues)).To(Succeed())
		Expect(queues).To(Equal([]queueRsp{
			{Queue: "DevA.Queue", Level: 100, Cap: 1000},
			{Queue: "DevB.Queue", Level: 0, Cap: 150200},
		}))
	})

	It("should page queues", func() {
		rec := get("/api/queues?sort=level&limit=1&offset=1")

		var queues []queueRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &queues)).To(Succeed())
		Expect(queues).To(HaveLen(1))
		Expect(queues[0].Queue).To(Equal("DevB.Queue"))
	})

	It("should reject unknown sort methods", func() {
		Expect(get("/api/queues?sort=name").Code).
			To(Equal(http.StatusBadRequest))
		Expect(get("/api/queues?limit=x").Code).
			To(Equal(http.StatusBadRequest))
	})

	It("should list progress bars", func() {
		bar := m.CreateProgressBar("Frames", 10)
		bar.IncrementInProgress(3)
		bar.MoveInProgressToFinished(2)
		m.CreateProgressBar("Other", 1)

		var bars []ProgressSnapshot
		Expect(json.Unmarshal(get("/api/progress").Body.Bytes(), &bars)).
			To(Succeed())
		Expect(bars).To(HaveLen(2))
		Expect(bars[0].Name).To(Equal("Frames"))
		Expect(bars[0].Finished).To(Equal(uint64(2)))
		Expect(bars[0].InProgress).To(Equal(uint64(1)))

		m.CompleteProgressBar(bar)

		Expect(json.Unmarshal(get("/api/progress").Body.Bytes(), &bars)).
			To(Succeed())
		Expect(bars).To(HaveLen(1))
	})

	It("should report resource usage", func() {
		var rsp resourceRsp
		Expect(json.Unmarshal(get("/api/resource").Body.Bytes(), &rsp)).
			To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should export device metrics", func() {
		Expect(testutil.CollectAndCount(newDeviceCollector(m))).
			To(Equal(1 + 2*(4+5)))

		Expect(engine.Run()).To(Succeed())

		body := get("/metrics").Body.String()
		Expect(body).To(ContainSubstring(
			`eeesim_transmitted_frames_total{device="DevA"} 1`))
		Expect(body).To(ContainSubstring(
			`eeesim_device_state{device="DevA",state="LOWPOWER"} 1`))
		Expect(strings.Count(body, "eeesim_queue_bytes{")).To(Equal(2))
	})
})

var _ = Describe("Monitor port", func() {
	It("should not use privileged ports", func() {
		m := NewMonitor().WithPortNumber(80)

		Expect(m.portNumber).To(Equal(0))
	})
})
