package simulation

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/eeesim/datarecording"
	"github.com/sarchlab/eeesim/p2p"
	"github.com/sarchlab/eeesim/p2p/channel"
	"github.com/sarchlab/eeesim/p2p/coalescing"
	"github.com/sarchlab/eeesim/p2p/framing"
	"github.com/sarchlab/eeesim/p2p/measurement"
	"github.com/sarchlab/eeesim/sim/timing"
	"github.com/sarchlab/eeesim/tracing"
)

type sendEvent struct {
	dev *coalescing.Comp
}

func (e sendEvent) Handle(any) error {
	return e.dev.Send(make([]byte, 98), p2p.BroadcastAddress,
		framing.ProtocolIPv4)
}

var _ = Describe("Simulation", func() {
	var (
		dir        string
		textFile   string
		simulation *Simulation
		devA, devB *coalescing.Comp
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		textFile = filepath.Join(dir, "data.txt")

		simulation = MakeBuilder().
			WithoutMonitoring().
			WithTracing().
			WithOutputFileName(filepath.Join(dir, "run")).
			WithTextOutput(textFile).
			Build()

		ch := channel.MakeBuilder().
			WithEngine(simulation.GetEngine()).
			BuildLocal("Channel")

		devA = simulation.DeviceBuilder().WithNodeID(0).Build("DevA")
		devB = simulation.DeviceBuilder().WithNodeID(1).Build("DevB")
		Expect(devA.Attach(ch)).To(Succeed())
		Expect(devB.Attach(ch)).To(Succeed())

		simulation.RegisterDevice(devA)
		simulation.RegisterDevice(devB)
	})

	AfterEach(func() {
		Expect(simulation.Terminate()).To(Succeed())
	})

	It("should register devices", func() {
		Expect(simulation.GetDeviceByName("DevA")).To(BeIdenticalTo(devA))
		Expect(simulation.GetDeviceByName("DevC")).To(BeNil())
		Expect(simulation.Devices()).To(HaveLen(2))
		Expect(simulation.GetMonitor()).To(BeNil())
		Expect(simulation.GetVisTracer()).NotTo(BeNil())
	})

	It("should refuse a device registered twice", func() {
		Expect(func() { simulation.RegisterDevice(devA) }).To(Panic())
	})

	It("should write measurements and traces on terminate", func() {
		simulation.GetEngine().Schedule(timing.ScheduledEvent{
			Event:   "send",
			Handler: sendEvent{devA},
		})

		Expect(simulation.Run()).To(Succeed())
		Expect(simulation.Terminate()).To(Succeed())
		Expect(simulation.Terminate()).To(Succeed())

		f, err := os.Open(textFile)
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()

		records, err := measurement.ReadRecords(f)
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(2))
		Expect(records[0].Frames).To(Equal(uint64(1)))

		reader, err := datarecording.NewReader(simulation.OutputPath())
		Expect(err).NotTo(HaveOccurred())
		defer reader.Close()

		reader.MapTable(measurement.RecordTable, measurement.Record{})
		_, total, err := reader.Query(context.Background(),
			measurement.RecordTable, datarecording.QueryParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(2))

		reader.MapTable(tracing.TaskTable, tracing.TaskEntry{})
		tasks, _, err := reader.Query(context.Background(),
			tracing.TaskTable, datarecording.QueryParams{
				Where: "Kind = ?",
				Args:  []any{tracing.KindFrame},
			})
		Expect(err).NotTo(HaveOccurred())
		Expect(tasks).To(HaveLen(1))
		Expect(tasks[0].(*tracing.TaskEntry).Location).To(Equal("DevA"))
	})
})

var _ = Describe("Builder", func() {
	It("should not set a port without monitoring", func() {
		Expect(func() {
			MakeBuilder().WithoutMonitoring().WithMonitorPort(8080).Build()
		}).To(Panic())
	})
})
