package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/iti/rngstream"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/eeesim/config"
	"github.com/sarchlab/eeesim/datarecording"
	"github.com/sarchlab/eeesim/p2p/channel"
	"github.com/sarchlab/eeesim/p2p/coalescing"
	"github.com/sarchlab/eeesim/p2p/measurement"
	"github.com/sarchlab/eeesim/simulation"
	"github.com/sarchlab/eeesim/sim/timing"
)

var _ = Describe("Poisson source", func() {
	var (
		engine     *timing.SerialEngine
		devA, devB *coalescing.Comp
	)

	BeforeEach(func() {
		engine = timing.NewSerialEngine()

		cfg := coalescing.DefaultConfig()
		cfg.QueueCapacity = 1002

		ch := channel.MakeBuilder().WithEngine(engine).BuildLocal("Link")
		devA = coalescing.MakeBuilder().
			WithEngine(engine).
			WithConfig(cfg).
			Build("DevA")
		devB = coalescing.MakeBuilder().
			WithEngine(engine).
			WithConfig(cfg).
			WithNodeID(1).
			Build("DevB")
		Expect(devA.Attach(ch)).To(Succeed())
		Expect(devB.Attach(ch)).To(Succeed())
	})

	It("should stop at the deadline", func() {
		src := newPoissonSource(devA, engine, rngstream.New("test"),
			1000, timing.Microsecond, 0)

		src.start()
		Expect(engine.Run()).To(Succeed())

		Expect(src.sent).To(BeZero())
		Expect(src.dropped).To(BeZero())
	})

	It("should count frames the queue refuses", func() {
		src := newPoissonSource(devA, engine, rngstream.New("test"),
			1000, timing.Microsecond, 100*timing.Microsecond)
		Expect(src.expectedFrames()).To(Equal(uint64(100)))

		src.start()
		Expect(engine.Run()).To(Succeed())

		Expect(src.sent).To(Equal(uint64(1)))
		Expect(src.dropped).To(BeNumerically(">", 10))
		Expect(devA.Record().Frames).To(Equal(uint64(1)))
	})

	It("should refuse foreign events", func() {
		src := newPoissonSource(devA, engine, rngstream.New("test"),
			1000, timing.Microsecond, 0)

		Expect(src.Handle("tick")).To(HaveOccurred())
	})

	It("should hand out one stream per name", func() {
		streams := streamsFor(2, "a", "b")

		Expect(streams).To(HaveLen(2))
		Expect(streams[0].RandU01()).NotTo(Equal(streams[1].RandU01()))
	})
})

var _ = Describe("Run", func() {
	var (
		dir      string
		scenario config.Scenario
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()

		scenario = config.Default()
		scenario.Traffic.Duration = config.Duration(2 * timing.Millisecond)
		scenario.Output.Name = filepath.Join(dir, "run")
		scenario.Output.Text = filepath.Join(dir, "data.txt")
	})

	It("should simulate the link and write measurements", func() {
		result, err := runScenario(scenario)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.OutputPath).To(Equal(scenario.Output.Name + ".sqlite3"))
		Expect(result.Devices).To(HaveLen(2))

		a, b := result.Devices[0], result.Devices[1]
		Expect(a.Offered).To(BeNumerically(">", 0))
		Expect(a.Dropped).To(BeZero())
		Expect(a.Record.Frames).To(Equal(a.Offered))
		Expect(a.Record.LowPowerIntervals).To(BeNumerically(">", 0))
		Expect(a.LowPowerTime).To(BeNumerically(">", 0))
		Expect(a.MeanLatency).To(BeNumerically(">", 0))
		Expect(b.Offered).To(BeZero())
		Expect(b.Record.Frames).To(BeZero())

		f, err := os.Open(scenario.Output.Text)
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()

		records, err := measurement.ReadRecords(f)
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(2))

		var out bytes.Buffer
		result.print(&out)
		Expect(out.String()).To(ContainSubstring("DevA"))
		Expect(out.String()).To(ContainSubstring("LOW POWER"))
	})

	It("should terminate the simulation when a device cannot attach",
		func() {
			sim := simulation.MakeBuilder().
				WithoutMonitoring().
				WithOutputFileName(filepath.Join(dir, "failed")).
				WithTextOutput("").
				Build()
			link := channel.MakeBuilder().
				WithEngine(sim.GetEngine()).
				BuildLocal("Link")

			for _, name := range []string{"DevA", "DevB"} {
				dev := sim.DeviceBuilder().Build(name)
				Expect(attachDevice(sim, dev, link)).To(Succeed())
			}

			extra := sim.DeviceBuilder().Build("DevC")
			err := attachDevice(sim, extra, link)
			Expect(err).To(MatchError(channel.ErrChannelFull))

			reader, err := datarecording.NewReader(sim.OutputPath())
			Expect(err).NotTo(HaveOccurred())
			defer reader.Close()

			info, err := datarecording.QueryAll[datarecording.ExecInfo](
				context.Background(), reader, "exec_info",
				datarecording.QueryParams{
					Where: "Property = ?",
					Args:  []any{"Simulated Time"},
				})
			Expect(err).NotTo(HaveOccurred())
			Expect(info).To(HaveLen(1))
			Expect(sim.Terminate()).To(Succeed())
		})

	It("should report on the measurements of a run", func() {
		scenario.Traffic.Bidirectional = true
		_, err := runScenario(scenario)
		Expect(err).NotTo(HaveOccurred())

		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetArgs([]string{"report", "--csv", scenario.Output.Text})
		defer rootCmd.SetArgs(nil)

		Expect(rootCmd.Execute()).To(Succeed())
		Expect(out.String()).To(HavePrefix("node,port,runs,"))
		Expect(out.String()).To(ContainSubstring("\n0,1,1,"))
	})

	It("should fail a report without usable records", func() {
		rootCmd.SetOut(&bytes.Buffer{})
		rootCmd.SetErr(&bytes.Buffer{})
		rootCmd.SetArgs([]string{"report", filepath.Join(dir, "none.txt")})
		defer rootCmd.SetArgs(nil)

		Expect(rootCmd.Execute()).To(HaveOccurred())
	})

	It("should print the version", func() {
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetArgs([]string{"version"})
		defer rootCmd.SetArgs(nil)

		Expect(rootCmd.Execute()).To(Succeed())
		Expect(out.String()).To(HavePrefix("eeesim "))
	})
})
