package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/sarchlab/eeesim/config"
	"github.com/sarchlab/eeesim/p2p/channel"
	"github.com/sarchlab/eeesim/p2p/coalescing"
	"github.com/sarchlab/eeesim/p2p/measurement"
	"github.com/sarchlab/eeesim/simulation"
	"github.com/sarchlab/eeesim/sim/timing"
	"github.com/sarchlab/eeesim/tracing"
)

var (
	scenarioPath string
	envPath      string
	dumpScenario bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario.",
	Long: "`run --config scenario.yaml` simulates two coalescing devices " +
		"connected by a link and writes their measurements.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := loadScenario(scenarioPath, envPath)
		if err != nil {
			return err
		}

		if dumpScenario {
			fmt.Fprint(cmd.OutOrStdout(), s.Dump())
		}

		result, err := runScenario(s)
		if err != nil {
			return err
		}

		result.print(cmd.OutOrStdout())

		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&scenarioPath, "config", "",
		"scenario file, the defaults are used if empty")
	runCmd.Flags().StringVar(&envPath, "env", ".env",
		"file with EEESIM_* overrides")
	runCmd.Flags().BoolVar(&dumpScenario, "dump", false,
		"print the effective scenario before running")
}

func loadScenario(path, env string) (config.Scenario, error) {
	if path != "" {
		return config.Load(path, env)
	}

	s := config.Default()

	vars, err := config.ReadEnv(env)
	if err != nil {
		return s, err
	}

	if err := s.ApplyEnv(vars); err != nil {
		return s, err
	}

	return s, s.Validate()
}

// deviceResult is what the run command reports for one device.
type deviceResult struct {
	Name         string
	Record       measurement.Record
	Offered      uint64
	Dropped      uint64
	LowPowerTime timing.VTime
	MeanLatency  timing.VTime
}

type runResult struct {
	OutputPath string
	EndTime    timing.VTime
	Devices    []deviceResult
}

// deviceWatch follows one device with its traffic source and tracers.
type deviceWatch struct {
	device   *coalescing.Comp
	source   *poissonSource
	latency  *tracing.AverageTimeTracer
	lowPower *tracing.BusyTimeTracer
}

func buildSimulation(s config.Scenario) *simulation.Simulation {
	b := simulation.MakeBuilder().WithTextOutput(s.Output.Text)

	if s.Output.Name != "" {
		b = b.WithOutputFileName(s.Output.Name)
	}

	if s.Output.Tracing {
		b = b.WithTracing()
	}

	if !s.Monitor.Enabled {
		return b.WithoutMonitoring().Build()
	}

	b = b.WithMonitorPort(s.Monitor.Port)
	if s.Monitor.OpenBrowser {
		b = b.WithOpenBrowser()
	}

	return b.Build()
}

// attachDevice connects the device to the link. On failure the simulation
// is terminated so that its database is closed.
func attachDevice(
	sim *simulation.Simulation,
	dev *coalescing.Comp,
	link channel.Channel,
) error {
	if err := dev.Attach(link); err != nil {
		return multierror.Append(err, sim.Terminate()).ErrorOrNil()
	}

	return nil
}

func runScenario(s config.Scenario) (runResult, error) {
	devCfg, err := s.DeviceConfig()
	if err != nil {
		return runResult{}, err
	}

	sim := buildSimulation(s)
	engine := sim.GetEngine()

	link := channel.MakeBuilder().
		WithEngine(engine).
		WithDelay(s.Link.Delay.VTime()).
		BuildLocal("Link")

	names := []string{"DevA", "DevB"}
	streams := streamsFor(s.Traffic.Seed, names...)
	watches := make([]*deviceWatch, len(names))

	for i, name := range names {
		dev := sim.DeviceBuilder().
			WithConfig(devCfg).
			WithNodeID(uint32(i)).
			WithIfIndex(1).
			Build(name)

		if err := attachDevice(sim, dev, link); err != nil {
			return runResult{}, err
		}

		sim.RegisterDevice(dev)
		watches[i] = newDeviceWatch(sim, dev)

		if i == 0 || s.Traffic.Bidirectional {
			watches[i].source = newPoissonSource(dev, engine, streams[i],
				int(s.Traffic.FrameSize),
				s.FrameInterval(), s.Traffic.Duration.VTime())
		}
	}

	for _, p := range watches {
		if p.source == nil {
			continue
		}

		if m := sim.GetMonitor(); m != nil {
			p.source.progress = m.CreateProgressBar(
				p.device.Name()+" traffic", p.source.expectedFrames())
		}

		p.source.start()
	}

	logger.Infof("running scenario, output %s", sim.OutputPath())

	runErr := sim.Run()
	result := collectResult(sim, watches)

	if err := sim.Terminate(); err != nil {
		return result, err
	}

	return result, runErr
}

func newDeviceWatch(
	sim *simulation.Simulation,
	dev *coalescing.Comp,
) *deviceWatch {
	engine := sim.GetEngine()
	p := &deviceWatch{
		device: dev,
		latency: tracing.NewAverageTimeTracer(engine,
			tracing.KindFilter(tracing.KindFrame, "")),
		lowPower: tracing.NewBusyTimeTracer(engine,
			tracing.KindFilter(tracing.KindState,
				coalescing.StateLowPower.String())),
	}

	tracing.CollectTrace(dev, p.latency)
	tracing.CollectTrace(dev, p.lowPower)

	return p
}

func collectResult(
	sim *simulation.Simulation,
	watches []*deviceWatch,
) runResult {
	now := sim.GetEngine().CurrentTime()
	result := runResult{
		OutputPath: sim.OutputPath(),
		EndTime:    now,
	}

	for _, p := range watches {
		p.lowPower.TerminateAllTasks(now)

		d := deviceResult{
			Name:         p.device.Name(),
			Record:       p.device.Record(),
			LowPowerTime: p.lowPower.BusyTime(),
			MeanLatency:  p.latency.AverageTime(),
		}

		if p.source != nil {
			d.Offered = p.source.sent + p.source.dropped
			d.Dropped = p.source.dropped

			if m := sim.GetMonitor(); m != nil && p.source.progress != nil {
				m.CompleteProgressBar(p.source.progress)
			}
		}

		result.Devices = append(result.Devices, d)
	}

	return result
}

func (r runResult) print(w io.Writer) {
	fmt.Fprintf(w, "simulated %s, results in %s\n", r.EndTime, r.OutputPath)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw,
		"DEVICE\tOFFERED\tDROPPED\tSENT\tBYTES\tLOW POWER\tINTERVALS\tLATENCY")

	for _, d := range r.Devices {
		lowPowerShare := 0.0
		if r.EndTime > 0 {
			lowPowerShare = 100 * d.LowPowerTime.Seconds() / r.EndTime.Seconds()
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s%%\t%s\t%s\n",
			d.Name,
			humanize.Comma(int64(d.Offered)),
			humanize.Comma(int64(d.Dropped)),
			humanize.Comma(int64(d.Record.Frames)),
			humanize.Bytes(d.Record.Bytes),
			humanize.FormatFloat("#.##", lowPowerShare),
			humanize.Comma(int64(d.Record.LowPowerIntervals)),
			d.MeanLatency)
	}

	tw.Flush()
}
