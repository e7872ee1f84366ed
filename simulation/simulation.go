// Package simulation wires an engine, the output database, the measurement
// sinks, and the monitor around a set of coalescing devices.
package simulation

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/loggo"

	"github.com/sarchlab/eeesim/datarecording"
	"github.com/sarchlab/eeesim/monitoring"
	"github.com/sarchlab/eeesim/p2p/coalescing"
	"github.com/sarchlab/eeesim/p2p/measurement"
	"github.com/sarchlab/eeesim/sim/id"
	"github.com/sarchlab/eeesim/sim/timing"
	"github.com/sarchlab/eeesim/tracing"
)

var logger = loggo.GetLogger("eeesim.simulation")

// eventLogger receives every engine event when set to TRACE.
var eventLogger = loggo.GetLogger("eeesim.simulation.events")

// A Simulation provides the service requires to define a simulation.
type Simulation struct {
	id         string
	outputPath string
	engine     *timing.SerialEngine

	dataRecorder datarecording.DataRecorder
	execRecorder *datarecording.ExecRecorder
	sink         measurement.Sink
	monitor      *monitoring.Monitor
	visTracer    *tracing.DBTracer

	frameIDSource id.IDGenerator
	devices       []*coalescing.Comp
	deviceByName  map[string]int
	terminated    bool
}

// ID returns the unique id of the run.
func (s *Simulation) ID() string {
	return s.id
}

// OutputPath returns the database file of the run.
func (s *Simulation) OutputPath() string {
	return s.outputPath
}

// GetEngine returns the engine used in the simulation.
func (s *Simulation) GetEngine() timing.Engine {
	return s.engine
}

// GetDataRecorder returns the data recorder used in the simulation.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetExecRecorder returns the recorder of the run properties.
func (s *Simulation) GetExecRecorder() *datarecording.ExecRecorder {
	return s.execRecorder
}

// GetMonitor returns the monitor used in the simulation, or nil.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// GetVisTracer returns the tracer used in the simulation, or nil.
func (s *Simulation) GetVisTracer() *tracing.DBTracer {
	return s.visTracer
}

// GetSink returns where devices write their measurements.
func (s *Simulation) GetSink() measurement.Sink {
	return s.sink
}

// DeviceBuilder returns a device builder bound to the engine, the sink, and
// the frame id source of the simulation.
func (s *Simulation) DeviceBuilder() coalescing.Builder {
	return coalescing.MakeBuilder().
		WithEngine(s.engine).
		WithSink(s.sink).
		WithIDGenerator(s.frameIDSource)
}

// RegisterDevice registers a device with the simulation. Its measurements
// are written when the simulation terminates.
func (s *Simulation) RegisterDevice(d *coalescing.Comp) {
	name := d.Name()
	if _, found := s.deviceByName[name]; found {
		panic("device " + name + " already registered")
	}

	s.devices = append(s.devices, d)
	s.deviceByName[name] = len(s.devices) - 1

	s.engine.RegisterSimulationEndHandler(d.EndHandler())

	if s.monitor != nil {
		s.monitor.RegisterDevice(d)
	}

	if s.visTracer != nil {
		tracing.CollectTrace(d, s.visTracer)
	}
}

// GetDeviceByName returns the device with the given name, or nil.
func (s *Simulation) GetDeviceByName(name string) *coalescing.Comp {
	i, found := s.deviceByName[name]
	if !found {
		return nil
	}

	return s.devices[i]
}

// Devices returns all registered devices.
func (s *Simulation) Devices() []*coalescing.Comp {
	return s.devices
}

// Run runs the simulation until no event is left.
func (s *Simulation) Run() error {
	return s.engine.Run()
}

// RunUntil runs the simulation up to the given time.
func (s *Simulation) RunUntil(t timing.VTime) error {
	return s.engine.RunUntil(t)
}

// Terminate writes the measurements of every device, flushes the outputs,
// and closes the database. Later calls do nothing.
func (s *Simulation) Terminate() error {
	if s.terminated {
		return nil
	}

	s.terminated = true

	s.engine.Finished()

	if s.visTracer != nil {
		s.visTracer.Terminate()
	}

	var result *multierror.Error

	if err := s.sink.Flush(); err != nil {
		result = multierror.Append(result,
			fmt.Errorf("flushing measurements: %w", err))
	}

	s.execRecorder.Add("Simulated Time", s.engine.CurrentTime().String())
	s.execRecorder.End()

	if err := s.dataRecorder.Close(); err != nil {
		result = multierror.Append(result,
			fmt.Errorf("closing %s: %w", s.outputPath, err))
	}

	return result.ErrorOrNil()
}
