package simulation

import (
	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/eeesim/datarecording"
	"github.com/sarchlab/eeesim/monitoring"
	"github.com/sarchlab/eeesim/p2p/measurement"
	"github.com/sarchlab/eeesim/sim/id"
	"github.com/sarchlab/eeesim/sim/timing"
	"github.com/sarchlab/eeesim/tracing"
)

// Builder can be used to build a simulation.
type Builder struct {
	monitorOn      bool
	monitorPort    int
	openBrowser    bool
	tracingOn      bool
	outputFileName string
	textOutput     string
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		monitorOn:  true,
		textOutput: measurement.DefaultTextFile,
	}
}

// WithoutMonitoring sets the simulation to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithOpenBrowser opens the monitoring page once the server is up.
func (b Builder) WithOpenBrowser() Builder {
	b.openBrowser = true
	return b
}

// WithTracing stores frame and state tasks of every registered device in
// the output database.
func (b Builder) WithTracing() Builder {
	b.tracingOn = true
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithTextOutput sets the file the measurement lines are appended to. An
// empty path disables the text output.
func (b Builder) WithTextOutput(path string) Builder {
	b.textOutput = path
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.monitorOn && b.openBrowser {
		panic("browser cannot be opened when monitoring is disabled")
	}
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{
		id:            xid.New().String(),
		deviceByName:  make(map[string]int),
		frameIDSource: id.NewSequentialIDGenerator(),
	}

	outputPath := b.outputFileName
	if outputPath == "" {
		outputPath = "eeesim_" + s.id
	}

	s.outputPath = outputPath + ".sqlite3"
	s.dataRecorder = datarecording.New(outputPath)
	s.execRecorder = datarecording.NewExecRecorder(s.dataRecorder)
	s.execRecorder.Start()
	s.execRecorder.Add("Simulation ID", s.id)

	s.engine = timing.NewSerialEngine()
	if eventLogger.IsTraceEnabled() {
		s.engine.AcceptHook(timing.NewEventLogger(eventLogger))
	}

	sinks := measurement.MultiSink{measurement.NewRecorderSink(s.dataRecorder)}
	if b.textOutput != "" {
		sinks = append(sinks, measurement.NewTextSink(b.textOutput))
	}
	s.sink = sinks

	if b.tracingOn {
		s.visTracer = tracing.NewDBTracer(s.engine, s.dataRecorder)
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor().
			WithPortNumber(b.monitorPort).
			WithOpenBrowser(b.openBrowser)
		s.monitor.RegisterEngine(s.engine)
		s.monitor.StartServer()
	}

	atexit.Register(func() {
		if err := s.Terminate(); err != nil {
			logger.Errorf("terminating simulation %s: %v", s.id, err)
		}
	})

	return s
}
