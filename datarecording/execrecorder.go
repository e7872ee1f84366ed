package datarecording

import (
	"os"
	"strings"
	"time"
)

// ExecInfo is one property of a simulation run.
type ExecInfo struct {
	Property string
	Value    string
}

// ExecRecorder records how a simulation was run: when, with which command
// line, and any extra properties the caller adds.
type ExecRecorder struct {
	tableName string
	recorder  DataRecorder
	entries   []ExecInfo
}

// NewExecRecorder creates the exec_info table in the recorder.
func NewExecRecorder(recorder DataRecorder) *ExecRecorder {
	e := &ExecRecorder{
		tableName: "exec_info",
		recorder:  recorder,
	}

	e.recorder.CreateTable(e.tableName, ExecInfo{})

	return e
}

// Start captures the start time, the command and the working directory.
func (e *ExecRecorder) Start() {
	e.Add("Start Time", now())
	e.Add("Command", strings.Join(os.Args, " "))

	if cwd, err := os.Getwd(); err == nil {
		e.Add("Working Directory", cwd)
	}
}

// Add records an extra property.
func (e *ExecRecorder) Add(property, value string) {
	e.entries = append(e.entries, ExecInfo{Property: property, Value: value})
}

// End writes all properties along with the end time.
func (e *ExecRecorder) End() {
	e.Add("End Time", now())

	for _, entry := range e.entries {
		e.recorder.InsertData(e.tableName, entry)
	}

	e.entries = nil

	e.recorder.Flush()
}

func now() string {
	return time.Now().Format("2006-01-02 15:04:05.000000000")
}
