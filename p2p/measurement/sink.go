package measurement

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/sarchlab/eeesim/datarecording"
)

// DefaultTextFile is where a TextSink appends by default.
const DefaultTextFile = "data.txt"

// A Sink receives the records of all devices at the end of a simulation.
type Sink interface {
	Write(r Record) error
	Flush() error
}

// TextSink appends one line per record to a file. Records from several runs
// accumulate in the same file.
type TextSink struct {
	lock sync.Mutex
	path string
	file *os.File
	w    *bufio.Writer
}

// NewTextSink creates a sink that appends to path. The file is opened on the
// first write.
func NewTextSink(path string) *TextSink {
	if path == "" {
		path = DefaultTextFile
	}

	return &TextSink{path: path}
}

// Path returns the file the sink appends to.
func (s *TextSink) Path() string {
	return s.path
}

// Write buffers the record as one line.
func (s *TextSink) Write(r Record) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.file == nil {
		f, err := os.OpenFile(s.path,
			os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}

		s.file = f
		s.w = bufio.NewWriter(f)
	}

	_, err := fmt.Fprintln(s.w, r.String())

	return err
}

// Flush writes the buffered lines and closes the file.
func (s *TextSink) Flush() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.file == nil {
		return nil
	}

	var result error

	if err := s.w.Flush(); err != nil {
		result = multierror.Append(result, err)
	}

	if err := s.file.Close(); err != nil {
		result = multierror.Append(result, err)
	}

	s.file = nil
	s.w = nil

	return result
}

// RecordTable is the table a RecorderSink writes into.
const RecordTable = "eee_measurement"

// RecorderSink writes records as rows of a data recorder table.
type RecorderSink struct {
	recorder datarecording.DataRecorder
}

// NewRecorderSink creates the measurement table in the recorder.
func NewRecorderSink(recorder datarecording.DataRecorder) *RecorderSink {
	recorder.CreateTable(RecordTable, Record{})

	return &RecorderSink{recorder: recorder}
}

// Write buffers the record in the recorder.
func (s *RecorderSink) Write(r Record) error {
	s.recorder.InsertData(RecordTable, r)
	return nil
}

// Flush commits the buffered rows.
func (s *RecorderSink) Flush() error {
	s.recorder.Flush()
	return nil
}

// ReadRecorderRecords returns the records a RecorderSink wrote, ordered by
// node and interface.
func ReadRecorderRecords(
	ctx context.Context,
	reader datarecording.DataReader,
) ([]Record, error) {
	return datarecording.QueryAll[Record](ctx, reader, RecordTable,
		datarecording.QueryParams{OrderBy: "NodeID, IfIndex"})
}

// MultiSink writes every record to all of its sinks. A failing sink does not
// stop the others.
type MultiSink []Sink

// Write writes to every sink and collects the errors.
func (m MultiSink) Write(r Record) error {
	var result error

	for _, s := range m {
		if err := s.Write(r); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result
}

// Flush flushes every sink and collects the errors.
func (m MultiSink) Flush() error {
	var result error

	for _, s := range m {
		if err := s.Flush(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result
}

// MemorySink keeps records in memory.
type MemorySink struct {
	lock    sync.Mutex
	records []Record
	flushes int
}

// Write appends the record.
func (s *MemorySink) Write(r Record) error {
	s.lock.Lock()
	s.records = append(s.records, r)
	s.lock.Unlock()

	return nil
}

// Flush counts the flush.
func (s *MemorySink) Flush() error {
	s.lock.Lock()
	s.flushes++
	s.lock.Unlock()

	return nil
}

// Records returns a copy of the records written so far.
func (s *MemorySink) Records() []Record {
	s.lock.Lock()
	defer s.lock.Unlock()

	out := make([]Record, len(s.records))
	copy(out, s.records)

	return out
}

// Flushes returns how many times Flush was called.
func (s *MemorySink) Flushes() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.flushes
}

var (
	_ Sink = (*TextSink)(nil)
	_ Sink = (*RecorderSink)(nil)
	_ Sink = MultiSink(nil)
	_ Sink = (*MemorySink)(nil)
)
