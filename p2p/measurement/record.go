package measurement

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Record is the measurement of one device at the end of a simulation.
type Record struct {
	NodeID            uint32
	IfIndex           uint32
	LowPowerNanos     uint64
	LowPowerIntervals uint64
	Frames            uint64
	Bytes             uint64
	MeanInterarrival  float64
	LinkBitRate       uint64
}

// String formats the record as one space-separated line, without the line
// break.
func (r Record) String() string {
	return fmt.Sprintf("%d %d %d %d %d %d %s %d",
		r.NodeID, r.IfIndex,
		r.LowPowerNanos, r.LowPowerIntervals,
		r.Frames, r.Bytes,
		strconv.FormatFloat(r.MeanInterarrival, 'g', -1, 64),
		r.LinkBitRate)
}

// ParseRecord parses a line produced by Record.String.
func ParseRecord(line string) (Record, error) {
	var r Record

	fields := strings.Fields(line)
	if len(fields) != 8 {
		return r, fmt.Errorf("record %q: want 8 fields, got %d",
			line, len(fields))
	}

	uints := make([]uint64, 0, 7)

	for i, f := range fields {
		if i == 6 {
			continue
		}

		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return r, fmt.Errorf("record %q: field %d: %w", line, i+1, err)
		}

		uints = append(uints, v)
	}

	mean, err := strconv.ParseFloat(fields[6], 64)
	if err != nil {
		return r, fmt.Errorf("record %q: field 7: %w", line, err)
	}

	if uints[0] > 0xffffffff || uints[1] > 0xffffffff {
		return r, fmt.Errorf("record %q: node or interface out of range", line)
	}

	r = Record{
		NodeID:            uint32(uints[0]),
		IfIndex:           uint32(uints[1]),
		LowPowerNanos:     uints[2],
		LowPowerIntervals: uints[3],
		Frames:            uints[4],
		Bytes:             uints[5],
		MeanInterarrival:  mean,
		LinkBitRate:       uints[6],
	}

	return r, nil
}

// ReadRecords parses every non-empty line of r.
func ReadRecords(r io.Reader) ([]Record, error) {
	var records []Record

	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		rec, err := ParseRecord(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
