package analysis

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gonum.org/v1/gonum/stat"

	"github.com/sarchlab/eeesim/datarecording"
	"github.com/sarchlab/eeesim/p2p/measurement"
)

// ConfidenceZ is the z value of the 98% confidence margins.
const ConfidenceZ = 2.33

// PortResult compares one measurement record with the model.
type PortResult struct {
	NodeID  uint32
	IfIndex uint32

	// EToff is the measured mean low-power interval, in seconds.
	EToff float64

	// ModelEToff is the interval the model predicts.
	ModelEToff float64

	// Phi is the measured relative energy.
	Phi float64

	// ModelPhi is the relative energy the model predicts.
	ModelPhi float64
}

// Analyze evaluates a record. Records without traffic or without a counted
// low-power interval cannot be evaluated and return false.
func (p Params) Analyze(r measurement.Record) (PortResult, bool) {
	if r.Frames == 0 || r.LowPowerIntervals == 0 || r.MeanInterarrival <= 0 {
		return PortResult{}, false
	}

	lambda := 1 / r.MeanInterarrival
	meanSize := float64(r.Bytes) / float64(r.Frames)
	mu := float64(r.LinkBitRate) / 8 / meanSize
	rho := lambda / mu
	etoff := 1e-9 * float64(r.LowPowerNanos) / float64(r.LowPowerIntervals)

	// The model works on whole frame sizes.
	roundedSize := math.Round(meanSize)

	return PortResult{
		NodeID:     r.NodeID,
		IfIndex:    r.IfIndex,
		EToff:      etoff,
		ModelEToff: p.ModelEToff(lambda, roundedSize),
		Phi:        p.Phi(rho, etoff),
		ModelPhi:   p.ModelPhi(lambda, roundedSize, rho),
	}, true
}

// Interval is a mean with its confidence margin.
type Interval struct {
	Mean   float64
	Margin float64
}

// Confidence returns the mean of xs and its 98% margin of error.
func Confidence(xs []float64) Interval {
	switch len(xs) {
	case 0:
		return Interval{}
	case 1:
		return Interval{Mean: xs[0]}
	}

	mean, std := stat.PopMeanStdDev(xs, nil)

	return Interval{
		Mean:   mean,
		Margin: ConfidenceZ * std / math.Sqrt(float64(len(xs))),
	}
}

// PortSummary aggregates the results of one port over several runs.
type PortSummary struct {
	NodeID     uint32
	IfIndex    uint32
	Runs       int
	EToff      Interval
	ModelEToff Interval
	Phi        Interval
	ModelPhi   Interval
}

type portKey struct {
	nodeID, ifIndex uint32
}

// Summarize groups results by port, ordered by node and interface.
func Summarize(results []PortResult) []PortSummary {
	byPort := make(map[portKey][]PortResult)
	for _, r := range results {
		k := portKey{r.NodeID, r.IfIndex}
		byPort[k] = append(byPort[k], r)
	}

	keys := make([]portKey, 0, len(byPort))
	for k := range byPort {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].nodeID != keys[j].nodeID {
			return keys[i].nodeID < keys[j].nodeID
		}

		return keys[i].ifIndex < keys[j].ifIndex
	})

	summaries := make([]PortSummary, 0, len(keys))
	for _, k := range keys {
		summaries = append(summaries, summarizePort(k, byPort[k]))
	}

	return summaries
}

func summarizePort(k portKey, results []PortResult) PortSummary {
	column := func(get func(PortResult) float64) []float64 {
		xs := make([]float64, len(results))
		for i, r := range results {
			xs[i] = get(r)
		}

		return xs
	}

	return PortSummary{
		NodeID:     k.nodeID,
		IfIndex:    k.ifIndex,
		Runs:       len(results),
		EToff:      Confidence(column(func(r PortResult) float64 { return r.EToff })),
		ModelEToff: Confidence(column(func(r PortResult) float64 { return r.ModelEToff })),
		Phi:        Confidence(column(func(r PortResult) float64 { return r.Phi })),
		ModelPhi:   Confidence(column(func(r PortResult) float64 { return r.ModelPhi })),
	}
}

// Report reads the measurement files of several runs and evaluates them.
// Unreadable files are reported together, the readable ones are still
// evaluated.
func (p Params) Report(paths []string) ([]PortSummary, error) {
	var (
		results []PortResult
		errs    *multierror.Error
	)

	for _, path := range paths {
		records, err := readFile(path)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}

		for _, r := range records {
			if result, ok := p.Analyze(r); ok {
				results = append(results, result)
			}
		}
	}

	return Summarize(results), errs.ErrorOrNil()
}

// readFile reads the records of a run from a measurement text file or from
// the SQLite file of a simulation.
func readFile(path string) ([]measurement.Record, error) {
	if strings.HasSuffix(path, ".sqlite3") {
		return readDatabase(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := measurement.ReadRecords(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return records, nil
}

var csvHeader = []string{
	"node", "port", "runs",
	"etoff", "etoff_margin", "model_etoff", "model_etoff_margin",
	"phi", "phi_margin", "model_phi", "model_phi_margin",
}

// WriteCSV writes the summaries with a header row.
func WriteCSV(w io.Writer, summaries []PortSummary) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	f := func(x float64) string {
		return strconv.FormatFloat(x, 'g', -1, 64)
	}

	for _, s := range summaries {
		err := cw.Write([]string{
			strconv.FormatUint(uint64(s.NodeID), 10),
			strconv.FormatUint(uint64(s.IfIndex), 10),
			strconv.Itoa(s.Runs),
			f(s.EToff.Mean), f(s.EToff.Margin),
			f(s.ModelEToff.Mean), f(s.ModelEToff.Margin),
			f(s.Phi.Mean), f(s.Phi.Margin),
			f(s.ModelPhi.Mean), f(s.ModelPhi.Margin),
		})
		if err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

func readDatabase(path string) ([]measurement.Record, error) {
	// Opening a missing file would create an empty database.
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	reader, err := datarecording.NewReader(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	records, err := measurement.ReadRecorderRecords(context.Background(), reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return records, nil
}
