package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sarchlab/eeesim/p2p/coalescing"
)

var (
	simTimeDesc = prometheus.NewDesc(
		"eeesim_simulation_time_seconds",
		"Current virtual time of the simulation.",
		nil, nil)
	stateDesc = prometheus.NewDesc(
		"eeesim_device_state",
		"Coalescing state of the device, 1 for the current state.",
		[]string{"device", "state"}, nil)
	queueBytesDesc = prometheus.NewDesc(
		"eeesim_queue_bytes",
		"Bytes waiting in the transmit queue.",
		[]string{"device"}, nil)
	framesDesc = prometheus.NewDesc(
		"eeesim_transmitted_frames_total",
		"Frames put on the wire.",
		[]string{"device"}, nil)
	bytesDesc = prometheus.NewDesc(
		"eeesim_transmitted_bytes_total",
		"Bytes put on the wire.",
		[]string{"device"}, nil)
	lowPowerSecondsDesc = prometheus.NewDesc(
		"eeesim_low_power_seconds_total",
		"Time spent in completed low-power intervals, the first excluded.",
		[]string{"device"}, nil)
	lowPowerIntervalsDesc = prometheus.NewDesc(
		"eeesim_low_power_intervals_total",
		"Completed low-power intervals.",
		[]string{"device"}, nil)
)

var allStates = []coalescing.State{
	coalescing.StateLowPower,
	coalescing.StateWakeup,
	coalescing.StateSend,
	coalescing.StateSleep,
}

// deviceCollector reads the devices of a monitor when Prometheus scrapes.
type deviceCollector struct {
	m *Monitor
}

func newDeviceCollector(m *Monitor) *deviceCollector {
	return &deviceCollector{m: m}
}

func (c *deviceCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- simTimeDesc
	ch <- stateDesc
	ch <- queueBytesDesc
	ch <- framesDesc
	ch <- bytesDesc
	ch <- lowPowerSecondsDesc
	ch <- lowPowerIntervalsDesc
}

func (c *deviceCollector) Collect(ch chan<- prometheus.Metric) {
	if c.m.engine != nil {
		ch <- prometheus.MustNewConstMetric(simTimeDesc,
			prometheus.GaugeValue, c.m.engine.CurrentTime().Seconds())
	}

	for _, d := range c.m.devices {
		name := d.Name()
		counters := d.Counters()

		for _, s := range allStates {
			v := 0.0
			if d.State() == s {
				v = 1
			}

			ch <- prometheus.MustNewConstMetric(stateDesc,
				prometheus.GaugeValue, v, name, s.String())
		}

		ch <- prometheus.MustNewConstMetric(queueBytesDesc,
			prometheus.GaugeValue, float64(d.Queue().Bytes()), name)
		ch <- prometheus.MustNewConstMetric(framesDesc,
			prometheus.CounterValue, float64(counters.Frames), name)
		ch <- prometheus.MustNewConstMetric(bytesDesc,
			prometheus.CounterValue, float64(counters.Bytes), name)
		ch <- prometheus.MustNewConstMetric(lowPowerSecondsDesc,
			prometheus.CounterValue, counters.LowPowerTime.Seconds(), name)
		ch <- prometheus.MustNewConstMetric(lowPowerIntervalsDesc,
			prometheus.CounterValue, float64(counters.LowPowerIntervals), name)
	}
}
