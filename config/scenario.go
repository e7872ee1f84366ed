// Package config loads simulation scenarios from YAML files.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/eeesim/p2p/coalescing"
	"github.com/sarchlab/eeesim/p2p/framing"
	"github.com/sarchlab/eeesim/sim/timing"
)

// ErrInvalidScenario is wrapped by the errors Scenario.Validate returns.
var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario describes one simulation run: a link of two coalescing devices
// and the traffic offered to them.
type Scenario struct {
	Link    LinkConfig    `yaml:"link"`
	Device  DeviceConfig  `yaml:"device"`
	Traffic TrafficConfig `yaml:"traffic"`
	Output  OutputConfig  `yaml:"output"`
	Monitor MonitorConfig `yaml:"monitor"`
}

// LinkConfig holds the attributes shared by both ends of the link.
type LinkConfig struct {
	DataRate      DataRate `yaml:"dataRate"`
	Delay         Duration `yaml:"delay"`
	MTU           int      `yaml:"mtu"`
	InterframeGap Duration `yaml:"interframeGap"`
}

// DeviceConfig holds the EEE parameters of the devices.
type DeviceConfig struct {
	QueueCapacity ByteSize `yaml:"queueCapacity"`
	Timeout       Duration `yaml:"timeout"`
	ByteLimit     ByteSize `yaml:"byteLimit"`
	WakeTime      Duration `yaml:"wakeTime"`
}

// TrafficConfig describes the Poisson traffic each device sends.
type TrafficConfig struct {
	// Load is the offered load as a fraction of the link rate.
	Load float64 `yaml:"load"`

	// FrameSize is the payload size of every frame.
	FrameSize ByteSize `yaml:"frameSize"`

	// Duration is how long traffic is generated.
	Duration Duration `yaml:"duration"`

	Seed          uint64 `yaml:"seed"`
	Bidirectional bool   `yaml:"bidirectional"`
}

// OutputConfig selects where results are written.
type OutputConfig struct {
	// Name is the base name of the SQLite file. Empty picks a unique name.
	Name string `yaml:"name"`

	// Text is the measurement text file. Empty disables it.
	Text string `yaml:"text"`

	Tracing bool `yaml:"tracing"`
}

// MonitorConfig controls the HTTP monitor.
type MonitorConfig struct {
	Enabled     bool `yaml:"enabled"`
	Port        int  `yaml:"port"`
	OpenBrowser bool `yaml:"openBrowser"`
}

// Default returns the scenario of a 10 Gbps link at 10% load.
func Default() Scenario {
	d := coalescing.DefaultConfig()

	return Scenario{
		Link: LinkConfig{
			DataRate:      DataRate(d.DataRate),
			Delay:         Duration(30 * timing.Microsecond),
			MTU:           d.MTU,
			InterframeGap: Duration(d.InterframeGap),
		},
		Device: DeviceConfig{
			QueueCapacity: ByteSize(d.QueueCapacity),
			Timeout:       Duration(d.Timeout),
			ByteLimit:     ByteSize(d.ByteLimit),
			WakeTime:      Duration(d.WakeTime),
		},
		Traffic: TrafficConfig{
			Load:      0.1,
			FrameSize: 1000,
			Duration:  Duration(10 * timing.Millisecond),
			Seed:      1,
		},
		Output: OutputConfig{
			Text: "data.txt",
		},
	}
}

// Parse reads a scenario from YAML. Fields the document leaves out keep
// their default values.
func Parse(data []byte) (Scenario, error) {
	s := Default()

	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse scenario: %w", err)
	}

	return s, nil
}

// Load reads a scenario file and applies the EEESIM_* overrides found in the
// given .env files and in the process environment. The result is validated.
func Load(path string, envFiles ...string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}

	s, err := Parse(data)
	if err != nil {
		return s, fmt.Errorf("%s: %w", path, err)
	}

	env, err := ReadEnv(envFiles...)
	if err != nil {
		return s, err
	}

	if err := s.ApplyEnv(env); err != nil {
		return s, err
	}

	return s, s.Validate()
}

// Dump renders the scenario as YAML.
func (s Scenario) Dump() string {
	out, err := yaml.Marshal(s)
	if err != nil {
		log.Panic(err)
	}

	return string(out)
}

// Validate checks the traffic and monitor settings and the device
// configuration.
func (s Scenario) Validate() error {
	if _, err := s.DeviceConfig(); err != nil {
		return err
	}

	t := s.Traffic

	if t.Load <= 0 || t.Load > 1 {
		return fmt.Errorf("traffic load %g not in (0, 1]: %w",
			t.Load, ErrInvalidScenario)
	}

	if t.FrameSize == 0 || int(t.FrameSize) > s.Link.MTU {
		return fmt.Errorf("frame size %d not in [1, %d]: %w",
			uint64(t.FrameSize), s.Link.MTU, ErrInvalidScenario)
	}

	if t.Duration == 0 {
		return fmt.Errorf("traffic duration must be positive: %w",
			ErrInvalidScenario)
	}

	if s.Monitor.Port < 0 || s.Monitor.Port > 65535 {
		return fmt.Errorf("monitor port %d out of range: %w",
			s.Monitor.Port, ErrInvalidScenario)
	}

	return nil
}

// DeviceConfig converts the link and device sections into a validated
// device configuration.
func (s Scenario) DeviceConfig() (coalescing.Config, error) {
	c := coalescing.Config{
		DataRate:      timing.DataRate(s.Link.DataRate),
		InterframeGap: s.Link.InterframeGap.VTime(),
		MTU:           s.Link.MTU,
		QueueCapacity: int(s.Device.QueueCapacity),
		Timeout:       s.Device.Timeout.VTime(),
		ByteLimit:     int(s.Device.ByteLimit),
		WakeTime:      s.Device.WakeTime.VTime(),
	}

	if err := c.Validate(); err != nil {
		return c, err
	}

	return c, nil
}

// FrameInterval is the mean time between two frames of one device at the
// configured load.
func (s Scenario) FrameInterval() timing.VTime {
	rate := timing.DataRate(s.Link.DataRate)
	tx := rate.TxTime(int(s.Traffic.FrameSize) + framing.HeaderSize)

	return timing.FromSeconds(tx.Seconds() / s.Traffic.Load)
}
