package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix starts the name of every override variable.
const EnvPrefix = "EEESIM_"

// ReadEnv collects the EEESIM_* variables of the given .env files and of the
// process environment. Files that do not exist are skipped. The process
// environment takes precedence over the files.
func ReadEnv(files ...string) (map[string]string, error) {
	env := make(map[string]string)

	for _, f := range files {
		vars, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}

		for k, v := range vars {
			if strings.HasPrefix(k, EnvPrefix) {
				env[k] = v
			}
		}
	}

	for _, kv := range os.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(k, EnvPrefix) {
			env[k] = v
		}
	}

	return env, nil
}

func (s *Scenario) overrides() map[string]any {
	return map[string]any{
		"EEESIM_LINK_DATA_RATE":        &s.Link.DataRate,
		"EEESIM_LINK_DELAY":            &s.Link.Delay,
		"EEESIM_LINK_MTU":              &s.Link.MTU,
		"EEESIM_LINK_INTERFRAME_GAP":   &s.Link.InterframeGap,
		"EEESIM_DEVICE_QUEUE_CAPACITY": &s.Device.QueueCapacity,
		"EEESIM_DEVICE_TIMEOUT":        &s.Device.Timeout,
		"EEESIM_DEVICE_BYTE_LIMIT":     &s.Device.ByteLimit,
		"EEESIM_DEVICE_WAKE_TIME":      &s.Device.WakeTime,
		"EEESIM_TRAFFIC_LOAD":          &s.Traffic.Load,
		"EEESIM_TRAFFIC_FRAME_SIZE":    &s.Traffic.FrameSize,
		"EEESIM_TRAFFIC_DURATION":      &s.Traffic.Duration,
		"EEESIM_TRAFFIC_SEED":          &s.Traffic.Seed,
		"EEESIM_TRAFFIC_BIDIRECTIONAL": &s.Traffic.Bidirectional,
		"EEESIM_OUTPUT_NAME":           &s.Output.Name,
		"EEESIM_OUTPUT_TEXT":           &s.Output.Text,
		"EEESIM_OUTPUT_TRACING":        &s.Output.Tracing,
		"EEESIM_MONITOR_ENABLED":       &s.Monitor.Enabled,
		"EEESIM_MONITOR_PORT":          &s.Monitor.Port,
		"EEESIM_MONITOR_OPEN_BROWSER":  &s.Monitor.OpenBrowser,
	}
}

// ApplyEnv overrides scenario fields with the values of EEESIM_* variables.
// Values use the same notation as the YAML file. Unknown EEESIM_* variables
// are errors.
func (s *Scenario) ApplyEnv(env map[string]string) error {
	fields := s.overrides()

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		if !strings.HasPrefix(k, EnvPrefix) {
			continue
		}

		field, ok := fields[k]
		if !ok {
			return fmt.Errorf("unknown override %s: %w", k, ErrInvalidScenario)
		}

		if err := setScalar(field, env[k]); err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
	}

	return nil
}

func setScalar(field any, value string) error {
	var node yaml.Node

	if err := yaml.Unmarshal([]byte(value), &node); err != nil {
		return err
	}

	if len(node.Content) == 0 {
		return fmt.Errorf("empty value: %w", ErrInvalidScenario)
	}

	scalar := node.Content[0]
	if scalar.Kind != yaml.ScalarNode {
		return fmt.Errorf("%q is not a scalar: %w", value, ErrInvalidScenario)
	}

	return scalar.Decode(field)
}
