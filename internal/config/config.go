// Package config loads the knob-sensor YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/sweeney/knob-sensor/internal/gpio"
)

// Config is the top-level configuration.
type Config struct {
	Poll      Duration     `yaml:"poll"`
	Heartbeat Duration     `yaml:"heartbeat"`
	HTTP      string       `yaml:"http"`
	MQTT      MQTTConfig   `yaml:"mqtt"`
	GPIO      GPIOConfig   `yaml:"gpio"`
	Knobs     []KnobConfig `yaml:"knobs"`
}

// MQTTConfig holds broker connection settings.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	Buffer      int    `yaml:"buffer"` // messages held while disconnected
}

// GPIOConfig selects the pin backend.
type GPIOConfig struct {
	Backend string `yaml:"backend"` // "gpiocdev" or "periph"
	Chip    string `yaml:"chip"`
}

// KnobConfig describes one encoder.
type KnobConfig struct {
	Name string `yaml:"name"`
	PinA int    `yaml:"pin_a"`
	PinB int    `yaml:"pin_b"`
}

// Duration is a time.Duration written as "3ms", "15m" in YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// D returns d as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// Default returns the configuration used when a field is not set.
func Default() Config {
	return Config{
		Poll:      Duration(3 * time.Millisecond),
		Heartbeat: Duration(15 * time.Minute),
		HTTP:      ":80",
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			ClientID:    "knob-sensor",
			TopicPrefix: "knob/sensor",
			Buffer:      100,
		},
		GPIO: GPIOConfig{
			Backend: gpio.BackendGPIOCDev,
			Chip:    gpio.DefaultChip,
		},
	}
}

// Load reads path over the defaults. It does not validate.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors that would fail at startup.
func (c Config) Validate() error {
	var errs []error

	if c.Poll <= 0 {
		errs = append(errs, errors.New("poll must be positive"))
	}
	if c.Heartbeat < 0 {
		errs = append(errs, errors.New("heartbeat must not be negative"))
	}
	switch c.GPIO.Backend {
	case gpio.BackendGPIOCDev, gpio.BackendPeriph:
	default:
		errs = append(errs, fmt.Errorf("unknown gpio backend %q", c.GPIO.Backend))
	}
	if c.MQTT.Buffer < 0 {
		errs = append(errs, errors.New("mqtt buffer must not be negative"))
	}
	if len(c.Knobs) == 0 {
		errs = append(errs, errors.New("no knobs configured"))
	}

	names := map[string]bool{}
	pins := map[int]string{}
	for i, k := range c.Knobs {
		label := k.Name
		if label == "" {
			errs = append(errs, fmt.Errorf("knob %d: missing name", i))
			label = fmt.Sprintf("#%d", i)
		} else if names[k.Name] {
			errs = append(errs, fmt.Errorf("knob %s: duplicate name", k.Name))
		}
		names[k.Name] = true

		if k.PinA == k.PinB {
			errs = append(errs, fmt.Errorf("knob %s: pin_a and pin_b are both %d", label, k.PinA))
		}
		for _, p := range []int{k.PinA, k.PinB} {
			if p < 0 {
				errs = append(errs, fmt.Errorf("knob %s: negative pin %d", label, p))
				continue
			}
			if owner, ok := pins[p]; ok && owner != label {
				errs = append(errs, fmt.Errorf("knob %s: pin %d already used by %s", label, p, owner))
			}
			pins[p] = label
		}
	}

	return errors.Join(errs...)
}
