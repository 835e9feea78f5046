// Package config loads and saves the on-disk process configuration,
// grounded on the teacher's internal/config.Config (same driver/gpio/
// color_order/brightness/fps/power/spi fields, same load-then-flags
// precedence) generalized from a fixed cube Dim to the spec's Layout
// description and extended with the scheduler, pattern default, and
// network listener fields the original Python driver's config.json
// also carried.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/coreman2200/ledpanel/internal/layout"
)

// PowerCfg is the on-disk power-limiter configuration.
type PowerCfg struct {
	LimitAmps   float64 `yaml:"limit_amps"`
	WhiteCap    float64 `yaml:"white_cap"`
	SoftStartMs int     `yaml:"soft_start_ms"`
	Dynamic     bool    `yaml:"dynamic"`
}

// SPICfg is the on-disk SPI bus configuration for the hwdriver/spi driver.
type SPICfg struct {
	Dev     string `yaml:"dev"`      // e.g. /dev/spidev0.0
	SpeedHz int    `yaml:"speed_hz"` // e.g. 2400000
	ResetUs int    `yaml:"reset_us"` // e.g. 300
}

// ScheduleCfg is the on-disk sleep-scheduler configuration, mirroring
// original_source/rpi_driver/sleep_scheduler.py's on/off wall-clock window.
type ScheduleCfg struct {
	Enabled bool   `yaml:"enabled"`
	On      string `yaml:"on"`  // "HH:MM" local time
	Off     string `yaml:"off"` // "HH:MM" local time
}

// PatternCfg names the default pattern selection at startup.
type PatternCfg struct {
	Name   string             `yaml:"name"`             // empty means external
	Params map[string]float64 `yaml:"params,omitempty"`
}

// ShowClipCfg is one on-disk entry of a ShowCfg's clip list.
type ShowClipCfg struct {
	Name      string             `yaml:"name"`
	Pattern   string             `yaml:"pattern"` // internal generator name
	Params    map[string]float64 `yaml:"params,omitempty"`
	DurationS float64            `yaml:"duration_s"`
}

// ShowCfg optionally names a looping playlist of internal patterns to
// run instead of (or before) a single default Pattern.
type ShowCfg struct {
	Enabled bool          `yaml:"enabled"`
	Loop    bool          `yaml:"loop"`
	Clips   []ShowClipCfg `yaml:"clips,omitempty"`
}

// NetworkCfg configures the ingress and control-surface listeners.
type NetworkCfg struct {
	HTTPAddr   string `yaml:"http_addr"`
	UDPAddr    string `yaml:"udp_addr"`
	Pipe       string `yaml:"pipe,omitempty"`   // named pipe path, empty disables
	Serial     string `yaml:"serial,omitempty"` // serial device path, empty disables
	SerialBaud int    `yaml:"serial_baud,omitempty"`
}

// Config is the full on-disk process document.
type Config struct {
	Driver     string  `yaml:"driver"` // "sim" | "fake" | "spi"
	GPIO       int     `yaml:"gpio"`
	ColorOrder string  `yaml:"color_order"`
	Brightness float64 `yaml:"brightness"` // 0..1, converted to [0,255] at startup
	FPS        int     `yaml:"fps"`

	Layout layout.Description `yaml:"layout"`

	PitchMM    float64 `yaml:"pitch_mm"`
	PanelGapMM float64 `yaml:"panel_gap_mm"`

	Power    PowerCfg    `yaml:"power"`
	SPI      SPICfg      `yaml:"spi,omitempty"`
	Schedule ScheduleCfg `yaml:"schedule,omitempty"`
	Pattern  PatternCfg  `yaml:"pattern,omitempty"`
	Show     ShowCfg     `yaml:"show,omitempty"`
	Network  NetworkCfg  `yaml:"network"`
}

// Load reads and parses a YAML Config document at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Save writes c as a YAML document at path.
func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
