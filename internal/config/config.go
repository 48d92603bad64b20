// Package config loads vv settings from vv.toml with viper.
//
// The file is optional. It is looked for in /etc/vv, $HOME/.config/vv and
// the working directory, in that order, unless a path is given explicitly.
// Anything missing from the file keeps the default set in setDefaults.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/daviddao/vitals_viewer/internal/state"
)

// DefaultFilters are the channel names of the reference device, in the
// order the device emits them.
var DefaultFilters = []string{
	"Pressure raw",
	"Pressure filtered",
	"Pressure average",
	"Pressure differential",
	"Pressure filtered - average",
	"Pressure raw - average",
	"Breath BPM",
	"Breath BPM filtered",
	"Breath BPM smooth",
	"Breath peak detection",
	"Heart beat signal",
	"Heart beat peak",
	"Heart beat BPM",
}

// Serial settings for the device link.
type Serial struct {
	Port   string `mapstructure:"port"`
	Baud   int    `mapstructure:"baud"`
	EOL    string `mapstructure:"eol"`
	DevDir string `mapstructure:"dev_dir"`
}

// Acquire settings for the acquisition loop.
type Acquire struct {
	Cadence    time.Duration `mapstructure:"cadence"`
	Idle       time.Duration `mapstructure:"idle"`
	StartDelay time.Duration `mapstructure:"start_delay"`
	Window     int           `mapstructure:"window"`
}

// Reconcile settings for the interface reconciliation loop.
type Reconcile struct {
	Cadence    time.Duration `mapstructure:"cadence"`
	StartDelay time.Duration `mapstructure:"start_delay"`
}

// Axis holds the startup contents of the graph control panel.
type Axis struct {
	XMin float64 `mapstructure:"x_min"`
	XMax float64 `mapstructure:"x_max"`
	YMin float64 `mapstructure:"y_min"`
	YMax float64 `mapstructure:"y_max"`
	Lock bool    `mapstructure:"lock"`
	Copy bool    `mapstructure:"copy"`
}

// Bounds returns the axis defaults as view limits.
func (a Axis) Bounds() state.Bounds {
	return state.Bounds{XMin: a.XMin, XMax: a.XMax, YMin: a.YMin, YMax: a.YMax}
}

// UI settings.
type UI struct {
	Refresh time.Duration `mapstructure:"refresh"`
}

// Config is the full settings tree.
type Config struct {
	Serial    Serial    `mapstructure:"serial"`
	Acquire   Acquire   `mapstructure:"acquire"`
	Reconcile Reconcile `mapstructure:"reconcile"`
	Filters   []string  `mapstructure:"filters"`
	Axis      Axis      `mapstructure:"axis"`
	UI        UI        `mapstructure:"ui"`

	// File is the config file that was read, "" if none.
	File string `mapstructure:"-"`
}

// Load reads the config. With path set, that file must exist; otherwise a
// missing vv.toml is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("vv")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/vv")
		v.AddConfigPath("$HOME/.config/vv")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	c.File = v.ConfigFileUsed()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects settings the loops cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Acquire.Cadence <= 0:
		return fmt.Errorf("acquire.cadence must be positive, got %s", c.Acquire.Cadence)
	case c.Acquire.Idle < 0:
		return fmt.Errorf("acquire.idle must not be negative, got %s", c.Acquire.Idle)
	case c.Acquire.Window <= 0:
		return fmt.Errorf("acquire.window must be positive, got %d", c.Acquire.Window)
	case c.Reconcile.Cadence <= 0:
		return fmt.Errorf("reconcile.cadence must be positive, got %s", c.Reconcile.Cadence)
	case c.Serial.Baud <= 0:
		return fmt.Errorf("serial.baud must be positive, got %d", c.Serial.Baud)
	case len(c.Filters) == 0:
		return fmt.Errorf("filters must name at least one channel")
	}
	return nil
}

// setDefaults mirrors the reference deployment: 100ms/500ms acquisition,
// 400ms reconciliation, a 200-sample window and the 13 device channels.
func setDefaults(v *viper.Viper) {
	v.SetDefault("serial.port", "")
	v.SetDefault("serial.baud", 115200)
	v.SetDefault("serial.eol", "\n")
	v.SetDefault("serial.dev_dir", "/dev")

	v.SetDefault("acquire.cadence", 100*time.Millisecond)
	v.SetDefault("acquire.idle", 500*time.Millisecond)
	v.SetDefault("acquire.start_delay", time.Second)
	v.SetDefault("acquire.window", 200)

	v.SetDefault("reconcile.cadence", 400*time.Millisecond)
	v.SetDefault("reconcile.start_delay", time.Second)

	v.SetDefault("filters", DefaultFilters)

	v.SetDefault("axis.x_min", 0.0)
	v.SetDefault("axis.x_max", 200.0)
	v.SetDefault("axis.y_min", 0.0)
	v.SetDefault("axis.y_max", 100.0)
	v.SetDefault("axis.lock", false)
	v.SetDefault("axis.copy", false)

	v.SetDefault("ui.refresh", 250*time.Millisecond)
}
