package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxConfigFileBytes caps the size of a config file accepted by Load.
const MaxConfigFileBytes = 64 * 1024

// BoothConfig holds the session timings and limits.
type BoothConfig struct {
	CountdownStart    int   `yaml:"countdown_start"`     // first countdown value shown (e.g. 3)
	CountdownTickMs   int   `yaml:"countdown_tick_ms"`   // period between countdown ticks
	InputLockoutMs    int   `yaml:"input_lockout_ms"`    // button lockout after each state exit
	PrintNotifyMs     int   `yaml:"print_notify_ms"`     // time the "sent to print" screen stays up
	PrintPollMs       int   `yaml:"print_poll_ms"`       // printer job polling period
	MaxPrintCount     int   `yaml:"max_print_count"`     // copies wrap back to 1 after this
	MinPhotos         int   `yaml:"min_photos"`          // photos needed before printing
	LightsPeriodMs    int   `yaml:"lights_period_ms"`    // alternating/flashing period on idle screens
	CountdownRatesMs  []int `yaml:"countdown_rates_ms"`  // flash periods, last entry used at count 0
	PreviewIntervalMs int   `yaml:"preview_interval_ms"` // live preview refresh period
}

// ButtonsConfig maps the illuminated buttons to GPIO pins (BCM numbering).
type ButtonsConfig struct {
	LeftLedPin     int `yaml:"left_led_pin"`
	LeftButtonPin  int `yaml:"left_button_pin"`
	RightLedPin    int `yaml:"right_led_pin"`
	RightButtonPin int `yaml:"right_button_pin"`
	DebounceMs     int `yaml:"debounce_ms"` // minimum time between two presses of one button
	PollMs         int `yaml:"poll_ms"`     // edge detection polling period
}

// WebcamConfig describes the preview/capture device.
// Type selects a concrete implementation ("v4l2" or "mock").
type WebcamConfig struct {
	Type   string `yaml:"type"`
	Device string `yaml:"device"` // e.g. /dev/video0
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// PrinterConfig describes the print backend.
// Type selects a concrete implementation ("cups" or "mock").
type PrinterConfig struct {
	Type    string `yaml:"type"`
	Name    string `yaml:"name"`     // CUPS queue name
	Host    string `yaml:"host"`     // CUPS scheduler host
	Port    int    `yaml:"port"`     // CUPS scheduler IPP port
	WorkDir string `yaml:"work_dir"` // where composites are written before submission
}

// StorageConfig controls the on-disk photo archive.
type StorageConfig struct {
	Dir string `yaml:"dir"` // empty = keep photos in memory only
}

// ComposeConfig controls the print composite.
type ComposeConfig struct {
	Template string `yaml:"template"` // optional PNG background
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int  `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
	WebPort    int  `yaml:"web_port"`    // 0 = web panel disabled
}

// Config aggregates all application configuration.
type Config struct {
	Booth    BoothConfig    `yaml:"booth"`
	Buttons  ButtonsConfig  `yaml:"buttons"`
	Webcam   WebcamConfig   `yaml:"webcam"`
	Printer  PrinterConfig  `yaml:"printer"`
	Storage  StorageConfig  `yaml:"storage"`
	Compose  ComposeConfig  `yaml:"compose"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// ValidateConfigPath rejects paths that are not a .yaml file inside a
// directory named "configs".
func ValidateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	if strings.Contains(filepath.ToSlash(path), "..") {
		return fmt.Errorf("config path %q must not contain '..'", path)
	}
	clean := filepath.Clean(path)
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config path %q must have a .yaml extension", path)
	}
	abs, err := filepath.Abs(clean)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if filepath.Base(filepath.Dir(abs)) != "configs" {
		return fmt.Errorf("config path %q must be inside a configs/ directory", path)
	}
	return nil
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if info.Size() > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file is %d bytes, limit is %d", info.Size(), MaxConfigFileBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Booth values are pre-populated so an explicit 0 in the file is kept
	// and validated instead of being replaced by a default.
	cfg := Config{Booth: defaultBooth()}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	// Basic validation
	switch cfg.Webcam.Type {
	case "":
		return nil, fmt.Errorf("webcam.type is required")
	case "v4l2", "mock":
	default:
		return nil, fmt.Errorf("webcam.type %q is not supported (v4l2, mock)", cfg.Webcam.Type)
	}
	switch cfg.Printer.Type {
	case "":
		return nil, fmt.Errorf("printer.type is required")
	case "cups":
		if cfg.Printer.Name == "" {
			return nil, fmt.Errorf("printer.name is required for cups")
		}
	case "mock":
	default:
		return nil, fmt.Errorf("printer.type %q is not supported (cups, mock)", cfg.Printer.Type)
	}
	if cfg.Booth.CountdownStart < 0 || cfg.Booth.CountdownStart > 9 {
		return nil, fmt.Errorf("booth.countdown_start must be between 0 and 9, got %d", cfg.Booth.CountdownStart)
	}
	if cfg.Booth.MaxPrintCount < 1 || cfg.Booth.MaxPrintCount > 10 {
		return nil, fmt.Errorf("booth.max_print_count must be between 1 and 10, got %d", cfg.Booth.MaxPrintCount)
	}
	if cfg.Booth.MinPhotos < 3 || cfg.Booth.MinPhotos > 6 {
		return nil, fmt.Errorf("booth.min_photos must be between 3 and 6 (one print strip holds 3), got %d", cfg.Booth.MinPhotos)
	}
	for _, p := range []struct {
		name string
		v    int
	}{
		{"countdown_tick_ms", cfg.Booth.CountdownTickMs},
		{"input_lockout_ms", cfg.Booth.InputLockoutMs},
		{"print_notify_ms", cfg.Booth.PrintNotifyMs},
		{"print_poll_ms", cfg.Booth.PrintPollMs},
		{"lights_period_ms", cfg.Booth.LightsPeriodMs},
		{"preview_interval_ms", cfg.Booth.PreviewIntervalMs},
	} {
		if p.v <= 0 {
			return nil, fmt.Errorf("booth.%s must be > 0, got %d", p.name, p.v)
		}
	}
	for _, r := range cfg.Booth.CountdownRatesMs {
		if r <= 0 {
			return nil, fmt.Errorf("booth.countdown_rates_ms entries must be > 0, got %d", r)
		}
	}
	if cfg.Defaults.DebugLevel < 0 || cfg.Defaults.DebugLevel > 4 {
		return nil, fmt.Errorf("defaults.debug_level must be between 0 and 4, got %d", cfg.Defaults.DebugLevel)
	}
	if cfg.Defaults.WebPort < 0 || cfg.Defaults.WebPort > 65535 {
		return nil, fmt.Errorf("defaults.web_port must be between 0 and 65535, got %d", cfg.Defaults.WebPort)
	}

	if len(cfg.Booth.CountdownRatesMs) == 0 {
		cfg.Booth.CountdownRatesMs = defaultBooth().CountdownRatesMs
	}

	// Default pins (BCM)
	if cfg.Buttons.LeftLedPin == 0 {
		cfg.Buttons.LeftLedPin = 2
	}
	if cfg.Buttons.LeftButtonPin == 0 {
		cfg.Buttons.LeftButtonPin = 14
	}
	if cfg.Buttons.RightLedPin == 0 {
		cfg.Buttons.RightLedPin = 17
	}
	if cfg.Buttons.RightButtonPin == 0 {
		cfg.Buttons.RightButtonPin = 23
	}
	if cfg.Buttons.DebounceMs <= 0 {
		cfg.Buttons.DebounceMs = 800
	}
	if cfg.Buttons.PollMs <= 0 {
		cfg.Buttons.PollMs = 20
	}

	if cfg.Webcam.Device == "" {
		cfg.Webcam.Device = "/dev/video0"
	}
	if cfg.Webcam.Width <= 0 {
		cfg.Webcam.Width = 1280
	}
	if cfg.Webcam.Height <= 0 {
		cfg.Webcam.Height = 720
	}
	if cfg.Printer.Host == "" {
		cfg.Printer.Host = "localhost"
	}
	if cfg.Printer.Port <= 0 {
		cfg.Printer.Port = 631
	}
	if cfg.Printer.WorkDir == "" {
		cfg.Printer.WorkDir = os.TempDir()
	}

	return &cfg, nil
}

func defaultBooth() BoothConfig {
	return BoothConfig{
		CountdownStart:    3,
		CountdownTickMs:   1200,
		InputLockoutMs:    1200,
		PrintNotifyMs:     8000,
		PrintPollMs:       1000,
		MaxPrintCount:     3,
		MinPhotos:         3,
		LightsPeriodMs:    600,
		CountdownRatesMs:  []int{600, 200, 100, 50},
		PreviewIntervalMs: 66, // ~15 fps
	}
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// CountdownTick returns the period between two countdown ticks.
func (c *Config) CountdownTick() time.Duration {
	return ms(c.Booth.CountdownTickMs)
}

// InputLockout returns how long button presses are ignored after a state exit.
func (c *Config) InputLockout() time.Duration {
	return ms(c.Booth.InputLockoutMs)
}

// PrintNotify returns how long the print confirmation stays on screen.
func (c *Config) PrintNotify() time.Duration {
	return ms(c.Booth.PrintNotifyMs)
}

// PrintPoll returns the printer job polling period.
func (c *Config) PrintPoll() time.Duration {
	return ms(c.Booth.PrintPollMs)
}

// LightsPeriod returns the button illumination period on idle screens.
func (c *Config) LightsPeriod() time.Duration {
	return ms(c.Booth.LightsPeriodMs)
}

// PreviewInterval returns the live preview refresh period.
func (c *Config) PreviewInterval() time.Duration {
	return ms(c.Booth.PreviewIntervalMs)
}

// CountdownRates returns the countdown flash periods.
func (c *Config) CountdownRates() []time.Duration {
	out := make([]time.Duration, len(c.Booth.CountdownRatesMs))
	for i, r := range c.Booth.CountdownRatesMs {
		out[i] = ms(r)
	}
	return out
}

// Debounce returns the minimum delay between two presses of one button.
func (c *Config) Debounce() time.Duration {
	return ms(c.Buttons.DebounceMs)
}

// ButtonPoll returns the GPIO edge polling period.
func (c *Config) ButtonPoll() time.Duration {
	return ms(c.Buttons.PollMs)
}
