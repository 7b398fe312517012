package config

import (
	"os"
	"strings"

	"codeberg.org/mutker/pentactl/internal/errors"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "/etc"
	defaultConfigName = "pentactl.conf"
	envConfigPath     = "PENTACTL_CONFIG"

	// Disk temperature polling is expensive (one smartctl call per disk),
	// so the poll delay scales with the display page interval when disk
	// temperature pages are enabled.
	diskTempPollFactor = 16
	defaultPollDelay   = 10.0
)

// FanConfig holds the temperature thresholds and duty policy.
// Thresholds are in Celsius and must be strictly increasing.
type FanConfig struct {
	Lv0         float64
	Lv1         float64
	Lv2         float64
	Lv3         float64
	Linear      bool
	TempDisks   bool
	SilentStart string
	SilentEnd   string
	SilentMaxLv float64
	Refresh     float64 // seconds between duty recomputations
}

// KeyConfig maps button gestures to action names.
type KeyConfig struct {
	Click string
	Twice string
	Press string
}

// TimeConfig holds gesture timing thresholds in seconds.
type TimeConfig struct {
	Twice float64
	Press float64
}

// SliderConfig controls the status display page rotation.
type SliderConfig struct {
	Auto    bool
	Time    float64
	Refresh float64
}

type OLEDConfig struct {
	Rotate bool
	FTemp  bool
}

type DiskConfig struct {
	SpaceUsageMntPoints []string
	IoUsageMntPoints    []string
	DisksTemp           bool
}

type NetworkConfig struct {
	Interfaces []string
}

type TelemetryConfig struct {
	Enabled bool
	DBPath  string
}

type Config struct {
	Fan       FanConfig
	Key       KeyConfig
	Time      TimeConfig
	Slider    SliderConfig
	OLED      OLEDConfig
	Disk      DiskConfig
	Network   NetworkConfig
	Telemetry TelemetryConfig
	Debug     bool
	Verbose   bool
}

// Default returns the complete built-in default set. Any configuration
// load or validation failure falls back to this as a whole, never to a
// partially-defaulted mix.
func Default() *Config {
	return &Config{
		Fan: FanConfig{
			Lv0:         35,
			Lv1:         40,
			Lv2:         45,
			Lv3:         50,
			Linear:      false,
			TempDisks:   false,
			SilentStart: "",
			SilentEnd:   "",
			SilentMaxLv: 0,
			Refresh:     5,
		},
		Key: KeyConfig{
			Click: "slider",
			Twice: "switch",
			Press: "none",
		},
		Time: TimeConfig{
			Twice: 0.7,
			Press: 1.8,
		},
		Slider: SliderConfig{
			Auto:    true,
			Time:    10,
			Refresh: 0,
		},
		OLED: OLEDConfig{
			Rotate: false,
			FTemp:  false,
		},
		Disk: DiskConfig{
			SpaceUsageMntPoints: nil,
			IoUsageMntPoints:    nil,
			DisksTemp:           false,
		},
		Network: NetworkConfig{
			Interfaces: nil,
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
			DBPath:  "/var/lib/pentactl/telemetry.db",
		},
	}
}

// Load reads the configuration file and command line flags. A missing
// or broken configuration file is not fatal: the built-in defaults are
// used instead.
func Load() (*Config, error) {
	return LoadWithArgs(os.Args[1:])
}

// LoadWithArgs is Load with an explicit argument list, so tests can
// drive it without touching the process arguments.
func LoadWithArgs(args []string) (*Config, error) {
	errFactory := errors.New()

	flags := flag.NewFlagSet("pentactl", flag.ContinueOnError)
	configFlag := flags.String("config", "", "Path to configuration file")
	debugFlag := flags.Bool("debug", false, "Enable debugging mode")
	verboseFlag := flags.Bool("verbose", false, "Enable verbose logging")
	if err := flags.Parse(args); err != nil {
		return Default(), errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	v.SetConfigType("ini")

	switch {
	case *configFlag != "":
		v.SetConfigFile(*configFlag)
	case os.Getenv(envConfigPath) != "":
		v.SetConfigFile(os.Getenv(envConfigPath))
	default:
		v.SetConfigName(defaultConfigName)
		v.AddConfigPath(defaultConfigPath)
	}

	setDefaults(v)

	config := Default()
	config.Debug = *debugFlag
	config.Verbose = *verboseFlag

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Broken file: keep the complete default set
			return config, errFactory.Wrap(errors.ErrReadConfig, err)
		}
		return config, nil
	}

	fromViper(v, config)

	if err := config.Validate(); err != nil {
		defaults := Default()
		defaults.Debug = config.Debug
		defaults.Verbose = config.Verbose

		return defaults, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("fan.lv0", defaults.Fan.Lv0)
	v.SetDefault("fan.lv1", defaults.Fan.Lv1)
	v.SetDefault("fan.lv2", defaults.Fan.Lv2)
	v.SetDefault("fan.lv3", defaults.Fan.Lv3)
	v.SetDefault("fan.linear", defaults.Fan.Linear)
	v.SetDefault("fan.temp_disks", defaults.Fan.TempDisks)
	v.SetDefault("fan.silentstart", defaults.Fan.SilentStart)
	v.SetDefault("fan.silentend", defaults.Fan.SilentEnd)
	v.SetDefault("fan.silentmaxlv", defaults.Fan.SilentMaxLv)
	v.SetDefault("fan.refresh", defaults.Fan.Refresh)
	v.SetDefault("key.click", defaults.Key.Click)
	v.SetDefault("key.twice", defaults.Key.Twice)
	v.SetDefault("key.press", defaults.Key.Press)
	v.SetDefault("time.twice", defaults.Time.Twice)
	v.SetDefault("time.press", defaults.Time.Press)
	v.SetDefault("slider.auto", defaults.Slider.Auto)
	v.SetDefault("slider.time", defaults.Slider.Time)
	v.SetDefault("slider.refresh", defaults.Slider.Refresh)
	v.SetDefault("oled.rotate", defaults.OLED.Rotate)
	v.SetDefault("oled.f-temp", defaults.OLED.FTemp)
	v.SetDefault("disk.space_usage_mnt_points", "")
	v.SetDefault("disk.io_usage_mnt_points", "")
	v.SetDefault("disk.disks_temp", defaults.Disk.DisksTemp)
	v.SetDefault("network.interfaces", "")
	v.SetDefault("telemetry.enabled", defaults.Telemetry.Enabled)
	v.SetDefault("telemetry.database", defaults.Telemetry.DBPath)
}

func fromViper(v *viper.Viper, config *Config) {
	config.Fan.Lv0 = v.GetFloat64("fan.lv0")
	config.Fan.Lv1 = v.GetFloat64("fan.lv1")
	config.Fan.Lv2 = v.GetFloat64("fan.lv2")
	config.Fan.Lv3 = v.GetFloat64("fan.lv3")
	config.Fan.Linear = v.GetBool("fan.linear")
	config.Fan.TempDisks = v.GetBool("fan.temp_disks")
	config.Fan.SilentStart = v.GetString("fan.silentstart")
	config.Fan.SilentEnd = v.GetString("fan.silentend")
	config.Fan.SilentMaxLv = v.GetFloat64("fan.silentmaxlv")
	if refresh := v.GetFloat64("fan.refresh"); refresh > 0 {
		config.Fan.Refresh = refresh
	}
	config.Key.Click = v.GetString("key.click")
	config.Key.Twice = v.GetString("key.twice")
	config.Key.Press = v.GetString("key.press")
	config.Time.Twice = v.GetFloat64("time.twice")
	config.Time.Press = v.GetFloat64("time.press")
	config.Slider.Auto = v.GetBool("slider.auto")
	config.Slider.Time = v.GetFloat64("slider.time")
	config.Slider.Refresh = v.GetFloat64("slider.refresh")
	config.OLED.Rotate = v.GetBool("oled.rotate")
	config.OLED.FTemp = v.GetBool("oled.f-temp")
	config.Disk.SpaceUsageMntPoints = splitList(v.GetString("disk.space_usage_mnt_points"))
	config.Disk.IoUsageMntPoints = splitList(v.GetString("disk.io_usage_mnt_points"))
	config.Disk.DisksTemp = v.GetBool("disk.disks_temp")
	config.Network.Interfaces = splitList(v.GetString("network.interfaces"))
	config.Telemetry.Enabled = v.GetBool("telemetry.enabled")
	config.Telemetry.DBPath = v.GetString("telemetry.database")
}

// splitList parses the pipe-separated list convention of the
// configuration file ("mnt1|mnt2").
func splitList(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, "|")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}

	return list
}

// Validate checks invariants that the duty curve depends on.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if !(c.Fan.Lv0 < c.Fan.Lv1 && c.Fan.Lv1 < c.Fan.Lv2 && c.Fan.Lv2 < c.Fan.Lv3) {
		return errFactory.WithData(errors.ErrInvalidConfig, "fan thresholds must be strictly increasing")
	}
	if c.Fan.SilentMaxLv < 0 || c.Fan.SilentMaxLv > 1 {
		return errFactory.WithData(errors.ErrInvalidConfig, "fan.silentmaxlv must be within [0, 1]")
	}
	if c.Time.Twice <= 0 || c.Time.Press <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "gesture timing thresholds must be positive")
	}
	if c.Slider.Time <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "slider.time must be positive")
	}

	return nil
}

// DiskTempPollDelay returns the minimum interval in seconds between two
// disk temperature polls.
func (c *Config) DiskTempPollDelay() float64 {
	if c.Disk.DisksTemp {
		return c.Slider.Time * diskTempPollFactor
	}

	return defaultPollDelay
}

// PageCount returns the number of status display pages implied by the
// configuration: the fixed system pages plus one per monitored concern.
func (c *Config) PageCount() int {
	// uptime, cpu, memory, root disk usage
	pages := 4
	if len(c.Disk.SpaceUsageMntPoints) > 0 {
		pages++
	}
	if len(c.Disk.IoUsageMntPoints) > 0 {
		pages++
	}
	if len(c.Network.Interfaces) > 0 {
		pages++
	}
	if c.Disk.DisksTemp {
		pages++
	}

	return pages
}

// SetLogLevel applies the configured verbosity to the global logger.
func (c *Config) SetLogLevel() {
	if c.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else if c.Verbose {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
}
