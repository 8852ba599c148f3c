package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/gruntwork-io/go-commons/errors"
	"github.com/robmorgan/showctl/fade"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const envPrefix = "SHOWCTL"

// ShowConfig represents options that configure the global behavior of the engine.
type ShowConfig struct {
	// LogLevel is any level understood by logrus ("debug", "info", ...).
	LogLevel string `mapstructure:"log_level"`

	// TickRate is the number of scheduler ticks per second.
	TickRate int `mapstructure:"tick_rate"`

	// Shell runs the command line of every command cue.
	Shell string `mapstructure:"shell"`

	// DefaultCurve is used by fades that are built without an explicit curve.
	DefaultCurve string `mapstructure:"default_curve"`

	StopAll StopAllConfig `mapstructure:"stop_all"`
	OSC     OSCConfig     `mapstructure:"osc"`

	// Media lists the playback targets known to the in-memory player.
	Media []PatchedMedia `mapstructure:"media"`
}

// StopAllConfig controls the stop-all broadcast.
type StopAllConfig struct {
	// FadeDuration is how long media takes to fade out in fade-out mode.
	FadeDuration time.Duration `mapstructure:"fade_duration"`
}

// OSCConfig holds the OSC endpoints used for triggering cues and sending MIDI.
type OSCConfig struct {
	// ListenAddr is where the trigger listener binds. Empty disables it.
	ListenAddr string `mapstructure:"listen_addr"`

	// MIDIHost and MIDIPort address the OSC to MIDI bridge.
	MIDIHost string `mapstructure:"midi_host"`
	MIDIPort int    `mapstructure:"midi_port"`
}

// NewShowConfig creates a ShowConfig with reasonable defaults for real usage.
func NewShowConfig() ShowConfig {
	return ShowConfig{
		LogLevel:     logrus.InfoLevel.String(),
		TickRate:     40,
		Shell:        "/bin/sh",
		DefaultCurve: fade.Linear.String(),
		StopAll: StopAllConfig{
			FadeDuration: 3 * time.Second,
		},
		OSC: OSCConfig{
			ListenAddr: "127.0.0.1:53000",
			MIDIHost:   "127.0.0.1",
			MIDIPort:   53001,
		},
		Media: PatchMedia(),
	}
}

// Load builds a ShowConfig from the defaults, the optional file at path and any
// SHOWCTL_* environment variables, in increasing order of precedence.
func Load(path string) (ShowConfig, error) {
	v := viper.New()
	setDefaults(v, NewShowConfig())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return ShowConfig{}, errors.WithStackTrace(fmt.Errorf("reading config %s: %w", path, err))
		}
	}

	var cfg ShowConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return ShowConfig{}, errors.WithStackTrace(fmt.Errorf("decoding config: %w", err))
	}
	if len(cfg.Media) == 0 {
		cfg.Media = PatchMedia()
	}

	if err := cfg.Validate(); err != nil {
		return ShowConfig{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg ShowConfig) {
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("tick_rate", cfg.TickRate)
	v.SetDefault("shell", cfg.Shell)
	v.SetDefault("default_curve", cfg.DefaultCurve)
	v.SetDefault("stop_all.fade_duration", cfg.StopAll.FadeDuration)
	v.SetDefault("osc.listen_addr", cfg.OSC.ListenAddr)
	v.SetDefault("osc.midi_host", cfg.OSC.MIDIHost)
	v.SetDefault("osc.midi_port", cfg.OSC.MIDIPort)
}

// Validate checks that the ShowConfig is usable.
func (c ShowConfig) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	if c.TickRate <= 0 || c.TickRate > 1000 {
		return fmt.Errorf("tick_rate must be between 1 and 1000, got %d", c.TickRate)
	}
	if c.Shell == "" {
		return fmt.Errorf("shell is required")
	}
	if _, err := fade.ParseCurve(c.DefaultCurve); err != nil {
		return fmt.Errorf("invalid default_curve: %w", err)
	}
	if c.StopAll.FadeDuration < 0 {
		return fmt.Errorf("stop_all.fade_duration must not be negative")
	}
	if c.OSC.MIDIPort < 0 || c.OSC.MIDIPort > 65535 {
		return fmt.Errorf("osc.midi_port out of range: %d", c.OSC.MIDIPort)
	}

	seen := make(map[string]bool, len(c.Media))
	for _, m := range c.Media {
		if m.Name == "" {
			return fmt.Errorf("media entries need a name")
		}
		if seen[m.Name] {
			return fmt.Errorf("duplicate media found! name=%s", m.Name)
		}
		seen[m.Name] = true
	}
	return nil
}

// Curve returns the parsed default curve.
func (c ShowConfig) Curve() fade.Curve {
	curve, err := fade.ParseCurve(c.DefaultCurve)
	if err != nil {
		return fade.Linear
	}
	return curve
}
