// Package config turns viper settings into a validated Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/matjam/smoothframes/internal/types"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the resolved configuration of a slideshow.
type Config struct {
	Images     string   `mapstructure:"images"`
	Recursive  bool     `mapstructure:"recursive"`
	Extensions []string `mapstructure:"extensions"`

	Rows    int     `mapstructure:"rows"`
	Columns int     `mapstructure:"columns"`
	Gap     float32 `mapstructure:"gap"`

	QueueCapacity int `mapstructure:"queue_capacity"`

	Transitions        []types.TransitionType                 `mapstructure:"transitions"`
	Durations          map[types.TransitionType]time.Duration `mapstructure:"durations"`
	Interval           time.Duration                          `mapstructure:"interval"`
	MaxTransitionTime  time.Duration                          `mapstructure:"max_transition_time"`
	RediscoverInterval time.Duration                          `mapstructure:"rediscover_interval"`

	Easing         types.EasingMode  `mapstructure:"easing"`
	ScaleMode      types.ScalingMode `mapstructure:"scale_mode"`
	FramerateLimit int               `mapstructure:"framerate_limit"`

	Paused bool `mapstructure:"paused"`

	FaultThreshold  int           `mapstructure:"fault_threshold"`
	FaultWindow     time.Duration `mapstructure:"fault_window"`
	QuarantineAfter int           `mapstructure:"quarantine_after"`

	PoolBuffers int `mapstructure:"pool_buffers"`
	PoolHandles int `mapstructure:"pool_handles"`

	Debug bool `mapstructure:"debug"`
}

// Selectable lists the transitions a user may enable. none only gates frames
// that have not shown an image yet.
var Selectable = []types.TransitionType{
	types.TransitionSwap,
	types.TransitionFade,
	types.TransitionSlide,
	types.TransitionZoom,
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("images", "~/Pictures/wallpapers")
	v.SetDefault("recursive", false)
	v.SetDefault("extensions", []string{"jpg", "jpeg", "png", "gif", "webp", "bmp", "tiff"})
	v.SetDefault("rows", 2)
	v.SetDefault("columns", 3)
	v.SetDefault("gap", 0.004)
	v.SetDefault("queue_capacity", 3)
	v.SetDefault("transitions", []string{"fade", "slide", "zoom"})
	v.SetDefault("durations.swap", "0s")
	v.SetDefault("durations.fade", "1.5s")
	v.SetDefault("durations.slide", "1.2s")
	v.SetDefault("durations.zoom", "1.4s")
	v.SetDefault("interval", "6s")
	v.SetDefault("max_transition_time", "10s")
	v.SetDefault("rediscover_interval", "10m")
	v.SetDefault("easing", string(types.EasingEaseInOut))
	v.SetDefault("scale_mode", string(types.ScalingModeCenter))
	v.SetDefault("framerate_limit", 60)
	v.SetDefault("paused", false)
	v.SetDefault("fault_threshold", 5)
	v.SetDefault("fault_window", "30s")
	v.SetDefault("quarantine_after", 3)
	v.SetDefault("pool_buffers", 4)
	v.SetDefault("pool_handles", 8)
	v.SetDefault("debug", false)
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	cfg.Images = CanonicalPath(cfg.Images)
	for i, ext := range cfg.Extensions {
		cfg.Extensions[i] = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem with c at once.
func (c *Config) Validate() error {
	var errs error
	fail := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf(format, args...))
	}

	if c.Images == "" {
		fail("images must name a directory")
	}
	if len(c.Extensions) == 0 {
		fail("extensions must not be empty")
	}
	if c.Rows < 1 || c.Columns < 1 {
		fail("rows and columns must be at least 1, got %dx%d", c.Rows, c.Columns)
	}
	if c.Gap < 0 || c.Gap >= 0.5 {
		fail("gap must be in [0, 0.5), got %v", c.Gap)
	}
	if c.QueueCapacity < 1 {
		fail("queue_capacity must be at least 1, got %d", c.QueueCapacity)
	}

	if len(c.Transitions) == 0 {
		fail("transitions must not be empty")
	}
	for _, t := range c.Transitions {
		if !slices.Contains(Selectable, t) {
			fail("unknown transition %q", t)
			continue
		}
		if d := c.Duration(t); d >= c.MaxTransitionTime {
			fail("max_transition_time %v must exceed the %s duration %v", c.MaxTransitionTime, t, d)
		}
	}
	for t, d := range c.Durations {
		if d < 0 {
			fail("duration of %s must not be negative", t)
		}
	}
	if c.Interval < 0 {
		fail("interval must not be negative")
	}
	if c.RediscoverInterval < 0 {
		fail("rediscover_interval must not be negative")
	}

	switch c.Easing {
	case types.EasingLinear, types.EasingEaseIn, types.EasingEaseOut, types.EasingEaseInOut:
	default:
		fail("unknown easing %q", c.Easing)
	}
	switch c.ScaleMode {
	case types.ScalingModeCenter, types.ScalingModeStretch, types.ScalingModeFitHorizontal, types.ScalingModeFitVertical:
	default:
		fail("unknown scale_mode %q", c.ScaleMode)
	}
	if c.FramerateLimit < 0 {
		fail("framerate_limit must not be negative")
	}

	if c.FaultWindow < 0 {
		fail("fault_window must not be negative")
	}
	if c.QuarantineAfter < 0 {
		fail("quarantine_after must not be negative")
	}
	if c.PoolBuffers < 0 || c.PoolHandles < 0 {
		fail("pool sizes must not be negative")
	}

	if errs != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, errs)
	}
	return nil
}

// Duration returns how long a transition of kind t runs. swap is always
// instant.
func (c *Config) Duration(t types.TransitionType) time.Duration {
	if t == types.TransitionSwap || t == types.TransitionNone {
		return 0
	}
	return c.Durations[t]
}

// CanonicalPath expands a leading ~ to $HOME.
func CanonicalPath(path string) string {
	if path == "" {
		return ""
	}

	if path == "~" {
		return os.Getenv("HOME")
	}

	if strings.HasPrefix(path, "~/") {
		homeDir := os.Getenv("HOME")
		return strings.Replace(path, "~", homeDir, 1)
	}

	return path
}
