package tracker

import (
	"errors"
	"fmt"
	"math"
)

const (
	DefaultCompletionThreshold           = 0.96
	DefaultMaxCreditedRate               = 1.0
	DefaultViewportIntersectionThreshold = 0.5
	DefaultMaxValidDelta                 = 5.0 // seconds
)

// ErrInvalidConfig is returned by Config.Validate and New for out-of-range options.
var ErrInvalidConfig = errors.New("tracker: invalid config")

// Config holds the tunables of a Tracker. Zero values select the defaults.
type Config struct {
	// CompletionThreshold is the fraction of the duration that must be
	// credited before completion fires. Range (0,1].
	CompletionThreshold float64 `mapstructure:"completion_threshold"`
	// MaxCreditedRate caps the playback rate used for crediting. Must be >= 1.
	// Credit is additionally capped at real-time pace regardless of this value.
	MaxCreditedRate float64 `mapstructure:"max_credited_rate"`
	// ViewportIntersectionThreshold is the visible fraction of the video's
	// bounding box required to count as in viewport. Range (0,1].
	ViewportIntersectionThreshold float64 `mapstructure:"viewport_intersection_threshold"`
	// MaxValidDelta is the exclusive upper bound, in seconds, of a credited
	// position delta. Larger deltas are treated as seeks.
	MaxValidDelta float64 `mapstructure:"max_valid_delta"`
}

// DefaultConfig returns a Config populated with the default values.
func DefaultConfig() Config {
	return Config{
		CompletionThreshold:           DefaultCompletionThreshold,
		MaxCreditedRate:               DefaultMaxCreditedRate,
		ViewportIntersectionThreshold: DefaultViewportIntersectionThreshold,
		MaxValidDelta:                 DefaultMaxValidDelta,
	}
}

// WithDefaults returns c with every zero-valued option replaced by its default.
func (c Config) WithDefaults() Config {
	if c.CompletionThreshold == 0 {
		c.CompletionThreshold = DefaultCompletionThreshold
	}
	if c.MaxCreditedRate == 0 {
		c.MaxCreditedRate = DefaultMaxCreditedRate
	}
	if c.ViewportIntersectionThreshold == 0 {
		c.ViewportIntersectionThreshold = DefaultViewportIntersectionThreshold
	}
	if c.MaxValidDelta == 0 {
		c.MaxValidDelta = DefaultMaxValidDelta
	}
	return c
}

// Validate reports whether every option is within its allowed range.
func (c Config) Validate() error {
	if !inUnitInterval(c.CompletionThreshold) {
		return fmt.Errorf("%w: completion threshold %v not in (0,1]", ErrInvalidConfig, c.CompletionThreshold)
	}
	if !finite(c.MaxCreditedRate) || c.MaxCreditedRate < 1 {
		return fmt.Errorf("%w: max credited rate %v must be >= 1", ErrInvalidConfig, c.MaxCreditedRate)
	}
	if !inUnitInterval(c.ViewportIntersectionThreshold) {
		return fmt.Errorf("%w: viewport intersection threshold %v not in (0,1]", ErrInvalidConfig, c.ViewportIntersectionThreshold)
	}
	if !finite(c.MaxValidDelta) || c.MaxValidDelta <= 0 {
		return fmt.Errorf("%w: max valid delta %v must be > 0", ErrInvalidConfig, c.MaxValidDelta)
	}
	return nil
}

func inUnitInterval(v float64) bool {
	return finite(v) && v > 0 && v <= 1
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
