package analyzer

import (
	"fmt"

	"pitchperfect/fault"
)

const (
	DefaultSampleRate    = 44100
	DefaultBufferSize    = 4096
	DefaultSmoothing     = 0.8
	DefaultMinConfidence = 0.3
	DefaultMinPitch      = 80
	DefaultMaxPitch      = 1000
)

type Range struct {
	Min float64
	Max float64
}

// Config is fixed for the lifetime of one analysis session. Reconfigure only
// between sessions.
type Config struct {
	SampleRate    int
	BufferSize    int
	Smoothing     float64 // EMA weight applied to reported volume
	MinConfidence float64
	PitchRange    Range
}

func DefaultConfig() Config {
	return Config{
		SampleRate:    DefaultSampleRate,
		BufferSize:    DefaultBufferSize,
		Smoothing:     DefaultSmoothing,
		MinConfidence: DefaultMinConfidence,
		PitchRange:    Range{Min: DefaultMinPitch, Max: DefaultMaxPitch},
	}
}

// Overrides carries partial configuration updates; nil fields keep the
// current value.
type Overrides struct {
	SampleRate    *int
	BufferSize    *int
	Smoothing     *float64
	MinConfidence *float64
	PitchRange    *Range
}

// Merge applies o over c and returns the result.
func Merge(c Config, o Overrides) Config {
	if o.SampleRate != nil {
		c.SampleRate = *o.SampleRate
	}
	if o.BufferSize != nil {
		c.BufferSize = *o.BufferSize
	}
	if o.Smoothing != nil {
		c.Smoothing = *o.Smoothing
	}
	if o.MinConfidence != nil {
		c.MinConfidence = *o.MinConfidence
	}
	if o.PitchRange != nil {
		c.PitchRange = *o.PitchRange
	}
	return c
}

// Validate checks the range and buffer invariants. A buffer shorter than the
// longest candidate period cannot resolve the low end of the pitch range, so
// it is rejected here rather than silently returning "no pitch" every frame.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fault.Wrap(fault.InvalidInput, "analyzer.config", fmt.Errorf("sample rate %d", c.SampleRate))
	}
	if c.BufferSize <= 0 {
		return fault.Wrap(fault.InvalidInput, "analyzer.config", fmt.Errorf("buffer size %d", c.BufferSize))
	}
	if c.PitchRange.Min <= 0 || c.PitchRange.Min >= c.PitchRange.Max {
		return fault.Wrap(fault.InvalidInput, "analyzer.config",
			fmt.Errorf("pitch range [%g, %g]", c.PitchRange.Min, c.PitchRange.Max))
	}
	if c.Smoothing < 0 || c.Smoothing >= 1 {
		return fault.Wrap(fault.InvalidInput, "analyzer.config", fmt.Errorf("smoothing %g", c.Smoothing))
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fault.Wrap(fault.InvalidInput, "analyzer.config", fmt.Errorf("min confidence %g", c.MinConfidence))
	}
	if maxPeriod := int(float64(c.SampleRate) / c.PitchRange.Min); maxPeriod >= c.BufferSize {
		return fault.Wrap(fault.InvalidInput, "analyzer.config",
			fmt.Errorf("buffer size %d cannot hold max period %d (rate %d / min pitch %g)",
				c.BufferSize, maxPeriod, c.SampleRate, c.PitchRange.Min))
	}
	return nil
}
