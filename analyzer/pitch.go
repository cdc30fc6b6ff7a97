// Package analyzer turns captured audio into a time-ordered series of pitch
// and volume readings. Frames flow from a FrameSource through a Worker
// running autocorrelation pitch detection into an Aggregator.
package analyzer

import (
	"fmt"
	"math"

	"pitchperfect/fault"
)

// Frame is one fixed-size window of normalized samples in [-1, 1].
type Frame struct {
	Samples    []float64
	SampleRate float64
	Timestamp  float64 // seconds of audio before the first sample of this frame
}

// Point is one emitted pitch/volume reading. Timestamps are non-decreasing
// within a session.
type Point struct {
	Timestamp  float64 // seconds
	Pitch      float64 // Hz; 0 only when no periodic signal was found
	Confidence float64 // [0, 1]
	Volume     float64 // [0, 1] RMS
}

// DetectPitch estimates the fundamental frequency of samples by direct
// normalized autocorrelation over candidate periods bounded by rng. It
// returns (0, 0, nil) when the frame is too short to resolve the lowest
// candidate frequency; that is a silent skip, not an error. O(N·P) on
// purpose: frames are a few thousand samples and arrive a handful of times
// per second, so the naive loop stays well inside the real-time budget.
func DetectPitch(samples []float64, sampleRate float64, rng Range) (pitch, confidence float64, err error) {
	if len(samples) == 0 {
		return 0, 0, fault.New(fault.InvalidAudio, "analyzer.detect")
	}
	if sampleRate <= 0 || math.IsInf(sampleRate, 0) || math.IsNaN(sampleRate) {
		return 0, 0, fault.Wrap(fault.InvalidAudio, "analyzer.detect", fmt.Errorf("sample rate %v", sampleRate))
	}

	minPeriod := int(sampleRate / rng.Max)
	maxPeriod := int(sampleRate / rng.Min)
	if minPeriod < 1 {
		minPeriod = 1
	}
	if maxPeriod >= len(samples) {
		return 0, 0, nil
	}

	bestScore := 0.0
	bestPeriod := 0
	for p := minPeriod; p <= maxPeriod; p++ {
		var corr, norm float64
		n := len(samples) - p
		for i := 0; i < n; i++ {
			corr += samples[i] * samples[i+p]
			norm += samples[i] * samples[i]
		}
		if norm <= 0 {
			continue
		}
		if score := corr / norm; score > bestScore {
			bestScore = score
			bestPeriod = p
		}
	}

	if bestPeriod == 0 {
		return 0, 0, nil
	}
	return sampleRate / float64(bestPeriod), math.Min(bestScore, 1), nil
}

// DetectVolume returns the RMS of a frame of normalized samples, clamped to
// [0, 1].
func DetectVolume(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	return math.Min(rms, 1)
}

// analyzeFrame runs detection for one frame, converting panics inside the
// detection loop into AnalysisFailed so one bad frame cannot end a session.
func analyzeFrame(f Frame, rng Range) (pitch, confidence, volume float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fault.Wrap(fault.AnalysisFailed, "analyzer.detect", fmt.Errorf("%v", r))
		}
	}()
	pitch, confidence, err = DetectPitch(f.Samples, f.SampleRate, rng)
	if err != nil {
		return 0, 0, 0, err
	}
	return pitch, confidence, DetectVolume(f.Samples), nil
}
