package analyzer

import (
	"testing"
	"time"

	"pitchperfect/fault"
)

func workerConfig() Config {
	cfg := DefaultConfig()
	cfg.Smoothing = 0 // no EMA in tests unless the test wants it
	return cfg
}

func collectUntilComplete(t *testing.T, w *Worker) []Result {
	t.Helper()
	var out []Result
	timeout := time.After(5 * time.Second)
	for {
		select {
		case r := <-w.Results():
			out = append(out, r)
			if r.Complete {
				return out
			}
		case <-timeout:
			t.Fatal("worker did not complete in time")
		}
	}
}

func TestWorkerEmitsConfidentPoints(t *testing.T) {
	w := NewWorker(workerConfig())
	defer w.Close()

	samples := sineFrame(150, 44100, 4096)
	for i := 0; i < 3; i++ {
		ok := w.Analyze(Frame{Samples: samples, SampleRate: 44100, Timestamp: float64(i) * 0.1})
		if !ok {
			t.Fatalf("frame %d rejected", i)
		}
	}
	w.Finalize()

	results := collectUntilComplete(t, w)
	points := 0
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("unexpected error: %v", r.Err)
		}
		if r.Point != nil {
			points++
			if r.Point.Pitch < 147 || r.Point.Pitch > 153 {
				t.Errorf("pitch = %.2f, want ~150", r.Point.Pitch)
			}
			if r.Point.Confidence < DefaultMinConfidence {
				t.Errorf("confidence %.3f below gate", r.Point.Confidence)
			}
		}
	}
	if points != 3 {
		t.Errorf("points = %d, want 3", points)
	}
}

func TestWorkerFiltersSilence(t *testing.T) {
	w := NewWorker(workerConfig())
	defer w.Close()

	w.Analyze(Frame{Samples: make([]float64, 4096), SampleRate: 44100})
	w.Finalize()

	for _, r := range collectUntilComplete(t, w) {
		if r.Point != nil {
			t.Errorf("silence emitted a point: %+v", r.Point)
		}
	}
}

func TestWorkerBadFrameDoesNotEndSession(t *testing.T) {
	w := NewWorker(workerConfig())
	defer w.Close()

	w.Analyze(Frame{Samples: nil, SampleRate: 44100}) // invalid
	w.Analyze(Frame{Samples: sineFrame(150, 44100, 4096), SampleRate: 44100, Timestamp: 0.1})
	w.Finalize()

	results := collectUntilComplete(t, w)
	var sawError, sawPoint bool
	for _, r := range results {
		if r.Err != nil {
			if fault.KindOf(r.Err) != fault.InvalidAudio {
				t.Errorf("kind = %s, want invalid_audio", fault.KindOf(r.Err))
			}
			sawError = true
		}
		if r.Point != nil {
			sawPoint = true
		}
	}
	if !sawError {
		t.Error("expected an error result for the invalid frame")
	}
	if !sawPoint {
		t.Error("expected the session to continue past the bad frame")
	}
}

func TestWorkerPreservesOrder(t *testing.T) {
	w := NewWorker(workerConfig())
	defer w.Close()

	samples := sineFrame(150, 44100, 4096)
	for i := 0; i < 10; i++ {
		w.Analyze(Frame{Samples: samples, SampleRate: 44100, Timestamp: float64(i)})
	}
	w.Finalize()

	var last float64 = -1
	for _, r := range collectUntilComplete(t, w) {
		if r.Point == nil {
			continue
		}
		if r.Point.Timestamp <= last {
			t.Fatalf("timestamps out of order: %g after %g", r.Point.Timestamp, last)
		}
		last = r.Point.Timestamp
	}
}

func TestWorkerConfigure(t *testing.T) {
	w := NewWorker(workerConfig())
	defer w.Close()

	// Raise the gate above anything a noisy frame can reach.
	conf := 0.99
	w.Configure(Overrides{MinConfidence: &conf})

	// A two-tone mix still correlates well but not perfectly.
	a := sineFrame(150, 44100, 4096)
	b := sineFrame(157, 44100, 4096)
	samples := make([]float64, 4096)
	for i := range samples {
		samples[i] = 0.5*a[i] + 0.5*b[i]
	}
	w.Analyze(Frame{Samples: samples, SampleRate: 44100})
	w.Finalize()

	for _, r := range collectUntilComplete(t, w) {
		if r.Point != nil && r.Point.Confidence < 0.99 {
			t.Errorf("point emitted below configured gate: %.3f", r.Point.Confidence)
		}
	}
}

func TestWorkerRejectsInvalidConfigure(t *testing.T) {
	w := NewWorker(workerConfig())
	defer w.Close()

	bad := Range{Min: 500, Max: 100}
	w.Configure(Overrides{PitchRange: &bad})
	w.Finalize()

	var sawConfigError bool
	for _, r := range collectUntilComplete(t, w) {
		if r.Err != nil && fault.KindOf(r.Err) == fault.InvalidInput {
			sawConfigError = true
		}
	}
	if !sawConfigError {
		t.Error("expected invalid_input for a reversed pitch range")
	}
}

func TestWorkerVolumeSmoothing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Smoothing = 0.8
	w := NewWorker(cfg)
	defer w.Close()

	loud := sineFrame(150, 44100, 4096)
	quiet := make([]float64, 4096)
	for i, s := range loud {
		quiet[i] = s * 0.1
	}

	w.Analyze(Frame{Samples: loud, SampleRate: 44100, Timestamp: 0})
	w.Analyze(Frame{Samples: quiet, SampleRate: 44100, Timestamp: 0.1})
	w.Finalize()

	var points []Point
	for _, r := range collectUntilComplete(t, w) {
		if r.Point != nil {
			points = append(points, *r.Point)
		}
	}
	if len(points) != 2 {
		t.Fatalf("points = %d, want 2", len(points))
	}
	// The second reading is pulled toward the first by the EMA: well above
	// the quiet frame's raw RMS (~0.07).
	if points[1].Volume < 0.3 {
		t.Errorf("smoothed volume = %.3f, want > 0.3", points[1].Volume)
	}
}

func TestWorkerAnalyzeSyncBulk(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleRate = 8000
	cfg.BufferSize = 512
	cfg.PitchRange = Range{Min: 150, Max: 1000}
	cfg.Smoothing = 0
	w := NewWorker(cfg)
	defer w.Close()

	points := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range w.Results() {
			if r.Point != nil {
				points++
			}
			if r.Complete {
				return
			}
		}
	}()

	// Far more frames than the queue holds; none may be dropped.
	samples := sineFrame(200, 8000, 512)
	for i := 0; i < 300; i++ {
		w.AnalyzeSync(Frame{Samples: samples, SampleRate: 8000, Timestamp: float64(i)})
	}
	w.Finalize()
	<-done

	if points != 300 {
		t.Errorf("points = %d, want 300", points)
	}
}

func TestWorkerCloseIdempotent(t *testing.T) {
	w := NewWorker(workerConfig())
	w.Close()
	w.Close()
	if w.Analyze(Frame{Samples: sineFrame(150, 44100, 4096), SampleRate: 44100}) {
		t.Error("Analyze accepted a frame after Close")
	}
}
