package analyzer

import (
	"math"
	"testing"
)

func point(ts, pitch float64) Point {
	return Point{Timestamp: ts, Pitch: pitch, Confidence: 0.9, Volume: 0.5}
}

func TestAggregatorLatest(t *testing.T) {
	a := NewAggregator()
	a.Start()

	if _, ok := a.Latest(); ok {
		t.Error("Latest on empty series should report none")
	}

	a.Ingest(point(0.1, 140))
	a.Ingest(point(0.2, 150))
	got, ok := a.Latest()
	if !ok || got.Pitch != 150 {
		t.Errorf("Latest = %+v ok=%v, want last ingested point", got, ok)
	}
}

func TestAverageOverWindowAllPoints(t *testing.T) {
	a := NewAggregator()
	a.Start()
	pitches := []float64{100, 150, 200, 250}
	for i, p := range pitches {
		a.Ingest(point(float64(i)*0.1, p))
	}
	// Window covering everything equals the plain mean.
	if got := a.AverageOverWindow(10); math.Abs(got-175) > 1e-9 {
		t.Errorf("average = %g, want 175", got)
	}
}

func TestAverageOverWindowPartial(t *testing.T) {
	a := NewAggregator()
	a.Start()
	a.Ingest(point(0, 100))
	a.Ingest(point(5, 200))
	a.Ingest(point(6, 300))
	// Window of 1s back from t=6 covers t=5 and t=6.
	if got := a.AverageOverWindow(1); math.Abs(got-250) > 1e-9 {
		t.Errorf("average = %g, want 250", got)
	}
}

func TestAverageOverWindowEmpty(t *testing.T) {
	a := NewAggregator()
	a.Start()
	if got := a.AverageOverWindow(5); got != 0 {
		t.Errorf("average of empty series = %g, want 0", got)
	}
	if math.IsNaN(a.AverageOverWindow(0)) {
		t.Error("average must never be NaN")
	}
}

func TestIngestWhileIdleDropped(t *testing.T) {
	a := NewAggregator()
	a.Ingest(point(0.1, 150)) // before Start
	if a.Len() != 0 {
		t.Error("point ingested while idle was kept")
	}
	if a.Dropped() != 1 {
		t.Errorf("dropped = %d, want 1", a.Dropped())
	}

	a.Start()
	a.Ingest(point(0.2, 150))
	a.Finalize()
	a.Ingest(point(0.3, 160)) // after Finalize
	if a.Len() != 1 {
		t.Errorf("len = %d, want 1", a.Len())
	}
}

func TestStartClearsSeries(t *testing.T) {
	a := NewAggregator()
	a.Start()
	a.Ingest(point(0.1, 150))
	a.Finalize()

	a.Start()
	if a.Len() != 0 {
		t.Error("Start did not clear the previous series")
	}
	if a.State() != Analyzing {
		t.Errorf("state = %s, want analyzing", a.State())
	}
}

func TestResetKeepsAnalyzing(t *testing.T) {
	a := NewAggregator()
	a.Start()
	a.Ingest(point(0.1, 150))
	a.Reset()
	if a.Len() != 0 {
		t.Error("Reset did not clear the series")
	}
	if a.State() != Analyzing {
		t.Error("Reset must not leave the analyzing state")
	}
	a.Ingest(point(0.2, 160))
	if a.Len() != 1 {
		t.Error("ingest after Reset should work without Start")
	}
}

func TestSeriesIsCopy(t *testing.T) {
	a := NewAggregator()
	a.Start()
	a.Ingest(point(0.1, 150))
	s := a.Series()
	s[0].Pitch = 999
	if got, _ := a.Latest(); got.Pitch != 150 {
		t.Error("Series returned a view into internal state")
	}
}

func TestStateMachine(t *testing.T) {
	a := NewAggregator()
	if a.State() != Idle {
		t.Error("new aggregator should be idle")
	}
	a.Start()
	if a.State() != Analyzing {
		t.Error("Start should transition to analyzing")
	}
	a.Finalize()
	if a.State() != Idle {
		t.Error("Finalize should transition to idle")
	}
}
