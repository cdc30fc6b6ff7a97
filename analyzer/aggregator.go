package analyzer

import "sync"

type State int

const (
	Idle State = iota
	Analyzing
)

func (s State) String() string {
	if s == Analyzing {
		return "analyzing"
	}
	return "idle"
}

// Aggregator owns the time-ordered point series for one recording session.
// Points ingested while idle are dropped and counted (never buffered);
// downstream consumers must not assume delivery outside start/finalize.
// Safe for concurrent use.
type Aggregator struct {
	mu      sync.Mutex
	state   State
	points  []Point
	dropped uint64
}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Start clears the series and transitions idle → analyzing.
func (a *Aggregator) Start() {
	a.mu.Lock()
	a.points = a.points[:0]
	a.dropped = 0
	a.state = Analyzing
	a.mu.Unlock()
}

// Ingest appends a point to the series. Outside the analyzing state the
// point is dropped.
func (a *Aggregator) Ingest(p Point) {
	a.mu.Lock()
	if a.state != Analyzing {
		a.dropped++
		a.mu.Unlock()
		return
	}
	a.points = append(a.points, p)
	a.mu.Unlock()
}

// Latest returns the most recent point, or false when the series is empty.
func (a *Aggregator) Latest() (Point, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.points) == 0 {
		return Point{}, false
	}
	return a.points[len(a.points)-1], true
}

// AverageOverWindow returns the mean pitch of points within the last
// `seconds` of the series, measured back from the latest timestamp. Empty
// series or empty window yields 0.
func (a *Aggregator) AverageOverWindow(seconds float64) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.points) == 0 {
		return 0
	}
	cutoff := a.points[len(a.points)-1].Timestamp - seconds
	var sum float64
	var n int
	for i := len(a.points) - 1; i >= 0; i-- {
		if a.points[i].Timestamp < cutoff {
			break
		}
		sum += a.points[i].Pitch
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Series returns a copy of the full series.
func (a *Aggregator) Series() []Point {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Point, len(a.points))
	copy(out, a.points)
	return out
}

// Len reports the number of points in the current series.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.points)
}

// Dropped reports how many points were ignored while idle.
func (a *Aggregator) Dropped() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dropped
}

// Finalize transitions analyzing → idle; the series stays readable until the
// next Start or Reset.
func (a *Aggregator) Finalize() {
	a.mu.Lock()
	a.state = Idle
	a.mu.Unlock()
}

// Reset clears the series without leaving the analyzing state, for starting
// a fresh take without tearing down the pipeline.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	a.points = a.points[:0]
	a.dropped = 0
	a.mu.Unlock()
}

// State returns the current lifecycle state.
func (a *Aggregator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}
