package analyzer

import (
	"sync"
)

// Worker runs pitch detection off the caller's goroutine. Communication is
// one-way typed messages in each direction: Configure/Analyze/Finalize in,
// Result out. The request channel preserves FIFO order, so points come out
// in frame arrival order.

type requestKind int

const (
	reqConfigure requestKind = iota
	reqAnalyzeChunk
	reqFinalize
)

type request struct {
	kind      requestKind
	frame     Frame
	overrides Overrides
}

// Result is one message from the worker: exactly one of Point, Complete or
// Err is set.
type Result struct {
	Point    *Point
	Complete bool
	Err      error
}

type Worker struct {
	requests chan request
	results  chan Result
	done     chan struct{}

	closeOnce sync.Once

	// goroutine-local state, touched only by run()
	cfg       Config
	smoothVol float64
	hasVol    bool
}

// NewWorker starts the analysis goroutine with the given configuration.
func NewWorker(cfg Config) *Worker {
	w := &Worker{
		requests: make(chan request, 64),
		results:  make(chan Result, 64),
		done:     make(chan struct{}),
		cfg:      cfg,
	}
	go w.run()
	return w
}

// Results delivers analysis output. The channel closes when the worker is
// closed.
func (w *Worker) Results() <-chan Result { return w.results }

// Configure merges partial overrides over the current configuration. Call
// only between sessions; invalid merges are reported on the result channel
// and the previous configuration is kept.
func (w *Worker) Configure(o Overrides) {
	w.send(request{kind: reqConfigure, overrides: o})
}

// Analyze submits one frame. If the worker is backed up the frame is
// dropped; the source already throttles, so a full queue means the consumer
// stalled and stale frames are worthless anyway.
func (w *Worker) Analyze(f Frame) bool {
	select {
	case <-w.done:
		return false
	default:
	}
	select {
	case w.requests <- request{kind: reqAnalyzeChunk, frame: f}:
		return true
	default:
		return false
	}
}

// AnalyzeSync submits one frame, waiting for queue space instead of dropping.
// Offline analysis uses it so bulk pushes reach the detector intact; the
// caller must keep draining Results or this deadlocks.
func (w *Worker) AnalyzeSync(f Frame) {
	w.send(request{kind: reqAnalyzeChunk, frame: f})
}

// Finalize flushes session state; the worker answers with a Complete result
// once everything submitted before it has been processed.
func (w *Worker) Finalize() {
	w.send(request{kind: reqFinalize})
}

// Close stops the goroutine and closes the result channel. Idempotent.
func (w *Worker) Close() {
	w.closeOnce.Do(func() { close(w.done) })
}

func (w *Worker) send(req request) {
	select {
	case w.requests <- req:
	case <-w.done:
	}
}

func (w *Worker) run() {
	defer close(w.results)
	for {
		select {
		case <-w.done:
			return
		case req := <-w.requests:
			switch req.kind {
			case reqConfigure:
				merged := Merge(w.cfg, req.overrides)
				if err := merged.Validate(); err != nil {
					w.deliver(Result{Err: err})
					continue
				}
				w.cfg = merged
			case reqAnalyzeChunk:
				w.analyze(req.frame)
			case reqFinalize:
				w.smoothVol = 0
				w.hasVol = false
				w.deliver(Result{Complete: true})
			}
		}
	}
}

func (w *Worker) analyze(f Frame) {
	pitch, confidence, volume, err := analyzeFrame(f, w.cfg.PitchRange)
	if err != nil {
		w.deliver(Result{Err: err})
		return
	}

	if w.hasVol {
		volume = w.cfg.Smoothing*w.smoothVol + (1-w.cfg.Smoothing)*volume
	}
	w.smoothVol = volume
	w.hasVol = true

	if confidence < w.cfg.MinConfidence {
		return // silence or noise, filtered rather than reported as a noisy zero
	}
	w.deliver(Result{Point: &Point{
		Timestamp:  f.Timestamp,
		Pitch:      pitch,
		Confidence: confidence,
		Volume:     volume,
	}})
}

func (w *Worker) deliver(r Result) {
	select {
	case w.results <- r:
	case <-w.done:
	}
}
