package analyzer

import (
	"encoding/binary"
	"sync"
	"time"
)

// DefaultFrameInterval is the minimum spacing between forwarded frames.
// Frames arriving sooner are dropped, not queued, so the detector is never
// invoked faster than needed.
const DefaultFrameInterval = 50 * time.Millisecond

// Unthrottled disables frame spacing entirely. Offline analysis uses it to
// push a whole file through faster than real time.
const Unthrottled = -1 * time.Nanosecond

// FrameSource converts the capture callback's little-endian PCM16 byte
// stream into fixed-size normalized frames and forwards them in arrival
// order. Safe to call Push from the capture thread while Stop is called
// elsewhere.
type FrameSource struct {
	size     int
	rate     float64
	interval time.Duration
	emit     func(Frame)

	mu       sync.Mutex
	buf      []float64
	consumed uint64 // samples handed off or dropped, drives timestamps
	lastEmit time.Time
	stopped  bool
	now      func() time.Time
}

func NewFrameSource(cfg Config, interval time.Duration, emit func(Frame)) *FrameSource {
	if interval == 0 {
		interval = DefaultFrameInterval
	}
	return &FrameSource{
		size:     cfg.BufferSize,
		rate:     float64(cfg.SampleRate),
		interval: interval,
		emit:     emit,
		now:      time.Now,
	}
}

// Push ingests raw PCM16 bytes. Complete frames are either forwarded or,
// when they arrive inside the throttle interval, dropped.
func (s *FrameSource) Push(pcm []byte) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(pcm[i:]))
		s.buf = append(s.buf, float64(sample)/32768.0)
	}

	var frames []Frame
	for len(s.buf) >= s.size {
		start := s.consumed
		chunk := s.buf[:s.size]
		s.buf = s.buf[s.size:]
		s.consumed += uint64(s.size)

		now := s.now()
		if !s.lastEmit.IsZero() && now.Sub(s.lastEmit) < s.interval {
			continue // dropped, not queued
		}
		s.lastEmit = now

		samples := make([]float64, s.size)
		copy(samples, chunk)
		frames = append(frames, Frame{
			Samples:    samples,
			SampleRate: s.rate,
			Timestamp:  float64(start) / s.rate,
		})
	}
	s.mu.Unlock()

	// Emit outside the lock; order is preserved because Push itself is
	// serialized by the capture callback.
	for _, f := range frames {
		s.emit(f)
	}
}

// Stop discards buffered samples and blocks all further emissions.
func (s *FrameSource) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.buf = nil
	s.mu.Unlock()
}

// Reset prepares the source for a new take without reallocating.
func (s *FrameSource) Reset() {
	s.mu.Lock()
	s.stopped = false
	s.buf = s.buf[:0]
	s.consumed = 0
	s.lastEmit = time.Time{}
	s.mu.Unlock()
}
