package transcriber

import (
	"context"
	"encoding/binary"
	"net/http"
	"testing"
	"time"

	"pitchperfect/encoder"
	"pitchperfect/fault"
)

func TestNetworkMetricsSum(t *testing.T) {
	m := &NetworkMetrics{
		ConnWait:   10 * time.Millisecond,
		DNS:        20 * time.Millisecond,
		TCP:        30 * time.Millisecond,
		TLS:        40 * time.Millisecond,
		ReqHeaders: 5 * time.Millisecond,
		ReqBody:    15 * time.Millisecond,
		TTFB:       50 * time.Millisecond,
		Download:   25 * time.Millisecond,
	}
	got := m.Sum()
	want := 195 * time.Millisecond
	if got != want {
		t.Errorf("Sum() = %v, want %v", got, want)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	h := http.Header{}
	h.Set("X-Rate-Limit", "100")

	if got := firstNonEmpty(h, "X-Missing", "X-Rate-Limit"); got != "100" {
		t.Errorf("got %q, want %q", got, "100")
	}
	if got := firstNonEmpty(h, "X-A", "X-B"); got != "?" {
		t.Errorf("got %q, want %q", got, "?")
	}
}

func TestNewEncoder(t *testing.T) {
	for _, format := range []string{"", "flac"} {
		enc, err := newEncoder(format)
		if err != nil {
			t.Fatalf("newEncoder(%q): %v", format, err)
		}
		if enc == nil {
			t.Fatalf("newEncoder(%q) returned nil", format)
		}
	}
	if _, err := newEncoder("ogg"); fault.KindOf(err) != fault.InvalidInput {
		t.Errorf("unknown format: kind = %s, want invalid_input", fault.KindOf(err))
	}
}

func TestBatchSessionFeedAndClose(t *testing.T) {
	var gotFormat string
	fakeFn := func(audio []byte, format string) (*Result, error) {
		gotFormat = format
		if len(audio) < 4 || string(audio[:4]) != "fLaC" {
			t.Error("uploaded audio is not FLAC")
		}
		return &Result{
			Text:    "hello world",
			Metrics: &NetworkMetrics{TTFB: 10 * time.Millisecond},
		}, nil
	}

	bs, err := newBatchSession(SessionConfig{Format: "flac"}, fakeFn)
	if err != nil {
		t.Fatalf("newBatchSession: %v", err)
	}

	// Drain updates; the channel is closed by Close.
	go func() {
		for range bs.Updates() {
		}
	}()

	nSamples := encoder.BlockSize + encoder.BlockSize/2
	pcm := make([]byte, nSamples*2)
	for i := 0; i < nSamples; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(i%1000))
	}

	bs.Feed(pcm)

	result, err := bs.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if gotFormat != "flac" {
		t.Errorf("format = %q, want flac", gotFormat)
	}
	if result.Text != "hello world" {
		t.Errorf("Text = %q, want %q", result.Text, "hello world")
	}
	if !result.HasText {
		t.Error("HasText should be true")
	}
	if result.Batch == nil {
		t.Fatal("Batch should be non-nil")
	}
	if result.Batch.AudioLengthS <= 0 {
		t.Error("AudioLengthS should be positive")
	}
}

type stubRetryer struct{ calls int }

func (s *stubRetryer) Do(_ context.Context, _ string, fn func() error) error {
	s.calls++
	return fn()
}

func TestBatchSessionUploadsThroughRetryer(t *testing.T) {
	retryer := &stubRetryer{}
	uploads := 0
	fakeFn := func([]byte, string) (*Result, error) {
		uploads++
		return &Result{Text: "ok", Metrics: &NetworkMetrics{}}, nil
	}
	bs, err := newBatchSession(SessionConfig{Retry: retryer}, fakeFn)
	if err != nil {
		t.Fatalf("newBatchSession: %v", err)
	}
	go func() {
		for range bs.Updates() {
		}
	}()
	bs.Feed(make([]byte, encoder.BlockSize*2))
	if _, err := bs.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if retryer.calls != 1 {
		t.Errorf("retryer invoked %d times, want 1", retryer.calls)
	}
	if uploads != 1 {
		t.Errorf("uploads = %d, want 1", uploads)
	}
}

func TestBatchSessionNoSpeech(t *testing.T) {
	fakeFn := func([]byte, string) (*Result, error) {
		return &Result{Text: "  ", Metrics: &NetworkMetrics{}}, nil
	}
	bs, err := newBatchSession(SessionConfig{}, fakeFn)
	if err != nil {
		t.Fatalf("newBatchSession: %v", err)
	}
	go func() {
		for range bs.Updates() {
		}
	}()
	bs.Feed(make([]byte, encoder.BlockSize*2))
	result, err := bs.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !result.NoSpeech || result.HasText {
		t.Errorf("blank transcript: NoSpeech=%v HasText=%v", result.NoSpeech, result.HasText)
	}
}
