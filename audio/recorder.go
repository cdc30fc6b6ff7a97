package audio

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"pitchperfect/fault"
)

// Recorder manages the lifecycle of one capture stream on top of a Context.
// Start is idempotent: while a stream is live, repeated calls return the same
// stream ID without opening a second device handle. Stop releases the device
// so the next Start acquires a fresh stream with a new ID.
type Recorder struct {
	ctx    Context
	device *DeviceInfo
	config CaptureConfig

	mu       sync.Mutex
	capture  CaptureDevice
	streamID string
}

func NewRecorder(ctx Context, device *DeviceInfo, config CaptureConfig) *Recorder {
	return &Recorder{ctx: ctx, device: device, config: config}
}

// Start opens the capture device and begins delivering PCM to cb. If a stream
// is already live its ID is returned and cb is ignored.
func (r *Recorder) Start(cb DataCallback) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.capture != nil {
		return r.streamID, nil
	}

	capture, err := r.ctx.NewCapture(r.device, r.config)
	if err != nil {
		return "", classifyCaptureErr("audio.start", err)
	}
	capture.SetCallback(cb)
	if err := capture.Start(); err != nil {
		capture.Close()
		return "", classifyCaptureErr("audio.start", err)
	}

	r.capture = capture
	r.streamID = uuid.NewString()
	return r.streamID, nil
}

// Stop tears the stream down. Safe to call when no stream is live.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.capture == nil {
		return
	}
	r.capture.ClearCallback()
	r.capture.Stop()
	r.capture.Close()
	r.capture = nil
	r.streamID = ""
}

// Active reports whether a stream is currently live.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.capture != nil
}

// StreamID returns the live stream's ID, or "" when stopped.
func (r *Recorder) StreamID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.streamID
}

// classifyCaptureErr maps backend errors onto the fault taxonomy so callers
// can tell a denied microphone apart from a missing one.
func classifyCaptureErr(op string, err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "access denied"),
		strings.Contains(msg, "permission"),
		strings.Contains(msg, "not authorized"):
		return fault.Wrap(fault.PermissionDenied, op, err)
	case strings.Contains(msg, "no such device"),
		strings.Contains(msg, "device not found"),
		strings.Contains(msg, "no device"),
		strings.Contains(msg, "unavailable"):
		return fault.Wrap(fault.DeviceUnavailable, op, err)
	}
	return fault.Wrap(fault.DeviceUnavailable, op, err)
}
