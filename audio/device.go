package audio

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
)

// ErrOverconstrained indicates the requested capture constraints (for
// example an exact device id) cannot be satisfied by any available
// device. It is the only acquisition failure that triggers constraint
// relaxation.
var ErrOverconstrained = errors.New("audio: capture constraints cannot be satisfied")

// ErrUnsupported indicates no audio backend is available in this
// runtime.
var ErrUnsupported = errors.New("audio: no audio backend available")

// DefaultDeviceID is the sentinel meaning "no specific device".
const DefaultDeviceID = "default"

// Constraints describes a capture request.
type Constraints struct {
	SampleRate       int
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
	DeviceID         string // empty or "default" means any device
}

// DefaultConstraints returns the standard capture request at the given
// sample rate, optionally pinned to an exact device.
func DefaultConstraints(sampleRate int, deviceID string) Constraints {
	return Constraints{
		SampleRate:       sampleRate,
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
		DeviceID:         deviceID,
	}
}

// exact reports whether the constraints pin a specific device.
func (c Constraints) exact() bool {
	return c.DeviceID != "" && c.DeviceID != DefaultDeviceID
}

// ladder returns the ordered constraint sets to attempt: the request
// as given, then, if a device was pinned, the same request with the
// device constraint stripped. Acquisition walks this list, moving on
// only when an attempt fails with ErrOverconstrained.
func (c Constraints) ladder() []Constraints {
	steps := []Constraints{c}
	if c.exact() {
		relaxed := c
		relaxed.DeviceID = ""
		steps = append(steps, relaxed)
	}
	return steps
}

// Source is a live PCM16 input stream (little-endian, mono).
type Source interface {
	io.ReadCloser
}

// Sink is a PCM16 output device.
type Sink interface {
	io.WriteCloser
}

// Device is the opaque hardware capability the session binds to.
// Implementations report ErrOverconstrained from OpenSource when the
// pinned device cannot be satisfied.
type Device interface {
	Available() bool
	OpenSource(c Constraints) (Source, error)
	OpenSink(sampleRate int) (Sink, error)
}

// OpenSource acquires a capture stream by walking the constraint
// ladder. Only an overconstrained failure moves to the next rung; any
// other failure propagates immediately.
func OpenSource(dev Device, c Constraints) (Source, error) {
	var lastErr error
	for _, step := range c.ladder() {
		src, err := dev.OpenSource(step)
		if err == nil {
			return src, nil
		}
		if !errors.Is(err, ErrOverconstrained) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// SoxDevice reaches the default microphone and speakers through sox
// subprocesses. It only exposes the default device: pinning an exact
// device id fails as overconstrained, which the ladder then relaxes.
type SoxDevice struct{}

// Available reports whether the sox binary is on PATH.
func (SoxDevice) Available() bool {
	_, err := exec.LookPath("sox")
	return err == nil
}

// OpenSource starts a sox capture process on the default input device.
func (d SoxDevice) OpenSource(c Constraints) (Source, error) {
	if !d.Available() {
		return nil, ErrUnsupported
	}
	if c.exact() {
		return nil, fmt.Errorf("%w: sox backend has no device %q", ErrOverconstrained, c.DeviceID)
	}

	cmd := exec.Command("sox",
		"-d",
		"-t", "raw",
		"-r", strconv.Itoa(c.SampleRate),
		"-b", "16",
		"-c", "1",
		"-e", "signed-integer",
		"-",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("sox stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("sox start: %w", err)
	}

	return &soxStream{cmd: cmd, r: stdout}, nil
}

// OpenSink starts a sox playback process on the default output device.
func (d SoxDevice) OpenSink(sampleRate int) (Sink, error) {
	if !d.Available() {
		return nil, ErrUnsupported
	}

	cmd := exec.Command("sox",
		"-t", "raw",
		"-r", strconv.Itoa(sampleRate),
		"-b", "16",
		"-c", "1",
		"-e", "signed-integer",
		"-",
		"-d",
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("sox stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("sox start: %w", err)
	}

	return &soxStream{cmd: cmd, w: stdin}, nil
}

// soxStream wraps a sox subprocess as a Source or Sink.
type soxStream struct {
	cmd *exec.Cmd
	r   io.ReadCloser
	w   io.WriteCloser

	mu     sync.Mutex
	closed bool
}

func (s *soxStream) Read(p []byte) (int, error) {
	if s.r == nil {
		return 0, io.EOF
	}
	return s.r.Read(p)
}

func (s *soxStream) Write(p []byte) (int, error) {
	if s.w == nil {
		return 0, io.ErrClosedPipe
	}
	return s.w.Write(p)
}

func (s *soxStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.w != nil {
		s.w.Close()
	}
	if s.r != nil {
		s.r.Close()
	}
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
		s.cmd.Wait()
	}
	return nil
}
