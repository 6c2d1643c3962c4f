package audio

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"
)

// pipeSource is a Source fed by the test through an io.Pipe.
type pipeSource struct {
	*io.PipeReader
}

func newPipeSource() (*pipeSource, *io.PipeWriter) {
	r, w := io.Pipe()
	return &pipeSource{PipeReader: r}, w
}

// frameCollector gathers callback frames.
type frameCollector struct {
	mu     sync.Mutex
	frames [][]byte
}

func (fc *frameCollector) add(frame []byte) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	buf := make([]byte, len(frame))
	copy(buf, frame)
	fc.frames = append(fc.frames, buf)
}

func (fc *frameCollector) snapshot() [][]byte {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([][]byte(nil), fc.frames...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestRecorderFrames(t *testing.T) {
	var fc frameCollector
	rec := NewRecorder(4, fc.add)

	src, w := newPipeSource()
	rec.Start(src)

	w.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	waitFor(t, func() bool { return len(fc.snapshot()) == 2 })

	frames := fc.snapshot()
	if !bytes.Equal(frames[0], []byte{1, 2, 3, 4}) {
		t.Errorf("frame 0 = %v", frames[0])
	}
	if !bytes.Equal(frames[1], []byte{5, 6, 7, 8}) {
		t.Errorf("frame 1 = %v", frames[1])
	}

	rec.Stop()
}

func TestRecorderShortFinalFrame(t *testing.T) {
	var fc frameCollector
	rec := NewRecorder(4, fc.add)

	src, w := newPipeSource()
	rec.Start(src)

	w.Write([]byte{1, 2, 3, 4, 5, 6})
	w.Close()

	waitFor(t, func() bool { return len(fc.snapshot()) == 2 })
	frames := fc.snapshot()
	if !bytes.Equal(frames[1], []byte{5, 6}) {
		t.Errorf("final frame = %v", frames[1])
	}

	rec.Stop()
}

func TestRecorderStopBeforeStart(t *testing.T) {
	rec := NewRecorder(4, func([]byte) {})
	rec.Stop()
	rec.Stop()
}

func TestRecorderStopEndsCapture(t *testing.T) {
	var fc frameCollector
	rec := NewRecorder(4, fc.add)

	src, w := newPipeSource()
	rec.Start(src)
	w.Write([]byte{1, 2, 3, 4})
	waitFor(t, func() bool { return len(fc.snapshot()) == 1 })

	rec.Stop()
	before := len(fc.snapshot())

	// Writes after Stop reach a closed pipe and never become frames
	w.CloseWithError(io.ErrClosedPipe)
	time.Sleep(20 * time.Millisecond)
	if got := len(fc.snapshot()); got != before {
		t.Errorf("frames after Stop: %d, want %d", got, before)
	}
}

func TestRecorderDoubleStartIgnored(t *testing.T) {
	var fc frameCollector
	rec := NewRecorder(4, fc.add)

	src1, w1 := newPipeSource()
	src2, _ := newPipeSource()
	rec.Start(src1)
	rec.Start(src2) // ignored, first capture keeps running

	w1.Write([]byte{9, 9, 9, 9})
	waitFor(t, func() bool { return len(fc.snapshot()) == 1 })

	rec.Stop()
}
