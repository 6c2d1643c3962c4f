package audio

import (
	"io"
	"log"
	"sync"
)

// FrameFunc receives one raw PCM16 frame per capture tick. The frame
// is not retained by the recorder after the call returns.
type FrameFunc func(frame []byte)

// Recorder slices a live input source into fixed-size frames and
// invokes the frame callback once per slice. Frames are delivered on a
// single goroutine in capture order; there is no internal batching.
type Recorder struct {
	frameBytes int
	onFrame    FrameFunc

	mu      sync.Mutex
	src     Source
	done    chan struct{}
	started bool
}

// NewRecorder creates a recorder that emits frames of frameBytes bytes.
func NewRecorder(frameBytes int, onFrame FrameFunc) *Recorder {
	return &Recorder{
		frameBytes: frameBytes,
		onFrame:    onFrame,
	}
}

// Start begins slicing the given source. It returns immediately; the
// capture loop runs until the source ends or Stop is called.
func (r *Recorder) Start(src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return
	}
	r.started = true
	r.src = src
	r.done = make(chan struct{})

	go r.captureLoop(src, r.done)
}

func (r *Recorder) captureLoop(src Source, done chan struct{}) {
	defer close(done)

	for {
		frame := make([]byte, r.frameBytes)
		n, err := io.ReadFull(src, frame)
		if n > 0 {
			r.onFrame(frame[:n])
		}
		if err != nil {
			if err != io.EOF && err != io.ErrUnexpectedEOF && !r.stopped() {
				log.Printf("recorder: capture read error: %v", err)
			}
			return
		}
	}
}

func (r *Recorder) stopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.started
}

// Stop halts capture and releases the source. It is safe to call
// before Start and more than once.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	src := r.src
	done := r.done
	r.src = nil
	r.mu.Unlock()

	src.Close()
	<-done
}
