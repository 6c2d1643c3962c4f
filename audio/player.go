package audio

import (
	"fmt"
	"log"
	"sync"
)

// Player schedules decoded frames for gapless playback on an output
// device. Frames play in the order they were handed to Play; Clear
// discards everything not yet rendered.
type Player struct {
	dev   Device
	queue *frameQueue

	mu      sync.Mutex
	sink    Sink
	talking func(bool)
	audible bool
	inited  bool
	done    chan struct{}
}

// NewPlayer creates a player bound to the given device. Init must be
// called before Play.
func NewPlayer(dev Device) *Player {
	return &Player{
		dev:   dev,
		queue: newFrameQueue(),
	}
}

// SetTalking registers a callback invoked on transitions between
// audible output and silence. The player pushes these notifications;
// callers never poll.
func (p *Player) SetTalking(fn func(bool)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.talking = fn
}

// Init opens the output device at the given sample rate and starts the
// render loop. It must complete before any Play call.
func (p *Player) Init(sampleRate int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inited {
		return fmt.Errorf("player already initialized")
	}

	sink, err := p.dev.OpenSink(sampleRate)
	if err != nil {
		return fmt.Errorf("open output device: %w", err)
	}

	p.sink = sink
	p.inited = true
	p.done = make(chan struct{})
	go p.renderLoop(sink, p.done)
	return nil
}

// Play appends samples to the playback timeline. Calls are dropped
// before Init.
func (p *Player) Play(samples []int16) {
	p.mu.Lock()
	inited := p.inited
	p.mu.Unlock()
	if !inited {
		return
	}
	p.queue.push(samples)
}

// Clear discards all frames not yet rendered. Audible output stops at
// the next buffer boundary.
func (p *Player) Clear() {
	p.queue.clear()
}

// Close stops rendering and releases the output device. Safe to call
// before Init and more than once.
func (p *Player) Close() error {
	p.mu.Lock()
	if !p.inited {
		p.mu.Unlock()
		return nil
	}
	p.inited = false
	sink := p.sink
	done := p.done
	p.sink = nil
	p.mu.Unlock()

	p.queue.close()
	<-done
	return sink.Close()
}

// renderLoop feeds queued frames to the sink one at a time and pushes
// talking-state transitions around bursts of audio.
func (p *Player) renderLoop(sink Sink, done chan struct{}) {
	defer close(done)
	defer p.setAudible(false)

	for {
		frame, ok := p.queue.pop()
		if !ok {
			return
		}

		p.setAudible(true)
		if _, err := sink.Write(SamplesToBytes(frame)); err != nil {
			if p.initedNow() {
				log.Printf("player: output write error: %v", err)
			}
			return
		}
		if p.queue.empty() {
			p.setAudible(false)
		}
	}
}

func (p *Player) initedNow() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inited
}

func (p *Player) setAudible(audible bool) {
	p.mu.Lock()
	changed := p.audible != audible
	p.audible = audible
	fn := p.talking
	p.mu.Unlock()

	if changed && fn != nil {
		fn(audible)
	}
}
