// Package voice implements the real-time voice session client: one
// duplex channel, one recorder, one player, and the state machine that
// binds them. Microphone frames go out as base64 audio messages;
// inbound audio plays back in arrival order; an interrupt message cuts
// playback immediately.
package voice

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/room4-2/converselink/audio"
	"github.com/room4-2/converselink/channel"
	"github.com/room4-2/converselink/messages"
)

// ErrSessionActive is returned by Start when a session is already
// running. A second start must not silently replace the live channel
// and capture stream.
var ErrSessionActive = errors.New("voice: session already active")

// State is the session lifecycle state.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateActive
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	}
	return "unknown"
}

// Handler receives every inbound message that is not audio or
// interrupt, in arrival order. The loop waits for the handler to
// return before processing the next message, so a slow handler delays
// subsequent audio on purpose: ordering outranks throughput.
type Handler func(msg messages.Message) error

// TalkingFunc is notified when assistant audio starts and stops being
// audible.
type TalkingFunc func(talking bool)

// Option configures a Client.
type Option func(*Client)

// WithDevice overrides the audio backend (default: sox).
func WithDevice(dev audio.Device) Option {
	return func(c *Client) { c.device = dev }
}

// WithSampleRate overrides the capture/playback sample rate.
func WithSampleRate(rate int) Option {
	return func(c *Client) { c.sampleRate = rate }
}

// WithFrameDuration overrides the capture frame cadence.
func WithFrameDuration(d time.Duration) Option {
	return func(c *Client) { c.frameDur = d }
}

// Client orchestrates one voice session against a remote endpoint.
// At most one session is active per client.
type Client struct {
	endpoint   string
	handler    Handler
	talking    TalkingFunc
	device     audio.Device
	sampleRate int
	frameDur   time.Duration

	mu       sync.Mutex
	state    State
	ch       *channel.Channel
	player   *audio.Player
	recorder *audio.Recorder
	loopDone chan struct{}
}

// New creates a client for the given endpoint. The handler receives
// non-audio messages; talking may be nil.
func New(endpoint string, handler Handler, talking TalkingFunc, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		handler:    handler,
		talking:    talking,
		device:     audio.SoxDevice{},
		sampleRate: audio.DefaultSampleRate,
		frameDur:   audio.DefaultFrameDuration,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current session state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start opens the channel, initializes playback, acquires the
// microphone and begins streaming. deviceID pins an exact input
// device; empty or "default" uses any. In a runtime with no audio
// backend Start logs a warning and returns nil: that is a legitimate
// deployment mode, not a failure.
func (c *Client) Start(ctx context.Context, deviceID string) error {
	if !c.device.Available() {
		log.Printf("voice: no audio backend available, not starting")
		return nil
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrSessionActive
	}
	c.state = StateStarting
	c.mu.Unlock()

	// Channel first: a session with no transport is not a session.
	ch, err := channel.Dial(ctx, c.endpoint)
	if err != nil {
		c.reset()
		return err
	}

	// Playback must be ready before capture begins so early inbound
	// audio has somewhere to go.
	player := audio.NewPlayer(c.device)
	if c.talking != nil {
		player.SetTalking(func(t bool) { c.talking(t) })
	}
	if err := player.Init(c.sampleRate); err != nil {
		ch.Close()
		c.reset()
		return err
	}

	recorder := audio.NewRecorder(
		audio.FrameBytes(c.sampleRate, c.frameDur),
		func(frame []byte) {
			ch.Send(messages.NewAudioMessage(frame))
		},
	)

	src, err := audio.OpenSource(c.device, audio.DefaultConstraints(c.sampleRate, deviceID))
	if err != nil {
		player.Close()
		ch.Close()
		c.reset()
		return err
	}

	recorder.Start(src)

	c.mu.Lock()
	c.ch = ch
	c.player = player
	c.recorder = recorder
	c.loopDone = make(chan struct{})
	c.state = StateActive
	loopDone := c.loopDone
	c.mu.Unlock()

	go c.readLoop(ch, player, loopDone)
	return nil
}

// readLoop consumes inbound messages strictly in arrival order until
// the channel's stream ends.
func (c *Client) readLoop(ch *channel.Channel, player *audio.Player, done chan struct{}) {
	defer close(done)

	for msg := range ch.Messages() {
		switch msg.Type {
		case messages.TypeAudio:
			data, err := msg.AudioBytes()
			if err != nil {
				log.Printf("voice: dropping bad audio payload: %v", err)
				continue
			}
			player.Play(audio.BytesToSamples(data))

		case messages.TypeInterrupt:
			// Barge-in: discard everything queued, hard cut.
			player.Clear()

		default:
			c.dispatch(msg)
		}
	}

	if c.State() == StateActive {
		log.Printf("voice: inbound stream ended")
	}
}

// dispatch hands a message to the application handler, isolating the
// loop from handler bugs so audio and interrupt processing stay alive.
func (c *Client) dispatch(msg messages.Message) {
	if c.handler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("voice: message handler panic on %q: %v", msg.Type, r)
		}
	}()
	if err := c.handler(msg); err != nil {
		log.Printf("voice: message handler error on %q: %v", msg.Type, err)
	}
}

// Stop tears the session down: clears queued playback, stops capture,
// closes the channel. Calling Stop with no active session is a no-op.
func (c *Client) Stop() {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return
	}
	c.state = StateStopping
	ch, player, recorder, loopDone := c.ch, c.player, c.recorder, c.loopDone
	c.mu.Unlock()

	player.Clear()
	recorder.Stop()
	ch.Close()
	<-loopDone
	player.Close()

	c.mu.Lock()
	c.ch = nil
	c.player = nil
	c.recorder = nil
	c.loopDone = nil
	c.state = StateIdle
	c.mu.Unlock()
}

func (c *Client) reset() {
	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()
}

// Send forwards an arbitrary message if a channel exists. Sends before
// Start are dropped, not queued.
func (c *Client) Send(msg messages.Message) {
	c.mu.Lock()
	ch := c.ch
	c.mu.Unlock()
	if ch == nil {
		return
	}
	ch.Send(msg)
}

// SendUserMessage sends a user text message.
func (c *Client) SendUserMessage(text string) {
	c.Send(messages.NewUserMessage(text))
}

// SendCreateResponse asks the far end to begin responding now,
// interrupting any in-flight response. This signals the remote; it
// does not clear local playback.
func (c *Client) SendCreateResponse() {
	c.Send(messages.NewInterruptMessage())
}
