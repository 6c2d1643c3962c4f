package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"google.golang.org/genai"

	"github.com/room4-2/converselink/audio"
	"github.com/room4-2/converselink/gemini"
	"github.com/room4-2/converselink/messages"
)

const (
	writeBufferSize = 256
	writeTimeout    = 10 * time.Second
)

// FunctionCallPayload is the wire form of a model tool call forwarded
// to the client as a "function" message.
type FunctionCallPayload struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// FunctionResponsePayload is the client's reply carried back in a
// "function" message.
type FunctionResponsePayload struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// ClientSession bridges one voice-client connection to a Gemini Live
// session: inbound audio messages stream to the model, model audio and
// interruptions stream back as audio/interrupt messages.
type ClientSession struct {
	ID           string
	ClientConn   *websocket.Conn
	Proxy        *gemini.Proxy
	CreatedAt    time.Time
	LastActivity time.Time

	// The wire carries 24kHz audio; Gemini consumes 16kHz.
	downConv *audio.RateConverter

	// Use a channel for non-blocking writes
	writeChan chan messages.Message

	mu        sync.RWMutex
	closed    bool
	CloseChan chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClientSession creates a session with a connected Gemini proxy.
func NewClientSession(ctx context.Context, id string, clientConn *websocket.Conn, geminiKey, systemPrompt string, wireSampleRate int) (*ClientSession, error) {
	proxy, err := gemini.NewProxy(ctx, geminiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini proxy: %w", err)
	}

	if err := proxy.Setup(ctx, systemPrompt, nil); err != nil {
		proxy.Close()
		return nil, fmt.Errorf("failed to setup Gemini session: %w", err)
	}

	downConv, err := audio.NewRateConverter(wireSampleRate, gemini.InputSampleRate)
	if err != nil {
		proxy.Close()
		return nil, fmt.Errorf("failed to create rate converter: %w", err)
	}

	sessionCtx, cancel := context.WithCancel(context.Background())

	clientConn.SetReadLimit(512 * 1024) // 512KB max message
	clientConn.EnableWriteCompression(true)
	clientConn.SetCompressionLevel(6)

	return &ClientSession{
		ID:           id,
		ClientConn:   clientConn,
		Proxy:        proxy,
		downConv:     downConv,
		CreatedAt:    time.Now(),
		LastActivity: time.Now(),
		writeChan:    make(chan messages.Message, writeBufferSize),
		CloseChan:    make(chan struct{}),
		ctx:          sessionCtx,
		cancel:       cancel,
	}, nil
}

// Start begins the bidirectional message handling.
func (cs *ClientSession) Start() {
	go cs.writePump()
	cs.setupProxyCallbacks()
	cs.Proxy.StartReceiving(cs.ctx)
	cs.queueMessage(messages.NewConsoleMessage("connected"))
	go cs.handleClientMessages()
}

func (cs *ClientSession) setupProxyCallbacks() {
	cs.Proxy.OnAudio = func(data []byte) {
		cs.queueMessage(messages.NewAudioMessage(data))
	}

	cs.Proxy.OnText = func(text string) {
		cs.queueMessage(messages.NewAssistantMessage(text))
	}

	cs.Proxy.OnInterrupted = func() {
		// Barge-in: tell the client to drop everything it has queued.
		cs.queueMessage(messages.NewInterruptMessage())
	}

	cs.Proxy.OnComplete = func() {
		cs.queueMessage(messages.NewConsoleMessage("turn_complete"))
	}

	cs.Proxy.OnToolCall = func(functionCalls []*genai.FunctionCall) {
		for _, fc := range functionCalls {
			payload, err := sonic.MarshalString(FunctionCallPayload{
				ID:   fc.ID,
				Name: fc.Name,
				Args: fc.Args,
			})
			if err != nil {
				log.Printf("[%s] failed to encode tool call %s: %v", cs.shortID(), fc.Name, err)
				continue
			}
			cs.queueMessage(messages.NewFunctionMessage(payload))
		}
	}

	cs.Proxy.OnError = func(err error) {
		log.Printf("[%s] Gemini error: %v", cs.shortID(), err)
		cs.queueMessage(messages.NewConsoleMessage("error: " + err.Error()))
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) ||
			websocket.IsUnexpectedCloseError(err) {
			log.Printf("[%s] closing session due to Gemini connection error", cs.shortID())
			cs.Close()
		}
	}
}

// writePump handles all outgoing messages in a single goroutine
func (cs *ClientSession) writePump() {
	defer func() {
		cs.ClientConn.SetWriteDeadline(time.Now().Add(writeTimeout))
		cs.ClientConn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
	}()

	for {
		select {
		case <-cs.CloseChan:
			return
		case msg := <-cs.writeChan:
			if err := cs.writeMessage(msg); err != nil {
				return
			}
		}
	}
}

func (cs *ClientSession) writeMessage(msg messages.Message) error {
	data, err := messages.Encode(msg)
	if err != nil {
		log.Printf("[%s] dropping unencodable message: %v", cs.shortID(), err)
		return nil
	}
	cs.ClientConn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return cs.ClientConn.WriteMessage(websocket.TextMessage, data)
}

// queueMessage adds a message to the write queue (non-blocking)
func (cs *ClientSession) queueMessage(msg messages.Message) {
	cs.mu.RLock()
	closed := cs.closed
	cs.mu.RUnlock()
	if closed {
		return
	}
	select {
	case cs.writeChan <- msg:
		cs.mu.Lock()
		cs.LastActivity = time.Now()
		cs.mu.Unlock()
	default:
		// Queue full, drop message (shouldn't happen with proper sizing)
	}
}

// handleClientMessages processes the client's wire protocol.
func (cs *ClientSession) handleClientMessages() {
	defer cs.Close()

	for {
		select {
		case <-cs.CloseChan:
			return
		default:
			_, data, err := cs.ClientConn.ReadMessage()
			if err != nil {
				if !cs.IsClosed() {
					log.Printf("[%s] client read error: %v", cs.shortID(), err)
				}
				return
			}

			cs.mu.Lock()
			cs.LastActivity = time.Now()
			cs.mu.Unlock()

			msg, err := messages.Decode(data)
			if err != nil {
				log.Printf("[%s] invalid message: %v", cs.shortID(), err)
				cs.queueMessage(messages.NewConsoleMessage("error: invalid message"))
				continue
			}

			cs.processClientMessage(msg)
		}
	}
}

func (cs *ClientSession) processClientMessage(msg messages.Message) {
	switch msg.Type {
	case messages.TypeAudio:
		pcm, err := msg.AudioBytes()
		if err != nil {
			cs.queueMessage(messages.NewConsoleMessage("error: invalid audio payload"))
			return
		}
		converted, err := cs.downConv.Convert(pcm)
		if err != nil {
			log.Printf("[%s] resample error: %v", cs.shortID(), err)
			return
		}
		if err := cs.Proxy.SendAudio(converted); err != nil {
			log.Printf("[%s] failed to send audio to Gemini: %v", cs.shortID(), err)
		}

	case messages.TypeUser:
		if err := cs.Proxy.SendText(msg.Payload); err != nil {
			log.Printf("[%s] failed to send text to Gemini: %v", cs.shortID(), err)
			cs.queueMessage(messages.NewConsoleMessage("error: " + err.Error()))
		}

	case messages.TypeInterrupt:
		// The client wants a response now, cutting any in-flight one.
		if err := cs.Proxy.CommitAudio(); err != nil {
			log.Printf("[%s] failed to commit audio: %v", cs.shortID(), err)
		}

	case messages.TypeFunction:
		cs.handleFunctionReply(msg.Payload)

	case messages.TypeConsole, messages.TypeMessages:
		log.Printf("[%s] client %s: %s", cs.shortID(), msg.Type, msg.Payload)

	default:
		log.Printf("[%s] unknown message type: %s", cs.shortID(), msg.Type)
		cs.queueMessage(messages.NewConsoleMessage("error: unknown message type " + msg.Type))
	}
}

// handleFunctionReply relays a client tool result back to Gemini.
func (cs *ClientSession) handleFunctionReply(payload string) {
	var reply FunctionResponsePayload
	if err := sonic.UnmarshalString(payload, &reply); err != nil {
		log.Printf("[%s] invalid function reply: %v", cs.shortID(), err)
		cs.queueMessage(messages.NewConsoleMessage("error: invalid function reply"))
		return
	}

	err := cs.Proxy.SendToolResponse([]*genai.FunctionResponse{{
		ID:       reply.ID,
		Name:     reply.Name,
		Response: reply.Response,
	}})
	if err != nil {
		log.Printf("[%s] failed to send tool response: %v", cs.shortID(), err)
		cs.queueMessage(messages.NewConsoleMessage("error: " + err.Error()))
	}
}

// Close terminates the session and cleans up resources
func (cs *ClientSession) Close() error {
	cs.mu.Lock()
	if cs.closed {
		cs.mu.Unlock()
		return nil
	}
	cs.closed = true
	cs.mu.Unlock()

	cs.cancel()
	close(cs.CloseChan)

	if cs.Proxy != nil {
		cs.Proxy.Close()
	}

	// Don't write a close message here as writePump is stopped
	if cs.ClientConn != nil {
		cs.ClientConn.Close()
	}

	return nil
}

// IsClosed returns whether the session is closed
func (cs *ClientSession) IsClosed() bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.closed
}

func (cs *ClientSession) shortID() string {
	if len(cs.ID) >= 8 {
		return cs.ID[:8]
	}
	return cs.ID
}
