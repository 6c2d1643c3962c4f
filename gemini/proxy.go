package gemini

import (
	"context"
	"fmt"
	"log"
	"sync"

	"google.golang.org/genai"
)

const (
	modelName = "models/gemini-2.5-flash-native-audio-preview-12-2025"

	// Gemini Live consumes 16 kHz input and produces 24 kHz output.
	InputSampleRate  = 16000
	OutputSampleRate = 24000
)

// Proxy manages the connection to Gemini Live API using the official SDK
type Proxy struct {
	client  *genai.Client
	session *genai.Session

	// Callbacks for handling responses
	OnAudio       func(data []byte) // Raw 24kHz PCM16 bytes
	OnText        func(text string)
	OnComplete    func()
	OnInterrupted func() // Model output was cut off by new user activity
	OnToolCall    func(functionCalls []*genai.FunctionCall)
	OnError       func(err error)

	mu     sync.RWMutex
	closed bool
}

// NewProxy creates and connects to Gemini Live API
func NewProxy(ctx context.Context, apiKey string) (*Proxy, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Proxy{
		client: client,
	}, nil
}

// Setup establishes the Live session
func (gp *Proxy) Setup(ctx context.Context, systemPrompt string, tools []*genai.Tool) error {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	if gp.closed {
		return fmt.Errorf("proxy is closed")
	}

	config := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{"AUDIO"},
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{
				{Text: systemPrompt},
			},
		},
		Tools: tools,
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: "Zephyr",
				},
			},
		},
	}

	session, err := gp.client.Live.Connect(ctx, modelName, config)
	if err != nil {
		return fmt.Errorf("failed to connect to Live API: %w", err)
	}

	gp.session = session
	log.Printf("Connected to Gemini Live via SDK (%s)", modelName)
	return nil
}

// StartReceiving begins listening for Gemini responses
func (gp *Proxy) StartReceiving(ctx context.Context) {
	go func() {
		for {
			gp.mu.RLock()
			if gp.closed || gp.session == nil {
				gp.mu.RUnlock()
				return
			}
			session := gp.session
			gp.mu.RUnlock()

			// Receive blocks until a message arrives or error occurs
			resp, err := session.Receive()
			if err != nil {
				gp.mu.RLock()
				closed := gp.closed
				gp.mu.RUnlock()

				if !closed {
					log.Printf("Gemini receive error: %v", err)
					if gp.OnError != nil {
						gp.OnError(err)
					}
				}
				return
			}

			gp.handleResponse(resp)
		}
	}()
}

func (gp *Proxy) handleResponse(resp *genai.LiveServerMessage) {
	if resp.ToolCall != nil && len(resp.ToolCall.FunctionCalls) > 0 {
		if gp.OnToolCall != nil {
			gp.OnToolCall(resp.ToolCall.FunctionCalls)
		}
	}

	if resp.ServerContent != nil {
		// Interruption arrives before the replacement turn: the model
		// noticed new user activity and cut itself off.
		if resp.ServerContent.Interrupted && gp.OnInterrupted != nil {
			gp.OnInterrupted()
		}

		if resp.ServerContent.ModelTurn != nil {
			for _, part := range resp.ServerContent.ModelTurn.Parts {
				if part.Text != "" && gp.OnText != nil {
					gp.OnText(part.Text)
				}
				if part.InlineData != nil && gp.OnAudio != nil {
					gp.OnAudio(part.InlineData.Data)
				}
			}
		}

		if resp.ServerContent.TurnComplete && gp.OnComplete != nil {
			gp.OnComplete()
		}
	}
}

// SendAudio forwards a 16kHz PCM16 chunk to Gemini
func (gp *Proxy) SendAudio(audioData []byte) error {
	gp.mu.RLock()
	session := gp.session
	closed := gp.closed
	gp.mu.RUnlock()

	if closed || session == nil {
		return fmt.Errorf("proxy is closed or not connected")
	}

	err := session.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{
			MIMEType: fmt.Sprintf("audio/pcm;rate=%d", InputSampleRate),
			Data:     audioData,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send audio: %w", err)
	}
	return nil
}

// CommitAudio signals the end of the current audio activity so the
// model begins responding to everything streamed so far.
func (gp *Proxy) CommitAudio() error {
	gp.mu.RLock()
	session := gp.session
	closed := gp.closed
	gp.mu.RUnlock()

	if closed || session == nil {
		return fmt.Errorf("proxy is closed or not connected")
	}

	err := session.SendRealtimeInput(genai.LiveRealtimeInput{
		AudioStreamEnd: true,
	})
	if err != nil {
		return fmt.Errorf("failed to send audio stream end: %w", err)
	}
	return nil
}

// SendText sends a user text turn to Gemini
func (gp *Proxy) SendText(text string) error {
	gp.mu.RLock()
	session := gp.session
	closed := gp.closed
	gp.mu.RUnlock()

	if closed || session == nil {
		return fmt.Errorf("proxy is closed or not connected")
	}

	turnComplete := true
	err := session.SendClientContent(genai.LiveSendClientContentParameters{
		Turns: []*genai.Content{
			{
				Role:  "user",
				Parts: []*genai.Part{{Text: text}},
			},
		},
		TurnComplete: &turnComplete,
	})
	if err != nil {
		return fmt.Errorf("failed to send text: %w", err)
	}
	return nil
}

// SendToolResponse sends function call responses back to Gemini
func (gp *Proxy) SendToolResponse(responses []*genai.FunctionResponse) error {
	gp.mu.RLock()
	session := gp.session
	closed := gp.closed
	gp.mu.RUnlock()

	if closed || session == nil {
		return fmt.Errorf("proxy is closed or not connected")
	}

	err := session.SendToolResponse(genai.LiveToolResponseInput{
		FunctionResponses: responses,
	})
	if err != nil {
		return fmt.Errorf("failed to send tool response: %w", err)
	}
	return nil
}

// Close terminates the Gemini connection
func (gp *Proxy) Close() error {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	if gp.closed {
		return nil
	}
	gp.closed = true

	if gp.session != nil {
		return gp.session.Close()
	}
	return nil
}
