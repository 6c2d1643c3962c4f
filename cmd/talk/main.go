// Command talk is a terminal voice client: it streams the microphone
// (or a PCM/WAV file) to a voice server and plays the replies.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/room4-2/converselink/audio"
	"github.com/room4-2/converselink/messages"
	"github.com/room4-2/converselink/voice"
)

func main() {
	serverURL := flag.String("server", "ws://localhost:8080/ws", "WebSocket server URL")
	deviceID := flag.String("device", "", "exact input device id (empty for default)")
	audioFile := flag.String("file", "", "stream a PCM/WAV file instead of the microphone")
	fileRate := flag.Int("rate", 24000, "sample rate of -file audio")
	text := flag.String("text", "", "send a text message after connecting")
	flag.Parse()

	handler := func(msg messages.Message) error {
		switch msg.Type {
		case messages.TypeAssistant:
			fmt.Printf("assistant: %s\n", msg.Payload)
		case messages.TypeConsole:
			log.Printf("status: %s", msg.Payload)
		case messages.TypeFunction:
			log.Printf("tool call: %s", msg.Payload)
		default:
			log.Printf("%s: %s", msg.Type, msg.Payload)
		}
		return nil
	}

	talking := func(t bool) {
		if t {
			log.Println("assistant speaking...")
		} else {
			log.Println("assistant silent")
		}
	}

	opts := []voice.Option{}
	if *audioFile != "" {
		dev, err := newFileDevice(*audioFile, *fileRate)
		if err != nil {
			log.Fatalf("Failed to open audio file: %v", err)
		}
		opts = append(opts, voice.WithDevice(dev))
	}

	client := voice.New(*serverURL, handler, talking, opts...)

	log.Printf("Connecting to %s...", *serverURL)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := client.Start(ctx, *deviceID); err != nil {
		cancel()
		log.Fatalf("Failed to start session: %v", err)
	}
	cancel()
	defer client.Stop()

	if client.State() != voice.StateActive {
		log.Println("No audio backend available, nothing to do")
		return
	}
	log.Println("Connected")

	if *text != "" {
		client.SendUserMessage(*text)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	<-interrupt
	log.Println("\nClosing...")
}

// fileDevice satisfies the audio device interface with a PCM/WAV file
// as the microphone, paced at real time. Playback still goes to the
// speakers when sox is available, and to a discard sink otherwise.
type fileDevice struct {
	pcm  []byte
	rate int
}

func newFileDevice(path string, rate int) (*fileDevice, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Standard WAV files carry a 44-byte header before the samples
	if len(data) > 44 && string(data[0:4]) == "RIFF" {
		log.Println("Detected WAV file, skipping header")
		data = data[44:]
	}

	return &fileDevice{pcm: data, rate: rate}, nil
}

func (d *fileDevice) Available() bool { return true }

func (d *fileDevice) OpenSource(c audio.Constraints) (audio.Source, error) {
	src := audio.Source(&pacedSource{
		pcm:       d.pcm,
		chunk:     audio.FrameBytes(d.rate, audio.DefaultFrameDuration),
		frameWait: audio.DefaultFrameDuration,
	})
	return audio.ResampleSource(src, d.rate, c.SampleRate)
}

func (d *fileDevice) OpenSink(sampleRate int) (audio.Sink, error) {
	if (audio.SoxDevice{}).Available() {
		return audio.SoxDevice{}.OpenSink(sampleRate)
	}
	return nopSink{}, nil
}

// pacedSource replays file audio at the real-time rate so the server
// sees a stream shaped like a live microphone.
type pacedSource struct {
	pcm       []byte
	pos       int
	chunk     int
	frameWait time.Duration
}

func (s *pacedSource) Read(p []byte) (int, error) {
	if s.pos >= len(s.pcm) {
		return 0, io.EOF
	}

	time.Sleep(s.frameWait)

	end := s.pos + s.chunk
	if end > len(s.pcm) {
		end = len(s.pcm)
	}
	n := copy(p, s.pcm[s.pos:end])
	s.pos += n
	return n, nil
}

func (s *pacedSource) Close() error {
	s.pos = len(s.pcm)
	return nil
}

type nopSink struct{}

func (nopSink) Write(p []byte) (int, error) { return len(p), nil }
func (nopSink) Close() error                { return nil }
