package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds client and server configuration.
type Config struct {
	// Client
	Endpoint      string        // websocket endpoint the voice client dials
	InputDevice   string        // exact input device id, empty for default
	SampleRate    int           // wire/playback sample rate in Hz
	FrameDuration time.Duration // capture frame cadence

	// Server
	Port           int
	RedisURL       string
	RedisPassword  string
	MaxSessions    int
	SessionTimeout time.Duration
	GeminiAPIKey   string
	SystemPrompt   string
	AllowedOrigins []string
}

const defaultSystemPrompt = "You are a helpful voice assistant. Keep replies short and conversational."

// Load reads configuration from environment variables with defaults.
// GEMINI_API_KEY is validated by the server entrypoint, not here, so
// client-only processes can load the same config.
func Load() (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	config := &Config{
		Endpoint:       "ws://localhost:8080/ws",
		SampleRate:     24000,
		FrameDuration:  20 * time.Millisecond,
		Port:           8080,
		RedisURL:       "localhost:6379",
		MaxSessions:    100,
		SessionTimeout: 30 * time.Minute,
		SystemPrompt:   defaultSystemPrompt,
		AllowedOrigins: []string{"*"},
	}

	if endpoint := os.Getenv("WS_ENDPOINT"); endpoint != "" {
		config.Endpoint = endpoint
	}

	if device := os.Getenv("INPUT_DEVICE"); device != "" {
		config.InputDevice = device
	}

	if rate := os.Getenv("SAMPLE_RATE"); rate != "" {
		r, err := strconv.Atoi(rate)
		if err != nil || r <= 0 {
			return nil, fmt.Errorf("invalid SAMPLE_RATE: %q", rate)
		}
		config.SampleRate = r
	}

	if frameMS := os.Getenv("FRAME_MS"); frameMS != "" {
		f, err := strconv.Atoi(frameMS)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid FRAME_MS: %q", frameMS)
		}
		config.FrameDuration = time.Duration(f) * time.Millisecond
	}

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		config.Port = p
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		config.RedisURL = redisURL
	}

	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		config.RedisPassword = redisPassword
	}

	if maxSessions := os.Getenv("MAX_SESSIONS"); maxSessions != "" {
		m, err := strconv.Atoi(maxSessions)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_SESSIONS: %w", err)
		}
		config.MaxSessions = m
	}

	if timeout := os.Getenv("SESSION_TIMEOUT"); timeout != "" {
		t, err := strconv.Atoi(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TIMEOUT: %w", err)
		}
		config.SessionTimeout = time.Duration(t) * time.Minute
	}

	config.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")

	if prompt := os.Getenv("SYSTEM_PROMPT"); prompt != "" {
		config.SystemPrompt = prompt
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = strings.Split(origins, ",")
	}

	return config, nil
}
