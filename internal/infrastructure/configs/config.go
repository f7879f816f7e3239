package configs

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/meshconf/meshconf/internal/infrastructure/env"
)

type Config struct {
	HTTP        HTTPConfig        `koanf:"http"`
	RateLimiter RateLimiterConfig `koanf:"rateLimiter"`
	Auth        AuthConfig        `koanf:"auth"`
	Signaling   SignalingConfig   `koanf:"signaling"`
	Audio       AudioConfig       `koanf:"audio"`
	Summary     SummaryConfig     `koanf:"summary"`
}

type HTTPConfig struct {
	Host           string        `koanf:"host"`
	Port           uint16        `koanf:"port"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
}

type RateLimiterConfig struct {
	MaxRatePerSecond int           `koanf:"maxRatePerSecond"`
	MaxBurst         int           `koanf:"maxBurst"`
	CacheTTL         time.Duration `koanf:"cacheTTL"`
	SourceHeaderKey  string        `koanf:"sourceHeaderKey"`
}

type AuthConfig struct {
	// Mode is "jwt" or "api_key".
	Mode      string `koanf:"mode"`
	JWTSecret string `koanf:"jwt_secret"`
	APIKey    string `koanf:"api_key"`
}

type SignalingConfig struct {
	// SendBuffer is the per-client outbound frame queue; frames beyond it
	// are dropped rather than stalling the room.
	SendBuffer     int           `koanf:"send_buffer"`
	MaxMessageSize int64         `koanf:"max_message_size"`
	PongWait       time.Duration `koanf:"pong_wait"`
	WriteWait      time.Duration `koanf:"write_wait"`
	MaxRooms       int           `koanf:"max_rooms"`
}

type AudioConfig struct {
	// ChunkBuffer bounds the per-participant relay queue toward the
	// transcription sink.
	ChunkBuffer    int   `koanf:"chunk_buffer"`
	MaxMessageSize int64 `koanf:"max_message_size"`
}

type SummaryConfig struct {
	LongPollTimeout time.Duration `koanf:"long_poll_timeout"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Load from YAML file if it exists
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Apply defaults and environment variable overrides
	applyDefaults(k)
	applyEnvOverrides(k)

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(k *koanf.Koanf) {
	// HTTP defaults
	setDefault(k, "http.host", "0.0.0.0")
	setDefault(k, "http.port", 8080)
	setDefault(k, "http.read_timeout", 10*time.Second)
	setDefault(k, "http.write_timeout", 30*time.Second)
	setDefault(k, "http.allowed_origins", []string{"*"})

	// Rate limiter defaults
	setDefault(k, "rateLimiter.maxRatePerSecond", 10)
	setDefault(k, "rateLimiter.maxBurst", 20)
	setDefault(k, "rateLimiter.cacheTTL", 5*time.Minute)
	setDefault(k, "rateLimiter.sourceHeaderKey", "X-Forwarded-For")

	// Auth defaults
	setDefault(k, "auth.mode", "jwt")

	// Signaling defaults
	setDefault(k, "signaling.send_buffer", 64)
	setDefault(k, "signaling.max_message_size", 64*1024)
	setDefault(k, "signaling.pong_wait", 60*time.Second)
	setDefault(k, "signaling.write_wait", 10*time.Second)
	setDefault(k, "signaling.max_rooms", 1024)

	// Audio defaults
	setDefault(k, "audio.chunk_buffer", 256)
	setDefault(k, "audio.max_message_size", 256*1024)

	// Summary defaults
	setDefault(k, "summary.long_poll_timeout", 25*time.Second)
}

func applyEnvOverrides(k *koanf.Koanf) {
	// HTTP config from env
	if host := env.GetString("HTTP_HOST", ""); host != "" {
		k.Set("http.host", host)
	}
	if port := env.GetInt("HTTP_PORT", 0); port > 0 {
		k.Set("http.port", port)
	}
	if readTimeout := env.GetInt("HTTP_READ_TIMEOUT_SECONDS", 0); readTimeout > 0 {
		k.Set("http.read_timeout", time.Duration(readTimeout)*time.Second)
	}
	if writeTimeout := env.GetInt("HTTP_WRITE_TIMEOUT_SECONDS", 0); writeTimeout > 0 {
		k.Set("http.write_timeout", time.Duration(writeTimeout)*time.Second)
	}

	// Rate limiter config from env
	if maxRate := env.GetInt("RATE_LIMIT_MAX_RATE_PER_SECOND", 0); maxRate > 0 {
		k.Set("rateLimiter.maxRatePerSecond", maxRate)
	}
	if maxBurst := env.GetInt("RATE_LIMIT_MAX_BURST", 0); maxBurst > 0 {
		k.Set("rateLimiter.maxBurst", maxBurst)
	}

	// Auth config from env
	if mode := env.GetString("AUTH_MODE", ""); mode != "" {
		k.Set("auth.mode", mode)
	}
	if secret := env.GetString("AUTH_JWT_SECRET", ""); secret != "" {
		k.Set("auth.jwt_secret", secret)
	}
	if apiKey := env.GetString("AUTH_API_KEY", ""); apiKey != "" {
		k.Set("auth.api_key", apiKey)
	}

	// Signaling config from env
	if buf := env.GetInt("SIGNALING_SEND_BUFFER", 0); buf > 0 {
		k.Set("signaling.send_buffer", buf)
	}
	if maxRooms := env.GetInt("SIGNALING_MAX_ROOMS", 0); maxRooms > 0 {
		k.Set("signaling.max_rooms", maxRooms)
	}

	// Audio config from env
	if buf := env.GetInt("AUDIO_CHUNK_BUFFER", 0); buf > 0 {
		k.Set("audio.chunk_buffer", buf)
	}
}

// setDefault only sets the value if the key doesn't already exist
func setDefault(k *koanf.Koanf, key string, value interface{}) {
	if !k.Exists(key) {
		k.Set(key, value)
	}
}
