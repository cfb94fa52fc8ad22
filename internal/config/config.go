package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Tunables that are policy, not deployment-specific.
const (
	// MinTypingInterval bounds typing fan-out per sender; faster events
	// are coalesced server-side.
	MinTypingInterval = time.Second
	// TypingClearWindow is the client-side auto-clear for a stale typing
	// indicator; documented here because both ends must agree on it.
	TypingClearWindow = 3 * time.Second
	// DisconnectGrace is how long the hub waits after a transport drop
	// before cascading teardown, to absorb instant reconnects.
	DisconnectGrace = 0 * time.Second
)

// Config holds everything read from the environment at startup.
type Config struct {
	ListenAddr    string
	DatabaseDSN   string
	RedisAddr     string
	RedisPassword string
	JWTSecret     string

	// MatchTimeout is the window a HelpRequest stays pending before it
	// expires with no acceptance.
	MatchTimeout time.Duration

	// AllowObservers permits a third, non-primary member (e.g. a
	// supervising counsellor) to join a room.
	AllowObservers bool

	// BackendBaseURL is the REST collaborator that persists chat
	// messages and serves the staff directory.
	BackendBaseURL string

	// Telegram ops alerting; both empty disables it.
	TelegramBotToken  string
	TelegramOpsChatID int64
}

// Load reads the configuration from environment variables, applying
// defaults suitable for local development.
func Load() *Config {
	return &Config{
		ListenAddr:        getEnv("LISTEN_ADDR", ":8080"),
		DatabaseDSN:       getEnv("DATABASE_DSN", "host=localhost user=vetline password=vetline dbname=vetline port=5432 sslmode=disable"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		JWTSecret:         getEnv("JWT_SECRET", "dev-only-secret"),
		MatchTimeout:      getDuration("MATCH_TIMEOUT", 45*time.Second),
		AllowObservers:    getBool("ALLOW_OBSERVERS", false),
		BackendBaseURL:    getEnv("BACKEND_BASE_URL", "http://localhost:3000"),
		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramOpsChatID: getInt64("TELEGRAM_OPS_CHAT_ID", 0),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARNING: invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("WARNING: invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return b
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Printf("WARNING: invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}
