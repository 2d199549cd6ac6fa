// Package config provides environment configuration for the API server and the chat client.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultUserID is the single user identity the memory store records sessions under.
const DefaultUserID = "hardcoded_user_id"

// Config holds all configuration for the API server.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Memory store settings
	MemoryStoreURL     string
	MemoryStoreAPIKey  string
	MemoryStoreTimeout time.Duration
	UserID             string

	// Reply settings
	WebhookURL      string
	ReplyTimeout    time.Duration
	AnthropicAPIKey string
	OpenAIAPIKey    string
	DefaultLLM      string
	LLMModel        string

	// NATS settings (optional session event stream)
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// ClientConfig holds configuration for the terminal chat client.
type ClientConfig struct {
	// APIURL is the base URL of the session proxy, e.g. http://localhost:8080/api.
	APIURL string
	// ReplyURL receives the form-encoded reply request.
	ReplyURL string
	UserID   string

	TargetLanguage string

	// CacheBackend is one of "sqlite", "nats" or "memory".
	CacheBackend string
	CachePath    string
	NATSURL      string
	NATSBucket   string

	RequestTimeout time.Duration

	LogLevel string
	LogFile  string
}

// Load reads server configuration from a .env file, if any, and the environment.
func Load() *Config {
	loadDotEnv()

	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// Memory store
		MemoryStoreURL:     getEnv("ZEP_API_BASE", "https://api.getzep.com/api/v2"),
		MemoryStoreAPIKey:  getEnv("ZEP_API_KEY", ""),
		MemoryStoreTimeout: getDurationEnv("MEMSTORE_TIMEOUT", 15*time.Second),
		UserID:             getEnv("MEMORY_USER_ID", DefaultUserID),

		// Reply
		WebhookURL:      getEnv("WEBHOOK_URL", ""),
		ReplyTimeout:    getDurationEnv("REPLY_TIMEOUT", 60*time.Second),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		DefaultLLM:      getEnv("DEFAULT_LLM", "anthropic"),
		LLMModel:        getEnv("LLM_MODEL", ""),

		// NATS
		NATSURL:      getEnv("NATS_URL", ""),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

// LoadClient reads chat client configuration.
func LoadClient() *ClientConfig {
	loadDotEnv()

	apiURL := getEnv("CHAT_API_URL", "http://localhost:8080/api")

	return &ClientConfig{
		APIURL:         apiURL,
		ReplyURL:       getEnv("CHAT_WEBHOOK_URL", apiURL+"/reply"),
		UserID:         getEnv("CHAT_USER_ID", DefaultUserID),
		TargetLanguage: getEnv("TARGET_LANGUAGE", "english"),
		CacheBackend:   getEnv("CHAT_CACHE_BACKEND", "sqlite"),
		CachePath:      getEnv("CHAT_CACHE_PATH", defaultCachePath()),
		NATSURL:        getEnv("NATS_URL", "nats://localhost:4222"),
		NATSBucket:     getEnv("CHAT_NATS_BUCKET", "mutumwa_chat"),
		RequestTimeout: getDurationEnv("CHAT_REQUEST_TIMEOUT", 60*time.Second),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFile:        getEnv("CHAT_LOG_FILE", os.DevNull),
	}
}

func loadDotEnv() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "mutumwa-chat.db"
	}
	return dir + string(os.PathSeparator) + "mutumwa-chat.db"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
