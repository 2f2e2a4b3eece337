// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LLM provider names.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// Conversation store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	Port         string
	FrontendURL  string
	DBPath       string
	MaxBodyBytes int64
	LLM          LLMConfig
	Knowledge    KnowledgeConfig
	Bridge       BridgeConfig
	Conversation ConversationConfig
	RateLimit    RateLimitConfig
	// ConversationLog controls JSON conversation logging.
	ConversationLog ConversationLogConfig
}

// LLMConfig selects and configures the generation provider.
type LLMConfig struct {
	Provider        string
	GeminiAPIKey    string
	GeminiModel     string
	EmbeddingModel  string
	AnthropicAPIKey string
	AnthropicModel  string
	Timeout         time.Duration
}

// KnowledgeConfig points at the vector store.
type KnowledgeConfig struct {
	ChromaURL  string
	Collection string
}

// BridgeConfig controls the external knowledge bridge subprocess.
type BridgeConfig struct {
	Enabled         bool
	Script          string
	Interpreters    []string
	Timeout         time.Duration
	DefaultNotebook string
}

// ConversationConfig bounds conversation memory.
type ConversationConfig struct {
	Backend          string
	HistoryLimit     int
	MaxConversations int
	IdleTTL          time.Duration
	SweepInterval    time.Duration
}

// RateLimitConfig is the per-client token bucket.
type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		FrontendURL:  getEnv("FRONTEND_URL", ""),
		DBPath:       getEnv("DB_PATH", "./data/agents.db"),
		MaxBodyBytes: int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),
		LLM: LLMConfig{
			Provider:        strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini)),
			GeminiAPIKey:    firstEnv("GEMINI_API_KEY", "GOOGLE_GEMINI_API_KEY"),
			GeminiModel:     getEnv("GEMINI_MODEL", ""),
			EmbeddingModel:  getEnv("GEMINI_EMBEDDING_MODEL", ""),
			AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
			AnthropicModel:  getEnv("ANTHROPIC_MODEL", ""),
			Timeout:         getEnvDuration("LLM_TIMEOUT", 60*time.Second),
		},
		Knowledge: KnowledgeConfig{
			ChromaURL:  getEnv("CHROMADB_URL", "http://localhost:8000"),
			Collection: getEnv("CHROMADB_COLLECTION", "ia_regulations"),
		},
		Bridge: BridgeConfig{
			Enabled:         getEnvBool("NOTEBOOKLM_ENABLED", true),
			Script:          getEnv("NOTEBOOKLM_SCRIPT", "scripts/notebooklm_bridge.py"),
			Interpreters:    getEnvList("NOTEBOOKLM_INTERPRETERS", []string{"python", "python3"}),
			Timeout:         getEnvDuration("NOTEBOOKLM_TIMEOUT", 15*time.Second),
			DefaultNotebook: getEnv("NOTEBOOK_ID", ""),
		},
		Conversation: ConversationConfig{
			Backend:          strings.ToLower(getEnv("CONVERSATION_BACKEND", BackendMemory)),
			HistoryLimit:     getEnvInt("CONVERSATION_HISTORY_LIMIT", 20),
			MaxConversations: getEnvInt("CONVERSATION_MAX", 10000),
			IdleTTL:          getEnvDuration("CONVERSATION_IDLE_TTL", 24*time.Hour),
			SweepInterval:    getEnvDuration("CONVERSATION_SWEEP_INTERVAL", 5*time.Minute),
		},
		RateLimit: RateLimitConfig{
			Enabled: getEnvBool("RATE_LIMIT_ENABLED", true),
			RPS:     getEnvFloat("RATE_LIMIT_RPS", 2),
			Burst:   getEnvInt("RATE_LIMIT_BURST", 10),
		},
		ConversationLog: ConversationLogConfig{
			Enabled:       getEnvBool("CONVERSATION_LOG_ENABLED", true),
			Dir:           getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			GlobalEnabled: getEnvBool("CONVERSATION_LOG_GLOBAL_ENABLED", false),
			GlobalPath:    getEnv("CONVERSATION_LOG_GLOBAL_PATH", "./data/logs/conversations/all.ndjson"),
			QueueSize:     queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
// Missing API keys are not an error: the agents answer with a
// not-configured failure instead.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be > 0")
	}
	switch c.LLM.Provider {
	case ProviderGemini, ProviderAnthropic:
	default:
		return fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", ProviderGemini, ProviderAnthropic, c.LLM.Provider)
	}
	switch c.Conversation.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty")
		}
	default:
		return fmt.Errorf("CONVERSATION_BACKEND must be %q or %q, got %q", BackendMemory, BackendSQLite, c.Conversation.Backend)
	}
	if c.Conversation.HistoryLimit <= 0 {
		return fmt.Errorf("CONVERSATION_HISTORY_LIMIT must be > 0")
	}
	if c.Conversation.SweepInterval <= 0 {
		return fmt.Errorf("CONVERSATION_SWEEP_INTERVAL must be > 0")
	}
	if c.Bridge.Enabled && c.Bridge.Script == "" {
		return fmt.Errorf("NOTEBOOKLM_SCRIPT cannot be empty when the bridge is enabled")
	}
	if c.Bridge.Enabled && len(c.Bridge.Interpreters) == 0 {
		return fmt.Errorf("NOTEBOOKLM_INTERPRETERS cannot be empty when the bridge is enabled")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be > 0")
	}
	if c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.GlobalPath == "" {
		return fmt.Errorf("CONVERSATION_LOG_GLOBAL_PATH cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env == "development"
	}
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// firstEnv returns the first non-empty variable among keys.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
