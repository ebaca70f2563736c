// Package config loads the switchboard process configuration from a YAML file,
// an optional .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/switchboard/pkg/persistence/middleware"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no --config flag is given. A missing file means defaults.
const DefaultPath = "switchboard.yaml"

// Handoff drivers.
const (
	HandoffMemory = "memory"
	HandoffRedis  = "redis"
	HandoffLog    = "log"
)

// Embedders.
const (
	EmbedderOpenAI = "openai"
	EmbedderHash   = "hash"
)

var (
	ErrUnknownDriver   = errors.New("unknown driver")
	ErrInvalidTimeout  = errors.New("timeouts must be positive")
	ErrInvalidSettings = errors.New("invalid settings")
)

// Config is the complete process configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Log          LogConfig          `yaml:"log"`
	LLM          LLMConfig          `yaml:"llm"`
	Classifier   ClassifierConfig   `yaml:"classifier"`
	Knowledge    KnowledgeConfig    `yaml:"knowledge"`
	Timeouts     TimeoutsConfig     `yaml:"timeouts"`
	Input        InputConfig        `yaml:"input"`
	Handoff      HandoffConfig      `yaml:"handoff"`
	Redis        RedisConfig        `yaml:"redis"`
	NATS         NATSConfig         `yaml:"nats"`
	Capabilities CapabilitiesConfig `yaml:"capabilities"`
}

type ServerConfig struct {
	Addr    string `yaml:"addr"`
	MCPAddr string `yaml:"mcp_addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type LLMConfig struct {
	APIKey         string   `yaml:"api_key"`
	BaseURL        string   `yaml:"base_url"`
	Model          string   `yaml:"model"`
	EmbeddingModel string   `yaml:"embedding_model"`
	Temperature    *float64 `yaml:"temperature"`
}

type ClassifierConfig struct {
	Timezone string `yaml:"timezone"`
	Lenient  bool   `yaml:"lenient"`
}

type KnowledgeConfig struct {
	// Index is the path of the file written by `switchboard ingest`. Empty disables retrieval.
	Index    string        `yaml:"index"`
	Embedder string        `yaml:"embedder"`
	Depth    int           `yaml:"depth"`
	// Cache puts a Redis cache in front of the index.
	Cache    bool          `yaml:"cache"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type TimeoutsConfig struct {
	Retrieval  time.Duration `yaml:"retrieval"`
	Completion time.Duration `yaml:"completion"`
	Capability time.Duration `yaml:"capability"`
	Turn       time.Duration `yaml:"turn"`
}

// InputConfig bounds inbound turn requests on every transport.
type InputConfig struct {
	MaxQueryBytes  int `yaml:"max_query_bytes"`
	MaxUserIDBytes int `yaml:"max_user_id_bytes"`
}

type HandoffConfig struct {
	Driver string `yaml:"driver"`
	// Broadcast publishes every ticket on NATS as well, when nats.url is set.
	Broadcast bool  `yaml:"broadcast"`
	MaxLen    int64 `yaml:"max_len"`

	// Redact masks PII in tickets. RedactPatterns replace the built-in patterns.
	Redact         bool     `yaml:"redact"`
	RedactPatterns []string `yaml:"redact_patterns"`

	// EncryptionKey is a base64 AES-256 key sealing queued tickets.
	EncryptionKey string   `yaml:"encryption_key"`
	FallbackKeys  []string `yaml:"fallback_keys"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type CapabilitiesConfig struct {
	Weather  ProviderConfig `yaml:"weather"`
	Calendar CalendarConfig `yaml:"calendar"`
	Search   ProviderConfig `yaml:"search"`
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type CalendarConfig struct {
	Token      string `yaml:"token"`
	BaseURL    string `yaml:"base_url"`
	CalendarID string `yaml:"calendar_id"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server:     ServerConfig{Addr: ":8080", MCPAddr: ":8090"},
		Log:        LogConfig{Level: "info", Format: "text"},
		Classifier: ClassifierConfig{Timezone: "Asia/Karachi"},
		Knowledge:  KnowledgeConfig{Embedder: EmbedderOpenAI, Depth: 3, CacheTTL: 10 * time.Minute},
		Timeouts: TimeoutsConfig{
			Retrieval:  10 * time.Second,
			Completion: 30 * time.Second,
			Capability: 15 * time.Second,
			Turn:       2 * time.Minute,
		},
		Input:        InputConfig{MaxQueryBytes: 4096, MaxUserIDBytes: 128},
		Handoff:      HandoffConfig{Driver: HandoffMemory},
		Redis:        RedisConfig{Addr: "localhost:6379", Prefix: "switchboard:"},
		NATS:         NATSConfig{Subject: "switchboard.handoffs"},
		Capabilities: CapabilitiesConfig{Calendar: CalendarConfig{CalendarID: "primary"}},
	}
}

// Load reads path over the defaults, then applies .env and environment overrides.
// A missing file at DefaultPath is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// A missing .env is fine; existing environment variables take precedence.
	_ = godotenv.Load()

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides secrets and endpoints from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"OPENAI_API_KEY":          &c.LLM.APIKey,
		"OPENAI_BASE_URL":         &c.LLM.BaseURL,
		"OPENAI_MODEL":            &c.LLM.Model,
		"OPENWEATHER_API_KEY":     &c.Capabilities.Weather.APIKey,
		"TAVILY_API_KEY":          &c.Capabilities.Search.APIKey,
		"GOOGLE_CALENDAR_TOKEN":   &c.Capabilities.Calendar.Token,
		"GOOGLE_CALENDAR_ID":      &c.Capabilities.Calendar.CalendarID,
		"REDIS_ADDR":              &c.Redis.Addr,
		"REDIS_PASSWORD":          &c.Redis.Password,
		"NATS_URL":                &c.NATS.URL,
		"SWITCHBOARD_LOG_LEVEL":   &c.Log.Level,
		"SWITCHBOARD_LOG_FORMAT":  &c.Log.Format,
		"SWITCHBOARD_ADDR":        &c.Server.Addr,
		"SWITCHBOARD_INDEX":       &c.Knowledge.Index,
		"SWITCHBOARD_HANDOFF":     &c.Handoff.Driver,
		"SWITCHBOARD_HANDOFF_KEY": &c.Handoff.EncryptionKey,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"REDIS_DB":                    &c.Redis.DB,
		"SWITCHBOARD_MAX_QUERY_BYTES": &c.Input.MaxQueryBytes,
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidSettings, key, v)
		}
		*dst = n
	}
	return nil
}

// Validate rejects unknown drivers and non-positive timeouts.
func (c *Config) Validate() error {
	switch c.Handoff.Driver {
	case HandoffMemory, HandoffRedis, HandoffLog:
	default:
		return fmt.Errorf("%w: handoff.driver=%q", ErrUnknownDriver, c.Handoff.Driver)
	}
	switch c.Knowledge.Embedder {
	case EmbedderOpenAI, EmbedderHash:
	default:
		return fmt.Errorf("%w: knowledge.embedder=%q", ErrUnknownDriver, c.Knowledge.Embedder)
	}

	for name, d := range map[string]time.Duration{
		"retrieval":  c.Timeouts.Retrieval,
		"completion": c.Timeouts.Completion,
		"capability": c.Timeouts.Capability,
		"turn":       c.Timeouts.Turn,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: timeouts.%s=%s", ErrInvalidTimeout, name, d)
		}
	}

	if c.Input.MaxQueryBytes <= 0 || c.Input.MaxUserIDBytes <= 0 {
		return fmt.Errorf("%w: input limits must be positive", ErrInvalidSettings)
	}
	if c.Knowledge.Depth < 0 {
		return fmt.Errorf("%w: knowledge.depth must not be negative", ErrInvalidSettings)
	}
	if c.Knowledge.Cache && c.Knowledge.CacheTTL <= 0 {
		return fmt.Errorf("%w: knowledge.cache_ttl=%s", ErrInvalidTimeout, c.Knowledge.CacheTTL)
	}
	if c.Handoff.Broadcast && strings.TrimSpace(c.NATS.URL) == "" {
		return fmt.Errorf("%w: handoff.broadcast requires nats.url", ErrInvalidSettings)
	}
	for _, k := range append([]string{c.Handoff.EncryptionKey}, c.Handoff.FallbackKeys...) {
		if k == "" {
			continue
		}
		if _, err := middleware.ParseKey(k); err != nil {
			return fmt.Errorf("%w: handoff keys: %w", ErrInvalidSettings, err)
		}
	}
	if len(c.Handoff.FallbackKeys) > 0 && c.Handoff.EncryptionKey == "" {
		return fmt.Errorf("%w: handoff.fallback_keys requires handoff.encryption_key", ErrInvalidSettings)
	}
	if c.Classifier.Timezone != "" {
		if _, err := time.LoadLocation(c.Classifier.Timezone); err != nil {
			return fmt.Errorf("%w: classifier.timezone: %w", ErrInvalidSettings, err)
		}
	}
	return nil
}
