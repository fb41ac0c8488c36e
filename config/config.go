package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the resume analysis system
type Config struct {
	General    GeneralConfig    `mapstructure:"general"`
	Server     ServerConfig     `mapstructure:"server"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address       string `mapstructure:"address"`
	MaxUploadMB   int    `mapstructure:"max_upload_mb"`
	AllowedOrigin string `mapstructure:"allowed_origin"`
}

// LLMConfig contains the text-generation and embedding provider settings
type LLMConfig struct {
	Provider        string        `mapstructure:"provider"` // openai
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	CompletionModel string        `mapstructure:"completion_model"`
	EmbeddingModel  string        `mapstructure:"embedding_model"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	MaxRetries      int           `mapstructure:"max_retries"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

func (l LLMConfig) Validate() error {
	if strings.TrimSpace(l.CompletionModel) == "" {
		return fmt.Errorf("llm.completion_model is required")
	}
	if strings.TrimSpace(l.EmbeddingModel) == "" {
		return fmt.Errorf("llm.embedding_model is required")
	}
	return nil
}

// EnrichmentConfig contains the GitHub and LinkedIn source settings
type EnrichmentConfig struct {
	GitHub   GitHubConfig   `mapstructure:"github"`
	LinkedIn LinkedInConfig `mapstructure:"linkedin"`
}

// GitHubConfig contains GitHub API settings
type GitHubConfig struct {
	Token      string        `mapstructure:"token"`
	Endpoint   string        `mapstructure:"endpoint"`
	MaxRepos   int           `mapstructure:"max_repos"`
	MaxRetries int           `mapstructure:"max_retries"`
	Backoff    time.Duration `mapstructure:"backoff"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Normalize applies defaults for unset GitHub values.
func (g GitHubConfig) Normalize() GitHubConfig {
	if strings.TrimSpace(g.Endpoint) == "" {
		g.Endpoint = "https://api.github.com"
	}
	if g.MaxRepos <= 0 {
		g.MaxRepos = 10
	}
	if g.MaxRetries < 0 {
		g.MaxRetries = 0
	}
	if g.Backoff <= 0 {
		g.Backoff = 500 * time.Millisecond
	}
	if g.Timeout <= 0 {
		g.Timeout = 20 * time.Second
	}
	return g
}

// LinkedInConfig contains LinkedIn fetch settings
type LinkedInConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxChars      int           `mapstructure:"max_chars"`
	FallbackToDoc bool          `mapstructure:"fallback_to_doc"`
}

// Normalize applies defaults for unset LinkedIn values.
func (l LinkedInConfig) Normalize() LinkedInConfig {
	if l.Timeout <= 0 {
		l.Timeout = 30 * time.Second
	}
	if l.MaxChars <= 0 {
		l.MaxChars = 8000
	}
	return l
}

// IngestConfig contains document chunking settings
type IngestConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`
}

// Validate checks the effective values, after defaults are applied, so an
// explicit zero size cannot smuggle an oversized overlap past the guard.
func (i IngestConfig) Validate() error {
	n := i.Normalize()
	if n.ChunkOverlap >= n.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap must be smaller than ingest.chunk_size")
	}
	return nil
}

// Normalize applies defaults for unset ingest values.
func (i IngestConfig) Normalize() IngestConfig {
	if i.ChunkSize <= 0 {
		i.ChunkSize = 1000
	}
	if i.ChunkOverlap <= 0 {
		i.ChunkOverlap = 200
	}
	return i
}

// RetrievalConfig contains hybrid retrieval settings. The lexical/vector
// weights are tunables, not part of the ranking algorithm's identity.
type RetrievalConfig struct {
	TopK          int     `mapstructure:"top_k"`
	LexicalWeight float64 `mapstructure:"lexical_weight"`
	VectorWeight  float64 `mapstructure:"vector_weight"`
	HistoryWindow int     `mapstructure:"history_window"`
}

// Normalize applies defaults and rescales the channel weights to sum to one.
func (r RetrievalConfig) Normalize() RetrievalConfig {
	if r.TopK <= 0 {
		r.TopK = 5
	}
	if r.LexicalWeight <= 0 && r.VectorWeight <= 0 {
		r.LexicalWeight = 0.4
		r.VectorWeight = 0.6
	}
	if sum := r.LexicalWeight + r.VectorWeight; sum > 0 {
		r.LexicalWeight /= sum
		r.VectorWeight /= sum
	}
	if r.HistoryWindow <= 0 {
		r.HistoryWindow = 3
	}
	return r
}

// StorageConfig contains session persistence settings
type StorageConfig struct {
	SessionStore string        `mapstructure:"session_store"` // inmemory, redis
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	Redis        RedisConfig   `mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (s StorageConfig) Validate() error {
	switch s.SessionStore {
	case "", "inmemory":
	case "redis":
		if strings.TrimSpace(s.Redis.Host) == "" {
			return fmt.Errorf("storage.redis.host required when session_store is redis")
		}
		if strings.TrimSpace(s.Redis.Port) == "" {
			return fmt.Errorf("storage.redis.port required when session_store is redis")
		}
	default:
		return fmt.Errorf("storage.session_store must be inmemory or redis, got %q", s.SessionStore)
	}
	return nil
}

// TelemetryConfig contains metrics settings
type TelemetryConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MetricsPort int  `mapstructure:"metrics_port"`
}

func (t TelemetryConfig) Validate() error {
	if t.Enabled && t.MetricsPort <= 0 {
		return fmt.Errorf("telemetry.metrics_port must be > 0 when telemetry is enabled")
	}
	return nil
}

// LoadConfig loads config from file
func LoadConfig(path string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.default_timeout", "60s")
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.max_upload_mb", 10)
	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.completion_model", "gpt-4o-mini")
	viper.SetDefault("llm.embedding_model", "text-embedding-3-small")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.max_tokens", 1000)
	viper.SetDefault("llm.max_retries", 2)
	viper.SetDefault("llm.timeout", "30s")
	viper.SetDefault("enrichment.github.max_repos", 10)
	viper.SetDefault("enrichment.github.max_retries", 3)
	viper.SetDefault("enrichment.github.timeout", "20s")
	viper.SetDefault("enrichment.linkedin.enabled", true)
	viper.SetDefault("enrichment.linkedin.fallback_to_doc", true)
	viper.SetDefault("ingest.chunk_size", 1000)
	viper.SetDefault("ingest.chunk_overlap", 200)
	viper.SetDefault("retrieval.top_k", 5)
	viper.SetDefault("retrieval.lexical_weight", 0.4)
	viper.SetDefault("retrieval.vector_weight", 0.6)
	viper.SetDefault("storage.session_store", "inmemory")
	viper.SetDefault("storage.session_ttl", "48h")

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("HIRESIGHT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// A missing config file is fine, defaults plus env cover everything.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	config.Enrichment.GitHub = config.Enrichment.GitHub.Normalize()
	config.Enrichment.LinkedIn = config.Enrichment.LinkedIn.Normalize()
	config.Ingest = config.Ingest.Normalize()
	config.Retrieval = config.Retrieval.Normalize()

	if err := config.LLM.Validate(); err != nil {
		return nil, err
	}
	if err := config.Ingest.Validate(); err != nil {
		return nil, err
	}
	if err := config.Storage.Validate(); err != nil {
		return nil, err
	}
	if err := config.Telemetry.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}
