package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/poiesic/groundwork/ai"
	"github.com/poiesic/groundwork/core"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidConfig is wrapped by every validation failure.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrUnsupportedFormat is returned for config files that are neither YAML nor TOML.
	ErrUnsupportedFormat = errors.New("unsupported config format")
)

// DefaultFiles are looked up in the working directory, in order, when no
// config path is given.
var DefaultFiles = []string{"groundwork.yaml", "groundwork.yml", "groundwork.toml"}

// Config is the application configuration.
type Config struct {
	// DataDir is the directory ingested by default.
	DataDir string `yaml:"data_dir" toml:"data_dir"`

	// DBPath is the badger database directory.
	DBPath string `yaml:"db_path" toml:"db_path"`

	// Collection is the collection used by every command.
	Collection string `yaml:"collection" toml:"collection"`

	Chunking  ChunkingConfig  `yaml:"chunking" toml:"chunking"`
	Ingest    IngestConfig    `yaml:"ingest" toml:"ingest"`
	Embedding EmbeddingConfig `yaml:"embedding" toml:"embedding"`
	Chat      ChatConfig      `yaml:"chat" toml:"chat"`
	Query     QueryConfig     `yaml:"query" toml:"query"`
	Reembed   ReembedConfig   `yaml:"reembed" toml:"reembed"`
}

// ChunkingConfig controls how page text is split.
type ChunkingConfig struct {
	Strategy string `yaml:"strategy" toml:"strategy"` // overlap or recursive
	Size     int    `yaml:"size" toml:"size"`
	Overlap  int    `yaml:"overlap" toml:"overlap"`
}

// IngestConfig selects document loaders.
type IngestConfig struct {
	PDFExtractor string `yaml:"pdf_extractor" toml:"pdf_extractor"` // plain or rows
	TextFiles    bool   `yaml:"text_files" toml:"text_files"`
}

// EmbeddingConfig configures the embedding service and how upserts call it.
type EmbeddingConfig struct {
	Host              string  `yaml:"host" toml:"host"`
	Model             string  `yaml:"model" toml:"model"`
	BatchSize         int     `yaml:"batch_size" toml:"batch_size"`
	Workers           int     `yaml:"workers" toml:"workers"`
	RequestsPerSecond float64 `yaml:"requests_per_second" toml:"requests_per_second"` // 0 is unlimited
}

// ChatConfig configures the chat completion service.
type ChatConfig struct {
	Host  string `yaml:"host" toml:"host"`
	Model string `yaml:"model" toml:"model"`
}

// QueryConfig controls retrieval and prompt building.
type QueryConfig struct {
	K              int `yaml:"k" toml:"k"`
	MaxPromptChars int `yaml:"max_prompt_chars" toml:"max_prompt_chars"` // 0 disables the limit
}

// ReembedConfig controls the reembed maintenance command.
type ReembedConfig struct {
	BatchSize  int    `yaml:"batch_size" toml:"batch_size"`
	MaxRetries int    `yaml:"max_retries" toml:"max_retries"`
	RetryDelay string `yaml:"retry_delay" toml:"retry_delay"`
}

// Delay returns RetryDelay as a duration. Validate reports unparsable values.
func (r ReembedConfig) Delay() time.Duration {
	d, err := time.ParseDuration(r.RetryDelay)
	if err != nil {
		return time.Second
	}
	return d
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	aiDefaults := ai.DefaultConfig()
	return &Config{
		DataDir:    "./data",
		DBPath:     "./groundwork_db",
		Collection: "growing_vegetables",
		Chunking: ChunkingConfig{
			Strategy: "overlap",
			Size:     300,
			Overlap:  100,
		},
		Ingest: IngestConfig{
			PDFExtractor: "plain",
		},
		Embedding: EmbeddingConfig{
			Host:      aiDefaults.EmbeddingHost,
			Model:     aiDefaults.EmbeddingModel,
			BatchSize: 64,
			Workers:   4,
		},
		Chat: ChatConfig{
			Host:  aiDefaults.ChatHost,
			Model: aiDefaults.ChatModel,
		},
		Query: QueryConfig{
			K:              4,
			MaxPromptChars: 8000,
		},
		Reembed: ReembedConfig{
			BatchSize:  100,
			MaxRetries: 3,
			RetryDelay: "1s",
		},
	}
}

// Load reads the config file at path over the defaults, applies GROUNDWORK_*
// environment overrides, then normalizes and validates the result. An empty
// path uses the first of DefaultFiles that exists, or the defaults alone.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findDefaultFile()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML or TOML depending on the extension,
// creating parent directories as needed.
func Save(path string, cfg *Config) error {
	var (
		data []byte
		err  error
	)
	switch format(path) {
	case "yaml":
		data, err = yaml.Marshal(cfg)
	case "toml":
		data, err = toml.Marshal(cfg)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Normalize trims string fields and cleans paths.
func (c *Config) Normalize() {
	c.DataDir = cleanPath(c.DataDir)
	c.DBPath = cleanPath(c.DBPath)
	c.Collection = strings.TrimSpace(c.Collection)
	c.Chunking.Strategy = strings.ToLower(strings.TrimSpace(c.Chunking.Strategy))
	c.Ingest.PDFExtractor = strings.ToLower(strings.TrimSpace(c.Ingest.PDFExtractor))
	c.Embedding.Host = strings.TrimSpace(c.Embedding.Host)
	c.Embedding.Model = strings.TrimSpace(c.Embedding.Model)
	c.Chat.Host = strings.TrimSpace(c.Chat.Host)
	c.Chat.Model = strings.TrimSpace(c.Chat.Model)
}

// Validate checks the configuration. It normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	var errs []error
	check := func(ok bool, msg string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(msg, args...))
		}
	}

	check(c.DataDir != "", "data_dir is required")
	check(c.DBPath != "", "db_path is required")
	if err := core.ValidateCollectionName(c.Collection); err != nil {
		errs = append(errs, fmt.Errorf("collection: %w", err))
	}
	check(c.Chunking.Strategy == "overlap" || c.Chunking.Strategy == "recursive",
		"chunking.strategy must be overlap or recursive, got %q", c.Chunking.Strategy)
	if err := core.ValidateSplitParams(c.Chunking.Size, c.Chunking.Overlap); err != nil {
		errs = append(errs, fmt.Errorf("chunking: %w", err))
	}
	check(c.Ingest.PDFExtractor == "plain" || c.Ingest.PDFExtractor == "rows",
		"ingest.pdf_extractor must be plain or rows, got %q", c.Ingest.PDFExtractor)
	check(c.Embedding.BatchSize > 0, "embedding.batch_size must be positive")
	check(c.Embedding.Workers > 0, "embedding.workers must be positive")
	check(c.Embedding.RequestsPerSecond >= 0, "embedding.requests_per_second must not be negative")
	check(c.Query.K > 0, "query.k must be positive")
	check(c.Query.MaxPromptChars >= 0, "query.max_prompt_chars must not be negative")
	check(c.Reembed.BatchSize > 0, "reembed.batch_size must be positive")
	check(c.Reembed.MaxRetries > 0, "reembed.max_retries must be positive")
	if _, err := time.ParseDuration(c.Reembed.RetryDelay); err != nil {
		errs = append(errs, fmt.Errorf("reembed.retry_delay: %w", err))
	}
	if err := c.AIConfig().Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// AIConfig returns the provider configuration. The API key is read from
// OPENAI_API_KEY by the provider.
func (c *Config) AIConfig() *ai.Config {
	cfg := ai.NewConfig(
		ai.WithEmbeddingHost(c.Embedding.Host),
		ai.WithChatHost(c.Chat.Host),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithChatModel(c.Chat.Model),
	)
	cfg.Normalize()
	return cfg
}

func decode(path string, data []byte, cfg *Config) error {
	switch format(path) {
	case "yaml":
		return yaml.Unmarshal(data, cfg)
	case "toml":
		return toml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

func format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	default:
		return ""
	}
}

func findDefaultFile() string {
	for _, name := range DefaultFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	return filepath.Clean(p)
}
