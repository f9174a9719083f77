package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/joho/godotenv"
)

// EnvPrefix starts the name of every environment override.
const EnvPrefix = "GROUNDWORK_"

// LoadDotEnv loads variables from the given files, or from .env when none
// are given. Missing files are ignored and variables already set in the
// environment are kept.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

// applyEnv overrides cfg with GROUNDWORK_* variables.
func applyEnv(cfg *Config, lookup lookupFunc) error {
	texts := map[string]*string{
		"DATA_DIR":            &cfg.DataDir,
		"DB_PATH":             &cfg.DBPath,
		"COLLECTION":          &cfg.Collection,
		"CHUNK_STRATEGY":      &cfg.Chunking.Strategy,
		"PDF_EXTRACTOR":       &cfg.Ingest.PDFExtractor,
		"EMBEDDING_HOST":      &cfg.Embedding.Host,
		"EMBEDDING_MODEL":     &cfg.Embedding.Model,
		"CHAT_HOST":           &cfg.Chat.Host,
		"CHAT_MODEL":          &cfg.Chat.Model,
		"REEMBED_RETRY_DELAY": &cfg.Reembed.RetryDelay,
	}
	for name, field := range texts {
		if v, ok := lookup(EnvPrefix + name); ok {
			*field = v
		}
	}

	ints := map[string]*int{
		"CHUNK_SIZE":           &cfg.Chunking.Size,
		"CHUNK_OVERLAP":        &cfg.Chunking.Overlap,
		"EMBEDDING_BATCH_SIZE": &cfg.Embedding.BatchSize,
		"EMBEDDING_WORKERS":    &cfg.Embedding.Workers,
		"K":                    &cfg.Query.K,
		"MAX_PROMPT_CHARS":     &cfg.Query.MaxPromptChars,
		"REEMBED_BATCH_SIZE":   &cfg.Reembed.BatchSize,
		"REEMBED_MAX_RETRIES":  &cfg.Reembed.MaxRetries,
	}
	for name, field := range ints {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s: %w", ErrInvalidConfig, EnvPrefix, name, err)
		}
		*field = n
	}

	if v, ok := lookup(EnvPrefix + "EMBEDDING_REQUESTS_PER_SECOND"); ok {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %sEMBEDDING_REQUESTS_PER_SECOND: %w", ErrInvalidConfig, EnvPrefix, err)
		}
		cfg.Embedding.RequestsPerSecond = rps
	}
	if v, ok := lookup(EnvPrefix + "TEXT_FILES"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %sTEXT_FILES: %w", ErrInvalidConfig, EnvPrefix, err)
		}
		cfg.Ingest.TextFiles = b
	}
	return nil
}
