// Package config loads the wayfarer configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/poiesic/wayfarer/ai"
	"github.com/poiesic/wayfarer/cache"
	"github.com/poiesic/wayfarer/resilience"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when none is given.
const DefaultPath = "wayfarer.yaml"

// Backend names.
const (
	BackendBadger   = "badger"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPinecone = "pinecone"
	BackendNeo4j    = "neo4j"
	BackendMemory   = "memory"
	BackendNone     = "none"
)

var (
	cacheBackends  = []string{BackendBadger, BackendRedis, BackendSQLite, BackendMemory, BackendNone}
	vectorBackends = []string{BackendBadger, BackendPinecone, BackendMemory}
	graphBackends  = []string{BackendNeo4j, BackendSQLite, BackendMemory, BackendNone}
)

// Config holds all wayfarer configuration.
type Config struct {
	AI          AIConfig          `yaml:"ai"`
	Cache       CacheConfig       `yaml:"cache"`
	VectorIndex VectorIndexConfig `yaml:"vector_index"`
	Graph       GraphConfig       `yaml:"graph"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Resilience  ResilienceConfig  `yaml:"resilience"`
	Assistant   AssistantConfig   `yaml:"assistant"`
}

// AIConfig selects the embedding and chat models.
// Host applies to both services unless EmbeddingHost or ChatHost is set.
type AIConfig struct {
	Host           string  `yaml:"host"`
	EmbeddingHost  string  `yaml:"embedding_host"`
	ChatHost       string  `yaml:"chat_host"`
	APIKey         string  `yaml:"api_key"`
	EmbeddingModel string  `yaml:"embedding_model"`
	ChatModel      string  `yaml:"chat_model"`
	Dimensions     int     `yaml:"dimensions"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float64 `yaml:"temperature"`
}

// CacheConfig controls the content-addressed cache.
type CacheConfig struct {
	Backend string        `yaml:"backend"`
	Path    string        `yaml:"path"` // badger directory or sqlite file
	TTL     time.Duration `yaml:"ttl"`
	Answers bool          `yaml:"answers"`
	Redis   RedisConfig   `yaml:"redis"`
}

// RedisConfig locates a Redis server.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// VectorIndexConfig selects the vector index.
type VectorIndexConfig struct {
	Backend  string         `yaml:"backend"`
	Path     string         `yaml:"path"` // badger directory
	Pinecone PineconeConfig `yaml:"pinecone"`
}

// PineconeConfig locates a Pinecone serverless index.
type PineconeConfig struct {
	APIKey       string        `yaml:"api_key"`
	IndexName    string        `yaml:"index_name"`
	Cloud        string        `yaml:"cloud"`
	Region       string        `yaml:"region"`
	ReadyTimeout time.Duration `yaml:"ready_timeout"`
}

// GraphConfig selects the graph store and how it is queried.
type GraphConfig struct {
	Backend string      `yaml:"backend"`
	Path    string      `yaml:"path"` // sqlite file
	Fanout  int         `yaml:"fanout"`
	Workers int         `yaml:"workers"`
	Neo4j   Neo4jConfig `yaml:"neo4j"`
}

// Neo4jConfig locates a Neo4j server.
type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// RetrievalConfig controls vector retrieval.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// ResilienceConfig controls retries of external calls.
type ResilienceConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Pacing      time.Duration `yaml:"pacing"`
	BackoffUnit time.Duration `yaml:"backoff_unit"`
}

// AssistantConfig controls what the user sees.
type AssistantConfig struct {
	Title        string `yaml:"title"`
	SystemPrompt string `yaml:"system_prompt"`
}

// Default returns a Config that runs locally with no external stores.
func Default() *Config {
	aiDefaults := ai.DefaultConfig()
	policy := resilience.DefaultPolicy()
	return &Config{
		AI: AIConfig{
			Host:           aiDefaults.EmbeddingHost,
			EmbeddingModel: aiDefaults.EmbeddingModel,
			ChatModel:      aiDefaults.ChatModel,
			Dimensions:     aiDefaults.Dimensions,
			MaxTokens:      aiDefaults.MaxTokens,
			Temperature:    aiDefaults.Temperature,
		},
		Cache: CacheConfig{
			Backend: BackendBadger,
			Path:    "data/badger",
			TTL:     cache.DefaultTTL,
			Answers: true,
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "wayfarer:",
			},
		},
		VectorIndex: VectorIndexConfig{
			Backend: BackendBadger,
			Path:    "data/badger",
			Pinecone: PineconeConfig{
				IndexName:    "vietnam-travel",
				Cloud:        "aws",
				Region:       "us-east-1",
				ReadyTimeout: 2 * time.Minute,
			},
		},
		Graph: GraphConfig{
			Backend: BackendSQLite,
			Path:    "data/wayfarer.db",
			Fanout:  10,
			Workers: 4,
			Neo4j: Neo4jConfig{
				URI:      "neo4j://localhost:7687",
				Username: "neo4j",
			},
		},
		Retrieval: RetrievalConfig{
			TopK: 5,
		},
		Resilience: ResilienceConfig{
			MaxAttempts: policy.MaxAttempts,
			Pacing:      policy.Pacing,
			BackoffUnit: policy.BackoffUnit,
		},
		Assistant: AssistantConfig{
			Title: "Vietnam Travel Assistant (Hybrid RAG)",
		},
	}
}

// Load reads a YAML config file and expands environment variables.
// Fields missing from the file keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path, or returns Default when path does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate checks backend names and the values each selected backend needs.
func (c *Config) Validate() error {
	if !slices.Contains(cacheBackends, c.Cache.Backend) {
		return fmt.Errorf("cache backend %q: must be one of %v", c.Cache.Backend, cacheBackends)
	}
	if !slices.Contains(vectorBackends, c.VectorIndex.Backend) {
		return fmt.Errorf("vector_index backend %q: must be one of %v", c.VectorIndex.Backend, vectorBackends)
	}
	if !slices.Contains(graphBackends, c.Graph.Backend) {
		return fmt.Errorf("graph backend %q: must be one of %v", c.Graph.Backend, graphBackends)
	}

	if c.Cache.TTL < 0 {
		return errors.New("cache ttl cannot be negative")
	}
	if (c.Cache.Backend == BackendBadger || c.Cache.Backend == BackendSQLite) && c.Cache.Path == "" {
		return fmt.Errorf("cache backend %s requires a path", c.Cache.Backend)
	}
	if c.Cache.Backend == BackendRedis && c.Cache.Redis.Addr == "" {
		return errors.New("cache backend redis requires redis.addr")
	}

	switch c.VectorIndex.Backend {
	case BackendBadger:
		if c.VectorIndex.Path == "" {
			return errors.New("vector_index backend badger requires a path")
		}
	case BackendPinecone:
		if c.VectorIndex.Pinecone.APIKey == "" {
			return errors.New("vector_index backend pinecone requires pinecone.api_key")
		}
		if c.VectorIndex.Pinecone.IndexName == "" {
			return errors.New("vector_index backend pinecone requires pinecone.index_name")
		}
	}

	switch c.Graph.Backend {
	case BackendSQLite:
		if c.Graph.Path == "" {
			return errors.New("graph backend sqlite requires a path")
		}
	case BackendNeo4j:
		if c.Graph.Neo4j.URI == "" {
			return errors.New("graph backend neo4j requires neo4j.uri")
		}
	}
	if c.Graph.Fanout <= 0 {
		return errors.New("graph fanout must be positive")
	}
	if c.Graph.Workers <= 0 {
		return errors.New("graph workers must be positive")
	}

	if c.Retrieval.TopK <= 0 {
		return errors.New("retrieval top_k must be positive")
	}

	if err := c.Policy().Validate(); err != nil {
		return err
	}

	return c.AIConfig().Validate()
}

// AIConfig returns the normalized ai.Config for the configured models.
func (c *Config) AIConfig() *ai.Config {
	embeddingHost, chatHost := c.AI.Host, c.AI.Host
	if c.AI.EmbeddingHost != "" {
		embeddingHost = c.AI.EmbeddingHost
	}
	if c.AI.ChatHost != "" {
		chatHost = c.AI.ChatHost
	}
	cfg := ai.NewConfig(
		ai.WithEmbeddingHost(embeddingHost),
		ai.WithChatHost(chatHost),
		ai.WithAPIKey(c.AI.APIKey),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithChatModel(c.AI.ChatModel),
		ai.WithDimensions(c.AI.Dimensions),
		ai.WithMaxTokens(c.AI.MaxTokens),
		ai.WithTemperature(c.AI.Temperature),
	)
	cfg.Normalize()
	return cfg
}

// Policy returns the retry policy for external calls.
func (c *Config) Policy() resilience.Policy {
	p := resilience.DefaultPolicy()
	p.MaxAttempts = c.Resilience.MaxAttempts
	p.Pacing = c.Resilience.Pacing
	p.BackoffUnit = c.Resilience.BackoffUnit
	return p
}
