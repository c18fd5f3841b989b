// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package wayfarer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/wayfarer/ai"
	"github.com/poiesic/wayfarer/ai/openai"
	"github.com/poiesic/wayfarer/cache"
	"github.com/poiesic/wayfarer/chat"
	"github.com/poiesic/wayfarer/config"
	"github.com/poiesic/wayfarer/ingestion"
	"github.com/poiesic/wayfarer/resilience"
	"github.com/poiesic/wayfarer/search"
	"github.com/poiesic/wayfarer/storage"
	"github.com/poiesic/wayfarer/storage/badger"
	"github.com/poiesic/wayfarer/storage/memory"
	"github.com/poiesic/wayfarer/storage/neo4j"
	"github.com/poiesic/wayfarer/storage/pinecone"
	"github.com/poiesic/wayfarer/storage/redis"
	"github.com/poiesic/wayfarer/storage/sqlite"
)

// Runtime owns the long-lived handles of one process: the AI provider, the
// cache, the vector index and the graph store. Create it with Open and
// release it with Close.
type Runtime struct {
	cfg      *config.Config
	provider ai.AIProvider
	cache    *cache.Cache
	embedder *search.CachedEmbedder

	index       storage.VectorIndex
	provisioner storage.VectorProvisioner
	graph       storage.GraphStore
	graphWriter storage.GraphWriter
	graphSwitch *resilience.Switch
	sqliteCache *sqlite.CacheStore

	badgerBackends map[string]*badger.Backend
	sqliteDBs      map[string]*sqlite.DB
	closed         bool
	logger         *slog.Logger
}

// Option configures Open.
type Option func(*openOptions)

type openOptions struct {
	provider ai.AIProvider
}

// WithProvider uses provider instead of creating an OpenAI-compatible one.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *openOptions) {
		o.provider = provider
	}
}

// Open validates cfg and opens every configured subsystem.
//
// Only the vector index is required: a failure to open or provision it is
// returned as an error. A cache or graph store that cannot be opened is
// disabled for the life of the runtime and a warning is logged.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	options := &openOptions{}
	for _, opt := range opts {
		opt(options)
	}

	r := &Runtime{
		cfg:            cfg,
		badgerBackends: make(map[string]*badger.Backend),
		sqliteDBs:      make(map[string]*sqlite.DB),
		logger:         slog.Default().With("component", "runtime"),
	}

	provider := options.provider
	if provider == nil {
		var err error
		provider, err = openai.NewProvider(cfg.AIConfig())
		if err != nil {
			return nil, fmt.Errorf("create AI provider: %w", err)
		}
	}
	r.provider = provider

	if err := r.openCache(ctx); err != nil {
		r.Close()
		return nil, err
	}

	if err := r.openVectorIndex(ctx); err != nil {
		r.Close()
		return nil, fmt.Errorf("open vector index: %w", err)
	}

	r.openGraph(ctx)

	embedder, err := search.NewCachedEmbedder(provider.Embedder(), r.cache, cfg.AI.Dimensions,
		search.WithPolicy(cfg.Policy()))
	if err != nil {
		r.Close()
		return nil, err
	}
	r.embedder = embedder

	r.logger.Info("runtime ready",
		"cache", cfg.Cache.Backend, "cacheState", r.cache.State(),
		"vectorIndex", cfg.VectorIndex.Backend,
		"graph", cfg.Graph.Backend, "graphState", r.graphSwitch.State())
	return r, nil
}

func (r *Runtime) openCache(ctx context.Context) error {
	cfg := r.cfg.Cache
	sw := resilience.NewSwitch("cache", cfg.Backend != config.BackendNone)

	var store storage.CacheStore
	var err error
	switch cfg.Backend {
	case config.BackendBadger:
		var backend *badger.Backend
		if backend, err = r.badgerBackend(cfg.Path); err == nil {
			store = badger.NewCacheStore(backend)
		}
	case config.BackendSQLite:
		var db *sqlite.DB
		if db, err = r.sqliteDB(ctx, cfg.Path); err == nil {
			r.sqliteCache = sqlite.NewCacheStore(db)
			store = r.sqliteCache
		}
	case config.BackendRedis:
		store, err = redis.NewCacheStore(ctx, redis.Options{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
	case config.BackendMemory:
		store = memory.NewCacheStore()
	}
	if err != nil {
		r.logger.Warn("cache unavailable, continuing without it", "subsystem", "cache", "backend", cfg.Backend, "err", err)
		sw.Disable(fmt.Errorf("%w: %w", cache.ErrUnavailable, err))
		store = nil
	}

	opts := []cache.Option{cache.WithSwitch(sw)}
	if cfg.TTL > 0 {
		opts = append(opts, cache.WithTTL(cfg.TTL))
	}
	c, err := cache.New(store, opts...)
	if err != nil {
		return err
	}
	r.cache = c
	return nil
}

func (r *Runtime) openVectorIndex(ctx context.Context) error {
	cfg := r.cfg.VectorIndex
	dim := r.cfg.AI.Dimensions

	switch cfg.Backend {
	case config.BackendBadger:
		backend, err := r.badgerBackend(cfg.Path)
		if err != nil {
			return err
		}
		index := badger.NewVectorIndex(backend, dim)
		r.index, r.provisioner = index, index
	case config.BackendPinecone:
		index, err := pinecone.NewIndex(pinecone.Options{
			APIKey:       cfg.Pinecone.APIKey,
			IndexName:    cfg.Pinecone.IndexName,
			Dimension:    dim,
			Cloud:        cfg.Pinecone.Cloud,
			Region:       cfg.Pinecone.Region,
			ReadyTimeout: cfg.Pinecone.ReadyTimeout,
		})
		if err != nil {
			return err
		}
		r.index, r.provisioner = index, index
	case config.BackendMemory:
		index := memory.NewVectorIndex(dim)
		r.index, r.provisioner = index, index
	default:
		return fmt.Errorf("unknown vector index backend %q", cfg.Backend)
	}

	return r.provisioner.EnsureIndex(ctx)
}

func (r *Runtime) openGraph(ctx context.Context) {
	cfg := r.cfg.Graph
	r.graphSwitch = resilience.NewSwitch("graph", cfg.Backend != config.BackendNone)

	var err error
	switch cfg.Backend {
	case config.BackendNone:
		return
	case config.BackendSQLite:
		var db *sqlite.DB
		if db, err = r.sqliteDB(ctx, cfg.Path); err == nil {
			store := sqlite.NewGraphStore(db)
			r.graph, r.graphWriter = store, store
		}
	case config.BackendNeo4j:
		var store *neo4j.GraphStore
		store, err = neo4j.NewGraphStore(neo4j.Options{
			URI:      cfg.Neo4j.URI,
			Username: cfg.Neo4j.Username,
			Password: cfg.Neo4j.Password,
			Database: cfg.Neo4j.Database,
		})
		if err == nil {
			r.graph, r.graphWriter = store, store
		}
	case config.BackendMemory:
		store := memory.NewGraphStore()
		r.graph, r.graphWriter = store, store
	}

	if err == nil && r.graph != nil {
		err = r.graph.Ping(ctx)
	}
	if err != nil {
		reason := "unavailable"
		if resilience.KindOf(err) == resilience.AuthFailure {
			reason = "authentication failed"
		}
		r.logger.Warn("graph "+reason+", continuing with vector search only",
			"subsystem", "graph", "backend", cfg.Backend, "err", err)
		r.graphSwitch.Disable(err)
	}
}

func (r *Runtime) badgerBackend(path string) (*badger.Backend, error) {
	if b, ok := r.badgerBackends[path]; ok {
		return b, nil
	}
	b, err := badger.OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	r.badgerBackends[path] = b
	return b, nil
}

func (r *Runtime) sqliteDB(ctx context.Context, path string) (*sqlite.DB, error) {
	if db, ok := r.sqliteDBs[path]; ok {
		return db, nil
	}
	db, err := sqlite.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	r.sqliteDBs[path] = db
	return db, nil
}

// Config returns the configuration the runtime was opened with.
func (r *Runtime) Config() *config.Config {
	return r.cfg
}

// Cache returns the content-addressed cache.
func (r *Runtime) Cache() *cache.Cache {
	return r.cache
}

// SQLiteCache returns the SQLite cache store when that backend is active.
func (r *Runtime) SQLiteCache() (*sqlite.CacheStore, bool) {
	return r.sqliteCache, r.sqliteCache != nil && r.cache.Enabled()
}

// GraphSwitch returns the graph capability switch.
func (r *Runtime) GraphSwitch() *resilience.Switch {
	return r.graphSwitch
}

// NewSession creates a chat session over the runtime's subsystems.
func (r *Runtime) NewSession(opts ...chat.Option) (*chat.Session, error) {
	policy := search.WithPolicy(r.cfg.Policy())

	retriever, err := search.NewRetriever(r.embedder, r.index, policy)
	if err != nil {
		return nil, err
	}
	enricher, err := search.NewEnricher(r.graph, policy,
		search.WithFanout(r.cfg.Graph.Fanout),
		search.WithWorkers(r.cfg.Graph.Workers),
		search.WithGraphSwitch(r.graphSwitch))
	if err != nil {
		return nil, err
	}
	assembler, err := search.NewAssembler(search.WithSystemPrompt(r.cfg.Assistant.SystemPrompt))
	if err != nil {
		return nil, err
	}

	defaults := []chat.Option{
		chat.WithPolicy(r.cfg.Policy()),
		chat.WithTopK(r.cfg.Retrieval.TopK),
		chat.WithAnswerCache(r.cfg.Cache.Answers),
	}
	return chat.NewSession(chat.Components{
		Embedder:  r.embedder,
		Retriever: retriever,
		Enricher:  enricher,
		Assembler: assembler,
		Generator: r.provider.Generator(),
		Cache:     r.cache,
	}, append(defaults, opts...)...)
}

// NewSeeder creates a seeder writing to the vector index and, when the graph
// is enabled, to the graph store.
func (r *Runtime) NewSeeder(opts ...ingestion.Option) (*ingestion.Seeder, error) {
	var defaults []ingestion.Option
	if r.graphWriter != nil && r.graphSwitch.Enabled() {
		defaults = append(defaults, ingestion.WithGraphWriter(r.graphWriter))
	}
	return ingestion.NewSeeder(r.embedder, r.provisioner, append(defaults, opts...)...)
}

// Close releases every handle. Shared storage backends are closed last.
// Calling Close more than once is a no-op.
func (r *Runtime) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	if r.provider != nil {
		if err := r.provider.Close(); err != nil {
			r.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if r.graph != nil {
		if err := r.graph.Close(); err != nil {
			r.logger.Error("error closing graph store", "err", err)
			errs = append(errs, err)
		}
	}
	if r.index != nil {
		if err := r.index.Close(); err != nil {
			r.logger.Error("error closing vector index", "err", err)
			errs = append(errs, err)
		}
	}
	if err := r.cache.Close(); err != nil {
		r.logger.Error("error closing cache", "err", err)
		errs = append(errs, err)
	}
	for path, db := range r.sqliteDBs {
		if err := db.Close(); err != nil {
			r.logger.Error("error closing sqlite database", "path", path, "err", err)
			errs = append(errs, err)
		}
	}
	for path, b := range r.badgerBackends {
		if b.IsClosed() {
			continue
		}
		if err := b.Close(); err != nil {
			r.logger.Error("error closing badger backend", "path", path, "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
