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

package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/search"
	"github.com/poiesic/wayfarer/storage"
)

// DefaultBatchSize is the number of nodes embedded per provider call.
const DefaultBatchSize = 32

// Report summarizes a seeding run.
type Report struct {
	Nodes    int // Valid nodes seeded
	Skipped  int // Invalid nodes skipped
	Vectors  int // Vectors upserted
	Entities int // Graph entities written
	Links    int // Graph relations submitted, including ones the store dropped
}

// Seeder writes dataset nodes to the vector index and the graph store.
type Seeder struct {
	embedder       *search.CachedEmbedder
	index          storage.VectorProvisioner
	graph          storage.GraphWriter
	batchSize      int
	progress       io.Writer
	reportInterval int
	logger         *slog.Logger
}

// Option configures a Seeder.
type Option func(*Seeder) error

// WithBatchSize sets the number of nodes embedded and upserted together.
// Default is DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(s *Seeder) error {
		if size < 1 {
			return fmt.Errorf("batch size must be positive, got %d", size)
		}
		s.batchSize = size
		return nil
	}
}

// WithGraphWriter also writes entities and relations to the graph.
func WithGraphWriter(graph storage.GraphWriter) Option {
	return func(s *Seeder) error {
		s.graph = graph
		return nil
	}
}

// WithProgress reports progress to w every interval nodes.
func WithProgress(w io.Writer, interval int) Option {
	return func(s *Seeder) error {
		s.progress = w
		s.reportInterval = interval
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Seeder) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSeeder creates a seeder writing vectors to index.
func NewSeeder(embedder *search.CachedEmbedder, index storage.VectorProvisioner, opts ...Option) (*Seeder, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if index == nil {
		return nil, ErrVectorIndexRequired
	}

	s := &Seeder{
		embedder:       embedder,
		index:          index,
		batchSize:      DefaultBatchSize,
		reportInterval: DefaultBatchSize,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "seeder")
	return s, nil
}

// Seed provisions the index and writes nodes. Invalid nodes are skipped.
// Vectors are written before the graph so that a graph failure leaves a
// usable index.
func (s *Seeder) Seed(ctx context.Context, nodes []core.Node) (Report, error) {
	var report Report

	valid := make([]*core.Node, 0, len(nodes))
	for i := range nodes {
		if err := core.ValidateNode(&nodes[i]); err != nil {
			s.logger.Warn("skipping invalid node", "index", i, "err", err)
			report.Skipped++
			continue
		}
		valid = append(valid, &nodes[i])
	}
	report.Nodes = len(valid)

	if err := s.index.EnsureIndex(ctx); err != nil {
		return report, fmt.Errorf("ensure vector index: %w", err)
	}

	vectors, err := s.seedVectors(ctx, valid)
	report.Vectors = vectors
	if err != nil {
		return report, err
	}

	if s.graph != nil {
		entities, links, err := s.seedGraph(ctx, valid)
		report.Entities = entities
		report.Links = links
		if err != nil {
			return report, err
		}
	}

	s.logger.Info("seeding complete",
		"nodes", report.Nodes, "skipped", report.Skipped, "vectors", report.Vectors,
		"entities", report.Entities, "links", report.Links)
	return report, nil
}

func (s *Seeder) seedVectors(ctx context.Context, nodes []*core.Node) (int, error) {
	tracker := NewProgressTracker(s.progress, len(nodes), s.reportInterval)
	tracker.Start()
	defer tracker.Finish()

	written := 0
	for start := 0; start < len(nodes); start += s.batchSize {
		batch := nodes[start:min(start+s.batchSize, len(nodes))]

		texts := make([]string, len(batch))
		for i, n := range batch {
			texts[i] = EmbeddingText(n)
		}

		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return written, fmt.Errorf("embed batch at %d: %w", start, err)
		}

		records := make([]storage.VectorRecord, len(batch))
		for i, n := range batch {
			records[i] = storage.VectorRecord{ID: n.ID, Values: vectors[i], Metadata: n.Metadata()}
		}
		if err := s.index.Upsert(ctx, records); err != nil {
			return written, fmt.Errorf("upsert batch at %d: %w", start, err)
		}

		written += len(records)
		tracker.Increment(len(records))
		s.logger.Debug("upserted batch", "start", start, "size", len(records))
	}
	return written, nil
}

func (s *Seeder) seedGraph(ctx context.Context, nodes []*core.Node) (int, int, error) {
	entities := 0
	for _, n := range nodes {
		if err := s.graph.UpsertEntity(ctx, n); err != nil {
			return entities, 0, fmt.Errorf("upsert entity %s: %w", n.ID, err)
		}
		entities++
	}

	// Relations are written after every entity exists.
	links := 0
	for _, n := range nodes {
		for _, c := range n.Connections {
			if err := s.graph.Link(ctx, n.ID, c.Relation, c.Target); err != nil {
				return entities, links, fmt.Errorf("link %s -%s-> %s: %w", n.ID, c.Relation, c.Target, err)
			}
			links++
		}
	}
	return entities, links, nil
}
