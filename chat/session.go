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

package chat

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/wayfarer/ai"
	"github.com/poiesic/wayfarer/cache"
	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/resilience"
	"github.com/poiesic/wayfarer/search"
)

// DefaultTopK is the number of vector matches retrieved per question.
const DefaultTopK = 5

// Components are the pipeline stages a Session drives.
// Embedder, Retriever and Generator are required. A nil Enricher disables
// graph enrichment, a nil Assembler uses the default prompt and a nil Cache
// disables answer caching.
type Components struct {
	Embedder  *search.CachedEmbedder
	Retriever *search.Retriever
	Enricher  *search.Enricher
	Assembler *search.Assembler
	Generator ai.Generator
	Cache     *cache.Cache
}

// Session answers questions one turn at a time.
type Session struct {
	id           string
	embedder     *search.CachedEmbedder
	retriever    *search.Retriever
	enricher     *search.Enricher
	assembler    *search.Assembler
	generator    ai.Generator
	cache        *cache.Cache
	policy       resilience.Policy
	topK         int
	cacheAnswers bool
	monitor      TurnMonitor
	logger       *slog.Logger

	mu    sync.Mutex
	turns int
}

// Option configures a Session.
type Option func(*Session) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithPolicy sets the retry policy used for generation.
func WithPolicy(policy resilience.Policy) Option {
	return func(s *Session) error {
		if err := policy.Validate(); err != nil {
			return err
		}
		s.policy = policy
		return nil
	}
}

// WithTopK sets the number of vector matches retrieved per question.
func WithTopK(topK int) Option {
	return func(s *Session) error {
		if topK < 1 {
			return fmt.Errorf("top k must be positive, got %d", topK)
		}
		s.topK = topK
		return nil
	}
}

// WithAnswerCache enables or disables answering repeated questions from the cache.
// Default is enabled.
func WithAnswerCache(enabled bool) Option {
	return func(s *Session) error {
		s.cacheAnswers = enabled
		return nil
	}
}

// WithMonitor installs hooks observing every turn.
func WithMonitor(monitor TurnMonitor) Option {
	return func(s *Session) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		s.monitor = monitor
		return nil
	}
}

// NewSession creates a session over the given components.
func NewSession(c Components, opts ...Option) (*Session, error) {
	if c.Embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if c.Retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if c.Generator == nil {
		return nil, ErrGeneratorRequired
	}

	s := &Session{
		id:           uuid.NewString(),
		embedder:     c.Embedder,
		retriever:    c.Retriever,
		enricher:     c.Enricher,
		assembler:    c.Assembler,
		generator:    c.Generator,
		cache:        c.Cache,
		policy:       resilience.DefaultPolicy(),
		topK:         DefaultTopK,
		cacheAnswers: true,
		monitor:      &noopMonitor{},
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.enricher == nil {
		enricher, err := search.NewEnricher(nil)
		if err != nil {
			return nil, err
		}
		s.enricher = enricher
	}
	if s.assembler == nil {
		assembler, err := search.NewAssembler()
		if err != nil {
			return nil, err
		}
		s.assembler = assembler
	}

	s.logger = s.logger.With("component", "chat", "session", s.id)
	if s.policy.Logger == nil {
		s.policy.Logger = s.logger
	}
	return s, nil
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// Turns returns the number of turns started so far.
func (s *Session) Turns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turns
}

// GraphEnabled reports whether turns are currently enriched from the graph.
func (s *Session) GraphEnabled() bool {
	return s.enricher.Enabled()
}

// Backends describes the active retrieval sources.
func (s *Session) Backends() string {
	if s.GraphEnabled() {
		return "vector + graph"
	}
	return "vector only"
}

func (s *Session) nextTurn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns++
	return s.turns
}

// Ask runs one turn for query and returns its outcome. Ask never panics;
// a failure inside the turn is reported with State failed.
func (s *Session) Ask(ctx context.Context, query string) (result core.TurnResult) {
	start := time.Now()
	query = strings.TrimSpace(query)
	result.Query = query

	if query == "" {
		result.State = core.StateFailed
		result.Err = ErrEmptyQuery
		return result
	}

	result.Number = s.nextTurn()
	logger := s.logger.With("turn", result.Number)
	s.monitor.Start(result.Number, query)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("turn panicked", "panic", r, "stack", string(debug.Stack()))
			result.State = core.StateFailed
			result.Answer = GenerationErrorAnswer
			result.Err = fmt.Errorf("%w: %v", ErrTurnPanicked, r)
		}
		result.Elapsed = time.Since(start)
		logger.Info("turn finished", "state", result.State, "cached", result.FromCache, "elapsed", result.Elapsed)
		s.monitor.Finish(result)
	}()

	s.run(ctx, logger, &result)
	return result
}

func (s *Session) transition(result *core.TurnResult, state core.TurnState) {
	result.State = state
	s.monitor.StateChanged(result.Number, state)
}

func (s *Session) run(ctx context.Context, logger *slog.Logger, result *core.TurnResult) {
	if s.cacheAnswers {
		if answer, ok := s.cache.GetAnswer(ctx, result.Query); ok {
			logger.Debug("answer cache hit")
			result.Answer = answer
			result.FromCache = true
			s.transition(result, core.StateAnswered)
			return
		}
	}

	s.transition(result, core.StateEmbedding)
	vec, err := s.embedder.Embed(ctx, result.Query)
	if err != nil {
		if s.cancelled(ctx, result) {
			return
		}
		logger.Warn("embedding failed, no matches", "err", err)
		s.degrade(result, err)
		return
	}

	s.transition(result, core.StateRetrieving)
	result.Matches = s.retriever.QueryVector(ctx, vec, s.topK)
	s.monitor.AfterRetrieval(result.Matches)
	if len(result.Matches) == 0 {
		if s.cancelled(ctx, result) {
			return
		}
		s.degrade(result, nil)
		return
	}

	s.transition(result, core.StateEnriching)
	ids := make([]string, len(result.Matches))
	for i, m := range result.Matches {
		ids[i] = m.ID
	}
	result.Facts = s.enricher.Expand(ctx, ids)
	s.monitor.AfterEnrichment(result.Facts)

	s.transition(result, core.StateAssembling)
	result.Context = s.assembler.Build(result.Matches, result.Facts)
	messages := s.assembler.Messages(result.Query, result.Context)

	s.transition(result, core.StateGenerating)
	answer, err := resilience.Do(ctx, s.policy, "generate", func(ctx context.Context) (string, error) {
		return s.generator.Generate(ctx, messages)
	})
	if err != nil {
		if s.cancelled(ctx, result) {
			return
		}
		logger.Error("generation failed", "op", "generate", "subsystem", "chat", "err", err)
		result.Err = err
		result.Answer = GenerationErrorAnswer
		if resilience.KindOf(err) == resilience.RateLimited {
			result.Answer = RateLimitedAnswer
		}
		s.transition(result, core.StateAnswered)
		return
	}

	result.Answer = answer
	if s.cacheAnswers && answer != "" {
		s.cache.PutAnswer(ctx, result.Query, answer)
	}
	s.transition(result, core.StateAnswered)
}

func (s *Session) degrade(result *core.TurnResult, cause error) {
	result.Answer = NoResultsNotice
	result.Err = cause
	s.transition(result, core.StateDegraded)
}

// cancelled ends the turn as failed when ctx is done.
func (s *Session) cancelled(ctx context.Context, result *core.TurnResult) bool {
	err := ctx.Err()
	if err == nil {
		return false
	}
	result.Err = err
	s.transition(result, core.StateFailed)
	return true
}
