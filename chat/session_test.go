package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/wayfarer/ai"
	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/resilience"
	"github.com/poiesic/wayfarer/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_DaNangScenario(t *testing.T) {
	monitor := &recordingMonitor{}
	f := newFixture(t, true, WithMonitor(monitor), WithTopK(3))
	f.generator.GenerateFunc = func(ctx context.Context, messages []ai.Message) (string, error) {
		return "Visit My Khe Beach (my_khe_beach) in Da Nang (danang_city).", nil
	}

	result := f.session.Ask(context.Background(), "  Which beach should I visit in Da Nang?  ")

	require.Equal(t, core.StateAnswered, result.State)
	assert.NoError(t, result.Err)
	assert.Equal(t, 1, result.Number)
	assert.Equal(t, "Which beach should I visit in Da Nang?", result.Query)
	assert.Equal(t, "Visit My Khe Beach (my_khe_beach) in Da Nang (danang_city).", result.Answer)
	assert.False(t, result.FromCache)

	require.NotEmpty(t, result.Matches)
	assert.Equal(t, "my_khe_beach", result.Matches[0].ID)
	assert.LessOrEqual(t, len(result.Matches), 3)

	require.NotEmpty(t, result.Facts)
	assert.Equal(t, "my_khe_beach", result.Facts[0].Source)
	assert.Equal(t, "Located_In", result.Facts[0].Relation)
	assert.Equal(t, "danang_city", result.Facts[0].TargetID)

	msgs := f.generator.LastMessages()
	require.Len(t, msgs, 2)
	user := msgs[1].Content
	assert.True(t, strings.HasPrefix(user, "User query: Which beach should I visit in Da Nang?\n\nTop semantic matches:\n- [my_khe_beach] My Khe Beach (Attraction) in Da Nang: A long beach in"))
	assert.Contains(t, user, "Related connections (from knowledge graph):\n- [my_khe_beach] --Located_In--> [danang_city] Da Nang: Coastal city in central Vietnam")
	assert.True(t, strings.HasSuffix(user, "\n\nAnswer:"))

	assert.Equal(t, []core.TurnState{
		core.StateEmbedding, core.StateRetrieving, core.StateEnriching,
		core.StateAssembling, core.StateGenerating, core.StateAnswered,
	}, monitor.states)
	require.Len(t, monitor.finished, 1)
	assert.Equal(t, core.StateAnswered, monitor.finished[0].State)
}

func TestSession_AnswerCache(t *testing.T) {
	f := newFixture(t, true)

	first := f.session.Ask(context.Background(), "beach in Da Nang")
	require.Equal(t, core.StateAnswered, first.State)

	second := f.session.Ask(context.Background(), "beach in Da Nang")
	require.Equal(t, core.StateAnswered, second.State)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Answer, second.Answer)
	assert.Equal(t, 2, second.Number)
	assert.Equal(t, 1, f.generator.CallCount())
	assert.Equal(t, 1, f.embedder.CallCount())
}

func TestSession_AnswerCacheDisabled(t *testing.T) {
	f := newFixture(t, true, WithAnswerCache(false))

	f.session.Ask(context.Background(), "beach in Da Nang")
	second := f.session.Ask(context.Background(), "beach in Da Nang")

	assert.False(t, second.FromCache)
	assert.Equal(t, 2, f.generator.CallCount())
	assert.Equal(t, 1, f.embedder.CallCount(), "embeddings are still cached")
}

func TestSession_GraphDisabledKeepsMatches(t *testing.T) {
	withGraph := newFixture(t, true, WithAnswerCache(false))
	withoutGraph := newFixture(t, false, WithAnswerCache(false))

	a := withGraph.session.Ask(context.Background(), "lake in Hanoi")
	b := withoutGraph.session.Ask(context.Background(), "lake in Hanoi")

	require.Equal(t, core.StateAnswered, b.State)
	assert.Equal(t, a.Matches, b.Matches)
	assert.NotEmpty(t, a.Facts)
	assert.Empty(t, b.Facts)
	assert.False(t, b.Context.HasGraph())
	assert.Contains(t, withoutGraph.generator.LastMessages()[1].Content, core.NoGraphConnections)
	assert.Equal(t, "vector only", withoutGraph.session.Backends())
	assert.Equal(t, "vector + graph", withGraph.session.Backends())
}

func TestSession_EmptyMatchesShortCircuit(t *testing.T) {
	monitor := &recordingMonitor{}
	f := newFixture(t, true, WithMonitor(monitor))
	f.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("provider down")
	}

	result := f.session.Ask(context.Background(), "anything at all")

	assert.Equal(t, core.StateDegraded, result.State)
	assert.Equal(t, NoResultsNotice, result.Answer)
	assert.ErrorIs(t, result.Err, search.ErrEmbeddingUnavailable)
	assert.Empty(t, result.Matches)
	assert.Equal(t, 0, f.generator.CallCount())
	assert.Equal(t, []core.TurnState{core.StateEmbedding, core.StateDegraded}, monitor.states)
}

func TestSession_NoMatchesDoesNotCallGraphOrGenerator(t *testing.T) {
	f := newFixture(t, true)
	graph := &countingGraph{}
	enricher, err := search.NewEnricher(graph)
	require.NoError(t, err)
	f.session.enricher = enricher
	f.session.retriever = emptyRetriever(t, f)

	result := f.session.Ask(context.Background(), "beach in Da Nang")

	assert.Equal(t, core.StateDegraded, result.State)
	assert.Equal(t, NoResultsNotice, result.Answer)
	assert.NoError(t, result.Err)
	assert.Equal(t, 0, graph.calls)
	assert.Equal(t, 0, f.generator.CallCount())
}

func TestSession_GenerationErrorSentinel(t *testing.T) {
	f := newFixture(t, true)
	f.generator.GenerateFunc = func(ctx context.Context, messages []ai.Message) (string, error) {
		return "", errors.New("malformed response")
	}

	result := f.session.Ask(context.Background(), "beach in Da Nang")

	assert.Equal(t, core.StateAnswered, result.State)
	assert.Equal(t, GenerationErrorAnswer, result.Answer)
	assert.ErrorIs(t, result.Err, resilience.ErrRetriesExhausted)
	assert.Equal(t, 3, f.generator.CallCount())

	_, cached := f.cache.GetAnswer(context.Background(), "beach in Da Nang")
	assert.False(t, cached, "sentinel answers are not cached")
}

func TestSession_RateLimitedSentinel(t *testing.T) {
	f := newFixture(t, true)
	f.generator.GenerateFunc = func(ctx context.Context, messages []ai.Message) (string, error) {
		return "", resilience.Tag("chat", "generate", resilience.RateLimited, errors.New("429"))
	}

	result := f.session.Ask(context.Background(), "beach in Da Nang")

	assert.Equal(t, core.StateAnswered, result.State)
	assert.Equal(t, RateLimitedAnswer, result.Answer)
	assert.Equal(t, resilience.RateLimited, resilience.KindOf(result.Err))
}

func TestSession_PanicIsRecovered(t *testing.T) {
	f := newFixture(t, true)
	f.generator.GenerateFunc = func(ctx context.Context, messages []ai.Message) (string, error) {
		panic("boom")
	}

	result := f.session.Ask(context.Background(), "beach in Da Nang")
	assert.Equal(t, core.StateFailed, result.State)
	assert.ErrorIs(t, result.Err, ErrTurnPanicked)

	f.generator.GenerateFunc = nil
	next := f.session.Ask(context.Background(), "lake in Hanoi")
	assert.Equal(t, core.StateAnswered, next.State)
	assert.Equal(t, 2, next.Number)
}

func TestSession_CancelledTurnFails(t *testing.T) {
	f := newFixture(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := f.session.Ask(ctx, "beach in Da Nang")
	assert.Equal(t, core.StateFailed, result.State)
	assert.ErrorIs(t, result.Err, context.Canceled)
}

func TestSession_EmptyQuery(t *testing.T) {
	f := newFixture(t, true)
	result := f.session.Ask(context.Background(), "   ")
	assert.Equal(t, core.StateFailed, result.State)
	assert.ErrorIs(t, result.Err, ErrEmptyQuery)
	assert.Equal(t, 0, f.session.Turns())
}

func TestNewSession_Validation(t *testing.T) {
	_, err := NewSession(Components{})
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	f := newFixture(t, true)
	_, err = NewSession(Components{Embedder: f.session.embedder})
	assert.ErrorIs(t, err, ErrRetrieverRequired)

	_, err = NewSession(Components{Embedder: f.session.embedder, Retriever: f.session.retriever})
	assert.ErrorIs(t, err, ErrGeneratorRequired)

	_, err = NewSession(Components{Embedder: f.session.embedder, Retriever: f.session.retriever, Generator: f.generator}, WithTopK(0))
	assert.Error(t, err)
}
