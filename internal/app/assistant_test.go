package app

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jinford/kb-chat/internal/core/ask"
	"github.com/jinford/kb-chat/internal/core/ingestion"
	"github.com/jinford/kb-chat/internal/core/provider"
	"github.com/jinford/kb-chat/internal/core/search"
	"github.com/jinford/kb-chat/internal/core/session"
	"github.com/jinford/kb-chat/internal/infra/memory"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bagOfWordsEmbedder は固定語彙の出現回数をベクトルにする決定的なEmbedder
type bagOfWordsEmbedder struct {
	vocabulary []string
}

func newBagOfWordsEmbedder() *bagOfWordsEmbedder {
	return &bagOfWordsEmbedder{
		vocabulary: []string{"grass", "green", "sky", "blue", "color"},
	}
}

func (e *bagOfWordsEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vector := make([]float32, len(e.vocabulary))
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?")
		for i, v := range e.vocabulary {
			if word == v {
				vector[i]++
			}
		}
	}
	return vector, nil
}

func (e *bagOfWordsEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

func (e *bagOfWordsEmbedder) Dimension() int { return len(e.vocabulary) }

type echoCompleter struct{ lastSystem string }

func (c *echoCompleter) Complete(ctx context.Context, req provider.CompletionRequest) (string, error) {
	c.lastSystem = req.System
	return "Based on the context, grass is **green**.", nil
}

func newTestAssistant(t *testing.T, completer provider.Completer) (*Assistant, session.Store) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	embedder := newBagOfWordsEmbedder()
	store := memory.NewStore()

	chunker, err := ingestion.NewWindowChunker(20, 5)
	require.NoError(t, err)

	index := ingestion.NewIndexService(chunker, embedder, store, ingestion.WithIndexLogger(logger))
	retrieval := search.NewRetrievalService(store, embedder, search.WithRetrievalLogger(logger))

	registry := provider.NewRegistry("openai", 0.2, provider.WithRegistryLogger(logger))
	if completer != nil {
		registry.Register(provider.Config{Name: "openai", Model: "gpt-4o-mini"}, completer)
	}

	askSvc := ask.NewAskService(retrieval, registry, ask.NewPromptBuilder(), ask.WithAskLogger(logger))
	sessions := session.NewMemoryStore(time.Hour)

	assistant := NewAssistant(index, retrieval, askSvc, registry, sessions, WithAssistantLogger(logger))
	return assistant, sessions
}

func TestAssistant_IngestQueryAskRoundTrip(t *testing.T) {
	completer := &echoCompleter{}
	assistant, _ := newTestAssistant(t, completer)
	ctx := context.Background()

	count, err := assistant.AddDocument(ctx, "The sky is blue. Grass is green.", "facts.txt")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	stored, err := assistant.DocumentCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stored)

	// 類似検索: 草の色を聞けば草のチャンクが先頭に来る
	results, err := assistant.Query(ctx, "What color is grass?", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Text, "Grass is green")
	assert.Equal(t, "facts.txt", results[0].SourceName)

	// 質問応答: 根拠がプロンプトに載り、応答は正規化される
	result, err := assistant.Ask(ctx, AskRequest{Message: "What color is grass?"})
	require.NoError(t, err)
	assert.Equal(t, "openai", result.Provider)
	assert.Contains(t, result.Response, "<strong>green</strong>")
	assert.NotEmpty(t, result.Sources)
	assert.Contains(t, completer.lastSystem, "[Source: facts.txt]")
}

func TestAssistant_ClearAllEmptiesCorpus(t *testing.T) {
	assistant, _ := newTestAssistant(t, &echoCompleter{})
	ctx := context.Background()

	_, err := assistant.AddDocument(ctx, "The sky is blue. Grass is green.", "facts.txt")
	require.NoError(t, err)

	require.NoError(t, assistant.ClearAll(ctx))

	count, err := assistant.DocumentCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	results, err := assistant.Query(ctx, "grass color", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestAssistant_AskResolvesProfileFromSession(t *testing.T) {
	completer := &echoCompleter{}
	assistant, sessions := newTestAssistant(t, completer)
	ctx := context.Background()

	profile := ask.UserProfile{Role: "science teacher", SessionID: "s-1"}
	require.NoError(t, sessions.Put(ctx, "s-1", profile, 0))

	_, err := assistant.Ask(ctx, AskRequest{
		Message:   "What color is the sky?",
		SessionID: "s-1",
	})
	require.NoError(t, err)
	assert.Contains(t, completer.lastSystem, "The user's role is: science teacher.")
}

func TestAssistant_AskStoresExplicitProfileToSession(t *testing.T) {
	assistant, sessions := newTestAssistant(t, &echoCompleter{})
	ctx := context.Background()

	_, err := assistant.Ask(ctx, AskRequest{
		Message:   "hello",
		SessionID: "s-2",
		Profile:   mo.Some(ask.UserProfile{Role: "principal"}),
	})
	require.NoError(t, err)

	stored, err := sessions.Get(ctx, "s-2")
	require.NoError(t, err)
	p, ok := stored.Get()
	require.True(t, ok)
	assert.Equal(t, "principal", p.Role)
}

func TestAssistant_CheckHealth(t *testing.T) {
	assistant, _ := newTestAssistant(t, &echoCompleter{})
	ctx := context.Background()

	_, err := assistant.AddDocument(ctx, "The sky is blue. Grass is green.", "facts.txt")
	require.NoError(t, err)

	health, err := assistant.CheckHealth(ctx)
	require.NoError(t, err)
	assert.True(t, health.RAGEnabled)
	assert.Equal(t, 3, health.DocumentCount)
	assert.Equal(t, []string{"openai"}, health.Providers)

	name, ok := health.DefaultProvider.Get()
	require.True(t, ok)
	assert.Equal(t, "openai", name)
}

func TestAssistant_CheckHealthWithNoProviders(t *testing.T) {
	assistant, _ := newTestAssistant(t, nil)

	health, err := assistant.CheckHealth(context.Background())
	require.NoError(t, err)
	assert.Empty(t, health.Providers)
	assert.True(t, health.DefaultProvider.IsAbsent())
}
