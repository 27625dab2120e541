package ask

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jinford/kb-chat/internal/core/provider"
	"github.com/jinford/kb-chat/internal/core/search"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubQueryEmbedder struct{}

func (stubQueryEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

type stubSearchRepo struct {
	results []*search.RetrievalResult
	err     error
}

func (r *stubSearchRepo) QueryNearest(ctx context.Context, vector []float32, k int) ([]*search.RetrievalResult, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.results, nil
}

type stubCompleter struct {
	text       string
	err        error
	lastSystem string
}

func (c *stubCompleter) Complete(ctx context.Context, req provider.CompletionRequest) (string, error) {
	c.lastSystem = req.System
	if c.err != nil {
		return "", c.err
	}
	return c.text, nil
}

func newTestAskService(t *testing.T, repo search.Repository, completer provider.Completer, opts ...AskServiceOption) *AskService {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	retrieval := search.NewRetrievalService(repo, stubQueryEmbedder{}, search.WithRetrievalLogger(logger))

	registry := provider.NewRegistry("openai", 0.2, provider.WithRegistryLogger(logger))
	if completer != nil {
		registry.Register(provider.Config{Name: "openai", Model: "gpt-4o-mini"}, completer)
	}

	opts = append(opts, WithAskLogger(logger))
	return NewAskService(retrieval, registry, NewPromptBuilder(), opts...)
}

func TestAskService_AskReturnsNormalizedResponseWithSources(t *testing.T) {
	repo := &stubSearchRepo{
		results: []*search.RetrievalResult{
			{Text: "Grass is green.", SourceName: "facts.txt", Distance: mo.Some(0.1)},
		},
	}
	completer := &stubCompleter{text: "Grass is **green**."}
	svc := newTestAskService(t, repo, completer)

	result, err := svc.Ask(context.Background(), AskParams{Message: "What color is grass?"})
	require.NoError(t, err)
	assert.Equal(t, "<p>Grass is <strong>green</strong>.</p>", result.Response)
	assert.Equal(t, "openai", result.Provider)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "facts.txt", result.Sources[0].SourceName)

	// 検索コンテキストがシステムプロンプトに渡る
	assert.Contains(t, completer.lastSystem, "[Source: facts.txt]\nGrass is green.")
}

func TestAskService_EmptyMessageIsRejected(t *testing.T) {
	svc := newTestAskService(t, &stubSearchRepo{}, &stubCompleter{})

	_, err := svc.Ask(context.Background(), AskParams{Message: ""})
	require.Error(t, err)
}

func TestAskService_RetrievalFailurePropagates(t *testing.T) {
	repo := &stubSearchRepo{err: errors.New("store down")}
	svc := newTestAskService(t, repo, &stubCompleter{})

	_, err := svc.Ask(context.Background(), AskParams{Message: "hello"})
	require.Error(t, err)
}

func TestAskService_ProviderFailureBecomesRenderableResponse(t *testing.T) {
	completer := &stubCompleter{err: errors.New("rate limited")}
	svc := newTestAskService(t, &stubSearchRepo{}, completer)

	result, err := svc.Ask(context.Background(), AskParams{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "openai", result.Provider)
	assert.Contains(t, result.Response, "Error generating response via openai")
}

func TestAskService_RequireContextShortCircuitsWithoutSources(t *testing.T) {
	completer := &stubCompleter{text: "should not be called"}
	svc := newTestAskService(t, &stubSearchRepo{}, completer, WithRequireContext(true))

	result, err := svc.Ask(context.Background(), AskParams{Message: "hello"})
	require.NoError(t, err)
	assert.Contains(t, result.Response, "couldn't find any relevant documents")
	assert.Equal(t, provider.ProviderNone, result.Provider) // プロバイダは呼ばれていない
	assert.Empty(t, result.Sources)
	assert.Empty(t, completer.lastSystem)
}

func TestAskService_EmptyCorpusWithoutRequireContextStillGenerates(t *testing.T) {
	completer := &stubCompleter{text: "general knowledge answer"}
	svc := newTestAskService(t, &stubSearchRepo{}, completer)

	result, err := svc.Ask(context.Background(), AskParams{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "<p>general knowledge answer</p>", result.Response)
	assert.Empty(t, result.Sources)

	// コンテキストブロックなしのシステムプロンプトで生成される
	assert.NotContains(t, completer.lastSystem, "Context from knowledge base:")
}

func TestAskService_NoProvidersConfiguredIsDegraded(t *testing.T) {
	svc := newTestAskService(t, &stubSearchRepo{}, nil)

	result, err := svc.Ask(context.Background(), AskParams{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, provider.ProviderUnavailable, result.Provider)
	assert.Contains(t, result.Response, "no language model provider is configured")
}
