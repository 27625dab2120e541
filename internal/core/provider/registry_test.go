package provider

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCompleter struct {
	text    string
	err     error
	lastReq CompletionRequest
}

func (c *stubCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	c.lastReq = req
	if c.err != nil {
		return "", c.err
	}
	return c.text, nil
}

func newTestRegistry(defaultName string) *Registry {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRegistry(defaultName, 0.2, WithRegistryLogger(logger))
}

func TestRegistry_AvailableIsSorted(t *testing.T) {
	r := newTestRegistry("openai")
	r.Register(Config{Name: "xai", Model: "grok-2-latest"}, &stubCompleter{})
	r.Register(Config{Name: "openai", Model: "gpt-4o-mini"}, &stubCompleter{})

	assert.Equal(t, []string{"openai", "xai"}, r.Available())
}

func TestRegistry_DefaultResolution(t *testing.T) {
	t.Run("configured default wins", func(t *testing.T) {
		r := newTestRegistry("xai")
		r.Register(Config{Name: "openai"}, &stubCompleter{})
		r.Register(Config{Name: "xai"}, &stubCompleter{})

		name, ok := r.Default().Get()
		require.True(t, ok)
		assert.Equal(t, "xai", name)
	})

	t.Run("falls back to first registered", func(t *testing.T) {
		r := newTestRegistry("anthropic")
		r.Register(Config{Name: "openai"}, &stubCompleter{})
		r.Register(Config{Name: "xai"}, &stubCompleter{})

		name, ok := r.Default().Get()
		require.True(t, ok)
		assert.Equal(t, "openai", name)
	})

	t.Run("empty registry has no default", func(t *testing.T) {
		r := newTestRegistry("openai")
		assert.True(t, r.Default().IsAbsent())
	})
}

func TestRegistry_DispatchToNamedProvider(t *testing.T) {
	openai := &stubCompleter{text: "from openai"}
	xai := &stubCompleter{text: "from xai"}

	r := newTestRegistry("openai")
	r.Register(Config{Name: "openai", Model: "gpt-4o-mini", MaxTokens: 1024}, openai)
	r.Register(Config{Name: "xai", Model: "grok-2-latest", MaxTokens: 2048}, xai)

	result := r.Dispatch(context.Background(), "xai", "system prompt", "user message")
	assert.False(t, result.Degraded)
	assert.Equal(t, "xai", result.Provider)
	assert.Equal(t, "from xai", result.Text)

	// プロバイダ固有のモデル設定とレジストリ共通の温度が渡る
	assert.Equal(t, "grok-2-latest", xai.lastReq.Model)
	assert.Equal(t, 2048, xai.lastReq.MaxTokens)
	assert.Equal(t, 0.2, xai.lastReq.Temperature)
	assert.Equal(t, "system prompt", xai.lastReq.System)
	assert.Equal(t, "user message", xai.lastReq.User)
}

func TestRegistry_DispatchEmptyNameUsesDefault(t *testing.T) {
	openai := &stubCompleter{text: "from openai"}
	r := newTestRegistry("openai")
	r.Register(Config{Name: "openai"}, openai)
	r.Register(Config{Name: "xai"}, &stubCompleter{text: "from xai"})

	result := r.Dispatch(context.Background(), "", "sys", "usr")
	assert.False(t, result.Degraded)
	assert.Equal(t, "openai", result.Provider)
	assert.Equal(t, "from openai", result.Text)
}

func TestRegistry_DispatchUnknownProviderIsDegraded(t *testing.T) {
	r := newTestRegistry("openai")
	r.Register(Config{Name: "openai"}, &stubCompleter{})
	r.Register(Config{Name: "xai"}, &stubCompleter{})

	result := r.Dispatch(context.Background(), "anthropic", "sys", "usr")
	assert.True(t, result.Degraded)
	assert.Equal(t, "anthropic", result.Provider)
	assert.Contains(t, result.Text, "anthropic")
	assert.Contains(t, result.Text, "openai, xai")
}

func TestRegistry_DispatchEmptyRegistryIsDegraded(t *testing.T) {
	r := newTestRegistry("")

	result := r.Dispatch(context.Background(), "", "sys", "usr")
	assert.True(t, result.Degraded)
	assert.Equal(t, ProviderUnavailable, result.Provider)
	assert.Contains(t, result.Text, "no language model provider is configured")
}

func TestRegistry_DispatchClientErrorIsDegraded(t *testing.T) {
	r := newTestRegistry("openai")
	r.Register(Config{Name: "openai"}, &stubCompleter{err: errors.New("rate limited")})

	result := r.Dispatch(context.Background(), "openai", "sys", "usr")
	assert.True(t, result.Degraded)
	assert.Equal(t, "openai", result.Provider)
	assert.Contains(t, result.Text, "Error generating response via openai")
	assert.Equal(t, "rate limited", result.Reason)
}

func TestRegistry_RegisterSameNameIsLastWins(t *testing.T) {
	first := &stubCompleter{text: "first"}
	second := &stubCompleter{text: "second"}

	r := newTestRegistry("openai")
	r.Register(Config{Name: "openai"}, first)
	r.Register(Config{Name: "openai"}, second)

	assert.Equal(t, []string{"openai"}, r.Available())

	result := r.Dispatch(context.Background(), "openai", "sys", "usr")
	assert.Equal(t, "second", result.Text)
}
