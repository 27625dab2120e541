package container

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/jinford/kb-chat/internal/core/ask"
	"github.com/jinford/kb-chat/internal/core/ingestion"
	"github.com/jinford/kb-chat/internal/core/provider"
	"github.com/jinford/kb-chat/internal/core/search"
	"github.com/jinford/kb-chat/internal/core/session"
	infraanthropic "github.com/jinford/kb-chat/internal/infra/anthropic"
	"github.com/jinford/kb-chat/internal/infra/memory"
	infraopenai "github.com/jinford/kb-chat/internal/infra/openai"
	"github.com/jinford/kb-chat/internal/infra/postgres"
	"github.com/jinford/kb-chat/internal/platform/config"
	"github.com/jinford/kb-chat/internal/platform/database"
)

// Store は類似検索ストアが満たす複合インターフェース
type Store interface {
	ingestion.Repository
	search.Repository
}

// Container はプロセス全体で共有される長命リソースを保持する。
// 一度構築して参照渡しで使い回し、隠れたグローバル状態を持たない。
type Container struct {
	Index     *ingestion.IndexService
	Retrieval *search.RetrievalService
	Ask       *ask.AskService
	Registry  *provider.Registry
	Sessions  session.Store

	logger   *slog.Logger
	database *database.Database
}

type containerOptions struct {
	logger   *slog.Logger
	embedder ingestion.Embedder
	store    Store
}

// Option は Container 構築時のオプション
type Option func(*containerOptions)

// WithLogger はロガーを差し替える
func WithLogger(logger *slog.Logger) Option {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithEmbedder はカスタム Embedder を注入する
func WithEmbedder(embedder ingestion.Embedder) Option {
	return func(opts *containerOptions) {
		opts.embedder = embedder
	}
}

// WithStore はカスタムストアを注入する
func WithStore(store Store) Option {
	return func(opts *containerOptions) {
		opts.store = store
	}
}

// New は設定からコンテナを生成する
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Container, error) {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	c := &Container{logger: options.logger}

	// ChunkingEngine（設定不正はここで致命的エラーとする）
	chunker, err := ingestion.NewWindowChunker(cfg.Corpus.ChunkSize, cfg.Corpus.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("invalid chunking configuration (size=%d, overlap=%d): %w",
			cfg.Corpus.ChunkSize, cfg.Corpus.ChunkOverlap, err)
	}

	// Embedder (OpenAI)
	embedder := options.embedder
	if embedder == nil {
		embedder, err = infraopenai.NewEmbedder(
			cfg.Embedding.APIKey,
			infraopenai.WithEmbeddingModel(cfg.Embedding.Model),
			infraopenai.WithEmbeddingDimension(cfg.Embedding.Dimension),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
	}

	// 類似検索ストア
	store := options.store
	if store == nil {
		store, err = c.newStore(ctx, cfg, embedder.Dimension())
		if err != nil {
			return nil, err
		}
	}

	// IndexService
	c.Index = ingestion.NewIndexService(
		chunker,
		embedder,
		store,
		ingestion.WithIndexLogger(options.logger),
	)

	// RetrievalService
	c.Retrieval = search.NewRetrievalService(
		store,
		embedder,
		search.WithRetrievalLogger(options.logger),
		search.WithDefaultK(cfg.Corpus.RetrievalK),
	)

	// ProviderRegistry
	c.Registry = provider.NewRegistry(
		cfg.DefaultProvider,
		cfg.Temperature,
		provider.WithRegistryLogger(options.logger),
	)
	if err := registerProviders(c.Registry, cfg.Providers, options.logger); err != nil {
		return nil, err
	}

	// PromptBuilder（tiktokenでコンテキスト予算を適用）
	counter, err := newTokenCounter()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token counter: %w", err)
	}

	promptOpts := []ask.PromptBuilderOption{
		ask.WithTokenCounter(counter, cfg.ContextTokenBudget),
	}
	if cfg.Persona != "" {
		promptOpts = append(promptOpts, ask.WithPersona(cfg.Persona))
	}
	prompts := ask.NewPromptBuilder(promptOpts...)

	// AskService
	c.Ask = ask.NewAskService(
		c.Retrieval,
		c.Registry,
		prompts,
		ask.WithAskLogger(options.logger),
		ask.WithRequireContext(cfg.RequireContext),
	)

	// セッションストア
	c.Sessions = session.NewMemoryStore(time.Duration(cfg.SessionTTLMinutes) * time.Minute)

	return c, nil
}

// newStore は設定に応じたバックエンドのストアを構築する
func (c *Container) newStore(ctx context.Context, cfg *config.Config, dimension int) (Store, error) {
	switch cfg.Corpus.Backend {
	case "memory":
		return memory.NewStore(), nil

	case "postgres":
		db, err := database.New(ctx, database.ConnectionParams{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		c.database = db

		store, err := postgres.NewStore(
			ctx,
			db.Pool,
			cfg.Corpus.CollectionName,
			dimension,
			postgres.WithStoreLogger(c.logger),
		)
		if err != nil {
			db.Close()
			c.database = nil
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown vector backend: %q", cfg.Corpus.Backend)
	}
}

// registerProviders は構成済みプロバイダをクライアント束縛付きで登録する
func registerProviders(registry *provider.Registry, configs []config.ProviderConfig, logger *slog.Logger) error {
	for _, pc := range configs {
		var (
			completer provider.Completer
			err       error
		)

		switch pc.Name {
		case "openai", "xai":
			// xAIはOpenAIワイヤ互換のためBaseURL差し替えで同一クライアントを使う
			var copts []infraopenai.CompleterOption
			if pc.BaseURL != "" {
				copts = append(copts, infraopenai.WithBaseURL(pc.BaseURL))
			}
			completer, err = infraopenai.NewCompleter(pc.APIKey, copts...)

		case "anthropic":
			var copts []infraanthropic.CompleterOption
			if pc.BaseURL != "" {
				copts = append(copts, infraanthropic.WithBaseURL(pc.BaseURL))
			}
			completer, err = infraanthropic.NewCompleter(pc.APIKey, copts...)

		default:
			logger.Warn("skipping provider with no client binding", "provider", pc.Name)
			continue
		}

		if err != nil {
			return fmt.Errorf("failed to initialize provider %s: %w", pc.Name, err)
		}

		registry.Register(provider.Config{
			Name:      pc.Name,
			Model:     pc.Model,
			MaxTokens: pc.MaxTokens,
			BaseURL:   pc.BaseURL,
		}, completer)
	}

	return nil
}

// Close は内部リソースを解放する
func (c *Container) Close() {
	if c != nil && c.database != nil {
		c.database.Close()
	}
}

// Logger はロガーを返す
func (c *Container) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// tokenCounter は tiktoken を利用した ask.TokenCounter 実装
type tokenCounter struct {
	encoding *tiktoken.Tiktoken
}

func newTokenCounter() (*tokenCounter, error) {
	// cl100k_baseエンコーダを使用（text-embedding-3-smallと互換）
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding: %w", err)
	}
	return &tokenCounter{encoding: enc}, nil
}

func (t *tokenCounter) CountTokens(text string) int {
	if t.encoding == nil {
		return 0
	}
	return len(t.encoding.Encode(text, nil, nil))
}

func (t *tokenCounter) TrimToTokenLimit(text string, maxTokens int) string {
	if t.encoding == nil {
		return text
	}
	tokens := t.encoding.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return t.encoding.Decode(tokens[:maxTokens])
}

// インターフェース実装の確認
var _ ask.TokenCounter = (*tokenCounter)(nil)
