package ask

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/kb-chat/internal/core/provider"
	"github.com/jinford/kb-chat/internal/core/search"
)

// AskService は検索・プロンプト構築・生成・正規化を合成し、
// 「根拠付き応答の生成」を1オペレーションとして提供する。
// 生成経路の障害は応答ペイロードに吸収され、エラーとして返ることはない。
type AskService struct {
	retrieval      *search.RetrievalService
	registry       *provider.Registry
	prompts        *PromptBuilder
	requireContext bool
	logger         *slog.Logger
}

// AskServiceOption は AskService 構築時のオプション
type AskServiceOption func(*AskService)

// WithAskLogger は AskService にロガーを設定する
func WithAskLogger(logger *slog.Logger) AskServiceOption {
	return func(s *AskService) {
		s.logger = logger
	}
}

// WithRequireContext は検索結果が空の場合に生成へフォールバックせず
// その旨を応答するポリシーを設定する
func WithRequireContext(require bool) AskServiceOption {
	return func(s *AskService) {
		s.requireContext = require
	}
}

// NewAskService は新しいAskServiceを作成する
func NewAskService(
	retrieval *search.RetrievalService,
	registry *provider.Registry,
	prompts *PromptBuilder,
	opts ...AskServiceOption,
) *AskService {
	svc := &AskService{
		retrieval: retrieval,
		registry:  registry,
		prompts:   prompts,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(svc)
	}

	if svc.logger == nil {
		svc.logger = slog.Default()
	}

	return svc
}

// Ask は質問に対して根拠付きの応答を生成する。
// 検索と取り込みの障害はエラーとして返すが、プロバイダの障害は
// Degraded な応答テキストとして結果に含める。
func (s *AskService) Ask(ctx context.Context, params AskParams) (*AskResult, error) {
	if params.Message == "" {
		return nil, fmt.Errorf("message is required")
	}

	sources, err := s.retrieval.Retrieve(ctx, params.Message, params.K)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}

	s.logger.Info("context retrieved", "sources", len(sources))

	// ポリシー: コンテキスト必須の構成では根拠なし生成を行わない。
	// プロバイダは呼び出されないため、応答にもプロバイダ名を載せない。
	if s.requireContext && len(sources) == 0 {
		return &AskResult{
			Response: Normalize("I couldn't find any relevant documents in the knowledge base for your question. Please add documents first, or rephrase your question."),
			Provider: provider.ProviderNone,
			Sources:  nil,
		}, nil
	}

	systemPrompt := s.prompts.Build(sources, params.Profile)

	result := s.registry.Dispatch(ctx, params.Provider, systemPrompt, params.Message)
	if result.Degraded {
		s.logger.Warn("generation degraded", "provider", result.Provider, "reason", result.Reason)
	}

	return &AskResult{
		Response: Normalize(result.Text),
		Provider: result.Provider,
		Sources:  sources,
	}, nil
}
