package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/kb-chat/internal/core/ask"
	"github.com/jinford/kb-chat/internal/core/ingestion"
	"github.com/jinford/kb-chat/internal/core/provider"
	"github.com/jinford/kb-chat/internal/core/search"
	"github.com/jinford/kb-chat/internal/core/session"
	"github.com/samber/mo"
)

// Assistant はトランスポート層（HTTP/CLI）に公開するオペレーションの
// ファサード。取り込み・検索・質問応答・コーパス管理を1つにまとめる。
type Assistant struct {
	index     *ingestion.IndexService
	retrieval *search.RetrievalService
	askSvc    *ask.AskService
	registry  *provider.Registry
	sessions  session.Store
	logger    *slog.Logger
}

// AssistantOption は Assistant 構築時のオプション
type AssistantOption func(*Assistant)

// WithAssistantLogger は Assistant にロガーを設定する
func WithAssistantLogger(logger *slog.Logger) AssistantOption {
	return func(a *Assistant) {
		a.logger = logger
	}
}

// NewAssistant は新しい Assistant を作成する
func NewAssistant(
	index *ingestion.IndexService,
	retrieval *search.RetrievalService,
	askSvc *ask.AskService,
	registry *provider.Registry,
	sessions session.Store,
	opts ...AssistantOption,
) *Assistant {
	a := &Assistant{
		index:     index,
		retrieval: retrieval,
		askSvc:    askSvc,
		registry:  registry,
		sessions:  sessions,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		a.logger = slog.Default()
	}

	return a
}

// AskRequest は質問応答オペレーションの入力
type AskRequest struct {
	Message   string
	Provider  string // 空ならデフォルトプロバイダ
	SessionID string // プロファイル未指定時のセッション解決に使う
	Profile   mo.Option[ask.UserProfile]
	K         int
}

// Health はヘルスチェックの結果
type Health struct {
	RAGEnabled      bool
	DocumentCount   int
	DefaultProvider mo.Option[string]
	Providers       []string
}

// AddDocument はドキュメントを取り込み、作成したチャンク数を返す
func (a *Assistant) AddDocument(ctx context.Context, text, sourceName string) (int, error) {
	return a.index.AddDocument(ctx, text, sourceName)
}

// Query はクエリに類似するチャンクを最大k件返す
func (a *Assistant) Query(ctx context.Context, text string, k int) ([]*search.RetrievalResult, error) {
	return a.retrieval.Retrieve(ctx, text, k)
}

// Ask は根拠付きの応答を生成する。プロファイルが未指定で
// セッションIDがあればセッションストアから解決する。
func (a *Assistant) Ask(ctx context.Context, req AskRequest) (*ask.AskResult, error) {
	profile := req.Profile

	if profile.IsAbsent() && req.SessionID != "" {
		stored, err := a.sessions.Get(ctx, req.SessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve session profile: %w", err)
		}
		profile = stored
	}

	// 明示的に渡されたプロファイルは次のターンのためにセッションへ保存する
	if p, ok := req.Profile.Get(); ok && req.SessionID != "" {
		if err := a.sessions.Put(ctx, req.SessionID, p, 0); err != nil {
			a.logger.Warn("failed to store session profile", "session", req.SessionID, "error", err)
		}
	}

	return a.askSvc.Ask(ctx, ask.AskParams{
		Message:  req.Message,
		Profile:  profile,
		Provider: req.Provider,
		K:        req.K,
	})
}

// ClearAll はコーパスの全チャンクを削除する（冪等）
func (a *Assistant) ClearAll(ctx context.Context) error {
	return a.index.Clear(ctx)
}

// DocumentCount はコーパス内のチャンク数を返す
func (a *Assistant) DocumentCount(ctx context.Context) (int, error) {
	return a.index.Count(ctx)
}

// CheckHealth はシステムの状態を返す
func (a *Assistant) CheckHealth(ctx context.Context) (*Health, error) {
	count, err := a.index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get document count: %w", err)
	}

	return &Health{
		RAGEnabled:      true,
		DocumentCount:   count,
		DefaultProvider: a.registry.Default(),
		Providers:       a.registry.Available(),
	}, nil
}
