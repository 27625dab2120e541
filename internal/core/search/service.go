package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// Embedder はクエリのEmbedding生成インターフェース
type Embedder interface {
	// Embed は単一テキストのEmbeddingを生成する
	Embed(ctx context.Context, text string) ([]float32, error)
}

// RetrievalService はクエリ文字列から根拠パッセージのランク付きリストを得る
type RetrievalService struct {
	repo     Repository
	embedder Embedder
	defaultK int
	logger   *slog.Logger
}

// RetrievalServiceOption は RetrievalService 構築時のオプション
type RetrievalServiceOption func(*RetrievalService)

// WithRetrievalLogger は RetrievalService にロガーを設定する
func WithRetrievalLogger(logger *slog.Logger) RetrievalServiceOption {
	return func(s *RetrievalService) {
		s.logger = logger
	}
}

// WithDefaultK は検索件数のデフォルト値を設定する
func WithDefaultK(k int) RetrievalServiceOption {
	return func(s *RetrievalService) {
		if k > 0 {
			s.defaultK = k
		}
	}
}

// NewRetrievalService は新しいRetrievalServiceを作成する
func NewRetrievalService(repo Repository, embedder Embedder, opts ...RetrievalServiceOption) *RetrievalService {
	svc := &RetrievalService{
		repo:     repo,
		embedder: embedder,
		defaultK: 3,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(svc)
	}

	if svc.logger == nil {
		svc.logger = slog.Default()
	}

	return svc
}

// Retrieve はクエリに類似するチャンクを距離の非減少順で最大k件返す。
// k <= 0 の場合はデフォルト件数を使う。空のコーパスでは空スライスを返す。
func (s *RetrievalService) Retrieve(ctx context.Context, query string, k int) ([]*RetrievalResult, error) {
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}

	if k <= 0 {
		k = s.defaultK
	}

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := s.repo.QueryNearest(ctx, queryVector, k)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	// 距離の非減少順。距離を持たない結果は末尾に寄せる
	sort.SliceStable(results, func(i, j int) bool {
		di, iOK := results[i].Distance.Get()
		dj, jOK := results[j].Distance.Get()
		if !iOK {
			return false
		}
		if !jOK {
			return true
		}
		return di < dj
	})

	if len(results) > k {
		results = results[:k]
	}

	s.logger.Info("retrieval completed", "query_len", len(query), "k", k, "results", len(results))
	return results, nil
}

// DefaultK は設定されているデフォルト検索件数を返す
func (s *RetrievalService) DefaultK() int {
	return s.defaultK
}
