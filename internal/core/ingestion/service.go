package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// embedBatchSize はEmbedding APIに一度に渡すチャンク数の上限
const embedBatchSize = 100

// IndexService はドキュメント取り込みとコーパス管理のビジネスロジックを提供する
type IndexService struct {
	chunker  *WindowChunker
	embedder Embedder
	repo     Repository
	logger   *slog.Logger
}

// IndexServiceOption は IndexService 構築時のオプション
type IndexServiceOption func(*IndexService)

// WithIndexLogger は IndexService にロガーを設定する
func WithIndexLogger(logger *slog.Logger) IndexServiceOption {
	return func(s *IndexService) {
		s.logger = logger
	}
}

// NewIndexService は新しいIndexServiceを作成する
func NewIndexService(
	chunker *WindowChunker,
	embedder Embedder,
	repo Repository,
	opts ...IndexServiceOption,
) *IndexService {
	svc := &IndexService{
		chunker:  chunker,
		embedder: embedder,
		repo:     repo,
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

// AddDocument はドキュメントをチャンク化・Embedding・保存し、
// 作成したチャンク数を返す。空のテキストはエラーではなく0を返す。
// 全チャンクのEmbeddingをストア更新前に計算し終えるため、途中で
// キャンセル・失敗してもコーパスが部分更新されることはない。
func (s *IndexService) AddDocument(ctx context.Context, text, sourceName string) (int, error) {
	chunks := s.chunker.Chunk(text)
	if len(chunks) == 0 {
		s.logger.Warn("no chunks created", "source", sourceName)
		return 0, nil
	}

	// ストア更新前にEmbeddingをすべて確定させる
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		batch, err := s.embedder.BatchEmbed(ctx, chunks[start:end])
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrEmbeddingFailure, err)
		}
		if len(batch) != end-start {
			return 0, fmt.Errorf("%w: expected %d embeddings, got %d", ErrEmbeddingFailure, end-start, len(batch))
		}
		vectors = append(vectors, batch...)
	}

	records := make([]*DocumentChunk, len(chunks))
	for i, chunkText := range chunks {
		records[i] = &DocumentChunk{
			ID:         uuid.New(),
			SourceName: sourceName,
			ChunkIndex: i,
			Text:       chunkText,
			Embedding:  vectors[i],
		}
	}

	if err := s.repo.UpsertChunks(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to store chunks: %w", err)
	}

	s.logger.Info("document added", "source", sourceName, "chunks", len(records))
	return len(records), nil
}

// Count はコーパス内のチャンク数を返す
func (s *IndexService) Count(ctx context.Context) (int, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// Clear はコーパスの全チャンクを削除する。冪等であり、
// 既にクリア済みでもエラーとしない。
func (s *IndexService) Clear(ctx context.Context) error {
	if err := s.repo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear corpus: %w", err)
	}

	s.logger.Info("corpus cleared")
	return nil
}
