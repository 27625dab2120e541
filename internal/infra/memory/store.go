package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/jinford/kb-chat/internal/core/ingestion"
	"github.com/jinford/kb-chat/internal/core/search"
	"github.com/samber/mo"
)

// Store は総当たりのコサイン距離計算によるプロセス内類似検索ストア。
// 永続化を必要としないテストや VECTOR_BACKEND=memory 構成で使用する。
// 書き込みは排他ロック、検索・件数取得は共有ロックで保護する。
type Store struct {
	mu     sync.RWMutex
	chunks []*ingestion.DocumentChunk
}

// NewStore は新しい Store を作成する
func NewStore() *Store {
	return &Store{}
}

// インターフェース実装の確認
var _ ingestion.Repository = (*Store)(nil)
var _ search.Repository = (*Store)(nil)

// UpsertChunks はチャンクをまとめて保存する
func (s *Store) UpsertChunks(ctx context.Context, chunks []*ingestion.DocumentChunk) error {
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			return fmt.Errorf("chunk %s has no embedding", chunk.ID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks = append(s.chunks, chunks...)
	return nil
}

// QueryNearest はコサイン距離で最も近いk件を距離の昇順で返す
func (s *Store) QueryNearest(ctx context.Context, vector []float32, k int) ([]*search.RetrievalResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.chunks) == 0 || k <= 0 {
		return nil, nil
	}

	type scored struct {
		chunk    *ingestion.DocumentChunk
		distance float64
	}

	candidates := make([]scored, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		candidates = append(candidates, scored{
			chunk:    chunk,
			distance: cosineDistance(vector, chunk.Embedding),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	if k > len(candidates) {
		k = len(candidates)
	}

	results := make([]*search.RetrievalResult, 0, k)
	for _, c := range candidates[:k] {
		sourceName := c.chunk.SourceName
		if sourceName == "" {
			sourceName = "unknown"
		}
		results = append(results, &search.RetrievalResult{
			Text:       c.chunk.Text,
			SourceName: sourceName,
			ChunkIndex: c.chunk.ChunkIndex,
			Distance:   mo.Some(c.distance),
		})
	}

	return results, nil
}

// Count は保存されているチャンク数を返す
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.chunks), nil
}

// DeleteAll は全チャンクを削除する（冪等）
func (s *Store) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks = nil
	return nil
}

// cosineDistance は 1 - コサイン類似度 を返す。
// いずれかがゼロベクトルの場合は最大距離1として扱う
func cosineDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 1
	}

	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
