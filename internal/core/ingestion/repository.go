package ingestion

import "context"

// Repository はチャンクの永続化インターフェース。
// 実装は複数リクエストからの並行呼び出しに対して安全でなければならない。
type Repository interface {
	// UpsertChunks はEmbedding済みチャンクをまとめて保存する
	UpsertChunks(ctx context.Context, chunks []*DocumentChunk) error

	// Count は保存されているチャンク数を返す
	Count(ctx context.Context) (int, error)

	// DeleteAll は全チャンクを削除し、空のコーパスを再作成する。
	// 既に空・未作成の状態でもエラーとしない（冪等）。
	DeleteAll(ctx context.Context) error
}
