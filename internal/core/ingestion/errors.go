package ingestion

import "errors"

var (
	// ErrInvalidChunkConfig はオーバーラップがチャンクサイズ以上の場合のエラー。
	// ガードなしではカーソルが前進せずチャンク化ループが停止しない。
	ErrInvalidChunkConfig = errors.New("invalid chunk config: overlap must be smaller than size")

	// ErrEmbeddingFailure はEmbeddingモデルが利用できない・失敗した場合のエラー
	ErrEmbeddingFailure = errors.New("embedding failure")

	// ErrIndexUnavailable はストアの真のI/O障害を表すエラー。
	// 「コレクション未作成」は該当せず、ストア側で自己修復される。
	ErrIndexUnavailable = errors.New("index unavailable")
)
