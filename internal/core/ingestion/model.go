package ingestion

import "github.com/google/uuid"

// DocumentChunk はインデックスと検索の最小単位となるチャンクを表す。
// 追加後の所有権はストアに移り、個別更新は行わない（再インデックスは
// 新しいIDで新規チャンクを作る）。
type DocumentChunk struct {
	ID         uuid.UUID // コーパス内で一意（content-hashではなくUUIDを採用）
	SourceName string    // 取り込み元ドキュメント名
	ChunkIndex int       // ドキュメント内での通し番号
	Text       string
	Embedding  []float32
}
