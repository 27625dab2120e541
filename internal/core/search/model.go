package search

import "github.com/samber/mo"

// RetrievalResult は類似検索の1件分の結果を表す。
// クエリごとに生成されるリクエストスコープの値であり、永続化されない。
type RetrievalResult struct {
	Text       string
	SourceName string             // メタデータ欠損時は "unknown"
	ChunkIndex int                // メタデータ欠損時は 0
	Distance   mo.Option[float64] // 小さいほど類似。ストアが返さない場合はNone
}
