package search

import "context"

// Repository は類似検索ストアの読み取りインターフェース。
// 返却順は距離の非減少順であることが期待されるが、サービス側でも
// 不変条件として並びを保証する。
type Repository interface {
	// QueryNearest はクエリベクトルに最も近いk件のチャンクを返す。
	// コーパスが空の場合は空スライスを返し、エラーとしない。
	QueryNearest(ctx context.Context, vector []float32, k int) ([]*RetrievalResult, error)
}
