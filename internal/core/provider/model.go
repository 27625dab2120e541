package provider

import "context"

// Config は生成プロバイダ1件の束縛情報。
// レジストリ構築後はプロセス生存期間中変更されない。
type Config struct {
	Name      string
	Model     string
	MaxTokens int
	BaseURL   string
}

// CompletionRequest はプロバイダクライアントへの生成要求
type CompletionRequest struct {
	System      string
	User        string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Completer はプロバイダ固有のクライアント実装が満たすインターフェース
type Completer interface {
	// Complete はプロンプトから生成テキストを返す
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Result はディスパッチの結果を表すタグ付きの値。
// プロバイダ障害は例外としてではなく Degraded な応答として表現され、
// 呼び出し側は常に描画可能なテキストを受け取る。
type Result struct {
	Text     string // 生成テキスト、またはDegraded時の説明文
	Provider string // 実際に解決されたプロバイダ名、またはセンチネル
	Degraded bool
	Reason   string // Degraded時の内部向け理由
}

// ディスパッチ結果のセンチネルプロバイダ名
const (
	// ProviderUnavailable はプロバイダが1件も構成されていない場合
	ProviderUnavailable = "unavailable"

	// ProviderUnknown は要求プロバイダ名を解決できなかった場合
	ProviderUnknown = "unknown"

	// ProviderNone は生成をスキップしプロバイダを呼び出さなかった場合
	ProviderNone = "none"
)
