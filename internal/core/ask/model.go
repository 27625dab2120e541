package ask

import (
	"github.com/jinford/kb-chat/internal/core/search"
	"github.com/samber/mo"
)

// UserProfile は呼び出し側から渡される利用者情報。
// 本コアでは読み取り専用であり、永続状態を変更しない。
type UserProfile struct {
	GradeLevels []string
	Role        string
	SessionID   string
}

// AskParams は質問応答のパラメータを表す
type AskParams struct {
	Message  string
	Profile  mo.Option[UserProfile]
	Provider string // 空ならレジストリのデフォルトを使用
	K        int    // 検索件数（0以下ならデフォルト）
}

// AskResult は質問応答の結果を表す
type AskResult struct {
	Response string                    // 正規化済みの応答テキスト
	Provider string                    // 実際に使用されたプロバイダ名（またはセンチネル）
	Sources  []*search.RetrievalResult // 根拠として使われたパッセージ
}

// ChatTurn は1往復の対話を表すリクエストスコープの値。
// 本コアでは永続化しない（セッション保存は外部コラボレータの責務）。
type ChatTurn struct {
	UserMessage  string
	Sources      []*search.RetrievalResult
	ProviderUsed string
	ResponseText string
}
