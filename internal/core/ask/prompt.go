package ask

import (
	"fmt"
	"strings"

	"github.com/jinford/kb-chat/internal/core/search"
	"github.com/samber/mo"
)

// DefaultPersona はデプロイ設定で上書きされない場合の人格・方針テキスト
const DefaultPersona = `You are a helpful AI assistant with access to a knowledge base.
Use the provided context to answer the user's question. If the context doesn't contain
relevant information, you can still provide a helpful response based on your general knowledge,
but mention that the information isn't from the knowledge base.`

// TokenCounter はトークン数の計測と切り詰めを行うインターフェース
type TokenCounter interface {
	CountTokens(text string) int
	TrimToTokenLimit(text string, maxTokens int) string
}

// PromptBuilder は人格・プロファイル・検索コンテキストから
// システムプロンプトを組み立てる。同一入力に対して出力は決定的。
type PromptBuilder struct {
	persona       string
	counter       TokenCounter
	contextBudget int
}

// PromptBuilderOption は PromptBuilder 構築時のオプション
type PromptBuilderOption func(*PromptBuilder)

// WithPersona は人格・方針テキストを上書きする
func WithPersona(persona string) PromptBuilderOption {
	return func(b *PromptBuilder) {
		if persona != "" {
			b.persona = persona
		}
	}
}

// WithTokenCounter はコンテキストのトークン予算を適用するカウンタを設定する
func WithTokenCounter(counter TokenCounter, budget int) PromptBuilderOption {
	return func(b *PromptBuilder) {
		b.counter = counter
		b.contextBudget = budget
	}
}

// NewPromptBuilder は新しいPromptBuilderを作成する
func NewPromptBuilder(opts ...PromptBuilderOption) *PromptBuilder {
	b := &PromptBuilder{
		persona: DefaultPersona,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Build はシステムプロンプトを組み立てる。
// プロファイルは人格ブロックの直後・コンテキストより前の固定位置に挿入され、
// 検索結果は [Source: <name>] 付きブロックとしてランク順で並ぶ。
// コンテキストが空の場合は人格ブロックのみを返す。
func (b *PromptBuilder) Build(results []*search.RetrievalResult, profile mo.Option[UserProfile]) string {
	var sb strings.Builder

	sb.WriteString(b.persona)

	if p, ok := profile.Get(); ok {
		sb.WriteString("\n\n")
		sb.WriteString(formatProfile(p))
	}

	if len(results) > 0 {
		sb.WriteString("\n\nContext from knowledge base:\n")
		sb.WriteString(b.formatContext(results))
	}

	return sb.String()
}

// formatProfile はプロファイル情報のブロックを整形する
func formatProfile(p UserProfile) string {
	var parts []string

	if len(p.GradeLevels) > 0 {
		parts = append(parts, fmt.Sprintf("The user teaches grade levels: %s.", strings.Join(p.GradeLevels, ", ")))
	}
	if p.Role != "" {
		parts = append(parts, fmt.Sprintf("The user's role is: %s.", p.Role))
	}
	if len(parts) == 0 {
		return "About the user: no additional details provided."
	}

	return "About the user: " + strings.Join(parts, " ")
}

// formatContext は検索結果をランク順のラベル付きブロックに整形し、
// トークン予算が設定されていれば超過分を切り詰める
func (b *PromptBuilder) formatContext(results []*search.RetrievalResult) string {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, fmt.Sprintf("[Source: %s]\n%s", r.SourceName, r.Text))
	}

	context := strings.Join(blocks, "\n\n")

	if b.counter != nil && b.contextBudget > 0 && b.counter.CountTokens(context) > b.contextBudget {
		context = b.counter.TrimToTokenLimit(context, b.contextBudget)
	}

	return context
}
