package anthropic

import (
	"context"
	"errors"
	"fmt"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
	"github.com/jinford/kb-chat/internal/core/provider"
)

const (
	// DefaultMaxTokens はmax_tokens未指定時の上限（Anthropic APIでは必須パラメータ）
	DefaultMaxTokens = 1024

	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 60 * time.Second
)

// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
var ErrAPIKeyNotSet = errors.New("Anthropic API key not set")

// Completer は Anthropic Messages API を使用した生成クライアント
type Completer struct {
	client  anthropic.Client
	timeout time.Duration
}

type completerOptions struct {
	baseURL string
	timeout time.Duration
}

// CompleterOption は Completer のオプション設定
type CompleterOption func(*completerOptions)

// WithBaseURL はAPIエンドポイントを上書きする
func WithBaseURL(baseURL string) CompleterOption {
	return func(o *completerOptions) {
		o.baseURL = baseURL
	}
}

// WithTimeout はAPIコールのタイムアウトを上書きする
func WithTimeout(timeout time.Duration) CompleterOption {
	return func(o *completerOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// NewCompleter は新しい Completer を作成する
func NewCompleter(apiKey string, opts ...CompleterOption) (*Completer, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	options := completerOptions{
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&options)
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if options.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(options.baseURL))
	}

	return &Completer{
		client:  anthropic.NewClient(clientOpts...),
		timeout: options.timeout,
	}, nil
}

// Complete はMessages APIでテキストを生成する。
// システムプロンプトはメッセージ列ではなくSystemブロックとして渡す。
func (c *Completer) Complete(ctx context.Context, req provider.CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model: anthropic.Model(req.Model),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(req.Temperature),
	}

	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{
				Text: req.System,
				Type: constant.ValueOf[constant.Text]().Default(),
			},
		}
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	if text == "" {
		return "", fmt.Errorf("no text content returned")
	}

	return text, nil
}

// インターフェース実装の確認
var _ provider.Completer = (*Completer)(nil)
