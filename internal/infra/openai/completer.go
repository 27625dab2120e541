package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jinford/kb-chat/internal/core/provider"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 60 * time.Second

	// MaxRetries はレート制限エラー時の最大リトライ回数
	MaxRetries = 3

	// BaseBackoff はExponential Backoffの基底時間
	BaseBackoff = 2 * time.Second

	// MaxBackoff はExponential Backoffの最大待機時間
	MaxBackoff = 32 * time.Second
)

// ErrMaxRetriesExceeded は最大リトライ回数を超過した場合のエラー
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// Completer は OpenAI Chat Completions API を使用した生成クライアント。
// xAI などOpenAIワイヤ互換のプロバイダはBaseURLの差し替えで共用する。
type Completer struct {
	client  openai.Client
	timeout time.Duration
}

type completerOptions struct {
	baseURL string
	timeout time.Duration
}

// CompleterOption は Completer のオプション設定
type CompleterOption func(*completerOptions)

// WithBaseURL はAPIエンドポイントを上書きする（OpenAI互換プロバイダ用）
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
		client:  openai.NewClient(clientOpts...),
		timeout: options.timeout,
	}, nil
}

// Complete はChat Completions APIでテキストを生成する。
// レート制限エラーはExponential Backoffでリトライする。
func (c *Completer) Complete(ctx context.Context, req provider.CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var lastErr error

	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			backoffDuration := time.Duration(math.Pow(2, float64(attempt-1))) * BaseBackoff
			if backoffDuration > MaxBackoff {
				backoffDuration = MaxBackoff
			}

			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoffDuration):
				// バックオフ後、再試行
			}
		}

		params := openai.ChatCompletionNewParams{
			Model: shared.ChatModel(req.Model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(req.System),
				openai.UserMessage(req.User),
			},
			Temperature: openai.Float(req.Temperature),
		}

		if req.MaxTokens > 0 {
			params.MaxTokens = openai.Int(int64(req.MaxTokens))
		}

		completion, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			lastErr = err

			if isRateLimitError(err) {
				continue
			}

			return "", fmt.Errorf("chat completion failed: %w", err)
		}

		if len(completion.Choices) == 0 {
			return "", fmt.Errorf("no completion choices returned")
		}

		return completion.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("%w: %v", ErrMaxRetriesExceeded, lastErr)
}

// isRateLimitError はエラーがレート制限エラーかどうかを判定する
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		// ステータスコード429はレート制限エラー
		return apiErr.StatusCode == 429
	}

	return false
}

// インターフェース実装の確認
var _ provider.Completer = (*Completer)(nil)
