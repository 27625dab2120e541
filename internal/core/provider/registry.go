package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/samber/mo"
)

// Registry は構成済みプロバイダ（名前→クライアント束縛）を保持し、
// 名前解決とディスパッチを行う。構築後の登録内容は不変として扱う。
type Registry struct {
	entries     []entry // 登録順を保持
	byName      map[string]entry
	defaultName string
	temperature float64
	logger      *slog.Logger
}

type entry struct {
	cfg       Config
	completer Completer
}

// RegistryOption は Registry 構築時のオプション
type RegistryOption func(*Registry)

// WithRegistryLogger は Registry にロガーを設定する
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry は新しいRegistryを作成する。
// defaultName は優先プロバイダ名（未登録なら登録順の先頭にフォールバック）。
// temperature は全プロバイダ共通の温度ポリシー。
func NewRegistry(defaultName string, temperature float64, opts ...RegistryOption) *Registry {
	r := &Registry{
		byName:      make(map[string]entry),
		defaultName: defaultName,
		temperature: temperature,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	return r
}

// Register はプロバイダを登録する。同名の再登録は後勝ちとする。
func (r *Registry) Register(cfg Config, completer Completer) {
	e := entry{cfg: cfg, completer: completer}
	if _, exists := r.byName[cfg.Name]; !exists {
		r.entries = append(r.entries, e)
	} else {
		for i := range r.entries {
			if r.entries[i].cfg.Name == cfg.Name {
				r.entries[i] = e
			}
		}
	}
	r.byName[cfg.Name] = e
}

// Available は登録済みプロバイダ名をソート済みで返す
func (r *Registry) Available() []string {
	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.cfg.Name)
	}
	sort.Strings(names)
	return names
}

// Default はデフォルトプロバイダ名を返す。
// 構成済みデフォルトが登録されていればそれを、なければ登録順の先頭を、
// 1件も登録がなければ None を返す。
func (r *Registry) Default() mo.Option[string] {
	if _, ok := r.byName[r.defaultName]; ok {
		return mo.Some(r.defaultName)
	}
	if len(r.entries) > 0 {
		return mo.Some(r.entries[0].cfg.Name)
	}
	return mo.None[string]()
}

// Dispatch は指定プロバイダ（空ならデフォルト）に生成を依頼する。
// いかなる障害も Degraded な Result として返し、決してエラーを返さない。
func (r *Registry) Dispatch(ctx context.Context, name, system, user string) Result {
	if len(r.entries) == 0 {
		return Result{
			Text:     "Error: no language model provider is configured. Please set an API key for at least one provider.",
			Provider: ProviderUnavailable,
			Degraded: true,
			Reason:   "no providers configured",
		}
	}

	resolved := name
	if resolved == "" {
		resolved = r.Default().OrElse("")
	}

	e, ok := r.byName[resolved]
	if !ok {
		providerUsed := resolved
		if providerUsed == "" {
			providerUsed = ProviderUnknown
		}
		available := strings.Join(r.Available(), ", ")
		return Result{
			Text:     fmt.Sprintf("Error: provider %q is not available. Available providers: %s.", resolved, available),
			Provider: providerUsed,
			Degraded: true,
			Reason:   fmt.Sprintf("provider not found: %s", resolved),
		}
	}

	text, err := e.completer.Complete(ctx, CompletionRequest{
		System:      system,
		User:        user,
		Model:       e.cfg.Model,
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: r.temperature,
	})
	if err != nil {
		r.logger.Error("provider call failed", "provider", resolved, "error", err)
		return Result{
			Text:     fmt.Sprintf("Error generating response via %s: %v", resolved, err),
			Provider: resolved,
			Degraded: true,
			Reason:   err.Error(),
		}
	}

	return Result{
		Text:     text,
		Provider: resolved,
	}
}
