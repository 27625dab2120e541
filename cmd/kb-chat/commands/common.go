package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/kb-chat/internal/app"
	"github.com/jinford/kb-chat/internal/platform/config"
	"github.com/jinford/kb-chat/internal/platform/container"
	"github.com/jinford/kb-chat/internal/platform/logger"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Config    *config.Config
	Container *container.Container
	Assistant *app.Assistant
}

// NewAppContext は設定ファイルを読み込み、依存を初期化して AppContext を作成する
func NewAppContext(ctx context.Context, envFile string) (*AppContext, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.New(logger.DefaultConfig())

	cont, err := container.New(ctx, cfg, container.WithLogger(appLogger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize container: %w", err)
	}

	assistant := app.NewAssistant(
		cont.Index,
		cont.Retrieval,
		cont.Ask,
		cont.Registry,
		cont.Sessions,
		app.WithAssistantLogger(appLogger),
	)

	return &AppContext{
		Config:    cfg,
		Container: cont,
		Assistant: assistant,
	}, nil
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close() {
	if ac.Container != nil {
		ac.Container.Close()
	}
}

// Logger はAppContextのロガーを返す
func (ac *AppContext) Logger() *slog.Logger {
	if ac.Container != nil {
		return ac.Container.Logger()
	}
	return slog.Default()
}
