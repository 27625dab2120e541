package logger

import (
	"log/slog"
	"os"
)

// Config はログ出力の設定。CLIの標準出力はコマンド結果用に確保するため、
// ログはすべて標準エラーへ書き出す。
type Config struct {
	Level  slog.Level
	Format string // "json" or "text"
}

// DefaultConfig は既定のログ設定（INFO以上をJSONで出力）を返す
func DefaultConfig() Config {
	return Config{
		Level:  slog.LevelInfo,
		Format: "json",
	}
}

// New は設定に従ったロガーを作成し、slogのデフォルトにも設定する
func New(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.Level,
	}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default: // "json"
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
