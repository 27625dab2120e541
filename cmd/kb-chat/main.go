package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jinford/kb-chat/cmd/kb-chat/commands"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 構造化ログの設定
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:  "kb-chat",
		Usage: "ナレッジベース検索付きチャットアシスタント",
		Commands: []*cli.Command{
			{
				Name:  "document",
				Usage: "ドキュメント管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "add",
						Usage: "テキストファイルをコーパスへ取り込む",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "file",
								Usage:    "取り込むテキストファイルパス",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "name",
								Usage: "ソース名（省略時はファイル名）",
							},
						},
						Action: commands.DocumentAddAction,
					},
					{
						Name:  "count",
						Usage: "コーパス内のチャンク数を表示",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
						},
						Action: commands.DocumentCountAction,
					},
					{
						Name:  "clear",
						Usage: "コーパスの全チャンクを削除",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
						},
						Action: commands.DocumentClearAction,
					},
				},
			},
			{
				Name:  "query",
				Usage: "コーパスに対して類似検索を実行",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
					&cli.StringFlag{
						Name:     "text",
						Usage:    "検索クエリ",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "k",
						Usage: "取得件数（省略時は設定値）",
					},
				},
				Action: commands.QueryAction,
			},
			{
				Name:  "ask",
				Usage: "質問に対する根拠付き応答を生成",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
					&cli.StringFlag{
						Name:     "message",
						Usage:    "質問文",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "provider",
						Usage: "使用するプロバイダ名（省略時はデフォルト）",
					},
					&cli.StringFlag{
						Name:  "session",
						Usage: "セッションID（プロファイルの保存・解決に使用）",
					},
					&cli.StringSliceFlag{
						Name:  "grade",
						Usage: "ユーザーが担当する学年（複数指定可）",
					},
					&cli.StringFlag{
						Name:  "role",
						Usage: "ユーザーの役割",
					},
					&cli.IntFlag{
						Name:  "k",
						Usage: "検索に使うチャンク数（省略時は設定値）",
					},
				},
				Action: commands.AskAction,
			},
			{
				Name:  "status",
				Usage: "システムの状態を表示",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
				},
				Action: commands.StatusAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
