package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
)

// DocumentAddAction はテキストファイルをコーパスへ取り込む
func DocumentAddAction(ctx context.Context, cmd *cli.Command) error {
	ac, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer ac.Close()

	filePath := cmd.String("file")
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	sourceName := cmd.String("name")
	if sourceName == "" {
		sourceName = filepath.Base(filePath)
	}

	count, err := ac.Assistant.AddDocument(ctx, string(data), sourceName)
	if err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}

	fmt.Printf("Added %d chunks from %s\n", count, sourceName)
	return nil
}

// DocumentCountAction はコーパス内のチャンク数を表示する
func DocumentCountAction(ctx context.Context, cmd *cli.Command) error {
	ac, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer ac.Close()

	count, err := ac.Assistant.DocumentCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to count documents: %w", err)
	}

	fmt.Printf("Document chunks: %d\n", count)
	return nil
}

// DocumentClearAction はコーパスの全チャンクを削除する
func DocumentClearAction(ctx context.Context, cmd *cli.Command) error {
	ac, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer ac.Close()

	if err := ac.Assistant.ClearAll(ctx); err != nil {
		return fmt.Errorf("failed to clear corpus: %w", err)
	}

	fmt.Println("All documents cleared")
	return nil
}
