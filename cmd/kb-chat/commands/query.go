package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// QueryAction はコーパスに対する類似検索の結果を表示する
func QueryAction(ctx context.Context, cmd *cli.Command) error {
	ac, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer ac.Close()

	results, err := ac.Assistant.Query(ctx, cmd.String("text"), int(cmd.Int("k")))
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No matching chunks found")
		return nil
	}

	for i, r := range results {
		fmt.Printf("--- [%d] %s#%d", i+1, r.SourceName, r.ChunkIndex)
		if distance, ok := r.Distance.Get(); ok {
			fmt.Printf(" (distance %.3f)", distance)
		}
		fmt.Printf("\n%s\n", r.Text)
	}

	return nil
}
