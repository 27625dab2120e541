package commands

import (
	"context"
	"fmt"

	"github.com/jinford/kb-chat/internal/app"
	"github.com/jinford/kb-chat/internal/core/ask"
	"github.com/samber/mo"
	"github.com/urfave/cli/v3"
)

// AskAction は質問に対する根拠付き応答を生成して表示する
func AskAction(ctx context.Context, cmd *cli.Command) error {
	ac, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer ac.Close()

	profile := mo.None[ask.UserProfile]()
	if grades := cmd.StringSlice("grade"); len(grades) > 0 || cmd.String("role") != "" {
		profile = mo.Some(ask.UserProfile{
			GradeLevels: grades,
			Role:        cmd.String("role"),
			SessionID:   cmd.String("session"),
		})
	}

	result, err := ac.Assistant.Ask(ctx, app.AskRequest{
		Message:   cmd.String("message"),
		Provider:  cmd.String("provider"),
		SessionID: cmd.String("session"),
		Profile:   profile,
		K:         int(cmd.Int("k")),
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	fmt.Printf("[%s]\n%s\n", result.Provider, result.Response)

	if len(result.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range result.Sources {
			if distance, ok := src.Distance.Get(); ok {
				fmt.Printf("  - %s#%d (distance %.3f)\n", src.SourceName, src.ChunkIndex, distance)
			} else {
				fmt.Printf("  - %s#%d\n", src.SourceName, src.ChunkIndex)
			}
		}
	}

	return nil
}
