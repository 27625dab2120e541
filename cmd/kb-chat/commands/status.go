package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
)

// StatusAction はシステムの状態（コーパス・プロバイダ構成）を表示する
func StatusAction(ctx context.Context, cmd *cli.Command) error {
	ac, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer ac.Close()

	health, err := ac.Assistant.CheckHealth(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	fmt.Printf("RAG enabled:      %t\n", health.RAGEnabled)
	fmt.Printf("Document chunks:  %d\n", health.DocumentCount)
	fmt.Printf("Default provider: %s\n", health.DefaultProvider.OrElse("(none)"))

	if len(health.Providers) == 0 {
		fmt.Println("Providers:        (none configured)")
	} else {
		fmt.Printf("Providers:        %s\n", strings.Join(health.Providers, ", "))
	}

	return nil
}
