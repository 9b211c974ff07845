// cmd/tools/assistant-cli/commands/ask.go
package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"banking-assistant/internal/app"
	"banking-assistant/internal/pipeline"
)

var askSession string

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question end to end",
	Long: `Runs the full pipeline against the configured upstream sources and
generation endpoint and prints the response.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	addLocationFlags(askCmd)
	askCmd.Flags().StringVar(&askSession, "session", "cli", "session ID attached to the interaction record")
	rootCmd.AddCommand(askCmd)
}

// startApp wires the pipeline with a single connection attempt per store.
func startApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.New(ctx, cfg, newLogger(), app.WithConnectAttempts(1, 0))
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	application, err := startApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close(context.Background())

	resp, err := application.Service.Answer(ctx, pipeline.Query{
		Question:     strings.Join(args, " "),
		SessionID:    askSession,
		UserLocation: userLocation(cmd),
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), resp)
}
