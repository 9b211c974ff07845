// cmd/tools/assistant-cli/commands/prompt.go
package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var promptSections bool

var promptCmd = &cobra.Command{
	Use:   "prompt <question>",
	Short: "Print the prompt assembled for a question",
	Long: `Analyzes the question and fetches its data from the configured upstream
sources, then prints the prompt the generation service would receive.
The generator is not called and nothing is recorded.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPrompt,
}

func init() {
	addLocationFlags(promptCmd)
	promptCmd.Flags().BoolVar(&promptSections, "sections", false, "print the prompt sections as JSON")
	rootCmd.AddCommand(promptCmd)
}

func runPrompt(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	application, err := startApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close(context.Background())

	svc := application.Service
	intent, err := svc.Analyze(strings.Join(args, " "), userLocation(cmd))
	if err != nil {
		return err
	}
	payload := svc.Prompt(intent, svc.Enrich(ctx, intent), nil)

	if promptSections {
		return printJSON(cmd.OutOrStdout(), payload)
	}
	fmt.Fprintln(cmd.OutOrStdout(), payload.Prompt)
	fmt.Fprintf(cmd.ErrOrStderr(), "estimated tokens: %d, truncated: %t\n", payload.EstimatedTokens, payload.Truncated)
	return nil
}
