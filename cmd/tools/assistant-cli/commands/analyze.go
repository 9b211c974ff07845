// cmd/tools/assistant-cli/commands/analyze.go
package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"banking-assistant/internal/analyzer"
	"banking-assistant/internal/pipeline"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <question>",
	Short: "Classify a question and print the extracted intent",
	Long:  "Runs only the query analyzer. No upstream source is contacted.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnalyze,
}

func init() {
	addLocationFlags(analyzeCmd)
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	svc := pipeline.NewService(analyzer.New(), nil, nil, nil, "", newLogger())
	intent, err := svc.Analyze(strings.Join(args, " "), userLocation(cmd))
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), intent)
}
