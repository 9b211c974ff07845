// cmd/tools/assistant-cli/commands/root.go
package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"banking-assistant/internal/common/config"
	"banking-assistant/internal/common/logger"
	"banking-assistant/internal/models"
)

var (
	cfgFile string
	verbose bool
	lat     float64
	lon     float64
)

var rootCmd = &cobra.Command{
	Use:   "assistant-cli",
	Short: "Banking assistant command line tools",
	Long: `assistant-cli runs the query pipeline locally: classify a question,
inspect the prompt built for it, ask it end to end, and maintain the
activity registry the workers validate their input against.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults to configs/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadFromFile(cfgFile)
	}
	return config.Load()
}

// newLogger logs to stderr so command output stays machine readable.
func newLogger() logger.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	return logger.NewZapAdapter(logger.New(level, "console", "stderr"))
}

func addLocationFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&lat, "lat", 0, "caller latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "caller longitude")
}

// userLocation returns the --lat/--lon pair when either flag was given.
func userLocation(cmd *cobra.Command) *models.Coordinates {
	if !cmd.Flags().Changed("lat") && !cmd.Flags().Changed("lon") {
		return nil
	}
	return &models.Coordinates{Latitude: lat, Longitude: lon}
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
