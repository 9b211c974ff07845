// cmd/tools/assistant-cli/commands/registry.go
package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"banking-assistant/pkg/registry"
)

var (
	registryPath string
	updateID     string
	updateField  string
	updateValue  string
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect and maintain the activity registry",
}

var registryValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check task types, schemas and timeouts",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		if len(reg.Activities) == 0 {
			return fmt.Errorf("registry contains no activities")
		}
		if errs := reg.Validate(); len(errs) > 0 {
			for _, e := range errs {
				fmt.Fprintln(cmd.ErrOrStderr(), e)
			}
			return fmt.Errorf("registry validation failed with %d problems", len(errs))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registry validation passed. Found %d activities.\n", len(reg.Activities))
		return nil
	},
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered activities",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TASK TYPE\tVERSION\tSTATUS\tTIMEOUT\tRETRIES")
		for _, a := range reg.Activities {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", a.TaskType, a.Version, a.ImplementationStatus, a.Timeout, a.Retries)
		}
		return w.Flush()
	},
}

const registryUpdateExample = `  assistant-cli registry update --id assistant.answer.generate --field status --value verified
  assistant-cli registry update --id assistant.context.enrich --field timeout --value 45s`

var registryUpdateCmd = &cobra.Command{
	Use:     "update",
	Short:   "Update one field of an activity",
	Example: registryUpdateExample,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		if err := reg.Update(updateID, updateField, updateValue); err != nil {
			return err
		}
		if err := reg.Save(registryPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated activity %s, field %s to %s\n", updateID, updateField, updateValue)
		return nil
	},
}

func init() {
	registryCmd.PersistentFlags().StringVar(&registryPath, "path", "configs/activity-registry.json", "path to registry file")

	registryUpdateCmd.Flags().StringVar(&updateID, "id", "", "activity ID (required)")
	registryUpdateCmd.Flags().StringVar(&updateField, "field", "", "field to update: status, version, displayName, description, timeout, retries (required)")
	registryUpdateCmd.Flags().StringVar(&updateValue, "value", "", "new value (required)")
	registryUpdateCmd.MarkFlagRequired("id")
	registryUpdateCmd.MarkFlagRequired("field")
	registryUpdateCmd.MarkFlagRequired("value")

	registryCmd.AddCommand(registryValidateCmd, registryListCmd, registryUpdateCmd)
	rootCmd.AddCommand(registryCmd)
}
