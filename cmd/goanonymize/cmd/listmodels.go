package cmd

import (
	"github.com/spf13/cobra"
)

var listModelsCmd = &cobra.Command{
	Use:   "list-models",
	Short: "List all registered models",
	Long: `List-models displays every model registered with the binary, in
registration order, along with the table and relations it rewrites.

Example:
  goanonymize list-models`,
	RunE: runListModels,
}

func init() {
	rootCmd.AddCommand(listModelsCmd)
}

func runListModels(cmd *cobra.Command, args []string) error {
	types := registry.Discover()
	if len(types) == 0 {
		cmd.Println("No models registered")
		return nil
	}

	cmd.Printf("Registered models:\n\n")

	for i, t := range types {
		cmd.Printf("%d. %s\n", i+1, t.Name)
		cmd.Printf("   Table:         %s\n", t.Table)
		cmd.Printf("   Primary Key:   %s\n", t.PrimaryKey)
		cmd.Printf("   Scope:         %s\n", describeScope(t))
		cmd.Printf("   Relations:     %s\n", describeRelations(t))

		if i < len(types)-1 {
			cmd.Println()
		}
	}

	cmd.Printf("\nTotal: %d model(s)\n", len(types))
	return nil
}
