package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/facet/cmd/facet/commands"
	"github.com/teranos/facet/logger"
)

var rootCmd = &cobra.Command{
	Use:   "facet",
	Short: "facet - Attribute-model persistence layer",
	Long: `facet - Declarative attribute catalog over an embedded fact store.

facet compiles per-request edit deltas into transactions against an
embedded triple-oriented store and synthesizes query resolvers that
project stored facts back into the attribute model.

Available commands:
  schema  - Synthesize and apply the storage schema from the catalog
  save    - Apply an edit delta from a JSON file
  get     - Fetch entities through a generated resolver
  ids     - List every identifier of an entity type
  version - Show version information

Examples:
  facet schema                       # Apply schemas for all partitions
  facet save delta.json              # Apply a delta
  facet get user/id U1 U2            # Fetch two users
  facet ids user/id                  # List all user identifiers`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonLogs); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit structured JSON logs")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a facet.toml config file")

	rootCmd.AddCommand(commands.SchemaCmd)
	rootCmd.AddCommand(commands.SaveCmd)
	rootCmd.AddCommand(commands.GetCmd)
	rootCmd.AddCommand(commands.IdsCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
