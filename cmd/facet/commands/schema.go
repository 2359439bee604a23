package commands

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/facet/schema"
)

// SchemaCmd represents the schema command
var SchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Synthesize and apply the storage schema from the catalog",
	Long: `schema — Synthesize the backend schema from the attribute catalog and
apply it to every partition database.

Reapplying an identical schema is a no-op. Incompatible changes to an
already-installed attribute fail with a diff of the conflicts.

Examples:
  facet schema                       # Apply all partitions
  facet schema --partition people    # Apply one partition`,
	RunE: runSchema,
}

var schemaPartitionFlag string

func init() {
	SchemaCmd.Flags().StringVar(&schemaPartitionFlag, "partition", "", "Apply only this partition")
}

func runSchema(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	partitions := env.cat.Partitions()
	if schemaPartitionFlag != "" {
		partitions = []string{schemaPartitionFlag}
	}

	ctx := context.Background()
	for _, partition := range partitions {
		s := schema.Synthesize(partition, env.cat)
		conn, ok := env.routes[partition]
		if !ok {
			pterm.Warning.Printf("No database routed for partition %q, skipping\n", partition)
			continue
		}
		if err := conn.ApplySchema(ctx, s); err != nil {
			pterm.Error.Printf("Partition %q: %v\n", partition, err)
			return err
		}
		pterm.Success.Printf("Partition %q: %d attributes, %d enum seeds\n",
			partition, len(s.Attrs), len(s.Seeds))
	}
	return nil
}
