package commands

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// IdsCmd represents the ids command
var IdsCmd = &cobra.Command{
	Use:   "ids <identity-attr>",
	Short: "List every identifier of an entity type",
	Long: `ids — List every existing identifier of the entity type addressed by
the given identity attribute.

Native-id entity types are discriminated by their first non-identity
attribute; an entity with only its identity populated does not appear.

Examples:
  facet ids user/id`,
	Args: cobra.ExactArgs(1),
	RunE: runIds,
}

func runIds(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	resolver, conn, err := resolverFor(env, args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	snap, err := conn.ReadSnapshot(ctx)
	if err != nil {
		return err
	}
	defer snap.Close()

	idents, err := resolver.AllIdents(ctx, snap)
	if err != nil {
		return err
	}

	pterm.Info.Printf("%d identifiers for %s\n", len(idents), args[0])
	for _, ident := range idents {
		pterm.Printf("  %v\n", ident)
	}
	return nil
}
