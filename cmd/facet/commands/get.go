package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/facet/errors"
	"github.com/teranos/facet/logger"
	"github.com/teranos/facet/resolve"
	"github.com/teranos/facet/store"
)

// GetCmd represents the get command
var GetCmd = &cobra.Command{
	Use:   "get <identity-attr> <ident>...",
	Short: "Fetch entities through a generated resolver",
	Long: `get — Resolve identifier values through the generated fetch resolver
for an identity attribute and print the projected records as JSON.

Absent identifiers produce empty records. Enum attributes print as bare
symbolic values.

Examples:
  facet get user/id U1 U2
  facet get user/id U1 --project user/name --project user/email`,
	Args: cobra.MinimumNArgs(2),
	RunE: runGet,
}

var getProjectFlag []string

func init() {
	GetCmd.Flags().StringArrayVar(&getProjectFlag, "project", nil, "Attribute to project (repeatable; default all)")
}

func runGet(cmd *cobra.Command, args []string) error {
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

	idents := make([]any, len(args)-1)
	for i, arg := range args[1:] {
		idents[i] = arg
	}
	projection := make([]any, len(getProjectFlag))
	for i, attr := range getProjectFlag {
		projection[i] = attr
	}

	records, err := resolver.Fetch(ctx, snap, idents, projection)
	if err != nil {
		return err
	}

	output, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.Wrap(err, "format records")
	}
	fmt.Println(string(output))
	return nil
}

// resolverFor generates the partition's resolvers and picks the one serving
// the identity attribute, along with its partition connection.
func resolverFor(env *environment, identityAttr string) (resolve.Resolver, store.Connection, error) {
	attr, ok := env.cat.Get(identityAttr)
	if !ok {
		return nil, nil, errors.Newf("unknown attribute %q", identityAttr)
	}

	gen := resolve.NewGenerator(env.cat, env.cfg.ResolverLimits(), logger.Logger)
	resolvers, err := gen.Generate(attr.Partition)
	if err != nil {
		return nil, nil, err
	}
	for _, r := range resolvers {
		if r.IdentityAttr() == identityAttr {
			return r, env.routes[attr.Partition], nil
		}
	}
	return nil, nil, errors.Newf("attribute %q is not an identity attribute", identityAttr)
}
