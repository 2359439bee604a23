package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/facet/catalog"
	"github.com/teranos/facet/config"
	"github.com/teranos/facet/errors"
	"github.com/teranos/facet/logger"
	"github.com/teranos/facet/store"
	"github.com/teranos/facet/txn"
)

// reconciler is the process-wide id source shared by every save.
var reconciler = txn.NewReconciler()

// environment bundles everything a command needs: the loaded config, the
// attribute catalog, and one open connection per catalog partition.
type environment struct {
	cfg    *config.Config
	cat    *catalog.Catalog
	routes map[string]store.Connection
}

// loadEnvironment loads config (honoring --config), parses the catalog, and
// opens the partition databases.
func loadEnvironment(cmd *cobra.Command) (*environment, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, errors.Wrap(err, "load configuration")
	}

	cat, err := catalog.LoadFile(cfg.Catalog.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "load catalog %s", cfg.Catalog.Path)
	}

	routes := make(map[string]store.Connection)
	for _, partition := range cat.Partitions() {
		conn, err := store.Open(cfg.DatabasePath(partition), partition, cat, logger.Logger)
		if err != nil {
			closeRoutes(routes)
			return nil, errors.Wrapf(err, "open partition %q", partition)
		}
		routes[partition] = conn
	}

	return &environment{cfg: cfg, cat: cat, routes: routes}, nil
}

func (e *environment) Close() {
	closeRoutes(e.routes)
}

func closeRoutes(routes map[string]store.Connection) {
	for _, conn := range routes {
		conn.Close()
	}
}
