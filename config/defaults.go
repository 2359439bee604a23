package config

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Catalog defaults
	v.SetDefault("catalog.path", "catalog.toml")

	// Batch defaults
	v.SetDefault("batch.max_size", 1000)      // Hard limit, exceeding fails before any query
	v.SetDefault("batch.warn_threshold", 100) // Advisory, exceeding only logs a warning

	// Partition defaults
	v.SetDefault("partition.default", "main")
	v.SetDefault("partitions", map[string]string{"main": "facet.db"})

	// Logging defaults
	v.SetDefault("log.json", false)
}

// BindSensitiveEnvVars explicitly binds configuration to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("catalog.path", "FACET_CATALOG_PATH")
	v.BindEnv("partition.default", "FACET_PARTITION_DEFAULT")
}
