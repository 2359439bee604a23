// Package config loads facet configuration via Viper: batch limits for the
// resolver layer, the default partition, and per-partition database paths.
package config

import (
	"fmt"

	"github.com/teranos/facet/resolve"
)

// Config is the facet core configuration.
type Config struct {
	Catalog    CatalogConfig     `mapstructure:"catalog"`
	Batch      BatchConfig       `mapstructure:"batch"`
	Partition  PartitionConfig   `mapstructure:"partition"`
	Partitions map[string]string `mapstructure:"partitions"`
	Log        LogConfig         `mapstructure:"log"`
}

// CatalogConfig locates the attribute catalog definition.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// BatchConfig bounds resolver batch sizes.
type BatchConfig struct {
	MaxSize       int `mapstructure:"max_size"`
	WarnThreshold int `mapstructure:"warn_threshold"`
}

// PartitionConfig names the partition used when a request does not specify
// one.
type PartitionConfig struct {
	Default string `mapstructure:"default"`
}

// LogConfig controls logger initialization.
type LogConfig struct {
	JSON bool `mapstructure:"json"`
}

// ResolverLimits converts the batch configuration into resolver limits,
// falling back to the stock limits for zero values.
func (c *Config) ResolverLimits() resolve.Limits {
	limits := resolve.DefaultLimits()
	if c.Batch.MaxSize > 0 {
		limits.MaxBatchSize = c.Batch.MaxSize
	}
	if c.Batch.WarnThreshold > 0 {
		limits.WarnBatchSize = c.Batch.WarnThreshold
	}
	return limits
}

// DefaultPartition returns the configured default partition name.
func (c *Config) DefaultPartition() string {
	if c.Partition.Default == "" {
		return "main"
	}
	return c.Partition.Default
}

// DatabasePath returns the database path routed to the partition.
func (c *Config) DatabasePath(partition string) string {
	if path, ok := c.Partitions[partition]; ok {
		return path
	}
	return fmt.Sprintf("facet-%s.db", partition)
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Catalog: %s, Batch: {MaxSize: %d, WarnThreshold: %d}, Partition: %s}",
		c.Catalog.Path, c.Batch.MaxSize, c.Batch.WarnThreshold, c.DefaultPartition())
}
