// Package config loads the storage engine's tunables (page size, buffer
// pool frame count, replacement strategy) from a YAML file, the way the
// teacher codebase's config layer loads server/storage settings.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/coredbio/reldb/internal/bufferpool"
)

// StorageConfig holds the on-disk tunables for one engine instance.
type StorageConfig struct {
	PageSize  int    `mapstructure:"page_size"`
	PoolFrames int   `mapstructure:"pool_frames"`
	Strategy  string `mapstructure:"strategy"`
}

// Config is the root YAML document.
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
}

const (
	defaultPoolFrames = 10
	defaultStrategy   = "lru"
)

// Load reads path as YAML and fills in defaults for any field the file
// leaves unset.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("storage.page_size", 4096)
	v.SetDefault("storage.pool_frames", defaultPoolFrames)
	v.SetDefault("storage.strategy", defaultStrategy)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config %q: %w", path, err)
	}
	return &cfg, nil
}

// BufferStrategy maps the configured strategy name to a
// bufferpool.Strategy tag, defaulting to LRU for anything unrecognized
// since that is the only policy the core actually implements.
func (c *Config) BufferStrategy() bufferpool.Strategy {
	switch c.Storage.Strategy {
	case "fifo":
		return bufferpool.FIFO
	case "lru_k":
		return bufferpool.LRUK
	case "clock":
		return bufferpool.CLOCK
	case "lfu":
		return bufferpool.LFU
	default:
		return bufferpool.LRU
	}
}
