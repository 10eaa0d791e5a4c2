package internal

import (
	"testing"
	"time"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func loadConfig(t *testing.T, vars map[string]string) Config {
	t.Helper()
	for name, value := range vars {
		t.Setenv(name, value)
	}
	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	require.NoError(t, err)
	return config
}

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)
	config := loadConfig(t, map[string]string{"STORE_BACKEND": "badger", "LIVE": "false"})

	req.Equal(BackendBadger, config.StoreBackend)
	req.Equal(10, config.DefaultPageSize)
	req.Equal(100, config.MaxPageSize)
	req.Equal(10, config.LegacyScanWindow)
	req.Equal(10*time.Second, config.RequestTimeout)
	req.NoError(config.Validate())
}

func TestConfig_StorageTable(t *testing.T) {
	t.Run("should use the dev table unless live", func(t *testing.T) {
		config := loadConfig(t, map[string]string{
			"LIVE":               "false",
			"STORAGE_TABLE_LIVE": "chat",
			"STORAGE_TABLE_DEV":  "chatdev",
		})
		require.Equal(t, "chatdev", config.StorageTable())
	})

	t.Run("should use the live table when live", func(t *testing.T) {
		config := loadConfig(t, map[string]string{
			"LIVE":               "true",
			"STORAGE_TABLE_LIVE": "chat",
			"STORAGE_TABLE_DEV":  "chatdev",
		})
		require.Equal(t, "chat", config.StorageTable())
	})
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		StoreBackend:     BackendBadger,
		BadgerFilepath:   "/tmp/chat",
		StorageTableDev:  "chatdev",
		DefaultPageSize:  10,
		MaxPageSize:      100,
		LegacyScanWindow: 10,
	}
	require.NoError(t, valid.Validate())

	for name, mutate := range map[string]func(*Config){
		"unknown backend":         func(c *Config) { c.StoreBackend = "azure" },
		"bigtable without ids":    func(c *Config) { c.StoreBackend = BackendBigtable },
		"missing table":           func(c *Config) { c.StorageTableDev = "" },
		"default above max":       func(c *Config) { c.DefaultPageSize = 200 },
		"empty legacy scan":       func(c *Config) { c.LegacyScanWindow = 0 },
		"badger without filepath": func(c *Config) { c.BadgerFilepath = "" },
	} {
		t.Run(name, func(t *testing.T) {
			config := valid
			mutate(&config)
			require.Error(t, config.Validate())
		})
	}

	limits := valid.Limits()
	require.Equal(t, 10, limits.DefaultPageSize)
	require.Equal(t, 100, limits.MaxPageSize)
}
