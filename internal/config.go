package internal

import (
	"chat-api/repositories"
	"fmt"
	"time"
)

const (
	BackendBadger   = "badger"
	BackendBigtable = "bigtable"
)

type Config struct {
	StoreBackend string `env:"STORE_BACKEND,default=badger"`

	BadgerFilepath string `env:"BADGER_FILEPATH,default=./data/chat"`

	BigtableProject         string `env:"BIGTABLE_PROJECT"`
	BigtableInstance        string `env:"BIGTABLE_INSTANCE"`
	BigtableCredentialsFile string `env:"BIGTABLE_CREDENTIALS_FILE"`
	BigtableEmulatorHost    string `env:"BIGTABLE_EMULATOR_HOST"`

	StorageTableLive string `env:"STORAGE_TABLE_LIVE,default=chat"`
	StorageTableDev  string `env:"STORAGE_TABLE_DEV,default=chatdev"`
	Live             bool   `env:"LIVE,default=false"`

	DefaultPageSize  int `env:"DEFAULT_PAGE_SIZE,default=10"`
	MaxPageSize      int `env:"MAX_PAGE_SIZE,default=100"`
	LegacyScanWindow int `env:"LEGACY_SCAN_WINDOW,default=10"`

	HTTPLegacyStatus bool          `env:"HTTP_LEGACY_STATUS,default=false"`
	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT,default=10s"`
	Host             string        `env:"HOST,default=0.0.0.0"`
	Port             int           `env:"PORT,default=1337"`
	LogLevel         string        `env:"LOG_LEVEL,default=INFO"`
	DebugPort        int           `env:"DEBUG_PORT,default=8081"`
}

// StorageTable is the table the server reads and writes.
func (c Config) StorageTable() string {
	if c.Live {
		return c.StorageTableLive
	}
	return c.StorageTableDev
}

func (c Config) Limits() repositories.Limits {
	return repositories.Limits{
		DefaultPageSize:  c.DefaultPageSize,
		MaxPageSize:      c.MaxPageSize,
		LegacyScanWindow: c.LegacyScanWindow,
	}
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate rejects combinations the server cannot start with.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendBadger:
		if c.BadgerFilepath == "" {
			return fmt.Errorf("BADGER_FILEPATH is required with the %s backend", BackendBadger)
		}
	case BackendBigtable:
		if c.BigtableProject == "" || c.BigtableInstance == "" {
			return fmt.Errorf("BIGTABLE_PROJECT and BIGTABLE_INSTANCE are required with the %s backend", BackendBigtable)
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %s or %s, got %q", BackendBadger, BackendBigtable, c.StoreBackend)
	}
	if c.StorageTable() == "" {
		return fmt.Errorf("no storage table configured (LIVE=%t)", c.Live)
	}
	if c.DefaultPageSize <= 0 || c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("page sizes must satisfy 0 < DEFAULT_PAGE_SIZE <= MAX_PAGE_SIZE, got %d and %d",
			c.DefaultPageSize, c.MaxPageSize)
	}
	if c.LegacyScanWindow <= 0 {
		return fmt.Errorf("LEGACY_SCAN_WINDOW must be positive, got %d", c.LegacyScanWindow)
	}
	return nil
}
