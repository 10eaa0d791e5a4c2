package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// CHAT_API_URL points at a running server; the suites are skipped without it
	APIURL string `envconfig:"CHAT_API_URL"`
	// E2E_DEBUG_BODY dumps full HTTP response bodies
	DebugBody bool `envconfig:"E2E_DEBUG_BODY" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
	// E2E_LEGACY_STATUS tells the suites the server answers every failure with 400
	LegacyStatus bool `envconfig:"E2E_LEGACY_STATUS" default:"false"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
