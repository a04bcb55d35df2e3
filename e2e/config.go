package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config points the suite at a running relay. Every key is read with the
// E2E_ prefix. The token must belong to a user already in the relay's directory.
type Config struct {
	RelayAddr  string        `envconfig:"RELAY_ADDR"`
	WSURL      string        `envconfig:"WS_URL" default:"ws://localhost:4000/ws"`
	Token      string        `envconfig:"TOKEN"`
	AckTimeout time.Duration `envconfig:"ACK_TIMEOUT" default:"5s"`
	// Dumps full request/response bodies as JSON
	DebugJSON bool `envconfig:"DEBUG_JSON" default:"false"`
	Colours   bool `envconfig:"COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("e2e", &cfg)
	return cfg, err
}
