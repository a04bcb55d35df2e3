package internal

import (
	"fmt"
	"time"
)

type Config struct {
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	Host                 string        `env:"HOST,default=0.0.0.0"`
	GRPCPort             int           `env:"GRPC_PORT,default=4001"`
	WSPort               int           `env:"WS_PORT,default=4000"`
	JWTSecret            string        `env:"JWT_SECRET,required=true"`
	JWTIssuer            string        `env:"JWT_ISSUER,default=chat-relay"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	BufferSize           int           `env:"BUFFER_SIZE,default=1024"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=256"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=2s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s"`
	LowCapacityThreshold int           `env:"LOW_CAPACITY_THRESHOLD,default=10"`
	DefaultPageSize      int           `env:"DEFAULT_PAGE_SIZE,default=20"`
	MaxPageSize          int           `env:"MAX_PAGE_SIZE,default=50"`
	MaxContentLength     int           `env:"MAX_CONTENT_LENGTH,default=5000"`
	CharReplacement      string        `env:"CHARACTER_REPLACEMENT,default=*"`
	EnableCensor         bool          `env:"ENABLE_CENSOR,default=false"`
	PresenceShards       int           `env:"PRESENCE_SHARDS,default=32"`
	DebugInspectPort     int           `env:"DEBUG_INSPECT_PORT,default=0"`
}

const minSecretLength = 10

// Validate checks what struct tags cannot express.
func (c Config) Validate() error {
	if len(c.JWTSecret) < minSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minSecretLength)
	}
	if c.DefaultPageSize <= 0 || c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("page sizes must satisfy 0 < DEFAULT_PAGE_SIZE (%d) <= MAX_PAGE_SIZE (%d)",
			c.DefaultPageSize, c.MaxPageSize)
	}
	if c.PresenceShards <= 0 {
		return fmt.Errorf("PRESENCE_SHARDS must be positive, got %d", c.PresenceShards)
	}
	_, err := CharacterRune(c.CharReplacement)
	return err
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
