package main

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	WSURL      string        `envconfig:"WS_URL" default:"ws://localhost:4000/ws"`
	GRPCAddr   string        `envconfig:"GRPC_ADDR" default:"localhost:4001"`
	Token      string        `envconfig:"TOKEN" required:"true"`
	Room       string        `envconfig:"ROOM" required:"true"`
	AckTimeout time.Duration `envconfig:"ACK_TIMEOUT" default:"5s"`
	// CHATCTL_COLOURS enables colorized output
	Colours bool `envconfig:"COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("chatctl", &cfg)
	return cfg, err
}
