package server

import (
	"net"
	"strconv"
	"time"
)

// Config controls the HTTP surface. Defaults match the local dev frontend.
type Config struct {
	Host string `envconfig:"HOST" split_words:"true" default:"0.0.0.0"`
	Port int    `envconfig:"PORT" split_words:"true" default:"8000"`
	// DefaultAccount is used when a request does not name an account.
	DefaultAccount  string        `envconfig:"DEFAULT_ACCOUNT" split_words:"true" default:"acct_demo"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"10s"`
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
