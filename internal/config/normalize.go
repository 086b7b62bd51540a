package config

import (
	"net"
	"os"
	"strings"
)

func (c *Config) normalize() {
	c.normalizeServer()
	c.normalizeLogging()
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	// PORT is set by container platforms such as Cloud Run.
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		c.Server.Bind = net.JoinHostPort("", port)
	}
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}
