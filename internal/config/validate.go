package config

import (
	"errors"
	"fmt"
	"net"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	return errors.Join(
		c.validateServer(),
		c.validateLogging(),
		c.validatePipeline(),
	)
}

func (c *Config) validateServer() error {
	var errs []error
	if _, _, err := net.SplitHostPort(c.Server.Bind); err != nil {
		errs = append(errs, fmt.Errorf("server.bind %q: %w", c.Server.Bind, err))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_bytes must be positive, got %d", c.Server.MaxUploadBytes))
	}
	if c.Server.SessionTTLSeconds <= 0 {
		errs = append(errs, fmt.Errorf("server.session_ttl_seconds must be positive, got %d", c.Server.SessionTTLSeconds))
	}
	return errors.Join(errs...)
}

func (c *Config) validateLogging() error {
	var errs []error
	switch c.Logging.Level {
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	case "debug", "info", "warn", "warning", "error":
	}
	switch c.Logging.Format {
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not one of auto, json, text", c.Logging.Format))
	case "auto", "json", "text":
	}
	return errors.Join(errs...)
}

func (c *Config) validatePipeline() error {
	var errs []error
	if c.Pipeline.Workers < 0 {
		errs = append(errs, fmt.Errorf("pipeline.workers must not be negative, got %d", c.Pipeline.Workers))
	}
	if c.Pipeline.MaxPixels <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.max_pixels must be positive, got %d", c.Pipeline.MaxPixels))
	}
	if c.Preview.Fit < 0 {
		errs = append(errs, fmt.Errorf("preview.fit must not be negative, got %d", c.Preview.Fit))
	}
	return errors.Join(errs...)
}
