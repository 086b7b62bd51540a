// Package config loads, normalizes, and validates img2gray configuration.
//
// Only the CLI and the HTTP server read configuration. The conversion
// pipeline itself takes plain arguments.
package config
