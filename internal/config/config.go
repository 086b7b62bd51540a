package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server contains HTTP server configuration.
type Server struct {
	Bind              string `toml:"bind"`
	MaxUploadBytes    int64  `toml:"max_upload_bytes"`
	SessionTTLSeconds int    `toml:"session_ttl_seconds"`
}

// SessionTTL returns SessionTTLSeconds as a time.Duration.
func (s Server) SessionTTL() time.Duration {
	return time.Duration(s.SessionTTLSeconds) * time.Second
}

// Logging contains logger configuration, see logger.Options.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Preview contains preview rendering configuration.
type Preview struct {
	// Longest side of the preview in pixels, 0 disables downscaling.
	Fit int `toml:"fit"`
}

// Pipeline contains conversion configuration.
type Pipeline struct {
	// Goroutines used by the grayscale transform, 0 means GOMAXPROCS.
	Workers int `toml:"workers"`

	// Largest accepted width*height of a source image.
	MaxPixels int64 `toml:"max_pixels"`
}

// Media contains configuration for the placeholder media lookups.
type Media struct {
	SimulatedDelayMS int `toml:"simulated_delay_ms"`
}

// SimulatedDelay returns SimulatedDelayMS as a time.Duration.
//
// 0 means no delay.
func (m Media) SimulatedDelay() time.Duration {
	if m.SimulatedDelayMS <= 0 {
		return -1
	}
	return time.Duration(m.SimulatedDelayMS) * time.Millisecond
}

// Config is the full img2gray configuration.
type Config struct {
	Server   Server   `toml:"server"`
	Logging  Logging  `toml:"logging"`
	Preview  Preview  `toml:"preview"`
	Pipeline Pipeline `toml:"pipeline"`
	Media    Media    `toml:"media"`
}

// DefaultConfigPath returns the expanded default config file path.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/img2gray/config.toml")
}

// Load reads the config file at path, or the default path if path is empty.
//
// A missing file is not an error: defaults are used and exists is false.
func Load(path string) (cfg *Config, resolvedPath string, exists bool, err error) {
	c := Default()

	resolvedPath, exists, err = resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&c); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	c.normalize()
	if err := c.Validate(); err != nil {
		return nil, "", false, err
	}
	return &c, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		path = defaultPath
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %q is a directory", expanded)
	}
	return expanded, true, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// CreateSample writes the sample configuration to path.
//
// Unless overwrite is true, it refuses to replace an existing file.
func CreateSample(path string, overwrite bool) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(expanded); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(expanded, flags, 0o644)
	if err != nil {
		return fmt.Errorf("create sample config: %w", err)
	}
	if _, err := file.WriteString(sampleConfig); err != nil {
		file.Close()
		return fmt.Errorf("write sample config: %w", err)
	}
	return file.Close()
}
