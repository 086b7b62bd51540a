package config

const (
	defaultBind              = "127.0.0.1:8080"
	defaultMaxUploadBytes    = 20 << 20
	defaultSessionTTLSeconds = 1800
	defaultLogLevel          = "info"
	defaultLogFormat         = "auto"
	defaultPreviewFit        = 512
	defaultMaxPixels         = 64 << 20
	defaultSimulatedDelayMS  = 1500
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Server: Server{
			Bind:              defaultBind,
			MaxUploadBytes:    defaultMaxUploadBytes,
			SessionTTLSeconds: defaultSessionTTLSeconds,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Preview: Preview{
			Fit: defaultPreviewFit,
		},
		Pipeline: Pipeline{
			MaxPixels: defaultMaxPixels,
		},
		Media: Media{
			SimulatedDelayMS: defaultSimulatedDelayMS,
		},
	}
}
