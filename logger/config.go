package logger

import "gemini-proxy/config"

// ConfigAdapter adapts config.Config to implement LoggerConfig
type ConfigAdapter struct {
	config *config.Config
}

// NewConfigAdapter creates a new ConfigAdapter
func NewConfigAdapter(cfg *config.Config) LoggerConfig {
	return &ConfigAdapter{config: cfg}
}

// GetMinLogLevel returns the minimum log level. Request payload printing
// implies debug verbosity; everything else logs at INFO and above.
func (c *ConfigAdapter) GetMinLogLevel() Level {
	if c.config != nil && c.config.PrintGeminiRequests {
		return DEBUG
	}
	return INFO
}

// ShouldMaskAPIKeys returns whether API keys should be masked in logs
func (c *ConfigAdapter) ShouldMaskAPIKeys() bool {
	// Always mask API keys for security
	return true
}
