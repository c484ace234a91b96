package config

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"gemini-proxy/circuitbreaker"
)

// Config represents the proxy configuration - all settings from .env
type Config struct {
	Port string `json:"port"`

	// Gemini upstream configuration. Multiple endpoints are supported for
	// failover (comma-separated in GEMINI_ENDPOINT).
	GeminiEndpoints []string `json:"gemini_endpoints"`
	GeminiAPIKey    string   `json:"gemini_api_key"`

	// DefaultModel is used when a request arrives without a model name.
	DefaultModel string `json:"default_model"`

	// InnerThoughtsInArgs injects the reserved inner_thoughts parameter into
	// every tool schema so reasoning travels as a function argument, and
	// strips it back out of responses.
	InnerThoughtsInArgs bool `json:"inner_thoughts_in_args"`

	// FillerPaddingEnabled inserts synthetic model turns between function
	// results and user messages, which the Gemini API otherwise rejects.
	FillerPaddingEnabled bool `json:"filler_padding_enabled"`

	// Debug settings
	PrintGeminiRequests bool `json:"print_gemini_requests"` // Print fully-built Gemini payloads to logs

	// Tool description overrides (loaded from tools_override.yaml)
	ToolDescriptions map[string]string `json:"tool_descriptions"`

	// Circuit breaker configuration and health tracking
	CircuitBreaker circuitbreaker.Config         `json:"circuit_breaker"`
	Health         *circuitbreaker.HealthManager `json:"-"`

	// Endpoint rotation state (not serialized)
	endpointIndex int        `json:"-"`
	mutex         sync.Mutex `json:"-"`
}

// GetDefaultConfig returns a default configuration for testing
func GetDefaultConfig() *Config {
	cfg := &Config{
		Port:                 "3456",
		GeminiEndpoints:      []string{"https://generativelanguage.googleapis.com"},
		DefaultModel:         "gemini-1.5-pro",
		InnerThoughtsInArgs:  true,
		FillerPaddingEnabled: true,
		ToolDescriptions:     make(map[string]string),
		CircuitBreaker:       circuitbreaker.DefaultConfig(),
	}
	cfg.Health = circuitbreaker.NewHealthManager(cfg.CircuitBreaker)
	cfg.Health.InitializeEndpoints(cfg.GeminiEndpoints)
	return cfg
}

// LoadConfigWithEnv loads the full configuration from the .env file in the
// working directory, plus optional tool description overrides from
// tools_override.yaml.
func LoadConfigWithEnv() (*Config, error) {
	envVars, err := loadEnvFile()
	if err != nil {
		return nil, fmt.Errorf(".env file is required for configuration: %v", err)
	}

	cfg := &Config{
		Port:                 "3456",
		DefaultModel:         "gemini-1.5-pro",
		InnerThoughtsInArgs:  true,
		FillerPaddingEnabled: true,
		ToolDescriptions:     make(map[string]string),
		CircuitBreaker:       circuitbreaker.DefaultConfig(),
	}

	if apiKey, exists := envVars["GEMINI_API_KEY"]; exists && apiKey != "" {
		cfg.GeminiAPIKey = apiKey
		log.Printf("🔧 Configured GEMINI_API_KEY: %s", maskAPIKey(apiKey))
	} else {
		return nil, fmt.Errorf("GEMINI_API_KEY must be set in .env file")
	}

	// Parse GEMINI_ENDPOINT (comma-separated list)
	if endpointList, exists := envVars["GEMINI_ENDPOINT"]; exists && endpointList != "" {
		endpoints := strings.Split(endpointList, ",")
		filtered := make([]string, 0, len(endpoints))
		for _, endpoint := range endpoints {
			endpoint = strings.TrimSuffix(strings.TrimSpace(endpoint), "/")
			if endpoint != "" {
				filtered = append(filtered, endpoint)
			}
		}
		cfg.GeminiEndpoints = filtered
		log.Printf("🔧 Configured GEMINI_ENDPOINT: %v (%d endpoints)", cfg.GeminiEndpoints, len(cfg.GeminiEndpoints))
	} else {
		cfg.GeminiEndpoints = []string{"https://generativelanguage.googleapis.com"}
		log.Printf("🔧 GEMINI_ENDPOINT not set, using default: %s", cfg.GeminiEndpoints[0])
	}

	if model, exists := envVars["DEFAULT_MODEL"]; exists && model != "" {
		cfg.DefaultModel = model
		log.Printf("🔧 Configured DEFAULT_MODEL: %s", model)
	}

	if port, exists := envVars["PORT"]; exists && port != "" {
		cfg.Port = port
	}

	cfg.InnerThoughtsInArgs = parseBoolSetting(envVars, "INNER_THOUGHTS_IN_ARGS", true)
	cfg.FillerPaddingEnabled = parseBoolSetting(envVars, "FILLER_PADDING_ENABLED", true)
	cfg.PrintGeminiRequests = parseBoolSetting(envVars, "PRINT_GEMINI_REQUESTS", false)

	// Load tool description overrides (optional)
	toolDescriptions, err := LoadToolDescriptions()
	if err != nil {
		return nil, err
	}
	cfg.ToolDescriptions = toolDescriptions

	cfg.Health = circuitbreaker.NewHealthManager(cfg.CircuitBreaker)
	cfg.Health.InitializeEndpoints(cfg.GeminiEndpoints)

	return cfg, nil
}

// parseBoolSetting reads a true/false setting with a default
func parseBoolSetting(envVars map[string]string, key string, defaultValue bool) bool {
	value, exists := envVars[key]
	if !exists || value == "" {
		return defaultValue
	}
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		log.Printf("⚠️ Unrecognized value %q for %s, using default %v", value, key, defaultValue)
		return defaultValue
	}
}

func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "***"
	}
	return apiKey[:4] + "..." + apiKey[len(apiKey)-4:]
}

// loadEnvFile loads environment variables from .env file in current directory
func loadEnvFile() (map[string]string, error) {
	envVars := make(map[string]string)

	file, err := os.Open(".env")
	if err != nil {
		return envVars, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE format
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove comments from value
		if commentIndex := strings.Index(value, "#"); commentIndex != -1 {
			value = strings.TrimSpace(value[:commentIndex])
		}

		envVars[key] = value
	}

	return envVars, scanner.Err()
}

// GetHealthyEndpoint returns the next healthy Gemini endpoint, rotating
// round-robin and skipping endpoints whose circuit is open.
func (c *Config) GetHealthyEndpoint() string {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.Health == nil {
		if len(c.GeminiEndpoints) == 0 {
			return ""
		}
		endpoint := c.GeminiEndpoints[c.endpointIndex%len(c.GeminiEndpoints)]
		c.endpointIndex = (c.endpointIndex + 1) % len(c.GeminiEndpoints)
		return endpoint
	}

	return c.Health.SelectHealthyEndpoint(c.GeminiEndpoints, &c.endpointIndex)
}

// RecordEndpointFailure reports an upstream failure to the circuit breaker
func (c *Config) RecordEndpointFailure(endpoint string) {
	if c.Health != nil {
		c.Health.RecordFailure(endpoint)
	}
}

// RecordEndpointSuccess reports an upstream success to the circuit breaker
func (c *Config) RecordEndpointSuccess(endpoint string) {
	if c.Health != nil {
		c.Health.RecordSuccess(endpoint)
	}
}

// GetToolDescription returns the override description if available, otherwise returns original
func (c *Config) GetToolDescription(toolName, originalDescription string) string {
	if override, exists := c.ToolDescriptions[toolName]; exists {
		return override
	}
	return originalDescription
}

// ToolDescriptionsYAML represents the structure of tools_override.yaml
type ToolDescriptionsYAML struct {
	ToolDescriptions map[string]string `yaml:"toolDescriptions"`
}

// LoadToolDescriptions loads tool description overrides from tools_override.yaml
// Returns empty map if file doesn't exist (no error)
func LoadToolDescriptions() (map[string]string, error) {
	file, err := os.Open("tools_override.yaml")
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("failed to open tools_override.yaml: %v", err)
	}
	defer file.Close()

	var yamlData ToolDescriptionsYAML
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&yamlData); err != nil {
		return nil, fmt.Errorf("failed to parse tools_override.yaml: %v", err)
	}

	if yamlData.ToolDescriptions == nil {
		yamlData.ToolDescriptions = make(map[string]string)
	}

	log.Printf("📝 Loaded %d tool description overrides from tools_override.yaml", len(yamlData.ToolDescriptions))
	return yamlData.ToolDescriptions, nil
}
