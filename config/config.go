// Package config loads client configuration from the environment, with
// an optional YAML file taking precedence for connection settings.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultEngine is the engine used when neither environment nor flags
// name one.
const DefaultEngine = "stable-diffusion-v1-5"

// Config holds everything needed to reach the generation service.
type Config struct {
	// Host is the service address, host:port. Required.
	Host string `yaml:"host"`

	// Key is the API key sent as a bearer token. Optional for local
	// servers.
	Key string `yaml:"key"`

	// Engine is the default engine id for requests.
	Engine string `yaml:"engine"`

	// WaitForReady makes calls wait for the channel instead of failing
	// fast.
	WaitForReady bool `yaml:"wait_for_ready"`

	// LogFile receives the JSON log stream. Empty disables file
	// logging.
	LogFile string `yaml:"log_file"`

	// DevMode enables debug logging and human-readable console output.
	DevMode bool `yaml:"dev_mode"`
}

// Load reads configuration from the environment.
func Load() Config {
	return Config{
		Host:         os.Getenv("GYRE_HOST"),
		Key:          os.Getenv("GYRE_KEY"),
		Engine:       GetEnvOrDefault("GYRE_ENGINE", DefaultEngine),
		WaitForReady: ParseBoolEnv("GYRE_WAIT_FOR_READY", true),
		LogFile:      GetEnvOrDefault("GYRE_LOG_FILE", "gyreclient.log"),
		DevMode:      ParseBoolEnv("DEV_MODE", false),
	}
}

// ApplyFile overlays settings from a YAML file. Only fields present in
// the file replace the current values.
func (c *Config) ApplyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	// Pointer booleans distinguish an explicit false from an absent key.
	var overlay struct {
		Host         string `yaml:"host"`
		Key          string `yaml:"key"`
		Engine       string `yaml:"engine"`
		WaitForReady *bool  `yaml:"wait_for_ready"`
		LogFile      string `yaml:"log_file"`
		DevMode      *bool  `yaml:"dev_mode"`
	}
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	if overlay.Host != "" {
		c.Host = overlay.Host
	}
	if overlay.Key != "" {
		c.Key = overlay.Key
	}
	if overlay.Engine != "" {
		c.Engine = overlay.Engine
	}
	if overlay.LogFile != "" {
		c.LogFile = overlay.LogFile
	}
	if overlay.WaitForReady != nil {
		c.WaitForReady = *overlay.WaitForReady
	}
	if overlay.DevMode != nil {
		c.DevMode = *overlay.DevMode
	}
	return nil
}

// Validate checks that the configuration can reach a service.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("config: GYRE_HOST must be set (host:port of the generation service)")
	}
	return nil
}
