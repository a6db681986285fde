// Package config provides configuration loading for the engine and dispatcher.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DispatchConfig carries dispatcher settings: the internal-endpoint
// allow-list and the defaults applied when an action config omits a value.
type DispatchConfig struct {
	AllowedEndpoints     []string `yaml:"allowed_endpoints"`
	DefaultRecipient     string   `yaml:"default_recipient"`
	DefaultChannel       string   `yaml:"default_channel"`
	NotificationTemplate string   `yaml:"notification_template"`
	JobTemplate          string   `yaml:"job_template"`
	MediaQueue           string   `yaml:"media_queue"`
}

// Config is the engine settings file.
type Config struct {
	Dispatch DispatchConfig `yaml:"dispatch"`
}

// Default returns the built-in settings used when no file is given.
func Default() Config {
	return Config{
		Dispatch: DispatchConfig{
			AllowedEndpoints:     []string{"/health", "/metrics"},
			DefaultRecipient:     "workflow-system-recipient",
			DefaultChannel:       "email",
			NotificationTemplate: "workflow-event",
			JobTemplate:          "workflow-job",
			MediaQueue:           "media-jobs",
		},
	}
}

// Load reads a YAML settings file, filling omitted fields with defaults.
func Load(path string) (Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return config, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if len(file.Dispatch.AllowedEndpoints) > 0 {
		config.Dispatch.AllowedEndpoints = file.Dispatch.AllowedEndpoints
	}

	if file.Dispatch.DefaultRecipient != "" {
		config.Dispatch.DefaultRecipient = file.Dispatch.DefaultRecipient
	}

	if file.Dispatch.DefaultChannel != "" {
		config.Dispatch.DefaultChannel = file.Dispatch.DefaultChannel
	}

	if file.Dispatch.NotificationTemplate != "" {
		config.Dispatch.NotificationTemplate = file.Dispatch.NotificationTemplate
	}

	if file.Dispatch.JobTemplate != "" {
		config.Dispatch.JobTemplate = file.Dispatch.JobTemplate
	}

	if file.Dispatch.MediaQueue != "" {
		config.Dispatch.MediaQueue = file.Dispatch.MediaQueue
	}

	return config, nil
}
