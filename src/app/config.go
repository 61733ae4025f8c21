package app

import (
	"errors"
	"fmt"
	"github.com/caarlos0/env/v11"
	"github.com/michaelfecher/cross-account-access/src/relay"
	"strings"
)

// LoadConfig reads the Config from the process environment.
func LoadConfig() (*Config, error) {
	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadConfigFrom reads the Config from the given variables only.
func LoadConfigFrom(environment map[string]string) (*Config, error) {
	config := &Config{}
	if err := env.ParseWithOptions(config, env.Options{Environment: environment}); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the Config once at startup for the given run mode.
func (config *Config) Validate(mode string) error {
	switch {
	case mode != ModeLambda && mode != ModePoll:
		return fmt.Errorf("Unknown mode: %s", mode)
	case config.SourceBucket == "":
		return errors.New("Source bucket is required")
	case config.DestinationBucket == "":
		return errors.New("Destination bucket is required")
	case strings.Contains(config.TenantSegment, "/"):
		return fmt.Errorf("Tenant segment must be a single path segment: %s", config.TenantSegment)
	case config.RoleARN != "" && !strings.HasPrefix(config.RoleARN, "arn:"):
		return fmt.Errorf("Invalid role ARN: %s", config.RoleARN)
	case config.Workers < 1:
		return fmt.Errorf("Workers must be at least 1, got %d", config.Workers)
	case config.LogFormat != "json" && config.LogFormat != "text":
		return fmt.Errorf("Unknown log format: %s", config.LogFormat)
	case mode == ModePoll && config.QueueURL == "":
		return errors.New("Queue URL is required in poll mode")
	case mode == ModePoll && config.CredentialRefreshPeriod <= 0:
		return errors.New("Credential refresh period must be positive")
	}
	return config.validateLoop()
}

// Settings returns the relay settings of the Config.
func (config *Config) Settings() relay.Settings {
	return relay.Settings{
		SourceBucket:      config.SourceBucket,
		DestinationBucket: config.DestinationBucket,
		InputPrefix:       relay.DirPrefix(config.InputPrefix),
		OutputPrefix:      relay.DirPrefix(config.OutputPrefix),
		TenantSegment:     config.TenantSegment,
		ProcessorID:       config.ProcessorID,
		DeploymentID:      config.DeploymentID,
	}
}

// validateLoop rejects configurations where relayed objects land back under
// the input convention of the same bucket.
func (config *Config) validateLoop() error {
	if config.SourceBucket != config.DestinationBucket {
		return nil
	}
	outputPrefix := relay.DirPrefix(config.OutputPrefix)
	if outputPrefix == "" || strings.HasPrefix(outputPrefix, relay.DirPrefix(config.InputPrefix)) {
		return fmt.Errorf("Output prefix %q would be relayed again from bucket %s",
			config.OutputPrefix, config.SourceBucket)
	}
	return nil
}
