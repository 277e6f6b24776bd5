package core

import (
	"fmt"
	"strings"
)

const (
	EnvironmentProduction  = "production"
	EnvironmentDevelopment = "development"
)

type FirehoseConfig struct {
	Endpoint             string   `koanf:"endpoint" mapstructure:"endpoint"`
	Collections          []string `koanf:"collections" mapstructure:"collections"`
	MaxReconnectAttempts int      `koanf:"max_reconnect_attempts" mapstructure:"max_reconnect_attempts"`
	CoalesceWindowMS     int      `koanf:"coalesce_window_ms" mapstructure:"coalesce_window_ms"`
}

type DispatchConfig struct {
	TimeoutSeconds    int    `koanf:"timeout_seconds" mapstructure:"timeout_seconds"`
	QueueSize         int    `koanf:"queue_size" mapstructure:"queue_size"`
	MaxInFlight       int    `koanf:"max_in_flight" mapstructure:"max_in_flight"`
	ResponseBodyLimit int    `koanf:"response_body_limit" mapstructure:"response_body_limit"`
	UserAgent         string `koanf:"user_agent" mapstructure:"user_agent"`
}

type LedgerConfig struct {
	RecentLimit int `koanf:"recent_limit" mapstructure:"recent_limit"`
}

type Config struct {
	ServiceName string         `koanf:"service_name" mapstructure:"service_name"`
	Environment string         `koanf:"environment" mapstructure:"environment"`
	Firehose    FirehoseConfig `koanf:"firehose" mapstructure:"firehose"`
	Dispatch    DispatchConfig `koanf:"dispatch" mapstructure:"dispatch"`
	Ledger      LedgerConfig   `koanf:"ledger" mapstructure:"ledger"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "statuswire",
		Environment: EnvironmentDevelopment,
		Firehose: FirehoseConfig{
			Endpoint:             "wss://jetstream2.us-west.bsky.network/subscribe",
			Collections:          []string{StatusCollectionNSID},
			MaxReconnectAttempts: 5,
			CoalesceWindowMS:     2000,
		},
		Dispatch: DispatchConfig{
			TimeoutSeconds:    10,
			QueueSize:         256,
			MaxInFlight:       8,
			ResponseBodyLimit: 4096,
			UserAgent:         "statuswire/1.0",
		},
		Ledger: LedgerConfig{
			RecentLimit: 20,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	environment := strings.TrimSpace(strings.ToLower(c.Environment))
	if environment != EnvironmentProduction && environment != EnvironmentDevelopment {
		return fmt.Errorf("core: environment must be %q or %q", EnvironmentProduction, EnvironmentDevelopment)
	}
	if c.Dispatch.QueueSize < 1 {
		return fmt.Errorf("core: dispatch queue_size must be positive")
	}
	if c.Ledger.RecentLimit < 1 {
		return fmt.Errorf("core: ledger recent_limit must be positive")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return strings.TrimSpace(strings.ToLower(c.Environment)) == EnvironmentProduction
}
