// Package config handles YAML config file loading for the client library's
// CLI wrapper. All values are optional. The CLI takes the kv and queue URLs
// from the file, with the FORGE_KV_URL and FORGE_QUEUE_URL environment
// variables overriding them, and passes the remaining connection settings,
// defaultWorkId and pollInterval to the client. ratePerSec and idleTimeout
// are parsed but not read: --rate and --idle do not default from them.
package config

import (
	"time"
)

// Config represents a forge.yaml configuration file.
type Config struct {
	KV           KVConfig      `yaml:"kv"`
	Queue        QueueConfig   `yaml:"queue"`
	ObjectStore  ObjectStoreConfig `yaml:"objectStore"`
	DefaultWorkID string       `yaml:"defaultWorkId"`
	RatePerSec   float64       `yaml:"ratePerSec"`
	PollInterval Duration      `yaml:"pollInterval"`
	IdleTimeout  Duration      `yaml:"idleTimeout"`
}

// KVConfig holds key-value store connection defaults.
type KVConfig struct {
	URL string `yaml:"url"`
}

// QueueConfig holds queue connection defaults.
type QueueConfig struct {
	URL       string   `yaml:"url"`
	Heartbeat Duration `yaml:"heartbeat"`
}

// ObjectStoreConfig holds object-store region and endpoint overrides. Region,
// custom endpoint and path-style flag override the AWS SDK's defaults; the
// access and secret keys are not set here and come from the SDK's default
// credential chain.
type ObjectStoreConfig struct {
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"usePathStyle"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "1m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}
