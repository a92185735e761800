package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Remote      RemoteConfig      `yaml:"remote"`
	Database    DatabaseConfig    `yaml:"database"`
	Server      ServerConfig      `yaml:"server"`
	Snapshot    SnapshotConfig    `yaml:"snapshot"`
	Permissions PermissionsConfig `yaml:"permissions"`
}

// RemoteConfig points at the authenticated document service. When no token
// is configured the service runs in guest mode against the local store only.
type RemoteConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// DatabaseConfig contains local store settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// SnapshotConfig contains auto-snapshot settings
type SnapshotConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// PermissionsConfig sets the capability flags handed to the restore
// orchestrator. The backend remains authoritative and may still reject.
type PermissionsConfig struct {
	CanRestoreAsNew     *bool `yaml:"can_restore_as_new"`
	CanOverwriteRestore *bool `yaml:"can_overwrite_restore"`
	CanEdit             *bool `yaml:"can_edit"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the config
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply defaults
	cfg.applyDefaults()

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for unspecified config options
func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "./snapvault.db"
	}

	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}

	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}

	if c.Remote.Timeout == 0 {
		c.Remote.Timeout = 30 * time.Second
	}

	if c.Snapshot.Interval == 0 {
		c.Snapshot.Interval = 5 * time.Minute
	}

	trueVal := true
	falseVal := false
	if c.Permissions.CanRestoreAsNew == nil {
		c.Permissions.CanRestoreAsNew = &trueVal
	}
	if c.Permissions.CanEdit == nil {
		c.Permissions.CanEdit = &trueVal
	}
	if c.Permissions.CanOverwriteRestore == nil {
		// Overwrite stays opt-in; guest mode cannot perform it at all.
		c.Permissions.CanOverwriteRestore = &falseVal
	}
}

// validate checks that the configuration is valid
func (c *Config) validate() error {
	if c.Remote.Token != "" && c.Remote.BaseURL == "" {
		return fmt.Errorf("remote.base_url is required when remote.token is set")
	}

	if c.Snapshot.Enabled && c.Snapshot.Interval < time.Second {
		return fmt.Errorf("snapshot.interval must be at least 1s")
	}

	return nil
}

// Authenticated reports whether remote credentials are configured.
func (c *Config) Authenticated() bool {
	return c.Remote.BaseURL != "" && c.Remote.Token != ""
}

// UnmarshalYAML implements custom unmarshaling for RemoteConfig to handle
// duration strings.
func (r *RemoteConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type rawRemoteConfig struct {
		BaseURL string `yaml:"base_url"`
		Token   string `yaml:"token"`
		Timeout string `yaml:"timeout"`
	}

	var raw rawRemoteConfig
	if err := unmarshal(&raw); err != nil {
		return err
	}

	if raw.Timeout != "" {
		duration, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("invalid remote timeout: %w", err)
		}
		r.Timeout = duration
	}

	r.BaseURL = raw.BaseURL
	r.Token = raw.Token
	return nil
}

// UnmarshalYAML implements custom unmarshaling for SnapshotConfig to handle
// duration strings.
func (s *SnapshotConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type rawSnapshotConfig struct {
		Enabled  bool   `yaml:"enabled"`
		Interval string `yaml:"interval"`
	}

	var raw rawSnapshotConfig
	if err := unmarshal(&raw); err != nil {
		return err
	}

	if raw.Interval != "" {
		duration, err := time.ParseDuration(raw.Interval)
		if err != nil {
			return fmt.Errorf("invalid snapshot interval: %w", err)
		}
		s.Interval = duration
	}

	s.Enabled = raw.Enabled
	return nil
}
