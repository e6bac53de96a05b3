// Package config loads netsync settings from a YAML file and applies
// command-line overrides on top.
//
// Precedence, lowest first: built-in defaults, the file given with --config,
// then any flag the operator set explicitly.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"netsync/internal/logger"
)

// Config is the complete run configuration.
type Config struct {
	// Inventory is the device list (.yaml, .yml, .json, .jsonc or .csv).
	Inventory string `yaml:"inventory"`

	// OutputDirectory receives the running-config dumps and the optional
	// summary file. Created on demand.
	OutputDirectory string `yaml:"output_directory"`

	// NTPServer is both the reachability probe target and the address pushed
	// with "ntp server".
	NTPServer string `yaml:"ntp_server"`

	// Timezone is the argument of "clock timezone", e.g. "GMT +0".
	Timezone string `yaml:"timezone"`

	Templates TemplatesConfig `yaml:"templates"`
	SSH       SSHConfig       `yaml:"ssh"`

	// SummaryFile also writes SUMMARY_<timestamp>.log into OutputDirectory.
	SummaryFile bool `yaml:"summary_file"`

	// DryRun lists devices and planned commands without connecting.
	DryRun bool `yaml:"dry_run"`

	Log logger.Config `yaml:"log"`
}

// TemplatesConfig points at the TextFSM templates on disk.
type TemplatesConfig struct {
	CDPNeighbors string `yaml:"cdp_neighbors"`
	ShowVersion  string `yaml:"show_version"`
}

// SSHConfig configures the device sessions.
type SSHConfig struct {
	// Port is used for inventory records that carry none.
	Port int `yaml:"port"`

	// Timeout bounds dial and authentication.
	Timeout time.Duration `yaml:"timeout"`

	// CommandTimeout bounds the wait for a prompt after each command.
	CommandTimeout time.Duration `yaml:"command_timeout"`

	// KnownHosts is an OpenSSH known_hosts file. Empty accepts any host key.
	KnownHosts string `yaml:"known_hosts"`

	// LegacyAlgorithms enables the key exchanges and ciphers older IOS
	// images still offer (diffie-hellman-group1-sha1, aes-cbc).
	LegacyAlgorithms bool `yaml:"legacy_algorithms"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Inventory:       "devices.yaml",
		OutputDirectory: "output",
		NTPServer:       "192.168.100.3",
		Timezone:        "GMT +0",
		Templates: TemplatesConfig{
			CDPNeighbors: "templates/cisco_ios_show_cdp_neighbors.textfsm",
			ShowVersion:  "templates/cisco_ios_show_version.textfsm",
		},
		SSH: SSHConfig{
			Port:           22,
			Timeout:        30 * time.Second,
			CommandTimeout: 60 * time.Second,
		},
		Log: logger.DefaultConfig(),
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Inventory == "" {
		errs = append(errs, errors.New("inventory is required"))
	}

	if c.OutputDirectory == "" {
		errs = append(errs, errors.New("output_directory is required"))
	}

	if c.NTPServer == "" || strings.ContainsAny(c.NTPServer, " \t") {
		errs = append(errs, fmt.Errorf("ntp_server must be a single address, got %q", c.NTPServer))
	}

	if strings.TrimSpace(c.Timezone) == "" {
		errs = append(errs, errors.New("timezone is required"))
	}

	if c.Templates.CDPNeighbors == "" {
		errs = append(errs, errors.New("templates.cdp_neighbors is required"))
	}

	if c.Templates.ShowVersion == "" {
		errs = append(errs, errors.New("templates.show_version is required"))
	}

	if c.SSH.Port < 1 || c.SSH.Port > 65535 {
		errs = append(errs, fmt.Errorf("ssh.port out of range: %d", c.SSH.Port))
	}

	if c.SSH.Timeout <= 0 {
		errs = append(errs, errors.New("ssh.timeout must be positive"))
	}

	if c.SSH.CommandTimeout <= 0 {
		errs = append(errs, errors.New("ssh.command_timeout must be positive"))
	}

	return errors.Join(errs...)
}
