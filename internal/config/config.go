// Package config defines the obfuscation configuration and its file handling.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Supported string cipher algorithms.
const (
	AlgorithmAES      = "aes"
	AlgorithmChaCha20 = "chacha20"
	AlgorithmXOR      = "xor"
	AlgorithmReverse  = "reverse"
)

// Obfuscation methods recorded in mapping files.
const (
	MethodNames   = "names"
	MethodCode    = "code"
	MethodStrings = "strings"
)

// StringCipherConfig defines settings for string literal encryption.
type StringCipherConfig struct {
	Algorithm  string `yaml:"algorithm" mapstructure:"algorithm"`
	Key        string `yaml:"key,omitempty" mapstructure:"key,omitempty"`
	SkipFormat bool   `yaml:"skip_format" mapstructure:"skip_format"`
	SkipErrors bool   `yaml:"skip_errors" mapstructure:"skip_errors"`
}

// Config holds all settings for one obfuscation run. It is resolved once by
// the CLI (or a library caller) and treated as read-only by every component.
type Config struct {
	// Identifier renaming
	PreservePublicAPI   bool `yaml:"preserve_public_api" mapstructure:"preserve_public_api"`
	MinIdentifierLength int  `yaml:"min_identifier_length" mapstructure:"min_identifier_length"`
	ControlFlowRewrite  bool `yaml:"control_flow_rewrite" mapstructure:"control_flow_rewrite"`

	// String literal encryption
	Strings StringCipherConfig `yaml:"strings" mapstructure:"strings"`

	// Run behavior
	Seed   string `yaml:"seed,omitempty" mapstructure:"seed,omitempty"`
	DryRun bool   `yaml:"dry_run" mapstructure:"dry_run"`
	Backup bool   `yaml:"backup" mapstructure:"backup"`
	Silent bool   `yaml:"silent" mapstructure:"silent"`

	// Names mode
	SequentialNames bool `yaml:"sequential_names" mapstructure:"sequential_names"`
}

var (
	// Testing suppresses informational output during tests.
	Testing bool
)

// PrintInfo prints formatted information to stdout unless Testing is set.
func PrintInfo(format string, args ...interface{}) {
	if !Testing {
		fmt.Printf(format, args...)
	}
}

// DefaultConfig returns a configuration with default settings.
func DefaultConfig() *Config {
	return &Config{
		PreservePublicAPI:   true,
		MinIdentifierLength: 3,
		ControlFlowRewrite:  false,
		Strings: StringCipherConfig{
			Algorithm:  AlgorithmXOR,
			SkipFormat: true,
			SkipErrors: true,
		},
		DryRun: false,
		Backup: false,
		Silent: false,
	}
}

// LoadConfig reads configuration from a YAML file and environment variables
// (SHROUD_* via viper), returning a filled Config. A missing default config
// file is not an error; a missing explicit one is.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := configPath != ""
	if configPath == "" {
		configPath = "shroud.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error unmarshalling config file %s: %w", configPath, err)
		}
		if !cfg.Silent {
			PrintInfo("Info: Loaded configuration from %s\n", configPath)
		}
	} else if os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("specified config file not found: %s", configPath)
		}
	} else {
		return nil, fmt.Errorf("error checking config file %s: %w", configPath, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes the default configuration to a file, creating parent
// directories as needed.
func SaveConfig(configPath string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshalling default config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("error creating directory for config file %s: %w", configPath, err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file %s: %w", configPath, err)
	}
	PrintInfo("Info: Saved default configuration to %s\n", configPath)
	return nil
}

// Validate checks that the configuration describes a runnable obfuscation.
func (c *Config) Validate() error {
	switch c.Strings.Algorithm {
	case AlgorithmAES, AlgorithmChaCha20, AlgorithmXOR, AlgorithmReverse, "":
	default:
		return fmt.Errorf("unknown string cipher algorithm: %q", c.Strings.Algorithm)
	}
	if c.MinIdentifierLength < 0 {
		return fmt.Errorf("min_identifier_length must be >= 0, got %d", c.MinIdentifierLength)
	}
	return nil
}

// applyEnvOverrides binds SHROUD_* environment variables over file values.
func applyEnvOverrides(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix("SHROUD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for env, set := range map[string]func(){
		"preserve_public_api":   func() { cfg.PreservePublicAPI = v.GetBool("preserve_public_api") },
		"min_identifier_length": func() { cfg.MinIdentifierLength = v.GetInt("min_identifier_length") },
		"control_flow_rewrite":  func() { cfg.ControlFlowRewrite = v.GetBool("control_flow_rewrite") },
		"seed":                  func() { cfg.Seed = v.GetString("seed") },
		"silent":                func() { cfg.Silent = v.GetBool("silent") },
	} {
		if v.IsSet(env) {
			set()
		}
	}
}
