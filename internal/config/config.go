// Package config loads qkdsim's runtime configuration from a YAML file,
// environment variables, and built-in defaults, in that order of
// increasing precedence for env vars over file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level application configuration.
type Config struct {
	Server struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"server"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"` // "text" or "json"
	} `mapstructure:"logging"`

	Simulator struct {
		DefaultNumQubits     int `mapstructure:"default_num_qubits"`
		DefaultKeyTTLMinutes int `mapstructure:"default_key_ttl_minutes"`
		MaxHistorySize       int `mapstructure:"max_history_size"`
		DefaultKeyLengthBits int `mapstructure:"default_key_length_bits"`
	} `mapstructure:"simulator"`

	Messaging struct {
		MaxMessageAgeHours int `mapstructure:"max_message_age_hours"`
	} `mapstructure:"messaging"`
}

// DefaultConfig returns qkdsim's built-in configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	cfg.Simulator.DefaultNumQubits = 1000
	cfg.Simulator.DefaultKeyTTLMinutes = 60
	cfg.Simulator.MaxHistorySize = 10000
	cfg.Simulator.DefaultKeyLengthBits = 256
	cfg.Messaging.MaxMessageAgeHours = 24
	return cfg
}

// Load reads configuration from cfgFile (if non-empty), falling back to
// ./qkdsim.yaml and $HOME/.qkdsim.yaml, then overlays QKDSIM_-prefixed
// environment variables. A missing config file is not an error: the
// built-in defaults are used as-is.
func Load(cfgFile string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("qkdsim")
		v.AddConfigPath(".")
		if _, err := os.Stat("qkdsim.yaml"); err != nil {
			if _, err := os.Stat(ConfigFilePath()); err == nil {
				v.SetConfigFile(ConfigFilePath())
			}
		}
	}

	v.SetEnvPrefix("QKDSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range map[string]any{
		"server.host": cfg.Server.Host, "server.port": cfg.Server.Port,
		"logging.level": cfg.Logging.Level, "logging.format": cfg.Logging.Format,
		"simulator.default_num_qubits":      cfg.Simulator.DefaultNumQubits,
		"simulator.default_key_ttl_minutes": cfg.Simulator.DefaultKeyTTLMinutes,
		"simulator.max_history_size":        cfg.Simulator.MaxHistorySize,
		"simulator.default_key_length_bits": cfg.Simulator.DefaultKeyLengthBits,
		"messaging.max_message_age_hours":   cfg.Messaging.MaxMessageAgeHours,
	} {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}

	return cfg, nil
}

// ConfigFilePath resolves the default config file path under the user's
// home directory, mirroring the CLI's --config flag default.
func ConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "qkdsim.yaml"
	}
	return filepath.Join(home, ".qkdsim.yaml")
}
