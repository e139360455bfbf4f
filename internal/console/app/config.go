package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the operator-facing configuration, read from
// ~/.psp-admin.yaml and overridable through PSP_* environment variables
// (PSP_API_URL, PSP_LOG_LEVEL, ...).
type Config struct {
	API    APIConfig    `yaml:"api" mapstructure:"api"`
	State  StateConfig  `yaml:"state" mapstructure:"state"`
	Format FormatConfig `yaml:"format" mapstructure:"format"`

	Env       string `yaml:"env" mapstructure:"env"`
	LogLevel  string `yaml:"log_level" mapstructure:"log_level"`
	LogFormat string `yaml:"log_format" mapstructure:"log_format"`
}

// APIConfig points the console at the admin backend.
type APIConfig struct {
	URL     string        `yaml:"url" mapstructure:"url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// StateConfig locates the local state database.
type StateConfig struct {
	DatabaseFile string `yaml:"database_file" mapstructure:"database_file"`
}

// FormatConfig controls command output rendering.
type FormatConfig struct {
	Default string `yaml:"default" mapstructure:"default"`
	Colors  bool   `yaml:"colors" mapstructure:"colors"`
}

const configName = ".psp-admin"

// LoadConfig reads the config file, creating a default one on first run.
// An explicit path skips the home-directory lookup.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve home directory: %w", err)
		}
		v.AddConfigPath(home)
		v.SetConfigType("yaml")
		v.SetConfigName(configName)
	}

	v.SetEnvPrefix("PSP")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound) && path == "":
			if err := writeDefaultConfig(); err != nil {
				return Config{}, fmt.Errorf("create default config: %w", err)
			}
		default:
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.State.DatabaseFile == "" {
		cfg.State.DatabaseFile = defaultDatabaseFile()
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.url", "http://localhost:8080")
	v.SetDefault("api.timeout", "15s")
	v.SetDefault("state.database_file", "")
	v.SetDefault("format.default", "table")
	v.SetDefault("format.colors", true)
	v.SetDefault("env", "dev")
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "text")
}

func defaultDatabaseFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "psp-admin.db"
	}
	return filepath.Join(home, ".psp-admin.db")
}

func writeDefaultConfig() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	cfg := Config{
		API:       APIConfig{URL: "http://localhost:8080", Timeout: 15 * time.Second},
		State:     StateConfig{DatabaseFile: defaultDatabaseFile()},
		Format:    FormatConfig{Default: "table", Colors: true},
		Env:       "dev",
		LogLevel:  "warn",
		LogFormat: "text",
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(home, configName+".yaml"), data, 0600)
}
