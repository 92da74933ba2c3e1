// Package config loads and exposes the service configuration from a yaml
// file and environment overrides via viper.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config represents the service configuration.
type Config struct {
	AppName     string
	Environment string
	RunMode     string
	Host        string
	Port        int
	Logger      *Logger
	Data        *Data
	Storage     *Storage
	Export      *Export
	Viper       *viper.Viper
}

// Load reads the configuration from the given file path. When the path is
// empty, the usual lookup locations are searched for a config.yaml.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/project-service")
		v.AddConfigPath("$HOME/.project-service")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("PS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Missing file is tolerated; defaults and env vars still apply.
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		AppName:     v.GetString("app_name"),
		Environment: v.GetString("environment"),
		RunMode:     v.GetString("run_mode"),
		Host:        v.GetString("server.host"),
		Port:        v.GetInt("server.port"),
		Logger:      getLoggerConfig(v),
		Data:        getDataConfig(v),
		Storage:     getStorageConfig(v),
		Export:      getExportConfig(v),
		Viper:       v,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "project-service")
	v.SetDefault("environment", "dev")
	v.SetDefault("run_mode", "release")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	setLoggerDefaults(v)
	setDataDefaults(v)
	setExportDefaults(v)
}

// Watch re-reads the configuration when the underlying file changes and
// invokes the callback with the fresh snapshot. Structural settings (ports,
// connection addresses) require a restart; callers should only apply
// tunables from the callback.
func (c *Config) Watch(onChange func(*Config)) {
	if c.Viper == nil {
		return
	}
	c.Viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Op.Has(fsnotify.Write) && !e.Op.Has(fsnotify.Create) {
			return
		}
		onChange(fromViper(c.Viper))
	})
	c.Viper.WatchConfig()
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
