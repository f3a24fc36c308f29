// Package config loads the validator service configuration with viper.
//
// Values come from, in increasing precedence: built-in defaults, an
// optional config file, and PHCORE_ environment variables. Nested keys
// map to env names by replacing dots with underscores, so server.port is
// read from PHCORE_SERVER_PORT.
package config

import (
	"net"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read.
const EnvPrefix = "PHCORE"

// Config is the top-level configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Resources ResourcesConfig `mapstructure:"resources"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	BasePath string `mapstructure:"base_path"`
}

// ResourcesConfig names where conformance and example resources are read
// from.
type ResourcesConfig struct {
	Dirs     []string `mapstructure:"dirs"`
	Packages []string `mapstructure:"packages"`
	// PackageCache resolves name#version packages; ~/.fhir/packages when empty.
	PackageCache string `mapstructure:"package_cache"`
}

// DatabaseConfig configures the optional Postgres conformance source.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validation errors.
var (
	ErrInvalidPort = errors.New("server.port must be between 1 and 65535")
	ErrNoResources = errors.New("no resource source configured: set resources.dirs, resources.packages or database.url")
	ErrBasePath    = errors.New("server.base_path must start with /")
)

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Load reads configuration. An explicit path must exist; with an empty
// path a config.yaml in the working directory is used when present.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 5072)
	v.SetDefault("server.base_path", "/ph-core/fhir")
	v.SetDefault("resources.dirs", []string{"resources", "fhir_base_resources"})
	v.SetDefault("resources.packages", []string{})
	v.SetDefault("resources.package_cache", "")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Validate checks that the configuration can start a service.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.Wrapf(ErrInvalidPort, "got %d", c.Server.Port)
	}
	if !strings.HasPrefix(c.Server.BasePath, "/") {
		return errors.Wrapf(ErrBasePath, "got %q", c.Server.BasePath)
	}
	if len(c.Resources.Dirs) == 0 && len(c.Resources.Packages) == 0 && c.Database.URL == "" {
		return ErrNoResources
	}
	return nil
}
