// Package config provides configuration management for poolserve using
// Viper for flexible configuration loading from files, environment
// variables, and command-line flags.
//
// The configuration system supports YAML files, environment variable
// overrides with the POOLSERVE_ prefix, defaults, and validation. A loaded
// Config is immutable and shared read-only by every worker.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/conneroisu/poolserve/internal/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "POOLSERVE"

type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server" json:"server"`
	Static     StaticConfig     `mapstructure:"static" yaml:"static" json:"static"`
	LiveReload LiveReloadConfig `mapstructure:"live_reload" yaml:"live_reload" json:"live_reload"`
	Log        LogConfig        `mapstructure:"log" yaml:"log" json:"log"`
}

type ServerConfig struct {
	Host           string `mapstructure:"host" yaml:"host" json:"host"`
	Port           uint16 `mapstructure:"port" yaml:"port" json:"port"`
	Workers        int    `mapstructure:"workers" yaml:"workers" json:"workers"`
	ReadBufferSize int    `mapstructure:"read_buffer_size" yaml:"read_buffer_size" json:"read_buffer_size"`
}

type StaticConfig struct {
	RootDir      string        `mapstructure:"root_dir" yaml:"root_dir" json:"root_dir"`
	NotFoundPage string        `mapstructure:"not_found_page" yaml:"not_found_page" json:"not_found_page"`
	SleepDelay   time.Duration `mapstructure:"sleep_delay" yaml:"sleep_delay" json:"sleep_delay"`
	CacheSize    int64         `mapstructure:"cache_size" yaml:"cache_size" json:"cache_size"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl" json:"cache_ttl"`
	Watch        bool          `mapstructure:"watch" yaml:"watch" json:"watch"`
}

type LiveReloadConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Port    uint16 `mapstructure:"port" yaml:"port" json:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// Default values.
const (
	DefaultHost           = "0.0.0.0"
	DefaultPort           = 8080
	DefaultWorkers        = 4
	DefaultReadBufferSize = 1024
	DefaultRootDir        = "./public"
	DefaultNotFoundPage   = "404.html"
	DefaultSleepDelay     = 5 * time.Second
	DefaultCacheTTL       = time.Minute
	DefaultLiveReloadPort = 35729
)

// SetDefaults registers every default on v so that environment variables
// are honoured by Unmarshal even for keys absent from the config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.workers", DefaultWorkers)
	v.SetDefault("server.read_buffer_size", DefaultReadBufferSize)

	v.SetDefault("static.root_dir", DefaultRootDir)
	v.SetDefault("static.not_found_page", DefaultNotFoundPage)
	v.SetDefault("static.sleep_delay", DefaultSleepDelay)
	v.SetDefault("static.cache_size", 0)
	v.SetDefault("static.cache_ttl", DefaultCacheTTL)
	v.SetDefault("static.watch", false)

	v.SetDefault("live_reload.enabled", false)
	v.SetDefault("live_reload.port", DefaultLiveReloadPort)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Default returns a Config populated with default values only.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           DefaultHost,
			Port:           DefaultPort,
			Workers:        DefaultWorkers,
			ReadBufferSize: DefaultReadBufferSize,
		},
		Static: StaticConfig{
			RootDir:      DefaultRootDir,
			NotFoundPage: DefaultNotFoundPage,
			SleepDelay:   DefaultSleepDelay,
			CacheTTL:     DefaultCacheTTL,
		},
		LiveReload: LiveReloadConfig{Port: DefaultLiveReloadPort},
		Log:        LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads, defaults and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid,
			"failed to decode configuration").WithContext("cause", err.Error())
	}

	result := ValidateConfigWithDetails(&config)
	if result.HasErrors() {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("invalid configuration: %s", result.Errors[0].Error())).
			WithContext("errors", len(result.Errors))
	}

	return &config, nil
}

// Address returns the host:port the acceptor binds to.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(int(c.Server.Port)))
}

// LiveReloadAddress returns the host:port of the live reload side channel.
func (c *Config) LiveReloadAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(int(c.LiveReload.Port)))
}
