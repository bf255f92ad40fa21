package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Timer     TimerConfig     `mapstructure:"timer" yaml:"timer"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit" yaml:"ratelimit"`
}

type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

type StorageConfig struct {
	Type string `mapstructure:"type" yaml:"type"` // memory, sqlite or postgres
	Path string `mapstructure:"path" yaml:"path"`
	URL  string `mapstructure:"url" yaml:"url"`
	Key  string `mapstructure:"key" yaml:"key"`
}

type LoggingConfig struct {
	Development bool `mapstructure:"development" yaml:"development"`
}

type TimerConfig struct {
	DefaultSeconds int           `mapstructure:"default_seconds" yaml:"default_seconds"`
	Tick           time.Duration `mapstructure:"tick" yaml:"tick"`
}

type RateLimitConfig struct {
	RPM int `mapstructure:"rpm" yaml:"rpm"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: "8080",
		},
		Storage: StorageConfig{
			Type: StorageSQLite,
			Path: "taskboard.db",
			Key:  "tasklist",
		},
		Timer: TimerConfig{
			DefaultSeconds: 25 * 60,
			Tick:           time.Second,
		},
		RateLimit: RateLimitConfig{
			RPM: 600,
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// TASKBOARD_* environment variables (TASKBOARD_STORAGE_TYPE and so on).
// A missing file is not an error.
func Load(path string) (*Config, error) {
	def := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TASKBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, def)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Every key needs a default so AutomaticEnv can find it on Unmarshal.
func setDefaults(v *viper.Viper, def *Config) {
	v.SetDefault("server.host", def.Server.Host)
	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("storage.type", def.Storage.Type)
	v.SetDefault("storage.path", def.Storage.Path)
	v.SetDefault("storage.url", def.Storage.URL)
	v.SetDefault("storage.key", def.Storage.Key)
	v.SetDefault("logging.development", def.Logging.Development)
	v.SetDefault("timer.default_seconds", def.Timer.DefaultSeconds)
	v.SetDefault("timer.tick", def.Timer.Tick)
	v.SetDefault("ratelimit.rpm", def.RateLimit.RPM)
}

func (c *Config) Validate() error {
	switch c.Storage.Type {
	case StorageMemory:
	case StorageSQLite:
		if c.Storage.Path == "" {
			return errors.New("config: storage.path is required for sqlite")
		}
	case StoragePostgres:
		if c.Storage.URL == "" {
			return errors.New("config: storage.url is required for postgres")
		}
	default:
		return fmt.Errorf("config: unknown storage.type %q", c.Storage.Type)
	}
	if c.Storage.Key == "" {
		return errors.New("config: storage.key must not be empty")
	}
	if c.Timer.DefaultSeconds <= 0 {
		return errors.New("config: timer.default_seconds must be positive")
	}
	if c.Timer.Tick <= 0 {
		return errors.New("config: timer.tick must be positive")
	}
	return nil
}

func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}
