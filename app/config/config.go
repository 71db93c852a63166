package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the service configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Store  StoreConfig  `mapstructure:"store" yaml:"store"`
	Neo4j  Neo4jConfig  `mapstructure:"neo4j" yaml:"neo4j"`
	SQLite SQLiteConfig `mapstructure:"sqlite" yaml:"sqlite"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// StoreConfig selects the persistence backend: "neo4j" or "sqlite".
type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
}

// Neo4jConfig holds the driver settings. An empty Database uses the
// server's default database.
type Neo4jConfig struct {
	URI            string        `mapstructure:"uri" yaml:"uri"`
	User           string        `mapstructure:"user" yaml:"user"`
	Password       string        `mapstructure:"password" yaml:"password"`
	Database       string        `mapstructure:"database" yaml:"database"`
	MaxPoolSize    int           `mapstructure:"max_pool_size" yaml:"max_pool_size"`
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout" yaml:"acquire_timeout"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

const (
	DriverNeo4j  = "neo4j"
	DriverSQLite = "sqlite"
)

// EnvPrefix prefixes environment overrides, e.g. TASKBOARD_NEO4J_URI.
const EnvPrefix = "TASKBOARD"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("store.driver", DriverNeo4j)
	v.SetDefault("neo4j.uri", "neo4j://neo4j:7687")
	v.SetDefault("neo4j.user", "neo4j")
	v.SetDefault("neo4j.password", "password")
	v.SetDefault("neo4j.database", "")
	v.SetDefault("neo4j.max_pool_size", 100)
	v.SetDefault("neo4j.acquire_timeout", time.Minute)
	v.SetDefault("sqlite.path", "taskboard.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads configuration from defaults, then the YAML file at path (or
// ./taskboard.yaml if path is empty and the file exists), then TASKBOARD_*
// environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("taskboard")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
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

// Validate checks the values Load cannot default.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverNeo4j:
		if c.Neo4j.URI == "" {
			return errors.New("neo4j.uri is required")
		}
	case DriverSQLite:
		if c.SQLite.Path == "" {
			return errors.New("sqlite.path is required")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a config level name onto slog.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}
