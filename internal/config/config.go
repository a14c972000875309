// Package config loads aduscore settings from a YAML file, .env files and
// environment variables, in increasing order of precedence. Subcommand flags
// are applied by the caller on top of the result.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/zalepa/aduscore/internal/logger"
)

// DefaultPath is used when neither -config nor ADUSCORE_CONFIG is given.
const DefaultPath = "aduscore.yml"

// Data source kinds.
const (
	SourceFiles    = "files"
	SourcePostgres = "postgres"
)

// Config is the full application configuration.
type Config struct {
	Data     DataConfig     `yaml:"data"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  logger.Config  `yaml:"logging"`
}

// DataConfig selects where town, permit and compliance data come from.
type DataConfig struct {
	Source string `yaml:"source" env:"ADUSCORE_SOURCE"`
	Dir    string `yaml:"dir" env:"ADUSCORE_DATA_DIR"`
}

type ServerConfig struct {
	Host         string        `yaml:"host" env:"ADUSCORE_HOST"`
	Port         int           `yaml:"port" env:"ADUSCORE_PORT"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Address returns host:port for http.Server.
func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type DatabaseConfig struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST"`
	Port     int    `yaml:"port" env:"POSTGRES_PORT"`
	User     string `yaml:"user" env:"POSTGRES_USER"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD"`
	Database string `yaml:"database" env:"POSTGRES_DB"`
	SSLMode  string `yaml:"sslmode" env:"POSTGRES_SSLMODE"`

	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DSN returns a lib/pq key=value connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig configures the session store. An empty Address selects the
// in-memory store.
type RedisConfig struct {
	Address  string        `yaml:"address" env:"REDIS_ADDR"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl" env:"ADUSCORE_SESSION_TTL"`
}

// SetDefaults fills every unset field.
func (c *Config) SetDefaults() {
	if c.Data.Source == "" {
		c.Data.Source = SourceFiles
	}
	if c.Data.Dir == "" {
		c.Data.Dir = "data"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.Database == "" {
		c.Database.Database = "aduscore"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 5 * time.Minute
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "aduscore:"
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 30 * 24 * time.Hour
	}
	c.Logging.SetDefaults()
}

// Validate rejects settings no command can run with.
func (c *Config) Validate() error {
	switch c.Data.Source {
	case SourceFiles, SourcePostgres:
	default:
		return fmt.Errorf("data.source: unknown source %q", c.Data.Source)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port: %d out of range", c.Server.Port)
	}
	if c.Redis.TTL < 0 {
		return errors.New("redis.ttl: must not be negative")
	}
	return nil
}

// Path returns ADUSCORE_CONFIG when set, otherwise DefaultPath.
func Path() string {
	if p := os.Getenv("ADUSCORE_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads path, applies defaults and environment overrides and validates
// the result. A missing file is not an error: the defaults are used.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// loadEnvFiles loads ENV_FILE if set, otherwise .env.local then .env.
// Variables already present in the environment are never overwritten.
func loadEnvFiles() error {
	files := []string{".env.local", ".env"}
	if f := os.Getenv("ENV_FILE"); f != "" {
		files = []string{f}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}
