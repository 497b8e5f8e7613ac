// Package config loads server settings from an optional YAML file, a .env file
// and TRUCO_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "TRUCO"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Room     RoomConfig     `mapstructure:"room"`
}

type ServerConfig struct {
	Address        string   `mapstructure:"address"`
	StaticDir      string   `mapstructure:"static_dir"`
	AllowedOrigins []string `mapstructure:"allowed_origins"` // empty accepts any origin
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite3 or pgx
	DSN    string `mapstructure:"dsn"`
}

// MQTTConfig configures the optional broker mirror. An empty Broker disables it.
type MQTTConfig struct {
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
}

type RoomConfig struct {
	QueueSize int `mapstructure:"queue_size"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.static_dir", "web/static")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "./truco.db")
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.client_id", "truco-server")
	v.SetDefault("mqtt.topic_prefix", "truco")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("room.queue_size", 64)
}

// Load reads configuration. A missing config file or .env file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
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

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "pgx":
	default:
		return fmt.Errorf("database.driver must be sqlite3 or pgx, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if c.Room.QueueSize <= 0 {
		return fmt.Errorf("room.queue_size must be positive, got %d", c.Room.QueueSize)
	}
	if c.MQTT.Broker != "" && c.MQTT.TopicPrefix == "" {
		return errors.New("mqtt.topic_prefix is required when mqtt.broker is set")
	}
	return nil
}
