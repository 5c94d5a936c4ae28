package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel   string   `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort   string   `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort string   `yaml:"socket-port" env:"SOCKET_PORT" env-default:"7777"`
	Redis      Redis    `yaml:"redis"`
	Archive    Archive  `yaml:"archive"`
	Archiver   Archiver `yaml:"archiver"`
}

type Redis struct {
	Enabled     bool          `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Host        string        `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port        string        `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	SnapshotTTL time.Duration `yaml:"snapshot-ttl" env:"REDIS_SNAPSHOT_TTL" env-default:"24h"`
}

type Archive struct {
	Enabled bool   `yaml:"enabled" env:"ARCHIVE_ENABLED" env-default:"false"`
	Driver  string `yaml:"driver" env:"ARCHIVE_DRIVER" env-default:"sqlite"`
	DSN     string `yaml:"dsn" env:"ARCHIVE_DSN" env-default:"./tictactoe.db"`
}

type Archiver struct {
	QueueSize int `yaml:"queue-size" env:"ARCHIVER_QUEUE_SIZE" env-default:"256"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
