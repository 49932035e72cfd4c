package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Modem     ModemConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig
	Webhook   WebhookConfig
}

type ServerConfig struct {
	Address string
}

type ModemConfig struct {
	Port     string
	BaudRate int
	PIN      string
	SMSC     string
}

type DatabaseConfig struct {
	PostgresURL string
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

type SchedulerConfig struct {
	Interval time.Duration
}

type WebhookConfig struct {
	Enabled bool
	URL     string
}

func LoadAll() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Address: getEnv("SERVER_ADDRESS", ":8080"),
		},
		Modem: ModemConfig{
			Port:     mustEnv("MODEM_PORT"),
			BaudRate: getEnvInt("MODEM_BAUDRATE", 115200),
			PIN:      os.Getenv("MODEM_PIN"),
			SMSC:     getEnv("MODEM_SMSC", "+3725099000"),
		},
		Database: DatabaseConfig{
			PostgresURL: mustEnv("POSTGRES_URL"),
		},
		Scheduler: SchedulerConfig{
			Interval: time.Duration(getEnvInt("SCHED_INTERVAL_SECONDS", 10)) * time.Second,
		},
		Redis:   loadRedisConfig(),
		Webhook: loadWebhookConfig(),
	}

	validate(cfg)
	return cfg, nil
}

func loadRedisConfig() RedisConfig {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return RedisConfig{Enabled: false}
	}

	return RedisConfig{
		Enabled:  true,
		Address:  addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       getEnvInt("REDIS_DB", 0),
		TTL:      time.Duration(getEnvInt("REDIS_TTL_SECONDS", 86400)) * time.Second,
	}
}

func loadWebhookConfig() WebhookConfig {
	url := os.Getenv("WEBHOOK_URL")
	return WebhookConfig{Enabled: url != "", URL: url}
}

func validate(cfg *Config) {
	if cfg.Scheduler.Interval <= 0 {
		panic("SCHED_INTERVAL_SECONDS must be > 0")
	}
	if cfg.Modem.BaudRate <= 0 {
		panic("MODEM_BAUDRATE must be > 0")
	}
}

func mustEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("missing required env var: %s", key))
	}
	return val
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("invalid int for env %s: %s", key, v))
	}
	return i
}
