package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Log struct {
	Level      string
	File       string // empty disables the rotating file core
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Console    bool
}

type Outbox struct {
	Enabled bool
	Dir     string
}

type Kafka struct {
	Driver  string // "sarama" or "kafkago"
	Brokers []string
	Topic   string
}

type Broadcast struct {
	Interval time.Duration
	Codec    string // "proto" or "json"
}

type Config struct {
	Markets     []string
	Log         Log
	Outbox      Outbox
	Kafka       Kafka
	Broadcast   Broadcast
	MetricsAddr string // HTTP listener for /metrics, the query API and /ws
	CORSOrigins []string
	SeedDemo    bool
}

func Default() Config {
	return Config{
		Markets: []string{"BTC-USD", "ETH-USD"},
		Log: Log{
			Level:      "info",
			MaxSizeMB:  5,
			MaxBackups: 10,
			MaxAgeDays: 14,
			Console:    true,
		},
		Outbox: Outbox{
			Enabled: true,
			Dir:     "data/outbox",
		},
		Kafka: Kafka{
			Driver: "sarama",
			Topic:  "trades",
		},
		Broadcast: Broadcast{
			Interval: 250 * time.Millisecond,
			Codec:    "proto",
		},
		MetricsAddr: ":9100",
		CORSOrigins: []string{"*"},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("MARKETS"); v != "" {
		cfg.Markets = splitList(v)
	}

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
	cfg.Log.MaxSizeMB = getInt("LOG_MAX_SIZE_MB", cfg.Log.MaxSizeMB)
	cfg.Log.MaxBackups = getInt("LOG_MAX_BACKUPS", cfg.Log.MaxBackups)
	cfg.Log.MaxAgeDays = getInt("LOG_MAX_AGE_DAYS", cfg.Log.MaxAgeDays)
	cfg.Log.Console = getBool("LOG_CONSOLE", cfg.Log.Console)

	cfg.Outbox.Enabled = getBool("OUTBOX_ENABLED", cfg.Outbox.Enabled)
	cfg.Outbox.Dir = getEnv("OUTBOX_DIR", cfg.Outbox.Dir)

	cfg.Kafka.Driver = getEnv("KAFKA_DRIVER", cfg.Kafka.Driver)
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", cfg.Kafka.Topic)

	cfg.Broadcast.Codec = getEnv("EVENT_CODEC", cfg.Broadcast.Codec)
	if ms := getInt("BROADCAST_INTERVAL_MS", 0); ms > 0 {
		cfg.Broadcast.Interval = time.Duration(ms) * time.Millisecond
	}

	cfg.MetricsAddr = getEnv("METRICS_ADDR", cfg.MetricsAddr)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	cfg.SeedDemo = getBool("SEED_DEMO", cfg.SeedDemo)

	return cfg
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
