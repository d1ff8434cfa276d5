package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string
	ScyllaHosts []string
	Keyspace    string
	RedisAddr   string

	// Empty KafkaBrokers disables the event feed entirely.
	KafkaBrokers []string
	KafkaTopic   string

	// Empty JWTSecret disables the upgrade-boundary token check.
	JWTSecret string

	SnowflakeNode         int64
	PersistDeliveredFiles bool
	LogFile               string
}

func LoadConfig() Config {
	godotenv.Load()

	return Config{
		Addr:                  envOr("GATEWAY_ADDR", ":8080"),
		ScyllaHosts:           strings.Split(envOr("SCYLLA_HOSTS", "localhost:9042"), ","),
		Keyspace:              envOr("SCYLLA_KEYSPACE", "chat"),
		RedisAddr:             envOr("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers:          splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:            envOr("KAFKA_TOPIC", "message-events"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		SnowflakeNode:         envInt64("SNOWFLAKE_NODE", 1),
		PersistDeliveredFiles: envBool("GATEWAY_PERSIST_DELIVERED_FILES", false),
		LogFile:               os.Getenv("GATEWAY_LOG_FILE"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
