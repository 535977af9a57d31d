package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	PGDSN          string
	MongoURI       string
	RedisAddr      string
	RabbitURL      string
	HTTPAddr       string
	StatusCacheTTL time.Duration
	OTLPEndpoint   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	statusTTL, _ := time.ParseDuration(os.Getenv("STATUS_CACHE_TTL"))
	if statusTTL == 0 {
		statusTTL = 5 * time.Second
	}

	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	return &Config{
		PGDSN:          os.Getenv("PG_DSN"),
		MongoURI:       os.Getenv("MONGO_URI"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RabbitURL:      os.Getenv("RABBIT_URL"),
		HTTPAddr:       httpAddr,
		StatusCacheTTL: statusTTL,
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}
