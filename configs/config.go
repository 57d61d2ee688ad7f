package configs

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDriver  string
	DBSource  string
	Port      string
	JWTSecret string
	JWTTTL    time.Duration

	// customer self-cancel window, measured from placement
	CancelGrace time.Duration
	// how long an order may sit in pending before the sweeper cancels it
	PendingTimeout time.Duration
	SweepInterval  time.Duration

	// per-subscriber event buffer; a subscriber that falls this far
	// behind is dropped and resyncs via snapshot
	EventBuffer int

	// optional RabbitMQ relay/notifications; empty disables both
	AMQPURL string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, reading environment directly")
	}

	return &Config{
		DBDriver:       getEnv("DB_DRIVER", "sqlite"),
		DBSource:       getEnv("DB_SOURCE", "barorder.db"),
		Port:           getEnv("PORT", "8000"),
		JWTSecret:      getEnv("JWT_SECRET", "changeme"),
		JWTTTL:         getDuration("JWT_TTL", 24*time.Hour),
		CancelGrace:    getDuration("CANCEL_GRACE", 5*time.Minute),
		PendingTimeout: getDuration("PENDING_TIMEOUT", 15*time.Minute),
		SweepInterval:  getDuration("SWEEP_INTERVAL", time.Minute),
		EventBuffer:    getInt("EVENT_BUFFER", 16),
		AMQPURL:        os.Getenv("AMQP_URL"),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("invalid duration for %s, using default", key)
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
