package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Uploads  UploadsConfig
	Booking  BookingConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
}

type UploadsConfig struct {
	Dir string
}

type BookingConfig struct {
	LockTimeout    time.Duration
	RateLimit      int
	RateWindow     time.Duration
	IdempotencyTTL time.Duration
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverHost := os.Getenv("SERVER_HOST")
	if serverHost == "" {
		serverHost = "localhost"
	}

	serverPort, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	postgresHost := os.Getenv("POSTGRES_HOST")
	if postgresHost == "" {
		postgresHost = "localhost"
	}

	postgresPort, err := intEnv("POSTGRES_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	postgresUser := os.Getenv("POSTGRES_USER")
	if postgresUser == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_USER", op)
	}

	postgresPassword := os.Getenv("POSTGRES_PASSWORD")
	if postgresPassword == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_PASSWORD", op)
	}

	postgresDB := os.Getenv("POSTGRES_DB")
	if postgresDB == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_DB", op)
	}

	postgresSSLMode := os.Getenv("POSTGRES_SSLMODE")
	if postgresSSLMode == "" {
		postgresSSLMode = "disable"
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("%s: missing JWT_SECRET", op)
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	uploadsDir := os.Getenv("UPLOADS_DIR")
	if uploadsDir == "" {
		uploadsDir = "uploads/astronomy-shows"
	}

	lockTimeoutMs, err := intEnv("BOOKING_LOCK_TIMEOUT_MS", 3000)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	rateLimit, err := intEnv("BOOKING_RATE_LIMIT", 10)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &Config{
		Server: ServerConfig{
			Host: serverHost,
			Port: serverPort,
		},
		Postgres: PostgresConfig{
			User:     postgresUser,
			Password: postgresPassword,
			Name:     postgresDB,
			Host:     postgresHost,
			Port:     postgresPort,
			SSLMode:  postgresSSLMode,
		},
		Redis: RedisConfig{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
		},
		Auth: AuthConfig{
			JWTSecret: jwtSecret,
		},
		Uploads: UploadsConfig{
			Dir: uploadsDir,
		},
		Booking: BookingConfig{
			LockTimeout:    time.Duration(lockTimeoutMs) * time.Millisecond,
			RateLimit:      rateLimit,
			RateWindow:     time.Minute,
			IdempotencyTTL: 2 * time.Hour,
		},
	}, nil
}

func intEnv(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}

	return v, nil
}
