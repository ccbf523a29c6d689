package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Khakverdiev/exam/internal/models"
)

type Config struct {
	ADDR        string
	LOG_LEVEL   string
	DB_HOST     string
	DB_PORT     string
	DB_USER     string
	DB_PASSWORD string
	DB_NAME     string

	JWT_SECRET       string
	JWT_ISSUER       string
	JWT_AUDIENCE     string
	EMAIL_JWT_SECRET string

	KAFKA_ADDRESS string
	CORS_ORIGINS  string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	EmailTokenTTL   time.Duration
	SweepInterval   time.Duration
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		ADDR:        getenv("ADDR", ":8080"),
		LOG_LEVEL:   getenv("LOG_LEVEL", "info"),
		DB_HOST:     os.Getenv("DB_HOST"),
		DB_PORT:     os.Getenv("DB_PORT"),
		DB_USER:     os.Getenv("DB_USER"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_NAME:     os.Getenv("DB_NAME"),

		JWT_SECRET:       os.Getenv("JWT_SECRET"),
		JWT_ISSUER:       getenv("JWT_ISSUER", "exam-shop"),
		JWT_AUDIENCE:     getenv("JWT_AUDIENCE", "exam-shop-client"),
		EMAIL_JWT_SECRET: os.Getenv("EMAIL_JWT_SECRET"),

		KAFKA_ADDRESS: os.Getenv("KAFKA_ADDRESS"),
		CORS_ORIGINS:  getenv("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001"),

		AccessTokenTTL:  getduration("ACCESS_TOKEN_TTL", 10*time.Minute),
		RefreshTokenTTL: getduration("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		EmailTokenTTL:   getduration("EMAIL_TOKEN_TTL", 5*time.Minute),
		SweepInterval:   getduration("BLACKLIST_SWEEP_INTERVAL", 10*time.Minute),
	}

	return config, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Notice: bad duration in %s=%q, using default %s", key, v, fallback)
		return fallback
	}
	return d
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DB_USER, cfg.DB_PASSWORD, cfg.DB_HOST, cfg.DB_PORT, cfg.DB_NAME,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}
