package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/craftwerk/portfolio-backend/internal/models"
)

type Config struct {
	APP_ENV     string
	HTTP_ADDR   string
	LOG_LEVEL   string
	DB_HOST     string
	DB_PORT     string
	DB_USER     string
	DB_PASSWORD string
	DB_NAME     string

	JWT_SECRET  string
	ACCESS_TTL  time.Duration
	REFRESH_TTL time.Duration

	LOGIN_RATE_MAX      int
	LOGIN_RATE_WINDOW   time.Duration
	REFRESH_RATE_MAX    int
	REFRESH_RATE_WINDOW time.Duration

	CORS_ORIGINS []string

	KAFKA_ADDRESS string

	ES_URL      string
	ES_USER     string
	ES_PASSWORD string

	ADMIN_EMAIL    string
	ADMIN_USERNAME string
	ADMIN_PASSWORD string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		APP_ENV:     getEnv("APP_ENV", "development"),
		HTTP_ADDR:   getEnv("HTTP_ADDR", ":8080"),
		LOG_LEVEL:   getEnv("LOG_LEVEL", "info"),
		DB_HOST:     os.Getenv("DB_HOST"),
		DB_PORT:     os.Getenv("DB_PORT"),
		DB_USER:     os.Getenv("DB_USER"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_NAME:     os.Getenv("DB_NAME"),

		JWT_SECRET:  os.Getenv("JWT_SECRET"),
		ACCESS_TTL:  getDuration("ACCESS_TTL", 15*time.Minute),
		REFRESH_TTL: getDuration("REFRESH_TTL", 30*24*time.Hour),

		LOGIN_RATE_MAX:      getInt("LOGIN_RATE_MAX", 5),
		LOGIN_RATE_WINDOW:   getDuration("LOGIN_RATE_WINDOW", time.Minute),
		REFRESH_RATE_MAX:    getInt("REFRESH_RATE_MAX", 10),
		REFRESH_RATE_WINDOW: getDuration("REFRESH_RATE_WINDOW", time.Minute),

		CORS_ORIGINS: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),

		KAFKA_ADDRESS: os.Getenv("KAFKA_ADDRESS"),

		ES_URL:      os.Getenv("ES_URL"),
		ES_USER:     os.Getenv("ES_USER"),
		ES_PASSWORD: os.Getenv("ES_PASSWORD"),

		ADMIN_EMAIL:    os.Getenv("ADMIN_EMAIL"),
		ADMIN_USERNAME: os.Getenv("ADMIN_USERNAME"),
		ADMIN_PASSWORD: os.Getenv("ADMIN_PASSWORD"),
	}

	if config.JWT_SECRET == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return config, nil
}

func (c *Config) IsProduction() bool {
	return c.APP_ENV == "production"
}

func InitDB(c *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DB_USER, c.DB_PASSWORD, c.DB_HOST, c.DB_PORT, c.DB_NAME,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("cannot connect to database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs AutoMigrate for every entity. Shared with the test
// helpers so the schema never drifts between runtime and tests.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.RefreshToken{},
		&models.About{},
		&models.Project{},
		&models.Experience{},
	); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
