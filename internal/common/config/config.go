package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTP struct {
		Port int
	}
	Database struct {
		Host     string
		Port     int
		User     string
		Password string
		Name     string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	RabbitMQ struct {
		Host     string
		Port     int
		User     string
		Password string
		Exchange string
	}
	JWT struct {
		Secret     string
		AccessTTL  time.Duration
		RefreshTTL time.Duration
	}
	OTP struct {
		ExpiryMinutes int
		SenderKind    string // "dev" or "sms"
		GatewayURL    string
		GatewayToken  string
		SenderID      string
	}
	Mpesa struct {
		Environment    string // "sandbox" or "production"
		ConsumerKey    string
		ConsumerSecret string
		Shortcode      string
		Passkey        string
		CallbackURL    string
		InitiatorName  string
		CommissionRate float64
	}
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return def
}

func LoadConfig() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.HTTP.Port = getEnvInt("HTTP_PORT", 8000)

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "zeno_user")
	cfg.Database.Password = getEnv("DB_PASSWORD", "zeno_pass")
	cfg.Database.Name = getEnv("DB_NAME", "zeno_db")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.RabbitMQ.Host = getEnv("RABBITMQ_HOST", "localhost")
	cfg.RabbitMQ.Port = getEnvInt("RABBITMQ_PORT", 5672)
	cfg.RabbitMQ.User = getEnv("RABBITMQ_USER", "guest")
	cfg.RabbitMQ.Password = getEnv("RABBITMQ_PASSWORD", "guest")
	cfg.RabbitMQ.Exchange = getEnv("RABBITMQ_EXCHANGE", "zeno.events")

	cfg.JWT.Secret = getEnv("JWT_SECRET", "")
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	cfg.JWT.AccessTTL = time.Duration(getEnvInt("JWT_ACCESS_TTL_MINUTES", 60)) * time.Minute
	cfg.JWT.RefreshTTL = time.Duration(getEnvInt("JWT_REFRESH_TTL_HOURS", 24*7)) * time.Hour

	cfg.OTP.ExpiryMinutes = getEnvInt("OTP_EXPIRY_MINUTES", 10)
	cfg.OTP.SenderKind = getEnv("OTP_SENDER", "dev")
	cfg.OTP.GatewayURL = getEnv("OTP_GATEWAY_URL", "")
	cfg.OTP.GatewayToken = getEnv("OTP_GATEWAY_TOKEN", "")
	cfg.OTP.SenderID = getEnv("OTP_SENDER_ID", "ZENO")

	cfg.Mpesa.Environment = getEnv("MPESA_ENVIRONMENT", "sandbox")
	cfg.Mpesa.ConsumerKey = getEnv("MPESA_CONSUMER_KEY", "")
	cfg.Mpesa.ConsumerSecret = getEnv("MPESA_CONSUMER_SECRET", "")
	cfg.Mpesa.Shortcode = getEnv("MPESA_SHORTCODE", "174379")
	cfg.Mpesa.Passkey = getEnv("MPESA_PASSKEY", "")
	cfg.Mpesa.CallbackURL = getEnv("MPESA_CALLBACK_URL", "")
	cfg.Mpesa.InitiatorName = getEnv("MPESA_INITIATOR_NAME", "testapi")
	cfg.Mpesa.CommissionRate = getEnvFloat("MPESA_COMMISSION_RATE", 10.0)

	return cfg, nil
}
