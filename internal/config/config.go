package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	PublicURL string
}

type HFConfig struct {
	BaseURL    string
	Token      string
	ImageModel string
	TextModel  string
}

type ESConfig struct {
	URL      string
	User     string
	Password string
	Index    string
	// Timeout bounds the wait for a response header from the cluster.
	Timeout time.Duration
}

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	DatabaseURL string

	JWTSecret []byte
	TokenTTL  time.Duration

	GatewayTimeout time.Duration

	// UniqueAdvertTitles rejects a second advert with the same title from the same owner.
	UniqueAdvertTitles bool

	S3 S3Config
	HF HFConfig
	ES ESConfig

	KafkaBrokers []string
}

// Load reads .env (when present) and then the process environment.
func Load() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: .env file not found: %v. Using system environment variables", err)
	}

	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "advert_market"),
		ServerPort:  EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret: []byte(os.Getenv("JWT_SECRET")),
		TokenTTL:  EnvDurationDefault("TOKEN_TTL", 5*time.Minute),

		GatewayTimeout: EnvDurationDefault("GATEWAY_TIMEOUT", 30*time.Second),

		UniqueAdvertTitles: EnvBoolDefault("ADVERT_UNIQUE_TITLES", true),

		S3: S3Config{
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			Region:    EnvDefault("S3_REGION", "us-east-1"),
			Bucket:    os.Getenv("S3_BUCKET"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
			PublicURL: os.Getenv("S3_PUBLIC_URL"),
		},
		HF: HFConfig{
			BaseURL:    EnvDefault("HF_BASE_URL", "https://api-inference.huggingface.co"),
			Token:      os.Getenv("HF_TOKEN"),
			ImageModel: EnvDefault("HF_IMAGE_MODEL", "stabilityai/stable-diffusion-xl-base-1.0"),
			TextModel:  EnvDefault("HF_TEXT_MODEL", "mistralai/Mistral-7B-Instruct-v0.3"),
		},
		ES: ESConfig{
			URL:      os.Getenv("ES_URL"),
			User:     os.Getenv("ES_USER"),
			Password: os.Getenv("ES_PASSWORD"),
			Index:    EnvDefault("ES_INDEX", "adverts"),
			Timeout:  EnvDurationDefault("ES_TIMEOUT", 5*time.Second),
		},

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),
	}
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
