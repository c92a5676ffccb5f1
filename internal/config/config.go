package config

import (
	"errors"
	"log"
	"os"
	"strconv"
)

type Config struct {
	Addr          string
	JWTSecret     string
	WebhookSecret string
	MongoURI      string
	MongoDB       string
	MongoPoolSize int
	MediaDir      string
	MediaBaseURL  string
	MaxUploadMB   int64
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val != "" {
		return val
	}
	return def
}

// Load reads configuration from the environment. The secrets have no sane
// default: an empty JWT_SECRET would accept forged tokens and an empty
// WEBHOOK_SECRET would accept forged identity events, so both are required.
func Load() (Config, error) {
	pool, _ := strconv.Atoi(getenv("MONGO_POOL_SIZE", "20"))
	maxup, _ := strconv.ParseInt(getenv("MAX_UPLOAD_MB", "32"), 10, 64)

	cfg := Config{
		Addr:          getenv("HTTP_ADDR", ":8080"),
		JWTSecret:     getenv("JWT_SECRET", ""),
		WebhookSecret: getenv("WEBHOOK_SECRET", ""),
		MongoURI:      getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:       getenv("MONGO_DB", "socially"),
		MongoPoolSize: pool,
		MediaDir:      getenv("MEDIA_DIR", "media"),
		MediaBaseURL:  getenv("MEDIA_BASE_URL", "http://localhost:8080"),
		MaxUploadMB:   maxup,
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if cfg.WebhookSecret == "" {
		return Config{}, errors.New("WEBHOOK_SECRET is required")
	}
	return cfg, nil
}

func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}
