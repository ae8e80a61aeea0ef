package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env       string
	HTTPAddr  string
	StoreMode string

	MongoURI string
	MongoDB  string

	KafkaBrokers []string
	KafkaTopic   string

	S3Endpoint       string
	S3PublicEndpoint string
	S3AccessKey      string
	S3SecretKey      string
	S3Bucket         string
	S3UseSSL         bool

	FXURL          string
	FXCurrency     string
	FXTTL          time.Duration
	FXFallbackRate float64

	GenAIURL string
	GenAIKey string

	SessionTTL time.Duration
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		StoreMode:        strings.ToLower(getEnv("STORE_MODE", "memory")),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "quickswap"),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "quickswap.changes"),
		S3Endpoint:       getEnv("S3_ENDPOINT", "http://localhost:9000"),
		S3PublicEndpoint: getEnv("S3_PUBLIC_ENDPOINT", ""),
		S3AccessKey:      getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:      getEnv("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:         getEnv("S3_BUCKET", "quickswap-media"),
		FXURL:            getEnv("FX_URL", "https://open.er-api.com/v6/latest/USD"),
		FXCurrency:       getEnv("FX_CURRENCY", "TRY"),
		GenAIURL:         getEnv("GENAI_URL", ""),
		GenAIKey:         os.Getenv("GENAI_API_KEY"),
	}

	switch cfg.StoreMode {
	case "memory", "mongo":
	default:
		return Config{}, fmt.Errorf("invalid STORE_MODE %q (want memory or mongo)", cfg.StoreMode)
	}
	if cfg.StoreMode == "mongo" && cfg.MongoURI == "" {
		return Config{}, fmt.Errorf("MONGO_URI is required when STORE_MODE=mongo")
	}

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		for _, raw := range strings.Split(brokers, ",") {
			if b := strings.TrimSpace(raw); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	fxTTL, err := parseDurationEnv("FX_TTL", time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.FXTTL = fxTTL

	sessionTTL, err := parseDurationEnv("SESSION_TTL", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionTTL = sessionTTL

	fallback, err := parseFloatEnv("FX_FALLBACK_RATE", 34.5)
	if err != nil {
		return Config{}, err
	}
	if fallback <= 0 {
		return Config{}, fmt.Errorf("FX_FALLBACK_RATE must be positive")
	}
	cfg.FXFallbackRate = fallback

	useSSL, err := parseBoolEnv("S3_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	cfg.S3UseSSL = useSSL
	if cfg.S3PublicEndpoint == "" {
		cfg.S3PublicEndpoint = cfg.S3Endpoint
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseFloatEnv(key string, def float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	var v float64
	if _, err := fmt.Sscanf(strings.TrimSpace(raw), "%g", &v); err != nil {
		return 0, fmt.Errorf("invalid %s number: %q", key, raw)
	}
	return v, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
