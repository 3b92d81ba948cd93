package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StorageMemory = "memory"
	StorageMongo  = "mongo"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                string
	HTTPAddr           string
	StorageMode        string
	Currency           string
	MongoURI           string
	MongoDB            string
	KafkaBrokers       []string
	KafkaTopicPrefix   string
	KafkaGroupID       string
	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	S3Endpoint         string
	S3AccessKey        string
	S3SecretKey        string
	S3Bucket           string
	S3UseSSL           bool
	EmailBaseURL       string
	EmailTimeout       time.Duration
	TemplatesFile      string
	Templates          map[string]string
	PaymentsURL        string
	PaymentsToken      string
	JWTSecret          string
	JWTIssuer          string
	RateLimitRPS       float64
	RateLimitBurst     int
	CORSOrigins        []string
	HoldTTL            time.Duration
	HorizonDays        int
	ReconcileInterval  time.Duration
	HoldSweepInterval  time.Duration
	SeedFixtures       bool
}

// TemplateFile maps notification template names to email endpoint paths.
type TemplateFile struct {
	Templates map[string]string `yaml:"templates"`
}

// Load reads an optional .env file and then parses the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		StorageMode:      strings.ToLower(getEnv("STORAGE_MODE", StorageMemory)),
		Currency:         strings.ToUpper(getEnv("CURRENCY", "PHP")),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "staybook"),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
		KafkaGroupID:     getEnv("KAFKA_GROUP_ID", "staybook-notify"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		S3Endpoint:       os.Getenv("S3_ENDPOINT"),
		S3AccessKey:      getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:      getEnv("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:         getEnv("S3_BUCKET", "staybook-receipts"),
		EmailBaseURL:     os.Getenv("EMAIL_BASE_URL"),
		TemplatesFile:    os.Getenv("EMAIL_TEMPLATES_FILE"),
		PaymentsURL:      os.Getenv("PAYMENTS_URL"),
		PaymentsToken:    os.Getenv("PAYMENTS_TOKEN"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		JWTIssuer:        getEnv("JWT_ISSUER", "staybook"),
	}
	brokers := getEnv("KAFKA_BROKERS", "")
	if brokers != "" {
		cfg.KafkaBrokers = splitList(brokers)
	}
	cfg.CORSOrigins = splitList(getEnv("CORS_ORIGINS", "*"))

	var err error
	if cfg.IdempotencyTTL, err = parseDurationEnv("IDEMP_TTL", 168*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.EmailTimeout, err = parseDurationEnv("EMAIL_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.HoldTTL, err = parseDurationEnv("HOLD_TTL", 15*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.ReconcileInterval, err = parseDurationEnv("RECONCILE_INTERVAL", time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.HoldSweepInterval, err = parseDurationEnv("HOLD_SWEEP_INTERVAL", time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.RedisDB, err = parseIntEnv("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.HorizonDays, err = parseIntEnv("AVAILABILITY_HORIZON_DAYS", 730); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitBurst, err = parseIntEnv("RATE_LIMIT_BURST", 10); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitRPS, err = parseFloatEnv("RATE_LIMIT_RPS", 5); err != nil {
		return Config{}, err
	}
	if cfg.S3UseSSL, err = parseBoolEnv("S3_USE_SSL", false); err != nil {
		return Config{}, err
	}
	if cfg.SeedFixtures, err = parseBoolEnv("SEED_FIXTURES", cfg.StorageMode == StorageMemory); err != nil {
		return Config{}, err
	}

	retryStr := getEnv("RETRY_BACKOFF", "1s,5s,30s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	if cfg.TemplatesFile != "" {
		templates, err := LoadTemplates(cfg.TemplatesFile)
		if err != nil {
			return Config{}, err
		}
		cfg.Templates = templates
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StorageMode {
	case StorageMemory:
	case StorageMongo:
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required when STORAGE_MODE=mongo")
		}
	default:
		return fmt.Errorf("unknown STORAGE_MODE %q", c.StorageMode)
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("CURRENCY must be an ISO 4217 code, got %q", c.Currency)
	}
	if c.HoldTTL <= 0 {
		return errors.New("HOLD_TTL must be positive")
	}
	return nil
}

// LoadTemplates reads the template-to-endpoint mapping. Environment
// variables in the file are expanded.
func LoadTemplates(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	var file TemplateFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &file); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return file.Templates, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
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

func parseIntEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return n, nil
}

func parseFloatEnv(key string, def float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s number: %w", key, err)
	}
	return f, nil
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
