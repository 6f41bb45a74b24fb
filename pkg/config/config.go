package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr      string
	LogFormat     string
	LogLevel      string
	DatabaseDSN   string
	DBAutoMigrate bool

	JWTSecret       string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Bootstrap account created on migrate when both are set.
	SeedAdminEmail    string
	SeedAdminPassword string

	QueueDriver    string // redis, sqs or memory
	QueuePrefix    string
	RedisAddr      string
	RedisPassword  string
	SQSPrefix      string // sqs queues are named <prefix>-notifications and <prefix>-uploads
	EnqueueTimeout time.Duration

	WorkerConcurrency int
	JobMaxAttempts    int
	JobBackoff        time.Duration
	ReminderInterval  time.Duration
	ReminderWindow    time.Duration

	StorageDriver string // s3 or memory
	S3Bucket      string
	S3Region      string
	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string
	URLExpiry     time.Duration

	StripeSecretKey     string
	StripeWebhookSecret string
	Currency            string

	ResendAPIKey    string
	FromEmail       string
	StaffEmail      string
	AppURL          string
	MailTemplateDir string

	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from the process environment. A local .env file
// and an optional YAML file (CONFIG_FILE) supply values for keys the
// environment does not set; the environment always wins.
func Load() (Config, error) {
	loadDotEnv(".env")
	src := source{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		file, err := readYAML(path)
		if err != nil {
			return Config{}, err
		}
		src.file = file
	}
	return Config{
		HTTPAddr:      src.get("HTTP_ADDR", ":8081"),
		LogFormat:     src.get("LOG_FORMAT", "json"),
		LogLevel:      src.get("LOG_LEVEL", "info"),
		DatabaseDSN:   src.get("DB_DSN", ""),
		DBAutoMigrate: src.bool("DB_AUTO_MIGRATE", true),

		JWTSecret:       src.get("JWT_SECRET", ""),
		JWTIssuer:       src.get("JWT_ISSUER", "invict-crm"),
		AccessTokenTTL:  src.duration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: src.duration("REFRESH_TOKEN_TTL", 7*24*time.Hour),

		SeedAdminEmail:    src.get("SEED_ADMIN_EMAIL", ""),
		SeedAdminPassword: src.get("SEED_ADMIN_PASSWORD", ""),

		QueueDriver:    strings.ToLower(src.get("QUEUE_DRIVER", "redis")),
		QueuePrefix:    src.get("QUEUE_PREFIX", "crm"),
		RedisAddr:      src.get("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:  src.get("REDIS_PASSWORD", ""),
		SQSPrefix:      src.get("SQS_QUEUE_PREFIX", "crm"),
		EnqueueTimeout: src.duration("ENQUEUE_TIMEOUT", 2*time.Second),

		WorkerConcurrency: src.int("WORKER_CONCURRENCY", 4),
		JobMaxAttempts:    src.int("JOB_MAX_ATTEMPTS", 3),
		JobBackoff:        src.duration("JOB_BACKOFF", 5*time.Second),
		ReminderInterval:  src.duration("REMINDER_INTERVAL", 15*time.Minute),
		ReminderWindow:    src.duration("REMINDER_WINDOW", 24*time.Hour),

		StorageDriver: strings.ToLower(src.get("STORAGE_DRIVER", "s3")),
		S3Bucket:      src.get("S3_BUCKET", "invict-academy"),
		S3Region:      src.get("S3_REGION", "us-east-1"),
		S3Endpoint:    src.get("S3_ENDPOINT", ""),
		S3AccessKey:   src.get("S3_ACCESS_KEY", ""),
		S3SecretKey:   src.get("S3_SECRET_KEY", ""),
		URLExpiry:     src.duration("URL_EXPIRY", time.Hour),

		StripeSecretKey:     src.get("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: src.get("STRIPE_WEBHOOK_SECRET", ""),
		Currency:            strings.ToLower(src.get("PAYMENT_CURRENCY", "eur")),

		ResendAPIKey:    src.get("RESEND_API_KEY", ""),
		FromEmail:       src.get("FROM_EMAIL", "Invict Academy <noreply@invictacademy.com>"),
		StaffEmail:      src.get("STAFF_EMAIL", "staff@invictacademy.com"),
		AppURL:          strings.TrimRight(src.get("APP_URL", "http://localhost:3000"), "/"),
		MailTemplateDir: src.get("MAIL_TEMPLATE_DIR", ""),

		KafkaBrokers: src.list("KAFKA_BROKERS"),
		KafkaTopic:   src.get("KAFKA_TOPIC", "crm-events"),
	}, nil
}

// Validate checks the settings every long-running process needs.
func (c Config) Validate() error {
	var errs []error
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("DB_DSN is not set"))
	}
	if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 characters"))
	}
	switch c.QueueDriver {
	case "redis", "sqs", "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown QUEUE_DRIVER %q", c.QueueDriver))
	}
	switch c.StorageDriver {
	case "s3", "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}
	if c.JobMaxAttempts < 1 {
		errs = append(errs, errors.New("JOB_MAX_ATTEMPTS must be at least 1"))
	}
	return errors.Join(errs...)
}

type source struct {
	file map[string]string
}

func (s source) lookup(key string) (string, bool) {
	if val := os.Getenv(key); val != "" {
		return val, true
	}
	if val, ok := s.file[key]; ok && val != "" {
		return val, true
	}
	return "", false
}

func (s source) get(key, fallback string) string {
	if val, ok := s.lookup(key); ok {
		return val
	}
	return fallback
}

func (s source) duration(key string, fallback time.Duration) time.Duration {
	if val, ok := s.lookup(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val, ok := s.lookup(key + "_SECONDS"); ok {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func (s source) int(key string, fallback int) int {
	if val, ok := s.lookup(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func (s source) bool(key string, fallback bool) bool {
	val, ok := s.lookup(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(val) {
	case "false", "0", "no":
		return false
	case "true", "1", "yes":
		return true
	}
	return fallback
}

func (s source) list(key string) []string {
	val, ok := s.lookup(key)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// readYAML loads a flat KEY: value document. Keys use the environment names.
func readYAML(path string) (map[string]string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch tv := v.(type) {
		case nil:
		case []any:
			parts := make([]string, 0, len(tv))
			for _, item := range tv {
				parts = append(parts, fmt.Sprint(item))
			}
			out[strings.ToUpper(k)] = strings.Join(parts, ",")
		default:
			out[strings.ToUpper(k)] = fmt.Sprint(tv)
		}
	}
	return out, nil
}

// loadDotEnv loads key=value pairs from a local .env file into the environment
// without overwriting variables that are already set. Lines starting with # are ignored.
func loadDotEnv(path string) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return // no .env file
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if eq := strings.IndexByte(line, '='); eq > 0 {
			key := strings.TrimSpace(line[:eq])
			val := strings.Trim(strings.TrimSpace(line[eq+1:]), `"`)
			if _, exists := os.LookupEnv(key); !exists {
				_ = os.Setenv(key, val)
			}
		}
	}
}
