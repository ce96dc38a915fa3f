// Package config loads server configuration from environment variables
// with an optional YAML file overlay.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the fully resolved set of settings needed to start the server.
type Config struct {
	DatabaseURL     string `yaml:"database_url"`
	UseRealDatabase bool   `yaml:"use_real_database"`
	SecretKey       string `yaml:"secret_key"`
	JWTAlgorithm    string `yaml:"jwt_algorithm"`
	Environment     string `yaml:"environment"`

	CORSOrigins []string `yaml:"cors_origins"`

	EnableAutoVerification bool `yaml:"enable_auto_verification"`
	EnableDeltaCheck       bool `yaml:"enable_delta_check"`
	EnableReviewEscalation bool `yaml:"enable_review_escalation"`

	ListenAddr string `yaml:"listen_addr"`

	AdapterTimeout           time.Duration `yaml:"adapter_timeout"`
	PullPeriod               time.Duration `yaml:"pull_period"`
	UploadPeriod             time.Duration `yaml:"upload_period"`
	RetryPeriod              time.Duration `yaml:"retry_period"`
	HealthPeriod             time.Duration `yaml:"health_period"`
	InstrumentStaleThreshold time.Duration `yaml:"instrument_stale_threshold"`

	OTLPEndpoint  string  `yaml:"otlp_endpoint"`
	TracingEnable bool    `yaml:"tracing_enabled"`
	SamplingRate  float64 `yaml:"sampling_rate"`

	// RedisAddr, if set, enables a read-through cache in front of
	// LISConfig lookups. Empty disables caching entirely.
	RedisAddr     string        `yaml:"redis_addr"`
	RedisCacheTTL time.Duration `yaml:"redis_cache_ttl"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the baseline configuration before environment or file
// overlays are applied.
func Default() Config {
	return Config{
		JWTAlgorithm:           "HS256",
		Environment:            "development",
		CORSOrigins:            []string{"*"},
		EnableAutoVerification: true,
		EnableDeltaCheck:       true,
		EnableReviewEscalation: true,
		ListenAddr:             ":8080",
		AdapterTimeout:           10 * time.Second,
		PullPeriod:               30 * time.Second,
		UploadPeriod:             30 * time.Second,
		RetryPeriod:              time.Minute,
		HealthPeriod:             time.Minute,
		InstrumentStaleThreshold: 15 * time.Minute,
		RedisCacheTTL:            time.Minute,
		OTLPEndpoint:             "http://localhost:4318/v1/traces",
		TracingEnable:            false,
		SamplingRate:             1.0,
		LogLevel:                 "info",
	}
}

// Load resolves configuration: defaults, then an optional YAML file
// (path from the IVDMW_CONFIG_FILE environment variable, if set), then
// environment variables, which always win.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("IVDMW_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if cfg.SecretKey == "" && cfg.Environment == "production" {
		return Config{}, fmt.Errorf("SECRET_KEY is required when ENVIRONMENT=production")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("DATABASE_URL"); ok {
		cfg.DatabaseURL = v
	}
	if v, ok := lookupBool("USE_REAL_DATABASE"); ok {
		cfg.UseRealDatabase = v
	}
	if v, ok := os.LookupEnv("SECRET_KEY"); ok {
		cfg.SecretKey = v
	}
	if v, ok := os.LookupEnv("JWT_ALGORITHM"); ok {
		cfg.JWTAlgorithm = v
	}
	if v, ok := os.LookupEnv("ENVIRONMENT"); ok {
		cfg.Environment = v
	}
	if v, ok := os.LookupEnv("CORS_ORIGINS"); ok {
		cfg.CORSOrigins = splitCSV(v)
	}
	if v, ok := lookupBool("ENABLE_AUTO_VERIFICATION"); ok {
		cfg.EnableAutoVerification = v
	}
	if v, ok := lookupBool("ENABLE_DELTA_CHECK"); ok {
		cfg.EnableDeltaCheck = v
	}
	if v, ok := lookupBool("ENABLE_REVIEW_ESCALATION"); ok {
		cfg.EnableReviewEscalation = v
	}
	if v, ok := os.LookupEnv("LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}
	if v, ok := lookupDuration("ADAPTER_TIMEOUT"); ok {
		cfg.AdapterTimeout = v
	}
	if v, ok := lookupDuration("PULL_PERIOD"); ok {
		cfg.PullPeriod = v
	}
	if v, ok := lookupDuration("UPLOAD_PERIOD"); ok {
		cfg.UploadPeriod = v
	}
	if v, ok := lookupDuration("RETRY_PERIOD"); ok {
		cfg.RetryPeriod = v
	}
	if v, ok := lookupDuration("HEALTH_PERIOD"); ok {
		cfg.HealthPeriod = v
	}
	if v, ok := lookupDuration("INSTRUMENT_STALE_THRESHOLD"); ok {
		cfg.InstrumentStaleThreshold = v
	}
	if v, ok := os.LookupEnv("REDIS_ADDR"); ok {
		cfg.RedisAddr = v
	}
	if v, ok := lookupDuration("REDIS_CACHE_TTL"); ok {
		cfg.RedisCacheTTL = v
	}
	if v, ok := os.LookupEnv("OTLP_ENDPOINT"); ok {
		cfg.OTLPEndpoint = v
	}
	if v, ok := lookupBool("TRACING_ENABLED"); ok {
		cfg.TracingEnable = v
	}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
}

func lookupBool(key string) (bool, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

func lookupDuration(key string) (time.Duration, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
