// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// GenAIConfig provides settings for the text-generation service.
type GenAIConfig interface {
	GetGenAIAPIKey() string
	GetGenAIModel() string
	GetGenAITimeout() time.Duration
}

// TelephonyConfig provides settings for the telephony provider boundary.
type TelephonyConfig interface {
	GetPublicBaseURL() string
	GetCallerNumber() string
	GetStreamTokenSecret() string
	GetStreamTokenTTL() time.Duration
	GetCallGreeting() string
}

// VoiceServiceConfig provides settings for the real-time voice-generation service.
type VoiceServiceConfig interface {
	GetVoiceServiceURL() string
	GetVoiceServiceAPIKey() string
	GetVoiceServiceVoice() string
}

// BridgeConfig provides settings for the media-stream session bridge.
type BridgeConfig interface {
	GetMaxCallDuration() time.Duration
	GetVoicemailGrace() time.Duration
	GetRelaySendTimeout() time.Duration
	GetSummaryTimeout() time.Duration
}

// MatchingConfig provides settings for lead scoring and business matching.
type MatchingConfig interface {
	// GetLeadQualityThreshold gates matching; leads scoring below it are
	// terminal low_quality. Required, no default.
	GetLeadQualityThreshold() float64
	GetMatchRadiusKm() float64
	GetMaxMatches() int
}

// SchedulerConfig provides settings for the background task scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// EmailConfig provides settings for business notification delivery.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// StorageConfig provides settings for MinIO S3-compatible storage.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketCallRecordings() string
	IsMinIOEnabled() bool
}

// =============================================================================
// Config Struct
// =============================================================================

// Config holds all application configuration loaded from the environment.
type Config struct {
	Env      string
	HTTPAddr string

	CORSAllowAll bool
	CORSOrigins  []string

	DatabaseURL string

	GenAIAPIKey  string
	GenAIModel   string
	GenAITimeout time.Duration

	PublicBaseURL     string
	CallerNumber      string
	StreamTokenSecret string
	StreamTokenTTL    time.Duration
	CallGreeting      string

	VoiceServiceURL    string
	VoiceServiceAPIKey string
	VoiceServiceVoice  string

	MaxCallDuration  time.Duration
	VoicemailGrace   time.Duration
	RelaySendTimeout time.Duration
	SummaryTimeout   time.Duration

	LeadQualityThreshold float64
	MatchRadiusKm        float64
	MaxMatches           int

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string

	MinIOEndpoint        string
	MinIOAccessKey       string
	MinIOSecretKey       string
	MinIOUseSSL          bool
	BucketCallRecordings string
}

// Load reads configuration from .env (if present) and the environment.
// It fails when a required value is missing rather than guessing a default.
func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		CORSAllowAll: getEnvBool("CORS_ALLOW_ALL", false),
		CORSOrigins:  splitAndTrim(getEnv("CORS_ORIGINS", "")),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		GenAIAPIKey:  os.Getenv("GENAI_API_KEY"),
		GenAIModel:   getEnv("GENAI_MODEL", "gemini-2.0-flash"),
		GenAITimeout: getEnvDuration("GENAI_TIMEOUT", 30*time.Second),

		PublicBaseURL:     os.Getenv("PUBLIC_BASE_URL"),
		CallerNumber:      os.Getenv("CALLER_NUMBER"),
		StreamTokenSecret: os.Getenv("STREAM_TOKEN_SECRET"),
		StreamTokenTTL:    getEnvDuration("STREAM_TOKEN_TTL", 5*time.Minute),
		CallGreeting:      getEnv("CALL_GREETING", "Please hold while we connect you."),

		VoiceServiceURL:    os.Getenv("VOICE_SERVICE_URL"),
		VoiceServiceAPIKey: os.Getenv("VOICE_SERVICE_API_KEY"),
		VoiceServiceVoice:  getEnv("VOICE_SERVICE_VOICE", "alloy"),

		MaxCallDuration:  getEnvDuration("MAX_CALL_DURATION", 10*time.Minute),
		VoicemailGrace:   getEnvDuration("VOICEMAIL_GRACE", 6*time.Second),
		RelaySendTimeout: getEnvDuration("RELAY_SEND_TIMEOUT", 5*time.Second),
		SummaryTimeout:   getEnvDuration("SUMMARY_TIMEOUT", 45*time.Second),

		MatchRadiusKm: getEnvFloat("MATCH_RADIUS_KM", 40),
		MaxMatches:    getEnvInt("MAX_MATCHES", 5),

		RedisURL:         os.Getenv("REDIS_URL"),
		RedisTLSInsecure: getEnvBool("REDIS_TLS_INSECURE", false),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: getEnvInt("ASYNQ_CONCURRENCY", 10),

		EmailEnabled:     getEnvBool("EMAIL_ENABLED", false),
		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPPort:         getEnvInt("SMTP_PORT", 587),
		SMTPUsername:     os.Getenv("SMTP_USERNAME"),
		SMTPPassword:     os.Getenv("SMTP_PASSWORD"),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Fixline"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", "no-reply@fixline.local"),

		MinIOEndpoint:        os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey:       os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey:       os.Getenv("MINIO_SECRET_KEY"),
		MinIOUseSSL:          getEnvBool("MINIO_USE_SSL", false),
		BucketCallRecordings: getEnv("MINIO_BUCKET_CALL_RECORDINGS", "call-recordings"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	// No authoritative default exists for the quality gate; deployments must
	// choose one explicitly.
	threshold := os.Getenv("LEAD_QUALITY_THRESHOLD")
	if threshold == "" {
		return nil, fmt.Errorf("LEAD_QUALITY_THRESHOLD is required")
	}
	parsed, err := strconv.ParseFloat(threshold, 64)
	if err != nil || parsed < 0 || parsed > 10 {
		return nil, fmt.Errorf("LEAD_QUALITY_THRESHOLD must be a number in [0,10]")
	}
	cfg.LeadQualityThreshold = parsed

	return cfg, nil
}

// =============================================================================
// Interface Implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

func (c *Config) GetGenAIAPIKey() string         { return c.GenAIAPIKey }
func (c *Config) GetGenAIModel() string          { return c.GenAIModel }
func (c *Config) GetGenAITimeout() time.Duration { return c.GenAITimeout }

func (c *Config) GetPublicBaseURL() string         { return c.PublicBaseURL }
func (c *Config) GetCallerNumber() string          { return c.CallerNumber }
func (c *Config) GetStreamTokenSecret() string     { return c.StreamTokenSecret }
func (c *Config) GetStreamTokenTTL() time.Duration { return c.StreamTokenTTL }
func (c *Config) GetCallGreeting() string          { return c.CallGreeting }

func (c *Config) GetVoiceServiceURL() string    { return c.VoiceServiceURL }
func (c *Config) GetVoiceServiceAPIKey() string { return c.VoiceServiceAPIKey }
func (c *Config) GetVoiceServiceVoice() string  { return c.VoiceServiceVoice }

func (c *Config) GetMaxCallDuration() time.Duration  { return c.MaxCallDuration }
func (c *Config) GetVoicemailGrace() time.Duration   { return c.VoicemailGrace }
func (c *Config) GetRelaySendTimeout() time.Duration { return c.RelaySendTimeout }
func (c *Config) GetSummaryTimeout() time.Duration   { return c.SummaryTimeout }

func (c *Config) GetLeadQualityThreshold() float64 { return c.LeadQualityThreshold }
func (c *Config) GetMatchRadiusKm() float64        { return c.MatchRadiusKm }
func (c *Config) GetMaxMatches() int               { return c.MaxMatches }

func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

func (c *Config) GetMinIOEndpoint() string             { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string            { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string            { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool                 { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketCallRecordings() string { return c.BucketCallRecordings }
func (c *Config) IsMinIOEnabled() bool {
	return c.MinIOEndpoint != "" && c.MinIOAccessKey != "" && c.MinIOSecretKey != ""
}

// =============================================================================
// Helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
