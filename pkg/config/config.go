package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Draft storage backends.
const (
	DraftBackendRedis = "redis"
	DraftBackendFile  = "file"
)

// Submission transports.
const (
	TransportLegacy = "legacy"
	TransportCloud  = "cloud"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	CORS        CORSConfig
	Log         LogConfig
	Drafts      DraftConfig
	Submission  SubmissionConfig
	Validation  ValidationConfig
	Calculation CalculationConfig
	Record      RecordConfig
	Identity    IdentityConfig
	Metrics     MetricsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// DraftConfig controls draft persistence.
type DraftConfig struct {
	Backend          string
	Dir              string
	KeyPrefix        string
	ExpiryDays       int
	AutosaveDebounce time.Duration
}

// TTL returns the draft expiry window.
func (c DraftConfig) TTL() time.Duration {
	days := c.ExpiryDays
	if days <= 0 {
		days = 7
	}
	return time.Duration(days) * 24 * time.Hour
}

// SubmissionConfig tunes transport selection and the retry policy.
type SubmissionConfig struct {
	Transport          string
	LegacyEndpointURL  string
	CloudEndpointURL   string
	MaxAttempts        int
	BaseDelay          time.Duration
	MaxDelay           time.Duration
	AttemptTimeout     time.Duration
	RenderTimeout      time.Duration
	ArtifactArchiveDir string
	ArtifactTTL        time.Duration
	ArtifactSecret     string
	ArtifactLinkTTL    time.Duration
}

// ValidationConfig holds organisation-specific field rules.
type ValidationConfig struct {
	EmailDomain      string
	OccurrencePrefix string
	LockerMin        int
	LockerMax        int
}

// CalculationConfig holds retention and offset policy constants.
type CalculationConfig struct {
	Timezone              string
	RetentionCriticalDays int
	RetentionUrgentUpload int
	RetentionUrgentRecov  int
	RetentionAdvisoryDays int
	OffsetAlertThreshold  time.Duration
}

// RecordConfig versions the JSON record.
type RecordConfig struct {
	SchemaVersion string
}

// IdentityConfig toggles investigator identity memory.
type IdentityConfig struct {
	Enabled bool
}

// MetricsConfig toggles Prometheus exposure.
type MetricsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Drafts = DraftConfig{
		Backend:          strings.ToLower(v.GetString("DRAFT_BACKEND")),
		Dir:              v.GetString("DRAFT_DIR"),
		KeyPrefix:        v.GetString("DRAFT_KEY_PREFIX"),
		ExpiryDays:       v.GetInt("DRAFT_EXPIRY_DAYS"),
		AutosaveDebounce: parseDuration(v.GetString("DRAFT_AUTOSAVE_DEBOUNCE"), 2*time.Second),
	}

	cfg.Submission = SubmissionConfig{
		Transport:          strings.ToLower(v.GetString("SUBMIT_TRANSPORT")),
		LegacyEndpointURL:  v.GetString("LEGACY_ENDPOINT_URL"),
		CloudEndpointURL:   v.GetString("CLOUD_ENDPOINT_URL"),
		MaxAttempts:        v.GetInt("SUBMIT_MAX_ATTEMPTS"),
		BaseDelay:          parseDuration(v.GetString("SUBMIT_BASE_DELAY"), time.Second),
		MaxDelay:           parseDuration(v.GetString("SUBMIT_MAX_DELAY"), 30*time.Second),
		AttemptTimeout:     parseDuration(v.GetString("SUBMIT_ATTEMPT_TIMEOUT"), 30*time.Second),
		RenderTimeout:      parseDuration(v.GetString("RENDER_TIMEOUT"), 15*time.Second),
		ArtifactArchiveDir: v.GetString("ARTIFACT_ARCHIVE_DIR"),
		ArtifactTTL:        parseDuration(v.GetString("ARTIFACT_TTL"), 30*24*time.Hour),
		ArtifactSecret:     v.GetString("ARTIFACT_SIGNING_SECRET"),
		ArtifactLinkTTL:    parseDuration(v.GetString("ARTIFACT_LINK_TTL"), 24*time.Hour),
	}

	cfg.Validation = ValidationConfig{
		EmailDomain:      v.GetString("VALIDATION_EMAIL_DOMAIN"),
		OccurrencePrefix: v.GetString("VALIDATION_OCCURRENCE_PREFIX"),
		LockerMin:        v.GetInt("LOCKER_MIN"),
		LockerMax:        v.GetInt("LOCKER_MAX"),
	}

	cfg.Calculation = CalculationConfig{
		Timezone:              v.GetString("TIMEZONE"),
		RetentionCriticalDays: v.GetInt("RETENTION_CRITICAL_DAYS"),
		RetentionUrgentUpload: v.GetInt("RETENTION_URGENT_DAYS_UPLOAD"),
		RetentionUrgentRecov:  v.GetInt("RETENTION_URGENT_DAYS_RECOVERY"),
		RetentionAdvisoryDays: v.GetInt("RETENTION_ADVISORY_DAYS"),
		OffsetAlertThreshold:  parseDuration(v.GetString("OFFSET_ALERT_THRESHOLD"), time.Hour),
	}

	cfg.Record = RecordConfig{SchemaVersion: v.GetString("RECORD_SCHEMA_VERSION")}
	cfg.Identity = IdentityConfig{Enabled: v.GetBool("ENABLE_IDENTITY_MEMORY")}
	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "fvu_intake")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 5)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DRAFT_BACKEND", DraftBackendRedis)
	v.SetDefault("DRAFT_DIR", "./drafts")
	v.SetDefault("DRAFT_KEY_PREFIX", "fvu:draft")
	v.SetDefault("DRAFT_EXPIRY_DAYS", 7)
	v.SetDefault("DRAFT_AUTOSAVE_DEBOUNCE", "2s")

	v.SetDefault("SUBMIT_TRANSPORT", TransportCloud)
	v.SetDefault("LEGACY_ENDPOINT_URL", "")
	v.SetDefault("CLOUD_ENDPOINT_URL", "http://localhost:9090/submissions")
	v.SetDefault("SUBMIT_MAX_ATTEMPTS", 3)
	v.SetDefault("SUBMIT_BASE_DELAY", "1s")
	v.SetDefault("SUBMIT_MAX_DELAY", "30s")
	v.SetDefault("SUBMIT_ATTEMPT_TIMEOUT", "30s")
	v.SetDefault("RENDER_TIMEOUT", "15s")
	v.SetDefault("ARTIFACT_ARCHIVE_DIR", "")
	v.SetDefault("ARTIFACT_TTL", "720h")
	v.SetDefault("ARTIFACT_SIGNING_SECRET", "")
	v.SetDefault("ARTIFACT_LINK_TTL", "24h")

	v.SetDefault("VALIDATION_EMAIL_DOMAIN", "peelpolice.ca")
	v.SetDefault("VALIDATION_OCCURRENCE_PREFIX", "PR")
	v.SetDefault("LOCKER_MIN", 1)
	v.SetDefault("LOCKER_MAX", 28)

	v.SetDefault("TIMEZONE", "America/Toronto")
	v.SetDefault("RETENTION_CRITICAL_DAYS", 1)
	v.SetDefault("RETENTION_URGENT_DAYS_UPLOAD", 3)
	v.SetDefault("RETENTION_URGENT_DAYS_RECOVERY", 4)
	v.SetDefault("RETENTION_ADVISORY_DAYS", 7)
	v.SetDefault("OFFSET_ALERT_THRESHOLD", "1h")

	v.SetDefault("RECORD_SCHEMA_VERSION", "1.0")
	v.SetDefault("ENABLE_IDENTITY_MEMORY", false)
	v.SetDefault("ENABLE_METRICS", true)
}

// Default returns the configuration produced by defaults alone.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	return fromViper(v)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
