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

// Media providers.
const (
	MediaProviderGitHub = "github"
	MediaProviderLocal  = "local"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string
	// PublicBaseURL is the externally reachable origin used in QR codes.
	PublicBaseURL string

	Database DatabaseConfig
	Redis    RedisConfig
	Session  SessionConfig
	Auth     AuthConfig
	CORS     CORSConfig
	Log      LogConfig
	Media    MediaConfig
	Cache    CacheConfig
	Audit    AuditConfig
	I18n     I18nConfig
	Admin    AdminSeedConfig
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
	AutoMigrate  bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// SessionConfig controls token signing and session lifetime. A zero TTL keeps
// sessions alive until logout.
type SessionConfig struct {
	Secret       string
	TTL          time.Duration
	CookieName   string
	CookieSecure bool
}

// AuthConfig toggles account self-service.
type AuthConfig struct {
	AllowSelfSignup bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// MediaConfig selects the external media host and staging behaviour.
type MediaConfig struct {
	Provider       string
	MaxUploadBytes int64
	StagingDir     string
	StagingTTL     time.Duration
	SweepSchedule  string
	CleanupWorkers int
	CleanupRetries int
	FetchTimeout   time.Duration
	GitHub         GitHubConfig
	Local          LocalMediaConfig
}

// GitHubConfig points the media resolver at a repository used as a file host.
type GitHubConfig struct {
	Token   string
	Owner   string
	Repo    string
	Branch  string
	BaseURL string
}

// LocalMediaConfig serves media from disk under /media.
type LocalMediaConfig struct {
	Dir           string
	PublicBaseURL string
}

// CacheConfig governs the listing filter cache.
type CacheConfig struct {
	Enabled   bool
	FilterTTL time.Duration
}

// AuditConfig configures the optional audit stream.
type AuditConfig struct {
	NATSURL     string
	NATSSubject string
	AuditDenied bool
}

type I18nConfig struct {
	DefaultLocale string
}

// AdminSeedConfig supplies defaults for the seed-admin command.
type AdminSeedConfig struct {
	Username string
	Email    string
	Password string
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.PublicBaseURL = strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Session = SessionConfig{
		Secret:       v.GetString("SESSION_SECRET"),
		TTL:          parseDuration(v.GetString("SESSION_TTL"), 0),
		CookieName:   v.GetString("SESSION_COOKIE_NAME"),
		CookieSecure: v.GetBool("SESSION_COOKIE_SECURE"),
	}

	cfg.Auth = AuthConfig{AllowSelfSignup: v.GetBool("ALLOW_SELF_SIGNUP")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:      v.GetString("LOG_LEVEL"),
		Format:     v.GetString("LOG_FORMAT"),
		File:       v.GetString("LOG_FILE"),
		MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
		MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
		MaxAgeDays: v.GetInt("LOG_MAX_AGE_DAYS"),
	}

	maxUpload := v.GetInt64("MEDIA_MAX_UPLOAD_BYTES")
	if maxUpload <= 0 {
		maxUpload = 10 * 1024 * 1024
	}
	owner, repo := splitRepo(v.GetString("GITHUB_REPO"))
	cfg.Media = MediaConfig{
		Provider:       strings.ToLower(v.GetString("MEDIA_PROVIDER")),
		MaxUploadBytes: maxUpload,
		StagingDir:     v.GetString("MEDIA_STAGING_DIR"),
		StagingTTL:     parseDuration(v.GetString("MEDIA_STAGING_TTL"), 24*time.Hour),
		SweepSchedule:  v.GetString("MEDIA_STAGING_SWEEP"),
		CleanupWorkers: v.GetInt("MEDIA_CLEANUP_WORKERS"),
		CleanupRetries: v.GetInt("MEDIA_CLEANUP_RETRIES"),
		FetchTimeout:   parseDuration(v.GetString("MEDIA_FETCH_TIMEOUT"), 5*time.Second),
		GitHub: GitHubConfig{
			Token:   v.GetString("GITHUB_TOKEN"),
			Owner:   owner,
			Repo:    repo,
			Branch:  v.GetString("GITHUB_BRANCH"),
			BaseURL: v.GetString("GITHUB_API_URL"),
		},
		Local: LocalMediaConfig{
			Dir:           v.GetString("MEDIA_LOCAL_DIR"),
			PublicBaseURL: strings.TrimRight(v.GetString("MEDIA_PUBLIC_BASE_URL"), "/"),
		},
	}

	cfg.Cache = CacheConfig{
		Enabled:   v.GetBool("ENABLE_FILTER_CACHE"),
		FilterTTL: parseDuration(v.GetString("FILTER_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Audit = AuditConfig{
		NATSURL:     v.GetString("AUDIT_NATS_URL"),
		NATSSubject: v.GetString("AUDIT_NATS_SUBJECT"),
		AuditDenied: v.GetBool("AUDIT_ACCESS_DENIED"),
	}

	cfg.I18n = I18nConfig{DefaultLocale: v.GetString("DEFAULT_LOCALE")}

	cfg.Admin = AdminSeedConfig{
		Username: v.GetString("ADMIN_USERNAME"),
		Email:    v.GetString("ADMIN_EMAIL"),
		Password: v.GetString("ADMIN_PASSWORD"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "personnel_skill_matrix")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SESSION_SECRET", "dev_session_secret")
	v.SetDefault("SESSION_TTL", "")
	v.SetDefault("SESSION_COOKIE_NAME", "skill_matrix_session")
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("ALLOW_SELF_SIGNUP", true)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_MAX_SIZE_MB", 10)
	v.SetDefault("LOG_MAX_BACKUPS", 3)
	v.SetDefault("LOG_MAX_AGE_DAYS", 28)

	v.SetDefault("MEDIA_PROVIDER", MediaProviderLocal)
	v.SetDefault("MEDIA_MAX_UPLOAD_BYTES", 10*1024*1024)
	v.SetDefault("MEDIA_STAGING_DIR", "./tmp/uploads")
	v.SetDefault("MEDIA_STAGING_TTL", "24h")
	v.SetDefault("MEDIA_STAGING_SWEEP", "@every 1h")
	v.SetDefault("MEDIA_CLEANUP_WORKERS", 1)
	v.SetDefault("MEDIA_CLEANUP_RETRIES", 3)
	v.SetDefault("MEDIA_FETCH_TIMEOUT", "5s")
	v.SetDefault("GITHUB_TOKEN", "")
	v.SetDefault("GITHUB_REPO", "")
	v.SetDefault("GITHUB_BRANCH", "main")
	v.SetDefault("GITHUB_API_URL", "")
	v.SetDefault("MEDIA_LOCAL_DIR", "./static")
	v.SetDefault("MEDIA_PUBLIC_BASE_URL", "http://localhost:8080")

	v.SetDefault("ENABLE_FILTER_CACHE", true)
	v.SetDefault("FILTER_CACHE_TTL", "10m")

	v.SetDefault("AUDIT_NATS_URL", "")
	v.SetDefault("AUDIT_NATS_SUBJECT", "skillmatrix.audit")
	v.SetDefault("AUDIT_ACCESS_DENIED", true)

	v.SetDefault("DEFAULT_LOCALE", "en")

	v.SetDefault("ADMIN_USERNAME", "")
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_PASSWORD", "")
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

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// splitRepo parses "owner/repo".
func splitRepo(raw string) (string, string) {
	owner, repo, found := strings.Cut(strings.TrimSpace(raw), "/")
	if !found {
		return "", ""
	}
	return strings.TrimSpace(owner), strings.TrimSpace(repo)
}
