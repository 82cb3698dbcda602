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

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	Cache      CacheConfig
	Auth       AuthConfig
	CORS       CORSConfig
	Log        LogConfig
	Media      MediaConfig
	AI         AIConfig
	Activities ActivitiesConfig
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

// CacheConfig governs read caching of session feeds.
type CacheConfig struct {
	Enabled     bool
	SessionsTTL time.Duration
}

// AuthConfig holds the shared teacher password and token signing settings.
type AuthConfig struct {
	TeacherPassword string
	JWTSecret       string
	JWTExpiration   time.Duration
	Issuer          string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// MediaConfig configures where uploaded session videos live and how they are addressed.
type MediaConfig struct {
	StorageDir    string
	PublicBaseURL string
	MaxVideoBytes int64
}

// AIConfig configures the Gemini client.
type AIConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// ActivitiesConfig bounds inline activity attachments.
type ActivitiesConfig struct {
	MaxImageBytes int
	MaxPDFBytes   int
	ImageMaxWidth int
	ImageQuality  int
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
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Cache = CacheConfig{
		Enabled:     v.GetBool("CACHE_ENABLED"),
		SessionsTTL: parseDuration(v.GetString("SESSIONS_CACHE_TTL"), 2*time.Minute),
	}

	cfg.Auth = AuthConfig{
		TeacherPassword: v.GetString("TEACHER_PASSWORD"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		JWTExpiration:   parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
		Issuer:          v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxVideo := v.GetInt64("MEDIA_MAX_VIDEO_SIZE")
	if maxVideo <= 0 {
		maxVideo = 500 * 1024 * 1024
	}
	cfg.Media = MediaConfig{
		StorageDir:    v.GetString("MEDIA_STORAGE_DIR"),
		PublicBaseURL: strings.TrimRight(v.GetString("MEDIA_PUBLIC_BASE_URL"), "/"),
		MaxVideoBytes: maxVideo,
	}

	cfg.AI = AIConfig{
		APIKey:  v.GetString("GEMINI_API_KEY"),
		Model:   v.GetString("GEMINI_MODEL"),
		Timeout: parseDuration(v.GetString("AI_TIMEOUT"), 60*time.Second),
	}

	cfg.Activities = ActivitiesConfig{
		MaxImageBytes: v.GetInt("ACTIVITY_MAX_IMAGE_BYTES"),
		MaxPDFBytes:   v.GetInt("ACTIVITY_MAX_PDF_BYTES"),
		ImageMaxWidth: v.GetInt("ACTIVITY_IMAGE_MAX_WIDTH"),
		ImageQuality:  v.GetInt("ACTIVITY_IMAGE_QUALITY"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "pe_portal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("SESSIONS_CACHE_TTL", "2m")

	v.SetDefault("TEACHER_PASSWORD", "admin")
	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")
	v.SetDefault("JWT_ISSUER", "pe-portal-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("MEDIA_STORAGE_DIR", "./media/videos")
	v.SetDefault("MEDIA_PUBLIC_BASE_URL", "http://localhost:8080/media/videos")
	v.SetDefault("MEDIA_MAX_VIDEO_SIZE", 500*1024*1024)

	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-2.5-flash")
	v.SetDefault("AI_TIMEOUT", "60s")

	v.SetDefault("ACTIVITY_MAX_IMAGE_BYTES", 300*1024)
	v.SetDefault("ACTIVITY_MAX_PDF_BYTES", 300*1024)
	v.SetDefault("ACTIVITY_IMAGE_MAX_WIDTH", 800)
	v.SetDefault("ACTIVITY_IMAGE_QUALITY", 60)
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

