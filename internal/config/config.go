package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		GoogleBooks
		CORS
		Thumbnails
		Auth
		Tasks
		Audit
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Driver   string // sqlite, postgres or mysql
		Path     string // sqlite only
		DSN      string // postgres and mysql
		LogLevel string // silent, error, warn or info
	}
	GoogleBooks struct {
		BaseURL           string
		APIKey            string
		Timeout           time.Duration
		RequestsPerSecond float64 // 0 disables client-side limiting
	}
	CORS struct {
		AllowedOrigins []string
	}
	Thumbnails struct {
		Enabled  bool
		CacheDir string // Defaults to "thumbnails" next to the sqlite catalog
	}
	Auth struct {
		// TokenHash is a bcrypt hash of the API token. Mutations are open when empty.
		TokenHash string
	}
	Tasks struct {
		Enabled         bool
		DBPath          string // Defaults to "<database>-tasks.db" next to the sqlite catalog
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Audit struct {
		RetentionDays   int    // Days to keep audit events (default: 90)
		CleanupSchedule string // Cron format: "0 3 * * *" = daily at 03:00
	}
)

// LoadEnvFiles reads variables from the given dotenv files into the
// process environment. Missing files are skipped and variables that are
// already set win.
func LoadEnvFiles(files ...string) {
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8080)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)

	v.SetDefault("database_driver", "sqlite")
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_dsn", "")
	v.SetDefault("database_log_level", "warn")

	v.SetDefault("google_books_base_url", "https://www.googleapis.com/books/v1/volumes")
	v.SetDefault("google_books_api_key", "")
	v.SetDefault("google_books_timeout", "10s")
	v.SetDefault("google_books_rps", 0)

	v.SetDefault("cors_allowed_origins", "*")
	v.SetDefault("auth_token_hash", "")

	v.SetDefault("thumbnails_enabled", true)
	v.SetDefault("thumbnail_cache_dir", "")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_db_path", "")
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("audit_retention_days", 90)
	v.SetDefault("audit_cleanup_schedule", "0 3 * * *")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Driver:   strings.ToLower(v.GetString("DATABASE_DRIVER")),
			Path:     v.GetString("DATABASE_PATH"),
			DSN:      v.GetString("DATABASE_DSN"),
			LogLevel: v.GetString("DATABASE_LOG_LEVEL"),
		},
		GoogleBooks: GoogleBooks{
			BaseURL:           v.GetString("GOOGLE_BOOKS_BASE_URL"),
			APIKey:            v.GetString("GOOGLE_BOOKS_API_KEY"),
			Timeout:           v.GetDuration("GOOGLE_BOOKS_TIMEOUT"),
			RequestsPerSecond: v.GetFloat64("GOOGLE_BOOKS_RPS"),
		},
		CORS: CORS{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Thumbnails: Thumbnails{
			Enabled:  v.GetBool("THUMBNAILS_ENABLED"),
			CacheDir: v.GetString("THUMBNAIL_CACHE_DIR"),
		},
		Auth: Auth{
			TokenHash: v.GetString("AUTH_TOKEN_HASH"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			DBPath:          v.GetString("TASK_DB_PATH"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Audit: Audit{
			RetentionDays:   v.GetInt("AUDIT_RETENTION_DAYS"),
			CleanupSchedule: v.GetString("AUDIT_CLEANUP_SCHEDULE"),
		},
	}
}

// splitList parses a comma-separated value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
