package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env             string
	HTTPPort        string
	DBPath          string
	RedisAddr       string
	JWTIssuer       string
	JWTSigningKey   string
	AccessTTL       time.Duration
	AdminUser       string
	AdminPass       string
	QueueBackend    string
	RateLimitPerMin int
	CameraProbeMax  int
	PollInterval    time.Duration
	CascadePath     string
	ImagesDir       string
	DarkTheme       bool
	DropboxToken    string
}

// Load returns application config populated from environment variables with
// sensible defaults. A .env file in the working directory is read first when
// present.
func Load() App {
	_ = godotenv.Load()
	return App{
		Env:             getEnv("APP_ENV", "dev"),
		HTTPPort:        getEnv("HTTP_PORT", "8081"),
		DBPath:          getEnv("DB_PATH", "my_db.db"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		JWTIssuer:       getEnv("JWT_ISSUER", "visitorgate"),
		JWTSigningKey:   getEnv("JWT_SIGNING_KEY", "dev-signing-secret-change"),
		AccessTTL:       durationEnv("ACCESS_TTL", 15*time.Minute),
		AdminUser:       getEnv("ADMIN_USER", "admin"),
		AdminPass:       getEnv("ADMIN_PASS", "1234"),
		QueueBackend:    getEnv("QUEUE_BACKEND", "redis"),
		RateLimitPerMin: intEnv("RATE_LIMIT_PER_MIN", 120),
		CameraProbeMax:  intEnv("CAMERA_PROBE_MAX", 10),
		PollInterval:    durationEnv("CAMERA_POLL_INTERVAL", 30*time.Millisecond),
		CascadePath:     getEnv("FACE_CASCADE_PATH", "haarcascade_frontalface_default.xml"),
		ImagesDir:       getEnv("IMAGES_DIR", "images"),
		DarkTheme:       boolEnv("DARK_THEME", true),
		DropboxToken:    getEnv("DROPBOX_TOKEN", ""),
	}
}

// StagingPath is where the most recent snapshot lives until the record is saved.
func (a App) StagingPath() string { return filepath.Join(a.ImagesDir, "temp.jpg") }

// DefaultPhotoPath is the fallback profile photo shown when a record has none.
func (a App) DefaultPhotoPath() string { return filepath.Join(a.ImagesDir, "profile.jpg") }

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if val == "1" || val == "true" || val == "TRUE" {
			return true
		}
		if val == "0" || val == "false" || val == "FALSE" {
			return false
		}
		log.Printf("invalid bool for %s, using fallback %v", key, fallback)
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Printf("invalid int for %s: %v, using fallback %d", key, err, fallback)
			return fallback
		}
		return parsed
	}
	return fallback
}
