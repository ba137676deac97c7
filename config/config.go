package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	AuthProviderSupabase = "supabase"
	AuthProviderLocal    = "local"

	StorageDriverNone = ""
	StorageDriverR2   = "r2"
	StorageDriverGCS  = "gcs"
)

// Config holds the application's configuration values, read from the
// environment (and an optional .env file).
type Config struct {
	AppEnv         string   `envconfig:"APP_ENV" default:"development"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"`
	AdminEmail     string   `envconfig:"ADMIN_EMAIL" required:"true"`
	AdminPassword  string   `envconfig:"ADMIN_PASSWORD"`
	SessionSecret  string   `envconfig:"SESSION_SECRET" required:"true"`
	CookieSecure   bool     `envconfig:"COOKIE_SECURE" default:"false"`
	CookieDomain   string   `envconfig:"COOKIE_DOMAIN"`

	HttpServer ServerConfig
	Mongo      MongoConfig
	Auth       AuthConfig
	Storage    StorageConfig
}

type ServerConfig struct {
	Port         string        `envconfig:"PORT" default:"8080"`
	TimeoutRead  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_READ" default:"15s"`
	TimeoutWrite time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_WRITE" default:"15s"`
	TimeoutIdle  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_IDLE" default:"60s"`
}

type MongoConfig struct {
	URI      string `envconfig:"MONGODB_URI" required:"true"`
	Database string `envconfig:"DATABASE_NAME" default:"Smartshop"`
}

// AuthConfig selects and configures the identity provider behind the auth bridge.
type AuthConfig struct {
	Provider          string        `envconfig:"AUTH_PROVIDER" default:"supabase"`
	SupabaseURL       string        `envconfig:"SUPABASE_PROJECT_URL"`
	SupabaseKey       string        `envconfig:"SUPABASE_PUBLIC_API_KEY"`
	SupabaseJWTSecret string        `envconfig:"SUPABASE_JWT_SECRET"`
	JWTSecret         string        `envconfig:"JWT_SECRET"`
	AccessTTL         time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"1h"`
	ResetRedirect     string        `envconfig:"PASSWORD_RESET_REDIRECT" default:"/update-password"`
}

type StorageConfig struct {
	Driver          string   `envconfig:"STORAGE_DRIVER"`
	R2Bucket        string   `envconfig:"R2_BUCKET"`
	R2AccessKey     string   `envconfig:"R2_ACCESS_KEY_ID"`
	R2SecretKey     string   `envconfig:"R2_SECRET_ACCESS_KEY"`
	R2Endpoint      string   `envconfig:"R2_ENDPOINT"`
	R2PublicDomain  string   `envconfig:"R2_PUBLIC_DOMAIN"`
	GCSBucket       string   `envconfig:"GCS_BUCKET"`
	CredentialsFile string   `envconfig:"CREDENTIALS_FILE_LOCATION"`
	MaxUploadSizeMB int      `envconfig:"MAX_UPLOAD_SIZE_MB" default:"5"`
	AllowedExt      []string `envconfig:"ALLOWED_FILE_EXTENSIONS" default:".jpg,.jpeg,.png,.webp"`
	AllowedMime     []string `envconfig:"ALLOWED_FILE_MIME_TYPES" default:"image/jpeg,image/png,image/webp"`
}

// Load reads .env (if present) and the process environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("INFO: No .env file found, using system environment variables")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.AdminEmail = NormalizeEmail(c.AdminEmail)

	switch c.Auth.Provider {
	case AuthProviderSupabase:
		if c.Auth.SupabaseURL == "" || c.Auth.SupabaseKey == "" {
			return fmt.Errorf("config: SUPABASE_PROJECT_URL and SUPABASE_PUBLIC_API_KEY are required for the supabase auth provider")
		}
	case AuthProviderLocal:
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("config: JWT_SECRET is required for the local auth provider")
		}
	default:
		return fmt.Errorf("config: unknown AUTH_PROVIDER %q", c.Auth.Provider)
	}

	switch c.Storage.Driver {
	case StorageDriverNone:
	case StorageDriverR2:
		s := c.Storage
		if s.R2Bucket == "" || s.R2AccessKey == "" || s.R2SecretKey == "" || s.R2Endpoint == "" {
			return fmt.Errorf("config: missing R2 env vars (R2_BUCKET, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY, R2_ENDPOINT)")
		}
	case StorageDriverGCS:
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("config: GCS_BUCKET is required for the gcs storage driver")
		}
	default:
		return fmt.Errorf("config: unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	return nil
}

// IsProduction reports whether the service runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// NormalizeEmail lower-cases and trims an address so that admin checks and
// credential lookups compare like with like.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
