package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	MirrorNone       = "none"
	MirrorCloudinary = "cloudinary"
	MirrorSupabase   = "supabase"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string
	CORSOrigins []string

	DatabaseURL     string
	MongoDBURI      string
	MongoDBPassword string

	JWTSecret    string
	JWTExpiresIn time.Duration
	JWKSURL      string

	DeepSeekAPIKey    string
	DeepSeekBaseURL   string
	DeepSeekModel     string
	GoogleMapsAPIKey  string
	RejectOutOfBounds bool

	ImageMirror         string
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	SupabaseURL         string
	SupabaseAnonKey     string
	SupabaseBucket      string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:        getEnvWithDefault("PORT", "8000"),
		Environment: getEnvWithDefault("ENVIRONMENT", "development"),
		LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),
		CORSOrigins: splitList(getEnvWithDefault("FRONTEND_ORIGIN", "*")),

		DatabaseURL:     os.Getenv("DATABASE_URL"),
		MongoDBURI:      os.Getenv("MONGODB_URI"),
		MongoDBPassword: os.Getenv("MONGODB_PASSWORD"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWKSURL:   os.Getenv("JWKS_URL"),

		DeepSeekAPIKey:   os.Getenv("DEEPSEEK_API_KEY"),
		DeepSeekBaseURL:  getEnvWithDefault("DEEPSEEK_BASE_URL", "https://api.deepseek.com/v1"),
		DeepSeekModel:    getEnvWithDefault("DEEPSEEK_MODEL", "deepseek-chat"),
		GoogleMapsAPIKey: os.Getenv("GOOGLE_MAPS_API_KEY"),

		ImageMirror:         strings.ToLower(getEnvWithDefault("IMAGE_MIRROR", MirrorNone)),
		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		SupabaseURL:         os.Getenv("SUPABASE_URL"),
		SupabaseAnonKey:     os.Getenv("SUPABASE_URL_ANON_KEY"),
		SupabaseBucket:      getEnvWithDefault("SUPABASE_BUCKET", "place-images"),
	}

	expires, err := time.ParseDuration(getEnvWithDefault("JWT_EXPIRES_IN", "24h"))
	if err != nil || expires <= 0 {
		return nil, fmt.Errorf("JWT_EXPIRES_IN must be a positive duration")
	}
	cfg.JWTExpiresIn = expires

	reject, err := strconv.ParseBool(getEnvWithDefault("AI_REJECT_OUT_OF_BOUNDS", "false"))
	if err != nil {
		return nil, fmt.Errorf("AI_REJECT_OUT_OF_BOUNDS must be a boolean")
	}
	cfg.RejectOutOfBounds = reject

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.DeepSeekAPIKey == "" {
		return nil, fmt.Errorf("DEEPSEEK_API_KEY is required")
	}

	switch cfg.ImageMirror {
	case MirrorNone:
	case MirrorCloudinary:
		if cfg.CloudinaryCloudName == "" || cfg.CloudinaryAPIKey == "" || cfg.CloudinaryAPISecret == "" {
			return nil, fmt.Errorf("CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET are required for the cloudinary mirror")
		}
	case MirrorSupabase:
		if cfg.SupabaseURL == "" || cfg.SupabaseAnonKey == "" {
			return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_URL_ANON_KEY are required for the supabase mirror")
		}
	default:
		return nil, fmt.Errorf("unsupported IMAGE_MIRROR: %s (expected none, cloudinary, supabase)", cfg.ImageMirror)
	}

	return cfg, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
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

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// HasMapsKey reports whether map and photo enrichment is available.
func (c *Config) HasMapsKey() bool {
	return c.GoogleMapsAPIKey != ""
}

// HistoryEnabled reports whether suggestion history is persisted to MongoDB.
func (c *Config) HistoryEnabled() bool {
	return c.MongoDBURI != ""
}
