package config

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Settings is the resolved process configuration. It is built once at start
// up and handed to the components that need it.
type Settings struct {
	Env      string
	Port     string
	GRPCPort string

	StoreDriver   string // mongo | sql
	MongoURL      string
	MongoDatabase string
	SQLDriver     string // sqlite | postgres | mysql | sqlserver
	SQLDSN        string

	JWTSecret   string
	BaseURL     string
	CORSOrigins []string

	RedisAddr       string
	RedisPassword   string
	CatalogCacheTTL time.Duration

	Disk       string // local | s3
	LocalRoot  string
	S3         S3Settings
	Cloudinary CloudinarySettings

	MaxBodyBytes       int64
	RateLimitPerMinute int
	LogMongoCollection string
}

type S3Settings struct {
	Bucket   string
	Region   string
	Key      string
	Secret   string
	Endpoint string
	URL      string
}

type CloudinarySettings struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Enabled reports whether all three Cloudinary credentials are present.
func (c CloudinarySettings) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

func (s *Settings) IsProduction() bool {
	return s.Env == "production" || s.Env == "prod"
}

// ErrDefaultJWTSecret is returned by Validate when a production process
// would sign tokens with the built-in secret.
var ErrDefaultJWTSecret = errors.New("config: JWT_SECRET must be set in production")

// Validate rejects settings that are only safe outside production.
func (s *Settings) Validate() error {
	if s.IsProduction() && (s.JWTSecret == "" || s.JWTSecret == defaultJWTSecret) {
		return ErrDefaultJWTSecret
	}
	return nil
}

// Build loads every config source and resolves the Settings.
func Build() (*Settings, error) {
	if err := Load(); err != nil {
		return nil, err
	}
	s := build(get)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// FromMap resolves Settings from an explicit key set layered on the defaults.
func FromMap(m map[string]string) *Settings {
	merged := defaultValues()
	for k, v := range m {
		merged[strings.ToUpper(k)] = v
	}
	return build(func(key, fallback string) string {
		if v := strings.TrimSpace(merged[key]); v != "" {
			return v
		}
		return fallback
	})
}

func build(lookup func(key, fallback string) string) *Settings {
	port := lookup("PORT", lookup("APP_PORT", defaultPort))

	return &Settings{
		Env:      lookup("APP_ENV", defaultAppEnv),
		Port:     port,
		GRPCPort: lookup("GRPC_PORT", ""),

		StoreDriver:   storeDriver(lookup("STORE_DRIVER", defaultStoreDriver)),
		MongoURL:      lookup("MONGODB_URL", defaultMongoURL),
		MongoDatabase: lookup("MONGODB_DATABASE", defaultMongoDatabase),
		SQLDriver:     sqlDriver(lookup("DB_DRIVER", defaultSQLDriver)),
		SQLDSN:        sqlDSN(sqlDriver(lookup("DB_DRIVER", defaultSQLDriver)), lookup("DATABASE_DSN", "")),

		JWTSecret:   lookup("JWT_SECRET", defaultJWTSecret),
		BaseURL:     strings.TrimRight(lookup("BASE_URL", ""), "/"),
		CORSOrigins: splitList(lookup("CORS_ORIGINS", defaultCORSOrigins)),

		RedisAddr:       lookup("REDIS_ADDR", ""),
		RedisPassword:   lookup("REDIS_PASSWORD", ""),
		CatalogCacheTTL: parseDuration(lookup("CATALOG_CACHE_TTL", ""), time.Minute),

		Disk:      lookup("STORAGE_DISK", "local"),
		LocalRoot: lookup("STORAGE_LOCAL_ROOT", defaultUploadRoot),
		S3: S3Settings{
			Bucket:   lookup("S3_BUCKET", ""),
			Region:   lookup("S3_REGION", "us-east-1"),
			Key:      lookup("S3_KEY", ""),
			Secret:   lookup("S3_SECRET", ""),
			Endpoint: lookup("S3_ENDPOINT", ""),
			URL:      lookup("S3_URL", ""),
		},
		Cloudinary: CloudinarySettings{
			CloudName: lookup("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:    lookup("CLOUDINARY_API_KEY", ""),
			APISecret: lookup("CLOUDINARY_API_SECRET", ""),
			Folder:    lookup("CLOUDINARY_FOLDER", defaultCloudFolder),
		},

		MaxBodyBytes:       int64(parseInt(lookup("MAX_BODY_BYTES", ""), 4<<20)),
		RateLimitPerMinute: parseInt(lookup("RATE_LIMIT_PER_MINUTE", ""), 200),
		LogMongoCollection: lookup("LOG_MONGO_COLLECTION", ""),
	}
}

func storeDriver(v string) string {
	if strings.EqualFold(v, "sql") {
		return "sql"
	}
	return defaultStoreDriver
}

func sqlDriver(v string) string {
	driver := strings.ToLower(v)
	switch driver {
	case "sqlite", "postgres", "mysql", "sqlserver":
		return driver
	default:
		return defaultSQLDriver
	}
}

func sqlDSN(driver, override string) string {
	if override != "" {
		return override
	}
	switch driver {
	case "postgres":
		return defaultPostgresDSN
	case "mysql":
		return defaultMySQLDSN
	case "sqlserver":
		return defaultSQLServerDSN
	default:
		return defaultSQLiteDSN
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseInt(v string, fallback int) int {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseDuration(v string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
