package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSources_Precedence(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "app.json")
	envPath := filepath.Join(dir, ".env")

	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"port": 5000, "jwt_secret": "from-json", "base_url": "https://json.example"}`), 0o600))
	require.NoError(t, os.WriteFile(envPath, []byte("# comment\nJWT_SECRET=\"from-dotenv\"\nexport REDIS_ADDR=localhost:6379\n"), 0o600))

	got, err := readSources(jsonPath, envPath, []string{"BASE_URL=https://env.example", "EMPTY="})
	require.NoError(t, err)

	assert.Equal(t, "5000", got["PORT"])
	assert.Equal(t, "from-dotenv", got["JWT_SECRET"])
	assert.Equal(t, "localhost:6379", got["REDIS_ADDR"])
	assert.Equal(t, "https://env.example", got["BASE_URL"])
	assert.Equal(t, "mongo", got["STORE_DRIVER"])
	_, hasEmpty := got["EMPTY"]
	assert.False(t, hasEmpty)
}

func TestReadSources_MissingFilesUseDefaults(t *testing.T) {
	dir := t.TempDir()
	got, err := readSources(filepath.Join(dir, "nope.json"), filepath.Join(dir, ".nope"), nil)
	require.NoError(t, err)
	assert.Equal(t, defaultJWTSecret, got["JWT_SECRET"])
}

func TestReadSources_BadJSON(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "app.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{not json`), 0o600))

	_, err := readSources(jsonPath, filepath.Join(dir, ".env"), nil)
	assert.Error(t, err)
}

func TestFromMap(t *testing.T) {
	s := FromMap(map[string]string{
		"APP_PORT":              "9000",
		"BASE_URL":              "https://api.example/",
		"STORE_DRIVER":          "SQL",
		"DB_DRIVER":             "postgres",
		"CORS_ORIGINS":          " https://a.example , ,https://b.example",
		"CATALOG_CACHE_TTL":     "5m",
		"RATE_LIMIT_PER_MINUTE": "abc",
		"CLOUDINARY_CLOUD_NAME": "demo",
		"CLOUDINARY_API_KEY":    "key",
	})

	assert.Equal(t, "9000", s.Port)
	assert.Equal(t, "https://api.example", s.BaseURL)
	assert.Equal(t, "sql", s.StoreDriver)
	assert.Equal(t, "postgres", s.SQLDriver)
	assert.Equal(t, defaultPostgresDSN, s.SQLDSN)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, s.CORSOrigins)
	assert.Equal(t, 5*time.Minute, s.CatalogCacheTTL)
	assert.Equal(t, 200, s.RateLimitPerMinute)
	assert.Equal(t, "modera_products", s.Cloudinary.Folder)
	assert.False(t, s.Cloudinary.Enabled())
}

func TestFromMap_PortPrefersPORT(t *testing.T) {
	s := FromMap(map[string]string{"PORT": "7000", "APP_PORT": "9000"})
	assert.Equal(t, "7000", s.Port)

	s = FromMap(nil)
	assert.Equal(t, "4000", s.Port)
	assert.Equal(t, "mongo", s.StoreDriver)
	assert.Equal(t, "sqlite", s.SQLDriver)
	assert.False(t, s.IsProduction())
}

func TestValidate_ProductionNeedsOwnJWTSecret(t *testing.T) {
	for _, env := range []string{"production", "prod"} {
		s := FromMap(map[string]string{"APP_ENV": env})
		assert.True(t, s.IsProduction())
		assert.ErrorIs(t, s.Validate(), ErrDefaultJWTSecret, env)
	}

	s := FromMap(map[string]string{"APP_ENV": "production", "JWT_SECRET": "a-real-secret"})
	assert.NoError(t, s.Validate())

	s = FromMap(nil)
	assert.Equal(t, defaultJWTSecret, s.JWTSecret)
	assert.NoError(t, s.Validate())
}
