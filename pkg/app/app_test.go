package app_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modera-shop/modera/app/repositories"
	"github.com/modera-shop/modera/config"
	"github.com/modera-shop/modera/pkg/app"
	"github.com/modera-shop/modera/pkg/cache"
	"github.com/modera-shop/modera/pkg/storage"
	"github.com/modera-shop/modera/pkg/testkit"
)

func settings(t *testing.T, extra map[string]string) *config.Settings {
	t.Helper()
	m := map[string]string{
		"JWT_SECRET":         "test-secret",
		"BASE_URL":           "http://shop.test/",
		"STORAGE_LOCAL_ROOT": t.TempDir(),
		"CORS_ORIGINS":       "http://localhost:5173",
	}
	for k, v := range extra {
		m[k] = v
	}
	return config.FromMap(m)
}

func newApp(t *testing.T, s *config.Settings) (*app.Application, http.Handler) {
	t.Helper()
	a := app.New(s, repositories.NewMemory(), cache.NewMemory(), storage.NewManager(context.Background(), s))
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	h, err := a.Handler()
	require.NoError(t, err)
	return a, h
}

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*_flow.json"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, p := range paths {
		_, h := newApp(t, settings(t, nil))
		testkit.Run(t, h, p)
	}
}

func TestCloudinaryUpload(t *testing.T) {
	_, h := newApp(t, settings(t, map[string]string{
		"CLOUDINARY_CLOUD_NAME": "demo",
		"CLOUDINARY_API_KEY":    "key",
		"CLOUDINARY_API_SECRET": "secret",
	}))
	testkit.Run(t, h, filepath.Join("testdata", "cloudinary", "upload.json"))
}

func TestHandler_CORSPreflight(t *testing.T) {
	_, h := newApp(t, settings(t, nil))

	req := httptest.NewRequest(http.MethodOptions, "/addtocart", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "auth-token, content-type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	_, h := newApp(t, settings(t, nil))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/allproducts", nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "modera_http_requests_total")
}

func TestHandler_RateLimited(t *testing.T) {
	_, h := newApp(t, settings(t, map[string]string{"RATE_LIMIT_PER_MINUTE": "2"}))

	codes := make([]int, 3)
	for i := range codes {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes[i] = rec.Code
	}
	assert.Equal(t, []int{200, 200, http.StatusTooManyRequests}, codes)
}

func TestPrintRoutes(t *testing.T) {
	a, _ := newApp(t, settings(t, nil))
	r, err := a.Router()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, app.PrintRoutes(r, &buf))
	out := buf.String()
	for _, want := range []string{"/addtocart", "cart.add", "/graphql", "/cart/stream", "metrics"} {
		assert.Contains(t, out, want)
	}
}

func TestClose_Twice(t *testing.T) {
	s := settings(t, nil)
	a := app.New(s, repositories.NewMemory(), cache.NewMemory(), storage.NewManager(context.Background(), s))
	require.NoError(t, a.Close(context.Background()))
	require.NoError(t, a.Close(context.Background()))
}
