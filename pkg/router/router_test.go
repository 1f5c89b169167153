package router_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modera-shop/modera/pkg/router"
)

func tag(v string) router.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("X-Trace", v)
			next.ServeHTTP(w, r)
		})
	}
}

func ok(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, body) }
}

func TestRouter_GroupMiddlewareOrder(t *testing.T) {
	r := router.New()
	g := r.Group("/cart", tag("group"))
	g.Post("get", "cart.get", ok("cart"), tag("route"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cart/get", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cart", rec.Body.String())
	assert.Equal(t, []string{"group", "route"}, rec.Header().Values("X-Trace"))
}

func TestRouter_MethodMismatch(t *testing.T) {
	r := router.New()
	r.Post("/login", "auth.login", ok("token"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_MountAndRoutes(t *testing.T) {
	r := router.New()
	r.Get("/", "home", ok("up"))
	r.Post("allproducts/", "catalog.all", ok("[]"))
	r.Mount("/images", "images", http.StripPrefix("/images", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_, _ = io.WriteString(w, req.URL.Path)
	})))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images/a.png", nil))
	assert.Equal(t, "/a.png", rec.Body.String())

	routes := r.Routes()
	require.Len(t, routes, 3)
	assert.Equal(t, router.RouteInfo{Method: "GET", Path: "/", Name: "home"}, routes[0])
	assert.Equal(t, "/allproducts", routes[1].Path)
	assert.Equal(t, "/images/*", routes[2].Path)
}
