package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modera-shop/modera/pkg/metrics"
)

// counter reads a counter sample from the registry, 0 when absent.
func counter(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := metrics.DefaultRegistry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue next
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(metrics.Middleware())
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	labels := map[string]string{"method": "GET", "route": "/items/{id}", "status": "418"}
	before := counter(t, "modera_http_requests_total", labels)
	for _, id := range []string{"1", "2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
	}
	assert.Equal(t, 2.0, counter(t, "modera_http_requests_total", labels)-before)
}

func TestRecordCartMutation(t *testing.T) {
	labels := map[string]string{"op": "increment", "applied": "false"}
	before := counter(t, "modera_cart_mutations_total", labels)
	metrics.RecordCartMutation("increment", false)
	assert.Equal(t, 1.0, counter(t, "modera_cart_mutations_total", labels)-before)
}

func TestHandler_Exposes(t *testing.T) {
	metrics.RecordCartMutation("decrement", true)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "modera_cart_mutations_total"))
}
