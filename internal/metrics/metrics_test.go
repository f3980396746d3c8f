package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInstrumentUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Instrument)
	r.Get("/properties/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.CollectAndCount(HTTPRequestDuration)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/properties/42", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/properties/43", nil))

	assert.Equal(t, before+1, testutil.CollectAndCount(HTTPRequestDuration))
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(FavoriteTogglesTotal.WithLabelValues("liked"))
	FavoriteTogglesTotal.WithLabelValues("liked").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(FavoriteTogglesTotal.WithLabelValues("liked")))
}
