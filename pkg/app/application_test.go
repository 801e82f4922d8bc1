package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"turfbook/internal/bookings/handler"
	"turfbook/internal/metrics"
	"turfbook/pkg/auth"
	"turfbook/pkg/config"
	httputil "turfbook/pkg/http"
	"turfbook/pkg/logger"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type whoAmIHandler struct{}

func (whoAmIHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/whoami", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		actor, ok := auth.ActorFromContext(r.Context())
		if !ok {
			_ = httputil.WriteJSON(w, http.StatusOK, map[string]string{"user": "anonymous"})
			return
		}
		_ = httputil.WriteJSON(w, http.StatusOK, map[string]string{"user": actor.UserID})
	})
}

func newTestApplication(t *testing.T) (*Application, *auth.Authenticator) {
	t.Helper()

	cfg := &config.Config{
		Log:               logger.Discard(),
		Port:              "8080",
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    5 * time.Second,
		IdempotencyTTL:    time.Minute,
		MaxRequestSize:    1 << 20,
	}
	authenticator := auth.NewAuthenticator("jwt-secret")
	registry := prometheus.NewRegistry()
	metrics.New(registry)

	a := NewApplication(cfg)
	a.SetApp(whoAmIHandler{}, Routes{
		Authenticator: authenticator,
		Readiness: map[string]handler.ReadinessCheck{
			"mongo": func(context.Context) error { return nil },
		},
		Metrics: metrics.Handler(registry),
	})
	t.Cleanup(a.idempotencyStore.Stop)
	return a, authenticator
}

func TestApplication_AuthenticatesAPIRoutes(t *testing.T) {
	a, authenticator := newTestApplication(t)

	token, err := authenticator.Issue(auth.Actor{UserID: "user-1", Role: auth.RoleUser}, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":"user-1"}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rec = httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestApplication_OperationalRoutes(t *testing.T) {
	a, _ := newTestApplication(t)

	for _, path := range []string{"/health", "/ready", "/metrics"} {
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
