package httpapi

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	charmlog "github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memberhub-backend-go/internal/config"
)

func panicking(http.ResponseWriter, *http.Request) { panic("boom") }

func TestRecoverer(t *testing.T) {
	t.Run("Should mask panics in production", func(t *testing.T) {
		s := &Server{Config: config.Config{Env: "production"}, Logger: charmlog.New(io.Discard)}
		rec := httptest.NewRecorder()
		s.Recoverer(http.HandlerFunc(panicking)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Internal server error", errorMessage(t, rec))
	})

	t.Run("Should expose the panic outside production", func(t *testing.T) {
		s := &Server{Config: config.Config{Env: "development"}, Logger: charmlog.New(io.Discard)}
		rec := httptest.NewRecorder()
		s.Recoverer(http.HandlerFunc(panicking)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, errorMessage(t, rec), "boom")
	})
}

func TestRequestLoggerKeepsStatus(t *testing.T) {
	handler := RequestLogger(charmlog.New(io.Discard))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusTeapot, "short and stout")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short and stout", errorMessage(t, rec))
}

func hitHealth(ts *testServer, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit(t *testing.T) {
	t.Run("Should answer 429 once the memory budget is spent", func(t *testing.T) {
		cfg := testConfig()
		cfg.RateLimit = "2-M"
		ts := newTestServerWith(t, cfg)

		assert.Equal(t, http.StatusOK, hitHealth(ts, "10.0.0.1:1000").Code)
		assert.Equal(t, http.StatusOK, hitHealth(ts, "10.0.0.1:1000").Code)
		rec := hitHealth(ts, "10.0.0.1:1000")
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "Too many requests, please try again later", errorMessage(t, rec))
		assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

		assert.Equal(t, http.StatusOK, hitHealth(ts, "10.0.0.2:1000").Code)
	})

	t.Run("Should share counters through redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })

		cfg := testConfig()
		cfg.RateLimit = "1-M"
		first := newTestServerWith(t, cfg)
		second := newTestServerWith(t, cfg)
		for _, ts := range []*testServer{first, second} {
			store, err := NewLimiterStore(client, "memberhub-test")
			require.NoError(t, err)
			ts.LimiterStore = store
			ts.handler, err = ts.Router()
			require.NoError(t, err)
		}

		assert.Equal(t, http.StatusOK, hitHealth(first, "10.0.0.3:1000").Code)
		assert.Equal(t, http.StatusTooManyRequests, hitHealth(second, "10.0.0.3:1000").Code)
	})

	t.Run("Should refuse a malformed rate", func(t *testing.T) {
		store, err := NewLimiterStore(nil, "memberhub")
		require.NoError(t, err)
		_, err = RateLimit("global", "lots", store, false)
		require.Error(t, err)
	})

	t.Run("Should pass through when no rate is set", func(t *testing.T) {
		mw, err := RateLimit("global", "", nil, false)
		require.NoError(t, err)
		rec := httptest.NewRecorder()
		mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func loginFrom(ts *testServer, remoteAddr, forwardedFor string) int {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"x@example.org","password":"whatever"}`))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimitForwardedHeaders(t *testing.T) {
	t.Run("Should key on the peer address when proxies are not trusted", func(t *testing.T) {
		cfg := testConfig()
		cfg.AuthRateLimit = "2-M"
		ts := newTestServerWith(t, cfg)

		codes := make([]int, 0, 4)
		for i := range 4 {
			codes = append(codes, loginFrom(ts, "10.0.0.9:1000", "198.51.100."+strconv.Itoa(i+1)))
		}
		assert.Equal(t, []int{
			http.StatusUnauthorized, http.StatusUnauthorized,
			http.StatusTooManyRequests, http.StatusTooManyRequests,
		}, codes)
	})

	t.Run("Should key on X-Forwarded-For behind a trusted proxy", func(t *testing.T) {
		cfg := testConfig()
		cfg.AuthRateLimit = "1-M"
		cfg.TrustProxy = true
		ts := newTestServerWith(t, cfg)

		assert.Equal(t, http.StatusUnauthorized, loginFrom(ts, "10.0.0.10:1000", "198.51.100.7"))
		assert.Equal(t, http.StatusTooManyRequests, loginFrom(ts, "10.0.0.10:1000", "198.51.100.7"))
		assert.Equal(t, http.StatusUnauthorized, loginFrom(ts, "10.0.0.10:1000", "198.51.100.8"))
	})
}

func TestAuthRateLimitIsSeparate(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = "3-M"
	cfg.AuthRateLimit = "1-M"
	ts := newTestServerWith(t, cfg)

	body := map[string]string{"email": "x@example.org", "password": "whatever"}
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodPost, "/api/auth/login", "", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, ts.do(t, http.MethodPost, "/api/auth/login", "", body).Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/health", "", nil).Code)
}
