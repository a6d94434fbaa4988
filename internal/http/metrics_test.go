package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memberhub-backend-go/internal/models"
)

func dialMetrics(t *testing.T, ts *testServer, token, origin string) (*websocket.Conn, int) {
	t.Helper()
	srv := httptest.NewServer(ts.handler)
	t.Cleanup(srv.Close)

	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/metrics?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		require.NotNil(t, resp, err.Error())
		return nil, resp.StatusCode
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn, resp.StatusCode
}

func TestMetricsSocket(t *testing.T) {
	t.Run("Should require an admin token", func(t *testing.T) {
		ts := newTestServer(t)
		_, member := ts.userToken(t, "member@example.org", models.RoleMember, models.ApprovalApproved)

		_, status := dialMetrics(t, ts, "", "")
		assert.Equal(t, http.StatusUnauthorized, status)
		_, status = dialMetrics(t, ts, "garbage", "")
		assert.Equal(t, http.StatusUnauthorized, status)
		_, status = dialMetrics(t, ts, member, "")
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("Should accept any origin without a CORS allow-list", func(t *testing.T) {
		ts := newTestServer(t)
		_, admin := ts.adminToken(t)

		conn, status := dialMetrics(t, ts, admin, "http://elsewhere.test")
		assert.Equal(t, http.StatusSwitchingProtocols, status)
		assert.NotNil(t, conn)
	})

	t.Run("Should only accept listed origins once CORS is configured", func(t *testing.T) {
		cfg := testConfig()
		cfg.CorsOrigins = []string{"http://frontend.test"}
		ts := newTestServerWith(t, cfg)
		_, admin := ts.adminToken(t)

		_, status := dialMetrics(t, ts, admin, "http://evil.test")
		assert.Equal(t, http.StatusForbidden, status)

		conn, status := dialMetrics(t, ts, admin, "http://frontend.test")
		assert.Equal(t, http.StatusSwitchingProtocols, status)
		assert.NotNil(t, conn)

		_, status = dialMetrics(t, ts, admin, "")
		assert.Equal(t, http.StatusSwitchingProtocols, status)
	})
}
