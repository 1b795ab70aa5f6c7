package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRouter_Health(t *testing.T) {
	srv := httptest.NewServer(NewRouter(func() any {
		return map[string]string{"room": "lobby", "join": "JOINED"}
	}, false))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"room":"lobby","join":"JOINED"}`, string(body))
}

func TestNewRouter_Metrics(t *testing.T) {
	LiveEvents.WithLabelValues("chat_message", "accepted").Inc()

	srv := httptest.NewServer(NewRouter(nil, false))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "impact_chat_live_events_total")

	pp, err := http.Get(srv.URL + "/debug/pprof/")
	require.NoError(t, err)
	pp.Body.Close()
	assert.Equal(t, http.StatusNotFound, pp.StatusCode)
}
